package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Domenick1991/parcelbooking/config"
	pricingapi "github.com/Domenick1991/parcelbooking/internal/api/pricing_service_api"
	"github.com/Domenick1991/parcelbooking/internal/service/pricing"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

type Servers struct {
	grpcServer *grpc.Server
	httpServer *http.Server
	gatewayCC  *grpc.ClientConn
}

// Run starts the gRPC server and the HTTP server (REST API, grpc-gateway and swagger)
// and blocks until ctx is canceled or a server fails.
func Run(ctx context.Context, cfg *config.Config, calendar pricing.CalendarUseCase, router http.Handler, logger *zap.Logger) error {
	s, err := newServers(cfg, calendar, router)
	if err != nil {
		return err
	}
	defer s.gatewayCC.Close()

	errCh := make(chan error, 2)

	lis, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		return fmt.Errorf("listen gRPC %s: %w", cfg.GRPC.Address, err)
	}
	go func() { errCh <- s.grpcServer.Serve(lis) }()
	logger.Info("grpc server listening", zap.String("address", cfg.GRPC.Address))

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	logger.Info("http server listening", zap.String("address", cfg.HTTP.Address))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.grpcServer.GracefulStop()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func newServers(cfg *config.Config, calendar pricing.CalendarUseCase, router http.Handler) (*Servers, error) {
	grpcSrv := grpc.NewServer()
	pricingapi.RegisterPricingServiceServer(grpcSrv, pricingapi.NewServer(calendar))

	cc, err := grpc.NewClient(cfg.GRPC.Address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial gRPC for gateway: %w", err)
	}

	gw := pricingapi.NewGatewayMux()
	if err := pricingapi.RegisterGateway(gw, pricingapi.NewPricingServiceClient(cc)); err != nil {
		cc.Close()
		return nil, fmt.Errorf("register pricing gateway: %w", err)
	}

	return &Servers{
		grpcServer: grpcSrv,
		httpServer: &http.Server{
			Addr:              cfg.HTTP.Address,
			Handler:           newHandler(cfg.HTTP, gw, router),
			ReadHeaderTimeout: 10 * time.Second,
		},
		gatewayCC: cc,
	}, nil
}

func newHandler(cfg config.HTTPConfig, gateway, router http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/v1/", gateway)

	if cfg.SwaggerDir != "" {
		fs := http.FileServer(http.Dir(cfg.SwaggerDir))
		mux.Handle("/swagger/", http.StripPrefix("/swagger/", fs))
		mux.Handle("/docs/", httpSwagger.Handler(httpSwagger.URL("/swagger/parcel.swagger.json")))
	}

	mux.Handle("/", router)
	return mux
}
