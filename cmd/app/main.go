package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/parcelbooking/api"
	"github.com/Domenick1991/parcelbooking/config"
	"github.com/Domenick1991/parcelbooking/internal/bootstrap"
	"github.com/Domenick1991/parcelbooking/internal/calendar"
	"github.com/Domenick1991/parcelbooking/internal/domain"
	"github.com/Domenick1991/parcelbooking/internal/kafka"
	"github.com/Domenick1991/parcelbooking/internal/logger"
	"github.com/Domenick1991/parcelbooking/internal/payment"
	"github.com/Domenick1991/parcelbooking/internal/receipt"
	"github.com/Domenick1991/parcelbooking/internal/repository"
	"github.com/Domenick1991/parcelbooking/internal/service/booking"
	"github.com/Domenick1991/parcelbooking/internal/service/pricing"
	"github.com/Domenick1991/parcelbooking/internal/wizard"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	lg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		lg.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers, lg.Named("kafka"))
	defer producer.Close()
	if err := producer.CheckConnection(ctx); err != nil {
		lg.Warn("kafka unavailable, events will fail to publish", zap.Error(err))
	}

	receipts := receipt.NewRedisStore(cfg.Redis, time.Duration(cfg.Booking.ReceiptTTLHours)*time.Hour)
	defer receipts.Close()

	shipmentRepo := repository.NewShipmentRepository(pool)
	bookingService := booking.NewShipmentService(
		shipmentRepo,
		payment.NewStripeGateway(cfg.Payment.StripeKey, lg.Named("payment")),
		producer.Retrying(3),
		cfg.Kafka.ShipmentTopic,
		cfg.Booking.CancellationWindow(),
		cfg.Pricing.ExpressPrice,
		cfg.Pricing.Currency,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		booking.WithLogger(lg.Named("booking")),
	)
	calendarService := pricing.NewCalendarService(cfg.Pricing.WindowDays, pricing.WithLogger(lg.Named("pricing")))

	sessions := wizard.NewRegistry(func(userID string) *wizard.Machine {
		return wizard.NewMachine(userID,
			domain.WindowFrom(time.Now(), cfg.Pricing.WindowDays),
			bookingService,
			receipts,
			wizard.WithLogger(lg.Named("wizard")),
			wizard.WithCalendarOptions(calendar.WithLoadingDelay(cfg.Pricing.LoadingDelay())),
		)
	}, time.Duration(cfg.Booking.SessionIdleMinutes)*time.Minute, lg.Named("sessions"))
	go sessions.Run(ctx, time.Minute)

	if cfg.Log.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(cfg.HTTP, cfg.Auth.JWTSecret, lg.Named("http"), api.Handlers{
		Calendar:  api.NewCalendarHandler(calendarService),
		Shipments: api.NewShipmentHandler(bookingService),
		Wizard:    api.NewWizardHandler(sessions),
	})

	if err := bootstrap.Run(ctx, cfg, calendarService, router, lg); err != nil {
		lg.Fatal("server error", zap.Error(err))
	}
}
