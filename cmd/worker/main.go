package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/parcelbooking/config"
	"github.com/Domenick1991/parcelbooking/internal/kafka"
	"github.com/Domenick1991/parcelbooking/internal/label"
	"github.com/Domenick1991/parcelbooking/internal/logger"
	"github.com/Domenick1991/parcelbooking/internal/notify"
	"github.com/Domenick1991/parcelbooking/internal/payment"
	"github.com/Domenick1991/parcelbooking/internal/repository"
	"github.com/Domenick1991/parcelbooking/internal/service/booking"
	"github.com/Domenick1991/parcelbooking/internal/worker"
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

	shipmentRepo := repository.NewShipmentRepository(pool)
	bookingService := booking.NewShipmentService(
		shipmentRepo,
		payment.NewStripeGateway(cfg.Payment.StripeKey, lg.Named("payment")),
		producer,
		cfg.Kafka.ShipmentTopic,
		cfg.Booking.CancellationWindow(),
		cfg.Pricing.ExpressPrice,
		cfg.Pricing.Currency,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		booking.WithLogger(lg.Named("booking")),
	)

	handler := worker.NewHandler(
		worker.Config{
			ShipmentTopic:      cfg.Kafka.ShipmentTopic,
			NotificationsTopic: cfg.Kafka.NotificationsTopic,
			CarrierName:        cfg.Booking.CarrierName,
			Language:           cfg.Label.Language,
		},
		shipmentRepo,
		label.NewHTTPClient(cfg.Label.Endpoint, time.Duration(cfg.Label.TimeoutSeconds)*time.Second, lg.Named("label")),
		bookingService,
		notify.NewSender(lg.Named("notify"), cfg.Pricing.CurrencySymbol),
		lg.Named("worker"),
	)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.ShipmentTopic, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	go func() {
		if err := consumer.Consume(ctx, handler.Handle); err != nil && !errors.Is(err, context.Canceled) {
			lg.Error("consumer stopped", zap.Error(err))
			stop()
		}
	}()

	lg.Info("worker started")
	worker.RunSweeps(ctx, bookingService, time.Duration(cfg.Worker.SweepMinutes)*time.Minute, lg.Named("sweeper"))
	lg.Info("worker stopped")
}
