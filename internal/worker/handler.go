package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Domenick1991/parcelbooking/internal/domain"
	"github.com/Domenick1991/parcelbooking/internal/kafka"
	"github.com/Domenick1991/parcelbooking/internal/label"
	"go.uber.org/zap"
)

type ShipmentReader interface {
	GetByTrackingCode(ctx context.Context, code string) (*domain.Shipment, error)
}

type LabelAttacher interface {
	AttachLabel(ctx context.Context, trackingCode, labelURL string) error
}

type WindowCloser interface {
	CloseCancellationWindows(ctx context.Context) ([]domain.Shipment, error)
}

type Notifier interface {
	Send(ctx context.Context, event kafka.ShipmentEvent) error
}

type Config struct {
	ShipmentTopic      string
	NotificationsTopic string
	CarrierName        string
	Language           string
}

// Handler reacts to shipment events: booked shipments get a label, and every event on
// the notifications topic is passed to the customer notifier.
type Handler struct {
	cfg       Config
	shipments ShipmentReader
	labels    label.Generator
	attacher  LabelAttacher
	notifier  Notifier
	logger    *zap.Logger
}

func NewHandler(cfg Config, shipments ShipmentReader, labels label.Generator, attacher LabelAttacher, notifier Notifier, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		cfg:       cfg,
		shipments: shipments,
		labels:    labels,
		attacher:  attacher,
		notifier:  notifier,
		logger:    logger,
	}
}

// Handle never fails on a bad message so one poison event cannot stall the consumer.
// Only context cancellation is returned.
func (h *Handler) Handle(ctx context.Context, msg kafka.Message) error {
	var event kafka.ShipmentEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.Warn("decode shipment event", zap.String("topic", msg.Topic), zap.Error(err))
		return nil
	}

	switch msg.Topic {
	case h.cfg.ShipmentTopic:
		if event.Type == kafka.EventShipmentBooked {
			h.generateLabel(ctx, event)
		}
	case h.cfg.NotificationsTopic:
		if err := h.notifier.Send(ctx, event); err != nil {
			h.logger.Warn("notify customer", zap.String("tracking_code", event.TrackingCode), zap.Error(err))
		}
	default:
		h.logger.Debug("ignored message", zap.String("topic", msg.Topic))
	}
	return ctx.Err()
}

func (h *Handler) generateLabel(ctx context.Context, event kafka.ShipmentEvent) {
	log := h.logger.With(zap.String("tracking_code", event.TrackingCode))

	shipment, err := h.shipments.GetByTrackingCode(ctx, event.TrackingCode)
	if err != nil {
		log.Warn("load shipment for label", zap.Error(err))
		return
	}
	if shipment.Status == domain.ShipmentStatusCancelled {
		return
	}

	resp, err := h.labels.Generate(ctx, label.NewRequest(shipment, h.cfg.CarrierName, h.cfg.Language))
	if err != nil {
		log.Warn("generate label", zap.Error(err))
		return
	}
	if err := h.attacher.AttachLabel(ctx, event.TrackingCode, resp.LabelURL); err != nil {
		log.Error("attach label", zap.Error(err))
		return
	}
	log.Info("label attached", zap.String("label_url", resp.LabelURL))
}

// RunSweeps closes expired cancellation windows every interval until ctx ends.
func RunSweeps(ctx context.Context, closer WindowCloser, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			closed, err := closer.CloseCancellationWindows(ctx)
			if err != nil {
				logger.Error("close cancellation windows", zap.Error(err))
				continue
			}
			if len(closed) > 0 {
				logger.Info("shipments handed to processing", zap.Int("count", len(closed)))
			}
		case <-ctx.Done():
			return
		}
	}
}
