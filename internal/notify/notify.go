package notify

import (
	"context"
	"fmt"

	"github.com/Domenick1991/parcelbooking/internal/domain"
	"github.com/Domenick1991/parcelbooking/internal/kafka"
	"go.uber.org/zap"
)

// Sender delivers customer notifications. Delivery is a structured log line until a
// mail or SMS provider is configured.
type Sender struct {
	logger         *zap.Logger
	currencySymbol string
}

func NewSender(logger *zap.Logger, currencySymbol string) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{logger: logger, currencySymbol: currencySymbol}
}

func (s *Sender) Send(ctx context.Context, event kafka.ShipmentEvent) error {
	msg, ok := s.Message(event)
	if !ok {
		return fmt.Errorf("unknown shipment event %q", event.Type)
	}
	s.logger.Info("notify customer",
		zap.String("user_id", event.UserID),
		zap.String("tracking_code", event.TrackingCode),
		zap.String("event", event.Type),
		zap.String("message", msg))
	return nil
}

// Message renders the customer-facing text for event.
func (s *Sender) Message(event kafka.ShipmentEvent) (string, bool) {
	price := domain.FormatPrice(event.TotalPrice, s.currencySymbol)
	switch event.Type {
	case kafka.EventShipmentBooked:
		msg := fmt.Sprintf("Shipment %s booked (%s, %s).", event.TrackingCode, event.Speed, price)
		if event.RequestedDeliveryDate != nil {
			msg += " Requested delivery " + event.RequestedDeliveryDate.Format("2006-01-02") + "."
		}
		return msg + " You can cancel until " + event.CancellationDeadline.Format("15:04") + ".", true
	case kafka.EventShipmentCancelled:
		return fmt.Sprintf("Shipment %s cancelled. %s will be refunded.", event.TrackingCode, price), true
	case kafka.EventShipmentProcessing:
		return fmt.Sprintf("Shipment %s is being processed.", event.TrackingCode), true
	}
	return "", false
}
