package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/parcelbooking/internal/domain"
	"github.com/Domenick1991/parcelbooking/internal/kafka"
	"github.com/Domenick1991/parcelbooking/internal/payment"
	"github.com/Domenick1991/parcelbooking/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingUseCase interface {
	Submit(ctx context.Context, draft domain.BookingDraft) (domain.SubmitResponse, error)
	Cancel(ctx context.Context, trackingCode, userID string) (bool, error)
	Lookup(ctx context.Context, trackingCode, userID string) (*domain.BookingResult, error)
	CloseCancellationWindows(ctx context.Context) ([]domain.Shipment, error)
	AttachLabel(ctx context.Context, trackingCode, labelURL string) error
}

type PaymentGateway interface {
	Charge(ctx context.Context, req payment.ChargeRequest) (payment.Charge, error)
	Refund(ctx context.Context, chargeID string) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type ShipmentService struct {
	shipments          repository.ShipmentRepository
	payments           PaymentGateway
	producer           Producer
	shipmentTopic      string
	notificationsTopic string
	cancellationWindow time.Duration
	expressPrice       float64
	currency           string
	logger             *zap.Logger
	now                func() time.Time
}

type ShipmentServiceOption func(*ShipmentService)

func WithNotificationsTopic(topic string) ShipmentServiceOption {
	return func(s *ShipmentService) {
		s.notificationsTopic = topic
	}
}

func WithLogger(logger *zap.Logger) ShipmentServiceOption {
	return func(s *ShipmentService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(now func() time.Time) ShipmentServiceOption {
	return func(s *ShipmentService) {
		s.now = now
	}
}

func NewShipmentService(
	shipments repository.ShipmentRepository,
	payments PaymentGateway,
	producer Producer,
	shipmentTopic string,
	cancellationWindow time.Duration,
	expressPrice float64,
	currency string,
	opts ...ShipmentServiceOption,
) *ShipmentService {
	service := &ShipmentService{
		shipments:          shipments,
		payments:           payments,
		producer:           producer,
		shipmentTopic:      shipmentTopic,
		cancellationWindow: cancellationWindow,
		expressPrice:       expressPrice,
		currency:           currency,
		logger:             zap.NewNop(),
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func validateDraft(d domain.BookingDraft) error {
	if d.UserID == "" {
		return errors.New("user is required")
	}
	if !d.CustomerType.Valid() {
		return errors.New("customer type is required")
	}
	if !d.Package.Complete() {
		return errors.New("package weight and dimensions must be positive")
	}
	if !d.Pickup.Complete() {
		return errors.New("pickup address is incomplete")
	}
	if !d.Delivery.Complete() {
		return errors.New("delivery address is incomplete")
	}
	switch d.Option {
	case domain.DeliveryFast:
	case domain.DeliveryCheap:
		if d.RequestedDeliveryDate == nil {
			return errors.New("a delivery date is required for economy delivery")
		}
		if d.DeliveryPrice <= 0 {
			return errors.New("the selected delivery date has no price")
		}
	default:
		return errors.New("delivery option is required")
	}
	if !d.Payment.TermsAccepted {
		return errors.New("terms must be accepted")
	}
	return nil
}

func (s *ShipmentService) totalPrice(d domain.BookingDraft) float64 {
	if d.Option == domain.DeliveryFast {
		return s.expressPrice
	}
	return d.DeliveryPrice
}

// Submit books a shipment. Problems the customer can fix, such as an incomplete draft
// or a declined card, come back as an unsuccessful response rather than an error.
func (s *ShipmentService) Submit(ctx context.Context, draft domain.BookingDraft) (domain.SubmitResponse, error) {
	if err := validateDraft(draft); err != nil {
		return domain.SubmitResponse{Success: false, Message: capitalize(err.Error())}, nil
	}

	code := newTrackingCode()
	total := s.totalPrice(draft)

	charge, err := s.payments.Charge(ctx, payment.ChargeRequest{
		Amount:          total,
		Currency:        s.currency,
		Method:          draft.Payment.Method,
		PaymentMethodID: draft.Payment.PaymentMethodID,
		Reference:       code,
		Description:     fmt.Sprintf("Parcel shipment %s (%s)", code, draft.Option.Speed()),
	})
	if err != nil {
		var decline *payment.DeclineError
		if errors.As(err, &decline) {
			s.logger.Info("payment declined", zap.String("user_id", draft.UserID), zap.String("reason", decline.Message))
			return domain.SubmitResponse{Success: false, Message: decline.Message}, nil
		}
		return domain.SubmitResponse{}, fmt.Errorf("charge shipment: %w", err)
	}

	var requested *time.Time
	if draft.Option == domain.DeliveryCheap && draft.RequestedDeliveryDate != nil {
		d := domain.DayOf(*draft.RequestedDeliveryDate)
		requested = &d
	}

	shipment := &domain.Shipment{
		TrackingCode:          code,
		UserID:                draft.UserID,
		CustomerType:          draft.CustomerType,
		Package:               draft.Package,
		Pickup:                draft.Pickup,
		Delivery:              draft.Delivery,
		Speed:                 draft.Option.Speed(),
		RequestedDeliveryDate: requested,
		TotalPrice:            total,
		Currency:              s.currency,
		PaymentID:             charge.ID,
		Status:                domain.ShipmentStatusBooked,
		CancellationDeadline:  s.now().Add(s.cancellationWindow),
	}

	if err := s.shipments.Create(ctx, shipment); err != nil {
		if rerr := s.payments.Refund(ctx, charge.ID); rerr != nil {
			s.logger.Error("refund after failed booking", zap.String("charge_id", charge.ID), zap.Error(rerr))
		}
		return domain.SubmitResponse{}, fmt.Errorf("store shipment: %w", err)
	}

	s.logger.Info("shipment booked",
		zap.String("tracking_code", code),
		zap.String("speed", string(shipment.Speed)),
		zap.Float64("total_price", total))
	if err := s.publish(ctx, kafka.EventShipmentBooked, shipment); err != nil {
		s.logger.Warn("publish shipment_booked", zap.String("tracking_code", code), zap.Error(err))
	}

	return domain.SubmitResponse{
		Success:              true,
		TrackingCode:         code,
		TotalPrice:           total,
		CancellationDeadline: shipment.CancellationDeadline,
	}, nil
}

// Cancel reports false when the shipment is unknown, owned by someone else, already
// past its cancellation deadline, or no longer booked.
func (s *ShipmentService) Cancel(ctx context.Context, trackingCode, userID string) (bool, error) {
	current, err := s.owned(ctx, trackingCode, userID)
	if err != nil || current == nil {
		return false, err
	}
	if current.Status != domain.ShipmentStatusBooked || !current.Result().CanCancel(s.now()) {
		return false, nil
	}

	updated, err := s.shipments.UpdateStatus(ctx, trackingCode, domain.ShipmentStatusBooked, domain.ShipmentStatusCancelled)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := s.payments.Refund(ctx, updated.PaymentID); err != nil {
		s.logger.Error("refund cancelled shipment", zap.String("tracking_code", trackingCode), zap.Error(err))
	}
	if err := s.publish(ctx, kafka.EventShipmentCancelled, updated); err != nil {
		s.logger.Warn("publish shipment_cancelled", zap.String("tracking_code", trackingCode), zap.Error(err))
	}
	return true, nil
}

// Lookup returns nil when no shipment with trackingCode belongs to userID.
func (s *ShipmentService) Lookup(ctx context.Context, trackingCode, userID string) (*domain.BookingResult, error) {
	current, err := s.owned(ctx, trackingCode, userID)
	if err != nil || current == nil {
		return nil, err
	}
	res := current.Result()
	return &res, nil
}

// CloseCancellationWindows hands shipments whose cancellation deadline has passed to processing.
func (s *ShipmentService) CloseCancellationWindows(ctx context.Context) ([]domain.Shipment, error) {
	closed, err := s.shipments.CloseCancellationWindowsBefore(ctx, s.now())
	if err != nil {
		return nil, err
	}
	for i := range closed {
		if err := s.publish(ctx, kafka.EventShipmentProcessing, &closed[i]); err != nil {
			s.logger.Warn("publish shipment_processing", zap.String("tracking_code", closed[i].TrackingCode), zap.Error(err))
		}
	}
	return closed, nil
}

func (s *ShipmentService) AttachLabel(ctx context.Context, trackingCode, labelURL string) error {
	if labelURL == "" {
		return errors.New("label url is required")
	}
	return s.shipments.SetLabelURL(ctx, trackingCode, labelURL)
}

func (s *ShipmentService) owned(ctx context.Context, trackingCode, userID string) (*domain.Shipment, error) {
	current, err := s.shipments.GetByTrackingCode(ctx, trackingCode)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if current.UserID != userID {
		return nil, nil
	}
	return current, nil
}

func (s *ShipmentService) publish(ctx context.Context, eventType string, shipment *domain.Shipment) error {
	if s.producer == nil || s.shipmentTopic == "" {
		return nil
	}
	event := kafka.NewShipmentEvent(eventType, shipment)
	if err := s.producer.Publish(ctx, s.shipmentTopic, shipment.TrackingCode, event); err != nil {
		return err
	}
	if s.notificationsTopic != "" {
		return s.producer.Publish(ctx, s.notificationsTopic, shipment.TrackingCode, event)
	}
	return nil
}

func newTrackingCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "PS" + strings.ToUpper(raw[:12])
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

var _ BookingUseCase = (*ShipmentService)(nil)
