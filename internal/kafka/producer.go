package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Domenick1991/parcelbooking/internal/domain"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	EventShipmentBooked     = "shipment_booked"
	EventShipmentCancelled  = "shipment_cancelled"
	EventShipmentProcessing = "shipment_processing"
)

type ShipmentEvent struct {
	Type                  string     `json:"type"`
	TrackingCode          string     `json:"tracking_code"`
	UserID                string     `json:"user_id"`
	Status                string     `json:"status"`
	Speed                 string     `json:"speed"`
	TotalPrice            float64    `json:"total_price"`
	Currency              string     `json:"currency"`
	RequestedDeliveryDate *time.Time `json:"requested_delivery_date,omitempty"`
	CancellationDeadline  time.Time  `json:"cancellation_deadline"`
}

func NewShipmentEvent(eventType string, s *domain.Shipment) ShipmentEvent {
	return ShipmentEvent{
		Type:                  eventType,
		TrackingCode:          s.TrackingCode,
		UserID:                s.UserID,
		Status:                string(s.Status),
		Speed:                 string(s.Speed),
		TotalPrice:            s.TotalPrice,
		Currency:              s.Currency,
		RequestedDeliveryDate: s.RequestedDeliveryDate,
		CancellationDeadline:  s.CancellationDeadline,
	}
}

type Producer struct {
	brokers []string
	writer  *kafka.Writer
	logger  *zap.Logger
}

func NewProducer(brokers []string, logger *zap.Logger) *Producer {
	if logger == nil {
		logger = zap.NewNop()
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	return &Producer{
		brokers: brokers,
		writer:  writer,
		logger:  logger,
	}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	message := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	p.logger.Debug("published to kafka", zap.String("topic", topic), zap.String("key", key))
	return nil
}

func (p *Producer) PublishWithRetry(ctx context.Context, topic, key string, payload interface{}, maxRetries int) error {
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		err := p.Publish(ctx, topic, key, payload)
		if err == nil {
			return nil
		}

		lastErr = err
		p.logger.Warn("kafka publish attempt failed", zap.Int("attempt", i+1), zap.Error(err))

		if i < maxRetries-1 {
			select {
			case <-time.After(time.Duration(i+1) * 500 * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

// CheckConnection dials the first broker and lists partitions.
func (p *Producer) CheckConnection(ctx context.Context) error {
	conn, err := kafka.DialContext(ctx, "tcp", p.brokers[0])
	if err != nil {
		return fmt.Errorf("failed to connect to Kafka: %w", err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions()
	if err != nil {
		return fmt.Errorf("failed to read partitions: %w", err)
	}

	p.logger.Info("connected to kafka", zap.Int("partitions", len(partitions)))
	return nil
}

// RetryingProducer publishes through PublishWithRetry so callers that only know
// Publish get retries too.
type RetryingProducer struct {
	*Producer
	maxRetries int
}

func (p *Producer) Retrying(maxRetries int) *RetryingProducer {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &RetryingProducer{Producer: p, maxRetries: maxRetries}
}

func (r *RetryingProducer) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	return r.PublishWithRetry(ctx, topic, key, payload, r.maxRetries)
}
