package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/parcelbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("shipment not found")

type ShipmentRepository interface {
	Create(ctx context.Context, shipment *domain.Shipment) error
	GetByTrackingCode(ctx context.Context, code string) (*domain.Shipment, error)
	UpdateStatus(ctx context.Context, code string, from, to domain.ShipmentStatus) (*domain.Shipment, error)
	CloseCancellationWindowsBefore(ctx context.Context, deadline time.Time) ([]domain.Shipment, error)
	SetLabelURL(ctx context.Context, code, url string) error
}

type PGShipmentRepository struct {
	db *pgxpool.Pool
}

func NewShipmentRepository(db *pgxpool.Pool) ShipmentRepository {
	return &PGShipmentRepository{db: db}
}

const shipmentColumns = `id, tracking_code, user_id, customer_type, weight_kg, length_cm, width_cm, height_cm,
	pickup_address, delivery_address, delivery_speed, requested_delivery_date, total_price, currency,
	payment_id, status, cancellation_deadline, label_url, created_at, updated_at`

func (r *PGShipmentRepository) Create(ctx context.Context, s *domain.Shipment) error {
	return r.db.QueryRow(ctx, `INSERT INTO shipments (tracking_code, user_id, customer_type, weight_kg, length_cm, width_cm, height_cm,
		pickup_address, delivery_address, delivery_speed, requested_delivery_date, total_price, currency,
		payment_id, status, cancellation_deadline)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at, updated_at`,
		s.TrackingCode, s.UserID, s.CustomerType, s.Package.WeightKg, s.Package.LengthCm, s.Package.WidthCm, s.Package.HeightCm,
		s.Pickup, s.Delivery, s.Speed, s.RequestedDeliveryDate, s.TotalPrice, s.Currency,
		s.PaymentID, s.Status, s.CancellationDeadline).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

func (r *PGShipmentRepository) GetByTrackingCode(ctx context.Context, code string) (*domain.Shipment, error) {
	row := r.db.QueryRow(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE tracking_code=$1`, code)
	return scanShipment(row)
}

// UpdateStatus moves a shipment from one status to another. ErrNotFound is returned
// when no shipment with code is in the from status.
func (r *PGShipmentRepository) UpdateStatus(ctx context.Context, code string, from, to domain.ShipmentStatus) (*domain.Shipment, error) {
	row := r.db.QueryRow(ctx, `UPDATE shipments SET status=$1, updated_at=now()
		WHERE tracking_code=$2 AND status=$3
		RETURNING `+shipmentColumns, to, code, from)
	return scanShipment(row)
}

func (r *PGShipmentRepository) CloseCancellationWindowsBefore(ctx context.Context, deadline time.Time) ([]domain.Shipment, error) {
	rows, err := r.db.Query(ctx, `UPDATE shipments SET status=$1, updated_at=now()
		WHERE status=$2 AND cancellation_deadline <= $3
		RETURNING `+shipmentColumns, domain.ShipmentStatusProcessing, domain.ShipmentStatusBooked, deadline)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var closed []domain.Shipment
	for rows.Next() {
		s, err := scanShipment(rows)
		if err != nil {
			return nil, err
		}
		closed = append(closed, *s)
	}
	return closed, rows.Err()
}

func (r *PGShipmentRepository) SetLabelURL(ctx context.Context, code, url string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE shipments SET label_url=$1, updated_at=now() WHERE tracking_code=$2`, url, code)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanShipment(row pgx.Row) (*domain.Shipment, error) {
	var s domain.Shipment
	if err := row.Scan(&s.ID, &s.TrackingCode, &s.UserID, &s.CustomerType,
		&s.Package.WeightKg, &s.Package.LengthCm, &s.Package.WidthCm, &s.Package.HeightCm,
		&s.Pickup, &s.Delivery, &s.Speed, &s.RequestedDeliveryDate, &s.TotalPrice, &s.Currency,
		&s.PaymentID, &s.Status, &s.CancellationDeadline, &s.LabelURL, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

var _ ShipmentRepository = (*PGShipmentRepository)(nil)
