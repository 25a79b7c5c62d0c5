package domain

import "time"

type ShipmentStatus string

const (
	ShipmentStatusBooked     ShipmentStatus = "BOOKED"
	ShipmentStatusCancelled  ShipmentStatus = "CANCELLED"
	ShipmentStatusProcessing ShipmentStatus = "PROCESSING"
)

type Shipment struct {
	ID                    int64
	TrackingCode          string
	UserID                string
	CustomerType          CustomerType
	Package               PackageDetails
	Pickup                Address
	Delivery              Address
	Speed                 DeliverySpeed
	RequestedDeliveryDate *time.Time
	TotalPrice            float64
	Currency              string
	PaymentID             string
	Status                ShipmentStatus
	CancellationDeadline  time.Time
	LabelURL              string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (s Shipment) Result() BookingResult {
	return BookingResult{
		Success:              s.Status != ShipmentStatusCancelled,
		TrackingCode:         s.TrackingCode,
		TotalPrice:           s.TotalPrice,
		CancellationDeadline: s.CancellationDeadline,
		LabelURL:             s.LabelURL,
	}
}
