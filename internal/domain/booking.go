package domain

import (
	"fmt"
	"strings"
	"time"
)

type CustomerType string

const (
	CustomerBusiness  CustomerType = "business"
	CustomerPrivate   CustomerType = "private"
	CustomerEcommerce CustomerType = "ecommerce"
)

func (t CustomerType) Valid() bool {
	switch t {
	case CustomerBusiness, CustomerPrivate, CustomerEcommerce:
		return true
	}
	return false
}

type DeliveryOption string

const (
	DeliveryFast  DeliveryOption = "fast"
	DeliveryCheap DeliveryOption = "cheap"
)

type DeliverySpeed string

const (
	SpeedExpress DeliverySpeed = "express"
	SpeedEconomy DeliverySpeed = "economy"
)

func (o DeliveryOption) Speed() DeliverySpeed {
	if o == DeliveryFast {
		return SpeedExpress
	}
	return SpeedEconomy
}

type PaymentMethod string

const (
	PaymentCard    PaymentMethod = "card"
	PaymentInvoice PaymentMethod = "invoice"
)

type Address struct {
	Name       string `json:"name"`
	Street     string `json:"street"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
	Country    string `json:"country"`
}

func (a Address) Complete() bool {
	return strings.TrimSpace(a.Name) != "" &&
		strings.TrimSpace(a.Street) != "" &&
		strings.TrimSpace(a.PostalCode) != "" &&
		strings.TrimSpace(a.City) != ""
}

func (a Address) String() string {
	parts := []string{a.Name, a.Street, strings.TrimSpace(a.PostalCode + " " + a.City), a.Country}
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}

type PackageDetails struct {
	WeightKg float64 `json:"weight_kg"`
	LengthCm float64 `json:"length_cm"`
	WidthCm  float64 `json:"width_cm"`
	HeightCm float64 `json:"height_cm"`
}

func (p PackageDetails) Complete() bool {
	return p.WeightKg > 0 && p.LengthCm > 0 && p.WidthCm > 0 && p.HeightCm > 0
}

func (p PackageDetails) Weight() string {
	return fmt.Sprintf("%g kg", p.WeightKg)
}

func (p PackageDetails) Dimensions() string {
	return fmt.Sprintf("%gx%gx%g cm", p.LengthCm, p.WidthCm, p.HeightCm)
}

type PaymentDetails struct {
	Method          PaymentMethod `json:"method"`
	PaymentMethodID string        `json:"payment_method_id,omitempty"`
	TermsAccepted   bool          `json:"terms_accepted"`
}

func (p PaymentDetails) Complete() bool {
	switch p.Method {
	case PaymentCard:
		return p.PaymentMethodID != "" && p.TermsAccepted
	case PaymentInvoice:
		return p.TermsAccepted
	}
	return false
}

// BookingDraft is the order assembled across wizard steps and submitted as a whole.
type BookingDraft struct {
	UserID                string         `json:"user_id"`
	CustomerType          CustomerType   `json:"customer_type"`
	Package               PackageDetails `json:"package"`
	Pickup                Address        `json:"pickup"`
	Delivery              Address        `json:"delivery"`
	Option                DeliveryOption `json:"delivery_option"`
	Speed                 DeliverySpeed  `json:"delivery_speed"`
	RequestedDeliveryDate *time.Time     `json:"requested_delivery_date,omitempty"`
	DeliveryPrice         float64        `json:"delivery_price"`
	Payment               PaymentDetails `json:"payment"`
}

type SubmitResponse struct {
	Success              bool      `json:"success"`
	TrackingCode         string    `json:"tracking_code,omitempty"`
	TotalPrice           float64   `json:"total_price,omitempty"`
	CancellationDeadline time.Time `json:"cancellation_deadline,omitempty"`
	Message              string    `json:"message,omitempty"`
}

type BookingResult struct {
	Success              bool      `json:"success"`
	TrackingCode         string    `json:"tracking_code"`
	TotalPrice           float64   `json:"total_price"`
	CancellationDeadline time.Time `json:"cancellation_deadline"`
	LabelURL             string    `json:"label_url,omitempty"`
}

// CanCancel reports whether a successful booking is still inside its cancellation window.
func (r BookingResult) CanCancel(now time.Time) bool {
	return r.Success && now.Before(r.CancellationDeadline)
}

// Receipt is the only client-side record kept after a booking.
type Receipt struct {
	TrackingCode string    `json:"trackingCode"`
	Timestamp    time.Time `json:"timestamp"`
}
