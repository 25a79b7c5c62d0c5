package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDateRange(t *testing.T) {
	start := time.Date(2024, time.June, 9, 15, 4, 0, 0, time.UTC)
	r, err := NewDateRange(start, start.AddDate(0, 0, 21))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.June, 9, 0, 0, 0, 0, time.UTC), r.Start)
	assert.Equal(t, time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC), r.End)

	_, err = NewDateRange(start, start.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	_, err = NewDateRange(start, start.Add(time.Hour))
	assert.NoError(t, err, "same day is a one-day range")
}

func TestDateRange_Contains(t *testing.T) {
	r := WindowFrom(time.Date(2024, time.June, 9, 23, 59, 0, 0, time.UTC), 21)

	assert.True(t, r.Contains(time.Date(2024, time.June, 9, 0, 0, 0, 0, time.UTC)))
	assert.True(t, r.Contains(time.Date(2024, time.June, 30, 23, 59, 0, 0, time.UTC)), "end is inclusive")
	assert.False(t, r.Contains(time.Date(2024, time.June, 8, 23, 59, 0, 0, time.UTC)))
	assert.False(t, r.Contains(time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)))
}

func TestMonthOfAndSameDay(t *testing.T) {
	d := time.Date(2024, time.February, 29, 18, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), MonthOf(d))
	assert.True(t, SameDay(d, time.Date(2024, time.February, 29, 1, 0, 0, 0, time.UTC)))
	assert.False(t, SameDay(d, d.AddDate(0, 0, 1)))
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "kr 8.99", FormatPrice(8.99, "kr"))
	assert.Equal(t, "kr 10.00", FormatPrice(10, "kr"))
	assert.Equal(t, "13.99", FormatPrice(13.99, ""))
	assert.Equal(t, int64(899), Cents(8.99))
	assert.Equal(t, int64(1999), Cents(19.99))
}

func TestAddressAndPackage(t *testing.T) {
	a := Address{Name: "Anna", Street: "Storgatan 1", PostalCode: "11122", City: "Stockholm"}
	assert.True(t, a.Complete())
	assert.Equal(t, "Anna, Storgatan 1, 11122 Stockholm", a.String())
	a.Street = "  "
	assert.False(t, a.Complete())

	p := PackageDetails{WeightKg: 1.5, LengthCm: 40, WidthCm: 30, HeightCm: 20}
	assert.True(t, p.Complete())
	assert.Equal(t, "1.5 kg", p.Weight())
	assert.Equal(t, "40x30x20 cm", p.Dimensions())
	p.WidthCm = 0
	assert.False(t, p.Complete())
}

func TestPaymentDetails_Complete(t *testing.T) {
	assert.True(t, PaymentDetails{Method: PaymentInvoice, TermsAccepted: true}.Complete())
	assert.False(t, PaymentDetails{Method: PaymentCard, TermsAccepted: true}.Complete())
	assert.True(t, PaymentDetails{Method: PaymentCard, PaymentMethodID: "pm_1", TermsAccepted: true}.Complete())
	assert.False(t, PaymentDetails{Method: PaymentInvoice}.Complete())
}

func TestShipment_Result(t *testing.T) {
	deadline := time.Date(2024, time.June, 1, 11, 0, 0, 0, time.UTC)
	s := Shipment{TrackingCode: "PSA", Status: ShipmentStatusBooked, TotalPrice: 8.99, CancellationDeadline: deadline}

	res := s.Result()
	assert.True(t, res.Success)
	assert.True(t, res.CanCancel(deadline.Add(-time.Second)))
	assert.False(t, res.CanCancel(deadline), "deadline itself is too late")

	s.Status = ShipmentStatusCancelled
	assert.False(t, s.Result().Success)
	assert.False(t, s.Result().CanCancel(deadline.Add(-time.Hour)), "cancelled shipments cannot be cancelled again")
}
