package domain

import (
	"errors"
	"time"
)

type LoadFactor string

const (
	LoadLow    LoadFactor = "low"
	LoadMedium LoadFactor = "medium"
	LoadHigh   LoadFactor = "high"
)

var ErrInvalidDateRange = errors.New("date range end is before start")

// PricingDay is the demand and price profile of one calendar date.
// BasePrice is 0 for days outside the purchasable window.
type PricingDay struct {
	Date            time.Time  `json:"date"`
	LoadFactor      LoadFactor `json:"load_factor"`
	BasePrice       float64    `json:"base_price"`
	EstimatedOrders int        `json:"estimated_orders"`
}

// DateRange is an inclusive, day-granular window.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: DayOf(start), End: DayOf(end.In(start.Location()))}
	if r.End.Before(r.Start) {
		return DateRange{}, ErrInvalidDateRange
	}
	return r, nil
}

// WindowFrom returns [today, today+days].
func WindowFrom(now time.Time, days int) DateRange {
	start := DayOf(now)
	return DateRange{Start: start, End: start.AddDate(0, 0, days)}
}

func (r DateRange) Contains(t time.Time) bool {
	d := DayOf(t.In(r.Start.Location()))
	return !d.Before(r.Start) && !d.After(r.End)
}

// DeliverySelection is a purchasable date chosen from the calendar with the
// price it carried at selection time.
type DeliverySelection struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}

// DayOf truncates t to midnight in its own location.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// MonthOf returns the first day of t's month.
func MonthOf(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
