package pricing

import (
	"math/rand"
	"time"

	"github.com/Domenick1991/parcelbooking/internal/domain"
)

// Source is the random source used for load factor and order draws.
// *rand.Rand satisfies it.
type Source interface {
	Float64() float64
	Intn(n int) int
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }
func (globalSource) Intn(n int) int   { return rand.Intn(n) }

type weightedFactor struct {
	factor domain.LoadFactor
	weight float64
}

var (
	weekendWeights = []weightedFactor{
		{domain.LoadLow, 0.1},
		{domain.LoadMedium, 0.3},
		{domain.LoadHigh, 0.6},
	}
	weekdayWeights = []weightedFactor{
		{domain.LoadLow, 0.5},
		{domain.LoadMedium, 0.3},
		{domain.LoadHigh, 0.2},
	}
)

var tierPrices = map[domain.LoadFactor]float64{
	domain.LoadLow:    8.99,
	domain.LoadMedium: 10.99,
	domain.LoadHigh:   13.99,
}

type orderRange struct {
	min, max int
}

var tierOrders = map[domain.LoadFactor]orderRange{
	domain.LoadLow:    {10, 50},
	domain.LoadMedium: {51, 150},
	domain.LoadHigh:   {151, 300},
}

// Price returns the base price of a load tier.
func Price(f domain.LoadFactor) float64 {
	return tierPrices[f]
}

// OrderRange returns the inclusive estimated-orders bounds of a load tier.
func OrderRange(f domain.LoadFactor) (int, int) {
	r := tierOrders[f]
	return r.min, r.max
}

// Generate builds one PricingDay per calendar day of month's month, in date order.
// Days outside window carry no price. A nil src draws from the shared math/rand source,
// so repeated calls are fresh samples.
func Generate(month time.Time, window domain.DateRange, src Source) []domain.PricingDay {
	if src == nil {
		src = globalSource{}
	}

	first := domain.MonthOf(month)
	next := first.AddDate(0, 1, 0)
	days := make([]domain.PricingDay, 0, 31)

	for d := first; d.Before(next); d = d.AddDate(0, 0, 1) {
		if !window.Contains(d) {
			days = append(days, domain.PricingDay{
				Date:       d,
				LoadFactor: domain.LoadMedium,
			})
			continue
		}

		factor := drawFactor(src, weightsFor(d))
		lo, hi := OrderRange(factor)
		days = append(days, domain.PricingDay{
			Date:            d,
			LoadFactor:      factor,
			BasePrice:       Price(factor),
			EstimatedOrders: lo + src.Intn(hi-lo+1),
		})
	}
	return days
}

func weightsFor(d time.Time) []weightedFactor {
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return weekendWeights
	default:
		return weekdayWeights
	}
}

func drawFactor(src Source, weights []weightedFactor) domain.LoadFactor {
	r := src.Float64()
	acc := 0.0
	for _, w := range weights {
		acc += w.weight
		if r < acc {
			return w.factor
		}
	}
	// float rounding can leave r just above the summed weights
	return weights[len(weights)-1].factor
}
