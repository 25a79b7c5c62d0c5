package pricing

import (
	"time"

	"github.com/Domenick1991/parcelbooking/internal/domain"
)

// Tier is the display colour of a calendar cell.
type Tier string

const (
	TierGreen   Tier = "green"
	TierAmber   Tier = "amber"
	TierRed     Tier = "red"
	TierNeutral Tier = "neutral"
)

// Evaluator answers display and selectability questions for single calendar cells.
type Evaluator struct {
	window   domain.DateRange
	days     map[string]domain.PricingDay
	selected *time.Time
}

// Cell is the verdict for one calendar date.
type Cell struct {
	Day        domain.PricingDay `json:"day"`
	Tier       Tier              `json:"tier"`
	InRange    bool              `json:"in_range"`
	Selectable bool              `json:"selectable"`
	Selected   bool              `json:"selected"`
}

func NewEvaluator(window domain.DateRange, days []domain.PricingDay, selected *time.Time) Evaluator {
	byDate := make(map[string]domain.PricingDay, len(days))
	for _, d := range days {
		byDate[dayKey(d.Date)] = d
	}
	return Evaluator{window: window, days: byDate, selected: selected}
}

func (e Evaluator) IsInRange(date time.Time) bool {
	return e.window.Contains(date)
}

// Day returns the generated profile for date, if the date was generated.
func (e Evaluator) Day(date time.Time) (domain.PricingDay, bool) {
	d, ok := e.days[dayKey(date)]
	return d, ok
}

// IsSelectable is the single rule deciding which dates a customer may pick:
// only priced, in-window, low-demand days.
func (e Evaluator) IsSelectable(date time.Time) bool {
	if !e.IsInRange(date) {
		return false
	}
	d, ok := e.Day(date)
	return ok && d.BasePrice > 0 && d.LoadFactor == domain.LoadLow
}

func (e Evaluator) IsSelectedDay(date time.Time) bool {
	return e.selected != nil && domain.SameDay(*e.selected, date)
}

func (e Evaluator) Tier(date time.Time) Tier {
	d, ok := e.Day(date)
	if !ok || !e.IsInRange(date) || d.BasePrice <= 0 {
		return TierNeutral
	}
	switch d.LoadFactor {
	case domain.LoadLow:
		return TierGreen
	case domain.LoadMedium:
		return TierAmber
	case domain.LoadHigh:
		return TierRed
	}
	return TierNeutral
}

func (e Evaluator) Cell(date time.Time) Cell {
	d, ok := e.Day(date)
	if !ok {
		d = domain.PricingDay{Date: domain.DayOf(date), LoadFactor: domain.LoadMedium}
	}
	return Cell{
		Day:        d,
		Tier:       e.Tier(date),
		InRange:    e.IsInRange(date),
		Selectable: e.IsSelectable(date),
		Selected:   e.IsSelectedDay(date),
	}
}

// Cells evaluates every generated day in order.
func (e Evaluator) Cells(days []domain.PricingDay) []Cell {
	cells := make([]Cell, 0, len(days))
	for _, d := range days {
		cells = append(cells, e.Cell(d.Date))
	}
	return cells
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
