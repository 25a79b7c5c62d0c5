package calendar

import (
	"sync"
	"time"

	"github.com/Domenick1991/parcelbooking/internal/domain"
	"github.com/Domenick1991/parcelbooking/internal/pricing"
	"go.uber.org/zap"
)

type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	}
	return "unknown"
}

const DefaultLoadingDelay = 300 * time.Millisecond

// GenerateFunc produces the pricing profile of month for window.
type GenerateFunc func(month time.Time, window domain.DateRange) []domain.PricingDay

// Controller owns the displayed month of a delivery-date calendar and its pricing days.
// Loads run in the background; a load is applied only if it is still the latest one
// and the controller has not been closed.
type Controller struct {
	mu sync.Mutex

	window   domain.DateRange
	generate GenerateFunc
	delay    time.Duration
	onSelect func(domain.DeliverySelection)
	logger   *zap.Logger

	state    State
	month    time.Time
	days     []domain.PricingDay
	selected *domain.DeliverySelection

	seq    uint64
	closed bool
	done   chan struct{}
}

type Option func(*Controller)

func WithLoadingDelay(d time.Duration) Option {
	return func(c *Controller) {
		c.delay = d
	}
}

func WithGenerator(fn GenerateFunc) Option {
	return func(c *Controller) {
		c.generate = fn
	}
}

// WithSource makes generation draw from src. src must be safe for concurrent use
// if loads overlap.
func WithSource(src pricing.Source) Option {
	return func(c *Controller) {
		c.generate = func(month time.Time, window domain.DateRange) []domain.PricingDay {
			return pricing.Generate(month, window, src)
		}
	}
}

// OnSelect registers a callback invoked, outside the controller lock, for every accepted selection.
func OnSelect(fn func(domain.DeliverySelection)) Option {
	return func(c *Controller) {
		c.onSelect = fn
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewController(window domain.DateRange, opts ...Option) *Controller {
	c := &Controller{
		window: window,
		generate: func(month time.Time, window domain.DateRange) []domain.PricingDay {
			return pricing.Generate(month, window, nil)
		},
		delay:  DefaultLoadingDelay,
		logger: zap.NewNop(),
		state:  StateIdle,
		month:  domain.MonthOf(window.Start),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// View is a consistent snapshot of the controller.
type View struct {
	State     State                     `json:"-"`
	StateName string                    `json:"state"`
	Month     time.Time                 `json:"month"`
	Window    domain.DateRange          `json:"window"`
	Cells     []pricing.Cell            `json:"cells"`
	Selection *domain.DeliverySelection `json:"selection,omitempty"`
}

// Show starts loading month. The returned channel is closed once the load has been
// applied or discarded.
func (c *Controller) Show(month time.Time) <-chan struct{} {
	return c.load(domain.MonthOf(month))
}

// Reload regenerates the currently displayed month.
func (c *Controller) Reload() <-chan struct{} {
	c.mu.Lock()
	month := c.month
	c.mu.Unlock()
	return c.load(month)
}

func (c *Controller) NextMonth() <-chan struct{} {
	c.mu.Lock()
	month := c.month.AddDate(0, 1, 0)
	c.mu.Unlock()
	return c.load(month)
}

func (c *Controller) PrevMonth() <-chan struct{} {
	c.mu.Lock()
	month := c.month.AddDate(0, -1, 0)
	c.mu.Unlock()
	return c.load(month)
}

func (c *Controller) load(month time.Time) <-chan struct{} {
	finished := make(chan struct{})

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		close(finished)
		return finished
	}
	c.seq++
	id := c.seq
	c.state = StateLoading
	c.month = month
	c.days = nil
	window, generate, delay := c.window, c.generate, c.delay
	c.mu.Unlock()

	go func() {
		defer close(finished)

		days := generate(month, window)

		if delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-c.done:
				return
			}
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed || id != c.seq {
			c.logger.Debug("discarding stale calendar load",
				zap.Time("month", month), zap.Uint64("load", id), zap.Uint64("latest", c.seq))
			return
		}
		c.days = days
		c.state = StateReady
	}()

	return finished
}

// Select picks date if the evaluator allows it. A date that is not selectable,
// or a click while data is loading, leaves the selection unchanged.
func (c *Controller) Select(date time.Time) (domain.DeliverySelection, bool) {
	c.mu.Lock()
	if c.closed || c.state != StateReady {
		c.mu.Unlock()
		return domain.DeliverySelection{}, false
	}

	ev := c.evaluator()
	if !ev.IsSelectable(date) {
		c.mu.Unlock()
		return domain.DeliverySelection{}, false
	}
	day, _ := ev.Day(date)
	sel := domain.DeliverySelection{Date: domain.DayOf(day.Date), Price: day.BasePrice}
	c.selected = &sel
	cb := c.onSelect
	c.mu.Unlock()

	if cb != nil {
		cb(sel)
	}
	return sel, true
}

// ClearSelection drops the current selection without touching loaded data.
func (c *Controller) ClearSelection() {
	c.mu.Lock()
	c.selected = nil
	c.mu.Unlock()
}

func (c *Controller) Selection() *domain.DeliverySelection {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == nil {
		return nil
	}
	sel := *c.selected
	return &sel
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		State:     c.state,
		StateName: c.state.String(),
		Month:     c.month,
		Window:    c.window,
	}
	if c.state == StateReady {
		v.Cells = c.evaluator().Cells(c.days)
	}
	if c.selected != nil {
		sel := *c.selected
		v.Selection = &sel
	}
	return v
}

// Close stops pending loads; any load finishing afterwards is dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}

func (c *Controller) evaluator() pricing.Evaluator {
	var selected *time.Time
	if c.selected != nil {
		d := c.selected.Date
		selected = &d
	}
	return pricing.NewEvaluator(c.window, c.days, selected)
}
