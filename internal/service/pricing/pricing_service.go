package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/parcelbooking/internal/domain"
	"github.com/Domenick1991/parcelbooking/internal/pricing"
	"go.uber.org/zap"
)

var ErrInvalidMonth = errors.New("month must be formatted as YYYY-MM")

const monthLayout = "2006-01"

type CalendarUseCase interface {
	Month(ctx context.Context, month time.Time) (MonthView, error)
	Window() domain.DateRange
}

// MonthView is one generated month with its per-day verdicts.
type MonthView struct {
	Month  string           `json:"month"`
	Window domain.DateRange `json:"window"`
	Cells  []pricing.Cell   `json:"cells"`
}

type CalendarService struct {
	windowDays int
	source     pricing.Source
	logger     *zap.Logger
	now        func() time.Time
}

type Option func(*CalendarService)

func WithSource(src pricing.Source) Option {
	return func(s *CalendarService) {
		s.source = src
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *CalendarService) {
		s.now = now
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *CalendarService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewCalendarService(windowDays int, opts ...Option) *CalendarService {
	s := &CalendarService{
		windowDays: windowDays,
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Window is the purchasable range starting today.
func (s *CalendarService) Window() domain.DateRange {
	return domain.WindowFrom(s.now(), s.windowDays)
}

// Month generates a fresh sample for month. Nothing is cached, so two calls for the
// same month can disagree.
func (s *CalendarService) Month(ctx context.Context, month time.Time) (MonthView, error) {
	if err := ctx.Err(); err != nil {
		return MonthView{}, err
	}
	window := s.Window()
	days := pricing.Generate(month, window, s.source)
	eval := pricing.NewEvaluator(window, days, nil)

	s.logger.Debug("generated pricing month",
		zap.String("month", month.Format(monthLayout)),
		zap.Int("days", len(days)))

	return MonthView{
		Month:  domain.MonthOf(month).Format(monthLayout),
		Window: window,
		Cells:  eval.Cells(days),
	}, nil
}

// ParseMonth reads a YYYY-MM value in now's location. An empty value means the current month.
func ParseMonth(value string, now time.Time) (time.Time, error) {
	if value == "" {
		return domain.MonthOf(now), nil
	}
	t, err := time.ParseInLocation(monthLayout, value, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidMonth, value)
	}
	return t, nil
}

var _ CalendarUseCase = (*CalendarService)(nil)
