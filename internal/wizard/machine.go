package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Domenick1991/parcelbooking/internal/calendar"
	"github.com/Domenick1991/parcelbooking/internal/domain"
	"go.uber.org/zap"
)

var (
	ErrStepBlocked         = errors.New("action is not available at this step")
	ErrInvalidCustomerType = errors.New("unknown customer type")
	ErrInvalidOption       = errors.New("unknown delivery option")
	ErrIncompleteDetails   = errors.New("package and address details are incomplete")
	ErrOptionRequired      = errors.New("choose a delivery option to continue")
	ErrDateRequired        = errors.New("choose a delivery date to continue")
	ErrPaymentIncomplete   = errors.New("payment details are incomplete or terms are not accepted")
	ErrCancellationClosed  = errors.New("booking can no longer be cancelled")
	ErrClosed              = errors.New("booking session is closed")
)

const (
	msgSubmitFailed = "We could not complete your booking. Please try again."
	msgCancelFailed = "The booking could not be cancelled. Please try again."
	msgLookupFailed = "We could not check your previous booking."
)

// BookingClient is the booking service as seen by the wizard.
type BookingClient interface {
	Submit(ctx context.Context, draft domain.BookingDraft) (domain.SubmitResponse, error)
	Cancel(ctx context.Context, trackingCode, userID string) (bool, error)
	Lookup(ctx context.Context, trackingCode, userID string) (*domain.BookingResult, error)
}

// ReceiptStore keeps the last booking receipt per scope.
type ReceiptStore interface {
	Load(ctx context.Context, scope string) (*domain.Receipt, error)
	Save(ctx context.Context, scope string, r domain.Receipt) error
	Delete(ctx context.Context, scope string) error
}

type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

type Notification struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Machine drives one booking attempt from customer type to confirmation.
// Calls to the booking service run without the lock held; their results are
// applied only if no reset or close happened in the meantime.
type Machine struct {
	mu sync.Mutex
	// receiptMu orders receipt writes. It is taken before mu, never after.
	receiptMu sync.Mutex

	userID       string
	client       BookingClient
	receipts     ReceiptStore
	window       domain.DateRange
	calendarOpts []calendar.Option
	logger       *zap.Logger
	now          func() time.Time

	state         State
	draft         domain.BookingDraft
	calendarLoad  <-chan struct{}
	notifications []Notification
	epoch         uint64
	closed        bool
}

type Option func(*Machine)

func WithLogger(logger *zap.Logger) Option {
	return func(m *Machine) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		m.now = now
	}
}

func WithCalendarOptions(opts ...calendar.Option) Option {
	return func(m *Machine) {
		m.calendarOpts = append(m.calendarOpts, opts...)
	}
}

func NewMachine(userID string, window domain.DateRange, client BookingClient, receipts ReceiptStore, opts ...Option) *Machine {
	m := &Machine{
		userID:   userID,
		client:   client,
		receipts: receipts,
		window:   window,
		logger:   zap.NewNop(),
		now:      time.Now,
		state:    SelectingCustomerType{},
		draft:    domain.BookingDraft{UserID: userID},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(zap.String("user_id", userID))
	return m
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) SelectCustomerType(t domain.CustomerType) error {
	if !t.Valid() {
		return ErrInvalidCustomerType
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.usable(); err != nil {
		return err
	}

	switch m.state.(type) {
	case SelectingCustomerType, EnteringDetails:
		m.draft.CustomerType = t
		m.state = EnteringDetails{}
		return nil
	}
	return ErrStepBlocked
}

// EnterDetails stores package and addresses and, when complete, moves on to the
// delivery option step.
func (m *Machine) EnterDetails(pkg domain.PackageDetails, pickup, delivery domain.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.usable(); err != nil {
		return err
	}
	if _, ok := m.state.(EnteringDetails); !ok {
		return ErrStepBlocked
	}

	m.draft.Package = pkg
	m.draft.Pickup = pickup
	m.draft.Delivery = delivery
	if !pkg.Complete() || !pickup.Complete() || !delivery.Complete() {
		return ErrIncompleteDetails
	}

	m.state = ChoosingDeliveryOption{}
	return nil
}

// ChooseDeliveryOption switches between fast and cheap delivery. Fast goes straight
// to payment and drops any date selection; cheap opens the calendar and waits for a date.
func (m *Machine) ChooseDeliveryOption(opt domain.DeliveryOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.usable(); err != nil {
		return err
	}

	switch m.state.(type) {
	case ChoosingDeliveryOption, CapturingPayment:
	default:
		return ErrStepBlocked
	}
	current := choiceOf(m.state)

	switch opt {
	case domain.DeliveryFast:
		closeChoice(current)
		m.calendarLoad = nil
		m.draft.Option = domain.DeliveryFast
		m.draft.Speed = domain.SpeedExpress
		m.draft.RequestedDeliveryDate = nil
		m.draft.DeliveryPrice = 0
		m.state = CapturingPayment{Choice: FastDelivery{}}
		return nil

	case domain.DeliveryCheap:
		cheap, ok := current.(CheapDelivery)
		if !ok {
			cal := calendar.NewController(m.window, append([]calendar.Option{calendar.WithLogger(m.logger)}, m.calendarOpts...)...)
			m.calendarLoad = cal.Show(m.now())
			cheap = CheapDelivery{Calendar: cal}
		}
		m.draft.Option = domain.DeliveryCheap
		m.draft.Speed = domain.SpeedEconomy
		m.state = ChoosingDeliveryOption{Choice: cheap}
		return nil
	}
	return ErrInvalidOption
}

// ShowMonth navigates the delivery-date calendar.
func (m *Machine) ShowMonth(month time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cheap, err := m.cheapChoice()
	if err != nil {
		return err
	}
	m.calendarLoad = cheap.Calendar.Show(month)
	return nil
}

// WaitCalendar blocks until the most recent calendar load has been applied or discarded.
func (m *Machine) WaitCalendar(ctx context.Context) error {
	m.mu.Lock()
	ch := m.calendarLoad
	m.mu.Unlock()
	if ch == nil {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SelectDate records date as the delivery date if the calendar allows it.
// Picking a date that is not selectable changes nothing and reports false.
func (m *Machine) SelectDate(date time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cheap, err := m.cheapChoice()
	if err != nil {
		return false, err
	}

	sel, ok := cheap.Calendar.Select(date)
	if !ok {
		return false, nil
	}
	cheap.Selection = &sel
	m.draft.RequestedDeliveryDate = &sel.Date
	m.draft.DeliveryPrice = sel.Price
	m.state = ChoosingDeliveryOption{Choice: cheap}
	return true, nil
}

func (m *Machine) CanAdvance() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.advanceCheck() == nil
}

// Advance leaves the delivery option step once a cheap date has been picked.
func (m *Machine) Advance() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.usable(); err != nil {
		return err
	}
	if err := m.advanceCheck(); err != nil {
		return err
	}
	st := m.state.(ChoosingDeliveryOption)
	m.state = CapturingPayment{Choice: st.Choice}
	return nil
}

func (m *Machine) advanceCheck() error {
	st, ok := m.state.(ChoosingDeliveryOption)
	if !ok {
		return ErrStepBlocked
	}
	switch c := st.Choice.(type) {
	case nil:
		return ErrOptionRequired
	case CheapDelivery:
		if c.Selection == nil {
			return ErrDateRequired
		}
	}
	return nil
}

func (m *Machine) SetPayment(p domain.PaymentDetails) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.usable(); err != nil {
		return err
	}
	if _, ok := m.state.(CapturingPayment); !ok {
		return ErrStepBlocked
	}
	m.draft.Payment = p
	return nil
}

// Back returns to the previous step. Leaving the delivery option step discards
// the choice and its calendar.
func (m *Machine) Back() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.usable(); err != nil {
		return err
	}

	switch st := m.state.(type) {
	case EnteringDetails:
		m.state = SelectingCustomerType{}
	case ChoosingDeliveryOption:
		closeChoice(st.Choice)
		m.calendarLoad = nil
		m.clearDeliveryChoice()
		m.state = EnteringDetails{}
	case CapturingPayment:
		if _, fast := st.Choice.(FastDelivery); fast {
			m.clearDeliveryChoice()
			m.state = ChoosingDeliveryOption{}
			return nil
		}
		m.state = ChoosingDeliveryOption{Choice: st.Choice}
	default:
		return ErrStepBlocked
	}
	return nil
}

// Submit sends the assembled draft to the booking service. A submit while another
// is in flight is ignored. Service failures never surface as errors: the machine
// returns to payment capture with the draft intact and records a notification.
func (m *Machine) Submit(ctx context.Context) error {
	m.mu.Lock()
	if err := m.usable(); err != nil {
		m.mu.Unlock()
		return err
	}

	var from CapturingPayment
	switch st := m.state.(type) {
	case Submitting:
		m.mu.Unlock()
		m.logger.Debug("submit ignored, submission already in flight")
		return nil
	case CapturingPayment:
		from = st
	default:
		m.mu.Unlock()
		return ErrStepBlocked
	}
	if !m.draft.Payment.Complete() {
		m.mu.Unlock()
		return ErrPaymentIncomplete
	}

	draft := m.assemble(from)
	m.state = Submitting{From: from}
	epoch := m.epoch
	m.mu.Unlock()

	resp, err := m.client.Submit(ctx, draft)

	m.mu.Lock()
	if m.stale(epoch) {
		m.mu.Unlock()
		m.logger.Info("discarding submit response for abandoned draft", zap.String("tracking_code", resp.TrackingCode))
		return nil
	}
	if err != nil || !resp.Success {
		msg := msgSubmitFailed
		if err != nil {
			m.logger.Error("submit booking", zap.Error(err))
		} else if resp.Message != "" {
			msg = resp.Message
		}
		m.state = from
		m.notify(LevelError, msg)
		m.mu.Unlock()
		return nil
	}

	rec := domain.Receipt{TrackingCode: resp.TrackingCode, Timestamp: m.now()}
	closeChoice(from.Choice)
	m.calendarLoad = nil
	m.draft = domain.BookingDraft{UserID: m.userID}
	m.state = Confirmed{
		Result: domain.BookingResult{
			Success:              true,
			TrackingCode:         resp.TrackingCode,
			TotalPrice:           resp.TotalPrice,
			CancellationDeadline: resp.CancellationDeadline,
		},
		Receipt: rec,
	}
	m.notify(LevelInfo, fmt.Sprintf("Booking confirmed. Tracking code %s.", resp.TrackingCode))
	m.mu.Unlock()

	m.saveReceipt(ctx, epoch, rec)
	return nil
}

// Cancel asks the booking service to cancel the confirmed booking. On failure the
// confirmation stays as it was.
func (m *Machine) Cancel(ctx context.Context) error {
	m.mu.Lock()
	if err := m.usable(); err != nil {
		m.mu.Unlock()
		return err
	}

	var from Confirmed
	switch st := m.state.(type) {
	case Cancelling:
		m.mu.Unlock()
		return nil
	case Confirmed:
		from = st
	default:
		m.mu.Unlock()
		return ErrStepBlocked
	}
	if !from.Result.CanCancel(m.now()) {
		m.mu.Unlock()
		return ErrCancellationClosed
	}

	m.state = Cancelling{From: from}
	epoch := m.epoch
	m.mu.Unlock()

	ok, err := m.client.Cancel(ctx, from.Result.TrackingCode, m.userID)

	m.mu.Lock()
	if m.stale(epoch) {
		m.mu.Unlock()
		return nil
	}
	if err != nil || !ok {
		if err != nil {
			m.logger.Error("cancel booking", zap.String("tracking_code", from.Result.TrackingCode), zap.Error(err))
		}
		m.state = from
		m.notify(LevelError, msgCancelFailed)
		m.mu.Unlock()
		return nil
	}

	m.epoch++
	m.state = SelectingCustomerType{}
	m.draft = domain.BookingDraft{UserID: m.userID}
	m.notify(LevelInfo, fmt.Sprintf("Booking %s cancelled.", from.Result.TrackingCode))
	m.mu.Unlock()

	m.deleteReceipt(ctx)
	return nil
}

// Resume restores a confirmed booking from the stored receipt while it can still be
// cancelled. Receipts for unknown, cancelled or expired bookings are removed.
func (m *Machine) Resume(ctx context.Context) error {
	m.mu.Lock()
	if err := m.usable(); err != nil {
		m.mu.Unlock()
		return err
	}
	if _, ok := m.state.(SelectingCustomerType); !ok {
		m.mu.Unlock()
		return ErrStepBlocked
	}
	epoch := m.epoch
	m.mu.Unlock()

	rec, err := m.receipts.Load(ctx, m.userID)
	if err != nil {
		m.logger.Warn("load booking receipt", zap.Error(err))
		return nil
	}
	if rec == nil {
		return nil
	}

	result, err := m.client.Lookup(ctx, rec.TrackingCode, m.userID)
	if err != nil {
		m.logger.Error("lookup booking", zap.String("tracking_code", rec.TrackingCode), zap.Error(err))
		m.mu.Lock()
		if !m.stale(epoch) {
			m.notify(LevelError, msgLookupFailed)
		}
		m.mu.Unlock()
		return nil
	}

	if result == nil || !result.CanCancel(m.now()) {
		m.logger.Debug("dropping expired booking receipt", zap.String("tracking_code", rec.TrackingCode))
		m.dropReceipt(ctx, epoch)
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stale(epoch) {
		return nil
	}
	if _, ok := m.state.(SelectingCustomerType); !ok {
		return nil
	}
	m.state = Confirmed{Result: *result, Receipt: *rec}
	return nil
}

// Reset abandons the current attempt, including any confirmation shown, and
// removes the stored receipt. Responses still in flight are ignored.
func (m *Machine) Reset(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.epoch++
	closeChoice(choiceOf(m.state))
	m.calendarLoad = nil
	m.state = SelectingCustomerType{}
	m.draft = domain.BookingDraft{UserID: m.userID}
	m.mu.Unlock()

	m.deleteReceipt(ctx)
	return nil
}

// Close disposes of the machine. Late responses are dropped.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.epoch++
	closeChoice(choiceOf(m.state))
	m.calendarLoad = nil
}

func (m *Machine) CanCancelBooking() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.state.(Confirmed)
	return ok && c.Result.CanCancel(m.now())
}

// Draft returns a copy of the draft as it would be submitted now.
func (m *Machine) Draft() domain.BookingDraft {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cp, ok := m.state.(CapturingPayment); ok {
		return m.assemble(cp)
	}
	return m.draft
}

// Notifications returns and clears pending notifications.
func (m *Machine) Notifications() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.notifications
	m.notifications = nil
	return out
}

// View is a serialisable snapshot of the machine.
type View struct {
	Step             Step                      `json:"step"`
	Draft            domain.BookingDraft       `json:"draft"`
	DeliveryOption   domain.DeliveryOption     `json:"delivery_option,omitempty"`
	Selection        *domain.DeliverySelection `json:"selection,omitempty"`
	Calendar         *calendar.View            `json:"calendar,omitempty"`
	CanAdvance       bool                      `json:"can_advance"`
	Result           *domain.BookingResult     `json:"result,omitempty"`
	CanCancelBooking bool                      `json:"can_cancel_booking"`
}

func (m *Machine) Snapshot() View {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := View{
		Step:       m.state.Step(),
		Draft:      m.draft,
		CanAdvance: m.advanceCheck() == nil,
	}
	if choice := choiceOf(m.state); choice != nil {
		v.DeliveryOption = choice.Option()
		if cheap, ok := choice.(CheapDelivery); ok {
			cv := cheap.Calendar.Snapshot()
			v.Calendar = &cv
			v.Selection = cheap.Selection
		}
	}
	switch st := m.state.(type) {
	case Confirmed:
		res := st.Result
		v.Result = &res
		v.CanCancelBooking = res.CanCancel(m.now())
	case Cancelling:
		res := st.From.Result
		v.Result = &res
	}
	return v
}

func (m *Machine) cheapChoice() (CheapDelivery, error) {
	if err := m.usable(); err != nil {
		return CheapDelivery{}, err
	}
	st, ok := m.state.(ChoosingDeliveryOption)
	if !ok {
		return CheapDelivery{}, ErrStepBlocked
	}
	cheap, ok := st.Choice.(CheapDelivery)
	if !ok {
		return CheapDelivery{}, ErrStepBlocked
	}
	return cheap, nil
}

func (m *Machine) assemble(cp CapturingPayment) domain.BookingDraft {
	d := m.draft
	d.UserID = m.userID
	d.Option = cp.Choice.Option()
	d.Speed = d.Option.Speed()
	d.RequestedDeliveryDate = nil
	d.DeliveryPrice = 0
	if cheap, ok := cp.Choice.(CheapDelivery); ok && cheap.Selection != nil {
		date := cheap.Selection.Date
		d.RequestedDeliveryDate = &date
		d.DeliveryPrice = cheap.Selection.Price
	}
	return d
}

func (m *Machine) clearDeliveryChoice() {
	m.draft.Option = ""
	m.draft.Speed = ""
	m.draft.RequestedDeliveryDate = nil
	m.draft.DeliveryPrice = 0
}

func (m *Machine) usable() error {
	if m.closed {
		return ErrClosed
	}
	return nil
}

func (m *Machine) stale(epoch uint64) bool {
	return m.closed || m.epoch != epoch
}

func (m *Machine) notify(level Level, msg string) {
	m.notifications = append(m.notifications, Notification{Level: level, Message: msg, At: m.now()})
}

func (m *Machine) deleteReceipt(ctx context.Context) {
	m.receiptMu.Lock()
	defer m.receiptMu.Unlock()
	if err := m.receipts.Delete(ctx, m.userID); err != nil {
		m.logger.Warn("delete booking receipt", zap.Error(err))
	}
}

// saveReceipt writes rec unless a reset or close has happened since epoch.
func (m *Machine) saveReceipt(ctx context.Context, epoch uint64, rec domain.Receipt) {
	m.receiptMu.Lock()
	defer m.receiptMu.Unlock()
	if m.isStale(epoch) {
		m.logger.Info("skipping receipt for abandoned booking", zap.String("tracking_code", rec.TrackingCode))
		return
	}
	if err := m.receipts.Save(ctx, m.userID, rec); err != nil {
		m.logger.Warn("save booking receipt", zap.String("tracking_code", rec.TrackingCode), zap.Error(err))
	}
}

// dropReceipt deletes the receipt only if nothing has moved the machine on since epoch.
func (m *Machine) dropReceipt(ctx context.Context, epoch uint64) {
	m.receiptMu.Lock()
	defer m.receiptMu.Unlock()
	if m.isStale(epoch) {
		return
	}
	if err := m.receipts.Delete(ctx, m.userID); err != nil {
		m.logger.Warn("delete booking receipt", zap.Error(err))
	}
}

func (m *Machine) isStale(epoch uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stale(epoch)
}
