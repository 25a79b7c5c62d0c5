package wizard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/parcelbooking/internal/calendar"
	"github.com/Domenick1991/parcelbooking/internal/domain"
	"github.com/Domenick1991/parcelbooking/internal/pricing"
	"github.com/Domenick1991/parcelbooking/internal/receipt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBookingClient struct {
	mock.Mock
}

func (m *MockBookingClient) Submit(ctx context.Context, draft domain.BookingDraft) (domain.SubmitResponse, error) {
	args := m.Called(ctx, draft)
	return args.Get(0).(domain.SubmitResponse), args.Error(1)
}

func (m *MockBookingClient) Cancel(ctx context.Context, trackingCode, userID string) (bool, error) {
	args := m.Called(ctx, trackingCode, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingClient) Lookup(ctx context.Context, trackingCode, userID string) (*domain.BookingResult, error) {
	args := m.Called(ctx, trackingCode, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookingResult), args.Error(1)
}

type MockReceiptStore struct {
	mock.Mock
}

func (m *MockReceiptStore) Load(ctx context.Context, scope string) (*domain.Receipt, error) {
	args := m.Called(ctx, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Receipt), args.Error(1)
}

func (m *MockReceiptStore) Save(ctx context.Context, scope string, r domain.Receipt) error {
	args := m.Called(ctx, scope, r)
	return args.Error(0)
}

func (m *MockReceiptStore) Delete(ctx context.Context, scope string) error {
	args := m.Called(ctx, scope)
	return args.Error(0)
}

const userID = "user-1"

var (
	testNow = time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC)
	june3   = time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC)
)

// lowOnWeekdays prices weekdays low and weekends high.
func lowOnWeekdays(month time.Time, window domain.DateRange) []domain.PricingDay {
	days := pricing.Generate(month, window, nil)
	for i, d := range days {
		if d.BasePrice == 0 {
			continue
		}
		factor := domain.LoadLow
		if wd := d.Date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			factor = domain.LoadHigh
		}
		days[i].LoadFactor = factor
		days[i].BasePrice = pricing.Price(factor)
	}
	return days
}

func newTestMachine(t *testing.T, client BookingClient, store ReceiptStore) *Machine {
	t.Helper()
	window, err := domain.NewDateRange(testNow, time.Date(2024, time.June, 21, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	m := NewMachine(userID, window, client, store,
		WithClock(func() time.Time { return testNow }),
		WithCalendarOptions(calendar.WithLoadingDelay(0), calendar.WithGenerator(lowOnWeekdays)),
	)
	t.Cleanup(m.Close)
	return m
}

var (
	testPackage = domain.PackageDetails{WeightKg: 2.5, LengthCm: 30, WidthCm: 20, HeightCm: 10}
	testPickup  = domain.Address{Name: "Anna", Street: "Storgatan 1", PostalCode: "11122", City: "Stockholm", Country: "SE"}
	testDropoff = domain.Address{Name: "Erik", Street: "Kungsgatan 2", PostalCode: "41119", City: "Göteborg", Country: "SE"}
	testPayment = domain.PaymentDetails{Method: domain.PaymentCard, PaymentMethodID: "pm_card_visa", TermsAccepted: true}
)

func toDeliveryOption(t *testing.T, m *Machine) {
	t.Helper()
	require.NoError(t, m.SelectCustomerType(domain.CustomerPrivate))
	require.NoError(t, m.EnterDetails(testPackage, testPickup, testDropoff))
}

func toCheapPayment(t *testing.T, m *Machine) {
	t.Helper()
	toDeliveryOption(t, m)
	require.NoError(t, m.ChooseDeliveryOption(domain.DeliveryCheap))
	require.NoError(t, m.WaitCalendar(context.Background()))
	ok, err := m.SelectDate(june3)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, m.Advance())
	require.NoError(t, m.SetPayment(testPayment))
}

func TestMachine_DetailsValidation(t *testing.T) {
	m := newTestMachine(t, &MockBookingClient{}, &MockReceiptStore{})

	assert.ErrorIs(t, m.EnterDetails(testPackage, testPickup, testDropoff), ErrStepBlocked)
	assert.ErrorIs(t, m.SelectCustomerType("wholesale"), ErrInvalidCustomerType)
	require.NoError(t, m.SelectCustomerType(domain.CustomerBusiness))

	err := m.EnterDetails(testPackage, testPickup, domain.Address{Name: "Erik"})
	assert.ErrorIs(t, err, ErrIncompleteDetails)
	assert.Equal(t, StepEnteringDetails, m.State().Step())

	require.NoError(t, m.EnterDetails(testPackage, testPickup, testDropoff))
	assert.Equal(t, StepChoosingDeliveryOption, m.State().Step())
	assert.Equal(t, domain.CustomerBusiness, m.Draft().CustomerType)
}

func TestMachine_FastGoesStraightToPayment(t *testing.T) {
	m := newTestMachine(t, &MockBookingClient{}, &MockReceiptStore{})
	toDeliveryOption(t, m)

	require.NoError(t, m.ChooseDeliveryOption(domain.DeliveryFast))

	st, ok := m.State().(CapturingPayment)
	require.True(t, ok)
	assert.IsType(t, FastDelivery{}, st.Choice)
	draft := m.Draft()
	assert.Equal(t, domain.SpeedExpress, draft.Speed)
	assert.Nil(t, draft.RequestedDeliveryDate)
	assert.Nil(t, m.Snapshot().Calendar)
}

func TestMachine_CheapRequiresDate(t *testing.T) {
	m := newTestMachine(t, &MockBookingClient{}, &MockReceiptStore{})
	toDeliveryOption(t, m)

	assert.ErrorIs(t, m.Advance(), ErrOptionRequired)

	require.NoError(t, m.ChooseDeliveryOption(domain.DeliveryCheap))
	assert.False(t, m.CanAdvance())
	assert.ErrorIs(t, m.Advance(), ErrDateRequired)
	assert.Equal(t, StepChoosingDeliveryOption, m.State().Step())

	require.NoError(t, m.WaitCalendar(context.Background()))
	view := m.Snapshot()
	require.NotNil(t, view.Calendar)
	assert.Equal(t, calendar.StateReady, view.Calendar.State)
	assert.Equal(t, domain.SpeedEconomy, view.Draft.Speed)
}

func TestMachine_SelectNonSelectableDateIsNoOp(t *testing.T) {
	m := newTestMachine(t, &MockBookingClient{}, &MockReceiptStore{})
	toDeliveryOption(t, m)
	require.NoError(t, m.ChooseDeliveryOption(domain.DeliveryCheap))
	require.NoError(t, m.WaitCalendar(context.Background()))

	ok, err := m.SelectDate(june3)
	require.NoError(t, err)
	require.True(t, ok)
	before := m.Snapshot().Selection

	for _, d := range []time.Time{
		time.Date(2024, time.June, 8, 0, 0, 0, 0, time.UTC),  // weekend, high
		time.Date(2024, time.June, 24, 0, 0, 0, 0, time.UTC), // outside window
	} {
		ok, err := m.SelectDate(d)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, before, m.Snapshot().Selection)
	}
}

func TestMachine_SwitchingToFastClearsSelection(t *testing.T) {
	m := newTestMachine(t, &MockBookingClient{}, &MockReceiptStore{})
	toCheapPayment(t, m)
	require.NotNil(t, m.Draft().RequestedDeliveryDate)

	require.NoError(t, m.ChooseDeliveryOption(domain.DeliveryFast))

	view := m.Snapshot()
	assert.Nil(t, view.Selection)
	assert.Nil(t, view.Draft.RequestedDeliveryDate)
	assert.Zero(t, view.Draft.DeliveryPrice)

	require.NoError(t, m.Back())
	require.NoError(t, m.ChooseDeliveryOption(domain.DeliveryCheap))
	assert.Nil(t, m.Snapshot().Selection)
	assert.ErrorIs(t, m.Advance(), ErrDateRequired)
}

func TestMachine_SubmitSuccess(t *testing.T) {
	client := &MockBookingClient{}
	store := &MockReceiptStore{}
	m := newTestMachine(t, client, store)
	toCheapPayment(t, m)

	deadline := testNow.Add(time.Hour)
	client.On("Submit", mock.Anything, mock.MatchedBy(func(d domain.BookingDraft) bool {
		return d.RequestedDeliveryDate != nil && d.RequestedDeliveryDate.Equal(june3) &&
			d.DeliveryPrice == 8.99 && d.Option == domain.DeliveryCheap && d.UserID == userID
	})).Return(domain.SubmitResponse{
		Success:              true,
		TrackingCode:         "PS123",
		TotalPrice:           8.99,
		CancellationDeadline: deadline,
	}, nil).Once()
	store.On("Save", mock.Anything, userID, domain.Receipt{TrackingCode: "PS123", Timestamp: testNow}).Return(nil).Once()

	require.NoError(t, m.Submit(context.Background()))

	st, ok := m.State().(Confirmed)
	require.True(t, ok)
	assert.Equal(t, "PS123", st.Result.TrackingCode)
	assert.True(t, m.CanCancelBooking())
	assert.Empty(t, m.Draft().Pickup.Name)

	notes := m.Notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, LevelInfo, notes[0].Level)

	client.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestMachine_SubmitDeclined(t *testing.T) {
	client := &MockBookingClient{}
	store := &MockReceiptStore{}
	m := newTestMachine(t, client, store)
	toCheapPayment(t, m)
	before := m.Draft()

	client.On("Submit", mock.Anything, before).
		Return(domain.SubmitResponse{Success: false, Message: "Card declined"}, nil).Once()

	require.NoError(t, m.Submit(context.Background()))

	assert.Equal(t, StepCapturingPayment, m.State().Step())
	assert.Equal(t, before, m.Draft())
	notes := m.Notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, LevelError, notes[0].Level)
	assert.Equal(t, "Card declined", notes[0].Message)
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
}

func TestMachine_SubmitErrorIsNotSurfacedRaw(t *testing.T) {
	client := &MockBookingClient{}
	m := newTestMachine(t, client, &MockReceiptStore{})
	toCheapPayment(t, m)

	client.On("Submit", mock.Anything, mock.Anything).
		Return(domain.SubmitResponse{}, errors.New("dial tcp: connection refused")).Once()

	require.NoError(t, m.Submit(context.Background()))

	assert.Equal(t, StepCapturingPayment, m.State().Step())
	notes := m.Notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, msgSubmitFailed, notes[0].Message)

	client.On("Submit", mock.Anything, mock.Anything).
		Return(domain.SubmitResponse{Success: true, TrackingCode: "PS9", CancellationDeadline: testNow.Add(time.Hour)}, nil).Once()
	store := m.receipts.(*MockReceiptStore)
	store.On("Save", mock.Anything, userID, mock.Anything).Return(nil).Once()

	require.NoError(t, m.Submit(context.Background()))
	assert.Equal(t, StepConfirmed, m.State().Step())
}

func TestMachine_SubmitRequiresTerms(t *testing.T) {
	client := &MockBookingClient{}
	m := newTestMachine(t, client, &MockReceiptStore{})
	toCheapPayment(t, m)
	require.NoError(t, m.SetPayment(domain.PaymentDetails{Method: domain.PaymentCard, PaymentMethodID: "pm_1"}))

	assert.ErrorIs(t, m.Submit(context.Background()), ErrPaymentIncomplete)
	assert.Equal(t, StepCapturingPayment, m.State().Step())
	client.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestMachine_DuplicateSubmitIsSuppressed(t *testing.T) {
	client := &MockBookingClient{}
	store := &MockReceiptStore{}
	m := newTestMachine(t, client, store)
	toCheapPayment(t, m)

	entered := make(chan struct{})
	release := make(chan struct{})
	client.On("Submit", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(domain.SubmitResponse{Success: true, TrackingCode: "PS1", CancellationDeadline: testNow.Add(time.Hour)}, nil).
		Once()
	store.On("Save", mock.Anything, userID, mock.Anything).Return(nil).Once()

	done := make(chan error, 1)
	go func() { done <- m.Submit(context.Background()) }()
	<-entered

	assert.Equal(t, StepSubmitting, m.State().Step())
	assert.NoError(t, m.Submit(context.Background()))

	close(release)
	require.NoError(t, <-done)

	client.AssertNumberOfCalls(t, "Submit", 1)
	assert.Equal(t, StepConfirmed, m.State().Step())
}

func TestMachine_ResetDiscardsInFlightSubmit(t *testing.T) {
	client := &MockBookingClient{}
	store := &MockReceiptStore{}
	m := newTestMachine(t, client, store)
	toCheapPayment(t, m)

	entered := make(chan struct{})
	release := make(chan struct{})
	client.On("Submit", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(domain.SubmitResponse{Success: true, TrackingCode: "PS1"}, nil).Once()
	store.On("Delete", mock.Anything, userID).Return(nil).Once()

	done := make(chan error, 1)
	go func() { done <- m.Submit(context.Background()) }()
	<-entered

	require.NoError(t, m.Reset(context.Background()))
	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, StepSelectingCustomerType, m.State().Step())
	assert.Empty(t, m.Notifications())
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
}

func TestMachine_CloseDiscardsInFlightSubmit(t *testing.T) {
	client := &MockBookingClient{}
	m := newTestMachine(t, client, &MockReceiptStore{})
	toCheapPayment(t, m)

	entered := make(chan struct{})
	release := make(chan struct{})
	client.On("Submit", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(domain.SubmitResponse{}, errors.New("timeout")).Once()

	done := make(chan error, 1)
	go func() { done <- m.Submit(context.Background()) }()
	<-entered

	m.Close()
	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, StepSubmitting, m.State().Step())
	assert.Empty(t, m.Notifications())
	assert.ErrorIs(t, m.Submit(context.Background()), ErrClosed)
}

func confirmed(t *testing.T, client *MockBookingClient, store *MockReceiptStore, deadline time.Time) *Machine {
	t.Helper()
	m := newTestMachine(t, client, store)
	toCheapPayment(t, m)
	client.On("Submit", mock.Anything, mock.Anything).
		Return(domain.SubmitResponse{Success: true, TrackingCode: "PS1", TotalPrice: 8.99, CancellationDeadline: deadline}, nil).Once()
	store.On("Save", mock.Anything, userID, mock.Anything).Return(nil).Once()
	require.NoError(t, m.Submit(context.Background()))
	m.Notifications()
	return m
}

func TestMachine_CancelSuccess(t *testing.T) {
	client := &MockBookingClient{}
	store := &MockReceiptStore{}
	m := confirmed(t, client, store, testNow.Add(time.Hour))

	client.On("Cancel", mock.Anything, "PS1", userID).Return(true, nil).Once()
	store.On("Delete", mock.Anything, userID).Return(nil).Once()

	require.NoError(t, m.Cancel(context.Background()))

	assert.Equal(t, StepSelectingCustomerType, m.State().Step())
	assert.Nil(t, m.Snapshot().Result)
	assert.False(t, m.CanCancelBooking())
	client.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestMachine_CancelFailureKeepsConfirmation(t *testing.T) {
	testCases := []struct {
		name string
		ok   bool
		err  error
	}{
		{name: "rejected", ok: false},
		{name: "error", err: errors.New("503")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client := &MockBookingClient{}
			store := &MockReceiptStore{}
			m := confirmed(t, client, store, testNow.Add(time.Hour))
			before := m.State()

			client.On("Cancel", mock.Anything, "PS1", userID).Return(tc.ok, tc.err).Once()

			require.NoError(t, m.Cancel(context.Background()))

			assert.Equal(t, before, m.State())
			notes := m.Notifications()
			require.Len(t, notes, 1)
			assert.Equal(t, msgCancelFailed, notes[0].Message)
			store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
		})
	}
}

func TestMachine_CancelAfterDeadline(t *testing.T) {
	client := &MockBookingClient{}
	m := confirmed(t, client, &MockReceiptStore{}, testNow.Add(-time.Minute))

	assert.False(t, m.CanCancelBooking())
	assert.ErrorIs(t, m.Cancel(context.Background()), ErrCancellationClosed)
	client.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything, mock.Anything)
}

func TestMachine_ResumeStillCancellable(t *testing.T) {
	client := &MockBookingClient{}
	store := &MockReceiptStore{}
	m := newTestMachine(t, client, store)

	rec := &domain.Receipt{TrackingCode: "PS7", Timestamp: testNow.Add(-time.Minute)}
	result := &domain.BookingResult{Success: true, TrackingCode: "PS7", CancellationDeadline: testNow.Add(time.Hour)}
	store.On("Load", mock.Anything, userID).Return(rec, nil).Once()
	client.On("Lookup", mock.Anything, "PS7", userID).Return(result, nil).Once()

	require.NoError(t, m.Resume(context.Background()))

	st, ok := m.State().(Confirmed)
	require.True(t, ok)
	assert.Equal(t, *result, st.Result)
	assert.True(t, m.CanCancelBooking())
}

func TestMachine_ResumeCancelledBooking(t *testing.T) {
	client := &MockBookingClient{}
	store := &MockReceiptStore{}
	m := newTestMachine(t, client, store)

	cancelled := domain.Shipment{
		TrackingCode:         "PS7",
		Status:               domain.ShipmentStatusCancelled,
		CancellationDeadline: testNow.Add(time.Hour),
	}.Result()
	store.On("Load", mock.Anything, userID).Return(&domain.Receipt{TrackingCode: "PS7"}, nil).Once()
	client.On("Lookup", mock.Anything, "PS7", userID).Return(&cancelled, nil).Once()
	store.On("Delete", mock.Anything, userID).Return(nil).Once()

	require.NoError(t, m.Resume(context.Background()))

	assert.Equal(t, StepSelectingCustomerType, m.State().Step())
	assert.False(t, m.CanCancelBooking())
	store.AssertExpectations(t)
}

func TestMachine_ResumeKeepsReceiptAfterConcurrentReset(t *testing.T) {
	client := &MockBookingClient{}
	store := &MockReceiptStore{}
	m := newTestMachine(t, client, store)

	entered := make(chan struct{})
	release := make(chan struct{})
	expired := &domain.BookingResult{Success: true, TrackingCode: "PS7", CancellationDeadline: testNow.Add(-time.Hour)}
	store.On("Load", mock.Anything, userID).Return(&domain.Receipt{TrackingCode: "PS7"}, nil).Once()
	client.On("Lookup", mock.Anything, "PS7", userID).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(expired, nil).Once()
	store.On("Delete", mock.Anything, userID).Return(nil).Once()

	done := make(chan error, 1)
	go func() { done <- m.Resume(context.Background()) }()
	<-entered

	require.NoError(t, m.Reset(context.Background()))
	close(release)
	require.NoError(t, <-done)

	store.AssertNumberOfCalls(t, "Delete", 1)
}

// gatedStore blocks Save until release is closed.
type gatedStore struct {
	*receipt.MemoryStore
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) Save(ctx context.Context, scope string, r domain.Receipt) error {
	close(g.entered)
	<-g.release
	return g.MemoryStore.Save(ctx, scope, r)
}

func TestMachine_ResetDuringReceiptSaveRemovesReceipt(t *testing.T) {
	client := &MockBookingClient{}
	store := &gatedStore{
		MemoryStore: receipt.NewMemoryStore(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	m := newTestMachine(t, client, store)
	toCheapPayment(t, m)

	client.On("Submit", mock.Anything, mock.Anything).
		Return(domain.SubmitResponse{Success: true, TrackingCode: "PSY", CancellationDeadline: testNow.Add(time.Hour)}, nil).Once()

	submitted := make(chan error, 1)
	go func() { submitted <- m.Submit(context.Background()) }()
	<-store.entered

	reset := make(chan error, 1)
	go func() { reset <- m.Reset(context.Background()) }()
	assert.Eventually(t, func() bool {
		return m.State().Step() == StepSelectingCustomerType
	}, time.Second, 5*time.Millisecond)

	close(store.release)
	require.NoError(t, <-submitted)
	require.NoError(t, <-reset)

	assert.Equal(t, StepSelectingCustomerType, m.State().Step())
	rec, err := store.Load(context.Background(), userID)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestMachine_ResumeExpiredReceipt(t *testing.T) {
	client := &MockBookingClient{}
	store := &MockReceiptStore{}
	m := newTestMachine(t, client, store)

	rec := &domain.Receipt{TrackingCode: "PS7", Timestamp: testNow.Add(-48 * time.Hour)}
	result := &domain.BookingResult{Success: true, TrackingCode: "PS7", CancellationDeadline: testNow.Add(-time.Hour)}
	store.On("Load", mock.Anything, userID).Return(rec, nil).Once()
	client.On("Lookup", mock.Anything, "PS7", userID).Return(result, nil).Once()
	store.On("Delete", mock.Anything, userID).Return(nil).Once()

	require.NoError(t, m.Resume(context.Background()))

	assert.Equal(t, StepSelectingCustomerType, m.State().Step())
	assert.False(t, m.CanCancelBooking())
	assert.Empty(t, m.Notifications())
	store.AssertExpectations(t)
}

func TestMachine_ResumeUnknownBooking(t *testing.T) {
	client := &MockBookingClient{}
	store := &MockReceiptStore{}
	m := newTestMachine(t, client, store)

	store.On("Load", mock.Anything, userID).Return(&domain.Receipt{TrackingCode: "PS7"}, nil).Once()
	client.On("Lookup", mock.Anything, "PS7", userID).Return(nil, nil).Once()
	store.On("Delete", mock.Anything, userID).Return(nil).Once()

	require.NoError(t, m.Resume(context.Background()))
	assert.Equal(t, StepSelectingCustomerType, m.State().Step())
	store.AssertExpectations(t)
}

func TestMachine_ResumeLookupFailure(t *testing.T) {
	client := &MockBookingClient{}
	store := &MockReceiptStore{}
	m := newTestMachine(t, client, store)

	store.On("Load", mock.Anything, userID).Return(&domain.Receipt{TrackingCode: "PS7"}, nil).Once()
	client.On("Lookup", mock.Anything, "PS7", userID).Return(nil, errors.New("timeout")).Once()

	require.NoError(t, m.Resume(context.Background()))

	assert.Equal(t, StepSelectingCustomerType, m.State().Step())
	notes := m.Notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, msgLookupFailed, notes[0].Message)
	store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestMachine_ResumeWithoutReceipt(t *testing.T) {
	client := &MockBookingClient{}
	store := &MockReceiptStore{}
	m := newTestMachine(t, client, store)

	store.On("Load", mock.Anything, userID).Return(nil, nil).Once()

	require.NoError(t, m.Resume(context.Background()))
	client.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything, mock.Anything)
}

func TestMachine_Back(t *testing.T) {
	m := newTestMachine(t, &MockBookingClient{}, &MockReceiptStore{})
	toCheapPayment(t, m)

	require.NoError(t, m.Back())
	st, ok := m.State().(ChoosingDeliveryOption)
	require.True(t, ok)
	cheap, ok := st.Choice.(CheapDelivery)
	require.True(t, ok)
	require.NotNil(t, cheap.Selection)
	assert.True(t, m.CanAdvance())

	require.NoError(t, m.Back())
	assert.Equal(t, StepEnteringDetails, m.State().Step())
	assert.Nil(t, m.Draft().RequestedDeliveryDate)
	_, ok = cheap.Calendar.Select(june3)
	assert.False(t, ok, "calendar is closed when the option step is left")

	require.NoError(t, m.Back())
	assert.Equal(t, StepSelectingCustomerType, m.State().Step())
	assert.ErrorIs(t, m.Back(), ErrStepBlocked)
}

func TestMachine_ShowMonthRequiresCheap(t *testing.T) {
	m := newTestMachine(t, &MockBookingClient{}, &MockReceiptStore{})
	toDeliveryOption(t, m)

	assert.ErrorIs(t, m.ShowMonth(testNow), ErrStepBlocked)

	require.NoError(t, m.ChooseDeliveryOption(domain.DeliveryCheap))
	require.NoError(t, m.ShowMonth(time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, m.WaitCalendar(context.Background()))

	view := m.Snapshot()
	require.NotNil(t, view.Calendar)
	assert.Equal(t, time.July, view.Calendar.Month.Month())
}
