package wizard

import (
	"github.com/Domenick1991/parcelbooking/internal/calendar"
	"github.com/Domenick1991/parcelbooking/internal/domain"
)

type Step string

const (
	StepSelectingCustomerType  Step = "selecting_customer_type"
	StepEnteringDetails        Step = "entering_details"
	StepChoosingDeliveryOption Step = "choosing_delivery_option"
	StepCapturingPayment       Step = "capturing_payment"
	StepSubmitting             Step = "submitting"
	StepConfirmed              Step = "confirmed"
	StepCancelling             Step = "cancelling"
)

// State is one of the concrete step types below. Data that only makes sense at
// a step lives on that step's type.
type State interface {
	Step() Step
	isState()
}

type SelectingCustomerType struct{}

type EnteringDetails struct{}

// ChoosingDeliveryOption has a nil Choice until the customer picks one.
type ChoosingDeliveryOption struct {
	Choice DeliveryChoice
}

type CapturingPayment struct {
	Choice DeliveryChoice
}

type Submitting struct {
	From CapturingPayment
}

type Confirmed struct {
	Result  domain.BookingResult
	Receipt domain.Receipt
}

type Cancelling struct {
	From Confirmed
}

func (SelectingCustomerType) Step() Step  { return StepSelectingCustomerType }
func (EnteringDetails) Step() Step        { return StepEnteringDetails }
func (ChoosingDeliveryOption) Step() Step { return StepChoosingDeliveryOption }
func (CapturingPayment) Step() Step       { return StepCapturingPayment }
func (Submitting) Step() Step             { return StepSubmitting }
func (Confirmed) Step() Step              { return StepConfirmed }
func (Cancelling) Step() Step             { return StepCancelling }

func (SelectingCustomerType) isState()  {}
func (EnteringDetails) isState()        {}
func (ChoosingDeliveryOption) isState() {}
func (CapturingPayment) isState()       {}
func (Submitting) isState()             {}
func (Confirmed) isState()              {}
func (Cancelling) isState()             {}

// DeliveryChoice is either FastDelivery or CheapDelivery. A cheap choice always
// carries its calendar.
type DeliveryChoice interface {
	Option() domain.DeliveryOption
	isChoice()
}

type FastDelivery struct{}

type CheapDelivery struct {
	Calendar  *calendar.Controller
	Selection *domain.DeliverySelection
}

func (FastDelivery) Option() domain.DeliveryOption  { return domain.DeliveryFast }
func (CheapDelivery) Option() domain.DeliveryOption { return domain.DeliveryCheap }

func (FastDelivery) isChoice()  {}
func (CheapDelivery) isChoice() {}

func choiceOf(s State) DeliveryChoice {
	switch st := s.(type) {
	case ChoosingDeliveryOption:
		return st.Choice
	case CapturingPayment:
		return st.Choice
	case Submitting:
		return st.From.Choice
	}
	return nil
}

func closeChoice(c DeliveryChoice) {
	if cheap, ok := c.(CheapDelivery); ok && cheap.Calendar != nil {
		cheap.Calendar.Close()
	}
}
