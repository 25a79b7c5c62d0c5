package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/parcelbooking/internal/domain"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/refund"
	"go.uber.org/zap"
)

// DeclineError is a payment refused for a reason the customer can act on.
type DeclineError struct {
	Message string
}

func (e *DeclineError) Error() string {
	return "payment declined: " + e.Message
}

type ChargeRequest struct {
	Amount          float64
	Currency        string
	Method          domain.PaymentMethod
	PaymentMethodID string
	Reference       string
	Description     string
}

type Charge struct {
	ID     string
	Amount float64
}

// StripeGateway captures card payments with Stripe payment intents. Invoice
// payments are recorded without a charge.
type StripeGateway struct {
	logger *zap.Logger
}

// NewStripeGateway sets the process-wide Stripe key.
func NewStripeGateway(key string, logger *zap.Logger) *StripeGateway {
	stripe.Key = key
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StripeGateway{logger: logger}
}

func (g *StripeGateway) Charge(ctx context.Context, req ChargeRequest) (Charge, error) {
	switch req.Method {
	case domain.PaymentInvoice:
		return Charge{ID: "inv_" + uuid.NewString(), Amount: req.Amount}, nil
	case domain.PaymentCard:
	default:
		return Charge{}, &DeclineError{Message: "Unsupported payment method"}
	}
	if req.PaymentMethodID == "" {
		return Charge{}, &DeclineError{Message: "Card details are missing"}
	}

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(domain.Cents(req.Amount)),
		Currency:      stripe.String(req.Currency),
		PaymentMethod: stripe.String(req.PaymentMethodID),
		Confirm:       stripe.Bool(true),
		Description:   stripe.String(req.Description),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	params.Context = ctx
	params.AddMetadata("reference", req.Reference)

	pi, err := paymentintent.New(params)
	if err != nil {
		return Charge{}, translateError(err)
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		g.logger.Warn("payment intent not settled", zap.String("payment_intent", pi.ID), zap.String("status", string(pi.Status)))
		return Charge{}, &DeclineError{Message: "The payment could not be completed"}
	}

	g.logger.Info("card payment captured", zap.String("payment_intent", pi.ID), zap.String("reference", req.Reference))
	return Charge{ID: pi.ID, Amount: req.Amount}, nil
}

// Refund returns a card charge. Invoice charges have nothing to refund.
func (g *StripeGateway) Refund(ctx context.Context, chargeID string) error {
	if !IsCardCharge(chargeID) {
		return nil
	}
	params := &stripe.RefundParams{PaymentIntent: stripe.String(chargeID)}
	params.Context = ctx
	if _, err := refund.New(params); err != nil {
		return fmt.Errorf("refund %s: %w", chargeID, err)
	}
	return nil
}

func IsCardCharge(chargeID string) bool {
	return len(chargeID) > 3 && chargeID[:3] == "pi_"
}

func translateError(err error) error {
	var se *stripe.Error
	if errors.As(err, &se) && se.Type == stripe.ErrorTypeCard {
		msg := se.Msg
		if msg == "" {
			msg = "Card declined"
		}
		return &DeclineError{Message: msg}
	}
	return fmt.Errorf("stripe charge: %w", err)
}
