package order

import (
	"fmt"

	"dispatch/internal/pkg/errs"
)

// PaymentMethod identifies how the customer pays.
type PaymentMethod string

const (
	PaymentMethodCashOnDelivery PaymentMethod = "cod"
	PaymentMethodOnline         PaymentMethod = "online"
	PaymentMethodWallet         PaymentMethod = "wallet"
)

// RequiresSettlement reports whether the method goes through the payment
// gateway and must be captured before a scheduled order may go live.
func (m PaymentMethod) RequiresSettlement() bool {
	return m == PaymentMethodOnline
}

func (m PaymentMethod) Validate() error {
	switch m {
	case PaymentMethodCashOnDelivery, PaymentMethodOnline, PaymentMethodWallet:
		return nil
	default:
		return errs.NewValueIsInvalidErrorWithCause("payment method", fmt.Errorf("%q is not supported", string(m)))
	}
}

// PaymentStatus is the capture state reported by the payment workflow.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

func (s PaymentStatus) Validate() error {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded:
		return nil
	default:
		return errs.NewValueIsInvalidErrorWithCause("payment status", fmt.Errorf("%q is not supported", string(s)))
	}
}

// Payment is the subset of payment data the promotion loop needs.
type Payment struct {
	Method PaymentMethod
	Status PaymentStatus
}

func (p Payment) Validate() error {
	if err := p.Method.Validate(); err != nil {
		return err
	}
	return p.Status.Validate()
}

// IsSettled reports whether the payment no longer blocks promotion.
func (p Payment) IsSettled() bool {
	return !p.Method.RequiresSettlement() || p.Status == PaymentStatusCompleted
}
