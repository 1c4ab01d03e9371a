package workflow

import (
	"swick/internal/payment"
	"swick/internal/tip"
)

// Phase is the workflow's position in a payment attempt
type Phase int

const (
	Idle Phase = iota
	Validating
	AwaitingPaymentMethod
	SubmittingPayment
	AwaitingServerConfirmation
	Succeeded
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case AwaitingPaymentMethod:
		return "awaiting_payment_method"
	case SubmittingPayment:
		return "submitting_payment"
	case AwaitingServerConfirmation:
		return "awaiting_server_confirmation"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Busy reports whether an attempt is between submission and outcome
func (p Phase) Busy() bool {
	return p == Validating || p == SubmittingPayment || p == AwaitingServerConfirmation
}

// Snapshot is one published workflow state. After an attempt ends the workflow
// settles back to Idle; Outcome, Message and Err keep describing the last attempt
// until the next one starts.
type Snapshot struct {
	Phase         Phase
	Action        payment.Kind
	Tip           tip.State
	PaymentMethod string
	Outcome       Phase
	Message       string
	ChargeRef     string
	Err           *Error
}
