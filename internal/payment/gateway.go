package payment

import (
	"context"
	"fmt"
)

// Outcome is the gateway's answer to a charge
type Outcome int

const (
	Authorized Outcome = iota + 1
	Declined
)

func (o Outcome) String() string {
	switch o {
	case Authorized:
		return "authorized"
	case Declined:
		return "declined"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result of a charge. ChargeRef is set when authorized, Reason when declined.
type Result struct {
	Outcome   Outcome
	ChargeRef string
	Reason    string
}

// Gateway executes a charge for the given params. A returned error is a gateway error
// (transport failure, gateway outage); a refusal is reported as a Declined result.
type Gateway interface {
	Charge(ctx context.Context, params Params) (Result, error)
}
