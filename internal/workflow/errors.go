package workflow

import (
	"errors"
	"fmt"
)

// ErrAttemptInProgress is returned when an action is submitted while another is in flight
var ErrAttemptInProgress = errors.New("payment attempt already in progress")

// ErrNotPermitted is returned when the session's role may not perform the action
var ErrNotPermitted = errors.New("action not permitted for this role")

// ErrorKind classifies a failed attempt
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindGatewayDeclined
	KindGateway
	KindServerRejected
	KindNetwork
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindGatewayDeclined:
		return "declined"
	case KindGateway:
		return "gateway_error"
	case KindServerRejected:
		return "server_rejected"
	case KindNetwork:
		return "network"
	}
	return "unknown"
}

// Error is the failure of one attempt. Message is what the user is shown.
type Error struct {
	Kind      ErrorKind
	Message   string
	ChargeRef string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Charged reports whether money was taken before the failure
func (e *Error) Charged() bool {
	return e.Kind == KindServerRejected || e.Kind == KindNetwork
}
