// Package tip models the tip a customer picks for an order or a follow-up tip.
package tip

import (
	"fmt"
	"strings"
)

// Kind is the closed set of tip choices offered by the tip picker.
type Kind int

const (
	Deferred Kind = iota
	Low
	Mid
	High
	Custom
)

func (k Kind) String() string {
	switch k {
	case Deferred:
		return "later"
	case Low:
		return "low"
	case Mid:
		return "mid"
	case High:
		return "high"
	case Custom:
		return "custom"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps a picker label to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "later", "deferred":
		return Deferred, nil
	case "low":
		return Low, nil
	case "mid":
		return Mid, nil
	case "high":
		return High, nil
	case "custom":
		return Custom, nil
	default:
		return Deferred, fmt.Errorf("unknown tip kind %q", s)
	}
}

// State is the tip selection for one order or payment attempt. The zero value is deferred.
// Preset states carry their percent; custom states carry the raw text typed by the user,
// which is only resolved to an amount at submission time.
type State struct {
	kind    Kind
	percent int
	amount  string
}

// DeferredState returns the "tip later" selection.
func DeferredState() State { return State{} }

// CustomState returns a custom selection holding the text as typed.
func CustomState(amount string) State {
	return State{kind: Custom, amount: amount}
}

func (s State) Kind() Kind { return s.kind }

// Percent reports the preset percentage. ok is false for deferred and custom states.
func (s State) Percent() (pct int, ok bool) {
	switch s.kind {
	case Low, Mid, High:
		return s.percent, true
	}
	return 0, false
}

// CustomAmount returns the raw text of a custom tip, or "" for any other kind.
func (s State) CustomAmount() string {
	if s.kind != Custom {
		return ""
	}
	return s.amount
}

func (s State) IsDeferred() bool { return s.kind == Deferred }

func (s State) String() string {
	switch s.kind {
	case Low, Mid, High:
		return fmt.Sprintf("%s (%d%%)", s.kind, s.percent)
	case Custom:
		return fmt.Sprintf("custom (%q)", s.amount)
	}
	return s.kind.String()
}

// Policy carries the configured preset percentages.
type Policy struct {
	Low  int
	Mid  int
	High int
}

// DefaultPolicy is used when configuration does not say otherwise.
func DefaultPolicy() Policy {
	return Policy{Low: 10, Mid: 15, High: 20}
}

// Select returns a fresh state for kind. Any custom text entered earlier is discarded;
// selecting Custom starts from empty text.
func (p Policy) Select(kind Kind) State {
	switch kind {
	case Low:
		return State{kind: Low, percent: p.Low}
	case Mid:
		return State{kind: Mid, percent: p.Mid}
	case High:
		return State{kind: High, percent: p.High}
	case Custom:
		return CustomState("")
	default:
		return DeferredState()
	}
}

// Parse builds a state from a picker label and, for custom tips, the typed amount.
func (p Policy) Parse(kind, amount string) (State, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return DeferredState(), err
	}
	if k == Custom {
		return CustomState(amount), nil
	}
	return p.Select(k), nil
}
