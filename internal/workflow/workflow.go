// Package workflow drives one payment attempt at a time: validate, charge through the
// payment gateway, confirm with the order gateway, and publish every step.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"swick/internal/api"
	"swick/internal/cart"
	"swick/internal/logger"
	"swick/internal/money"
	"swick/internal/payment"
	"swick/internal/pricing"
	"swick/internal/session"
	"swick/internal/state"
	"swick/internal/tip"
)

// OrderGateway persists an authorized charge as an order or a tip
type OrderGateway interface {
	PlaceOrder(ctx context.Context, params payment.PlaceOrderParams, chargeRef string) error
	AddTip(ctx context.Context, params payment.AddTipParams, chargeRef string) error
}

// Journal records each attempt so a charge the server never recorded is not lost
type Journal interface {
	Begin(ctx context.Context, params payment.Params) (attemptID string, err error)
	Authorized(ctx context.Context, attemptID, chargeRef string) error
	Confirmed(ctx context.Context, attemptID string) error
	Failed(ctx context.Context, attemptID, reason string) error
	Unreconciled(ctx context.Context, attemptID, reason string) error
}

// Recorder receives attempt metrics
type Recorder interface {
	AttemptStarted(kind payment.Kind)
	AttemptFinished(kind payment.Kind, outcome string, elapsed time.Duration)
}

// Deps are the collaborators of a Workflow. Journal and Metrics are optional.
type Deps struct {
	Gateway payment.Gateway
	Orders  OrderGateway
	Journal Journal
	Metrics Recorder
	Logger  *logger.Logger
}

type action struct {
	kind         payment.Kind
	restaurantID int
	table        int
	orderID      int
	tip          tip.State
	subtotal     decimal.Decimal
}

// Workflow is the order/tip state machine for one screen
type Workflow struct {
	sess      *session.Session
	minCharge decimal.Decimal
	gateway   payment.Gateway
	orders    OrderGateway
	journal   Journal
	metrics   Recorder
	logger    *logger.Logger
	store     *state.Store[Snapshot]

	// pubMu keeps snapshot construction and publication in one order
	pubMu sync.Mutex

	mu            sync.Mutex
	snap          Snapshot
	inFlight      bool
	dismissed     bool
	tip           tip.State
	paymentMethod string
	pending       *action
}

// New creates an idle workflow for sess
func New(sess *session.Session, minCharge decimal.Decimal, deps Deps) *Workflow {
	w := &Workflow{
		sess:      sess,
		minCharge: minCharge,
		gateway:   deps.Gateway,
		orders:    deps.Orders,
		journal:   deps.Journal,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		tip:       tip.DeferredState(),
	}
	if w.journal == nil {
		w.journal = nopJournal{}
	}
	if w.metrics == nil {
		w.metrics = nopRecorder{}
	}
	w.snap = Snapshot{Phase: Idle, Tip: w.tip}
	w.store = state.NewStore(w.snap)
	return w
}

// Store publishes every snapshot in transition order. Subscribers must not call
// mutating Workflow methods; screens subscribe with SubscribeOn so Dismiss also
// drops deliveries still queued on their loop.
func (w *Workflow) Store() *state.Store[Snapshot] { return w.store }

// State returns the latest snapshot
func (w *Workflow) State() Snapshot { return w.store.Get() }

// Quote prices the session cart with the selected tip
func (w *Workflow) Quote() pricing.Breakdown {
	w.mu.Lock()
	t := w.tip
	w.mu.Unlock()
	return pricing.Quote(w.sess.Cart.Items(), t)
}

// SetTip selects the tip applied to the next order
func (w *Workflow) SetTip(t tip.State) {
	w.publish(func(s *Snapshot) {
		w.tip = t
		s.Tip = t
	})
}

// SelectPaymentMethod sets the card for later attempts. If an attempt was waiting for
// a card it resumes, and its result is returned.
func (w *Workflow) SelectPaymentMethod(ctx context.Context, id string) error {
	if id == "" {
		return errMissingCard
	}

	w.mu.Lock()
	if w.inFlight {
		w.mu.Unlock()
		return ErrAttemptInProgress
	}
	pending := w.pending
	w.pending = nil
	if pending != nil {
		w.inFlight = true
	}
	w.mu.Unlock()

	w.publish(func(s *Snapshot) {
		w.paymentMethod = id
		s.PaymentMethod = id
	})

	if pending == nil {
		return nil
	}
	defer w.release()
	return w.run(ctx, *pending)
}

// CancelPending drops an attempt waiting for a card
func (w *Workflow) CancelPending() {
	w.mu.Lock()
	had := w.pending != nil
	w.pending = nil
	w.mu.Unlock()
	if had {
		w.publish(func(s *Snapshot) {
			s.Phase = Idle
			s.Err = nil
			s.Message = ""
		})
	}
}

// Dismiss stops all further publications. Snapshots already queued for subscribers
// registered with SubscribeOn are dropped. An attempt already in flight still
// completes against the gateways and the journal.
func (w *Workflow) Dismiss() {
	w.mu.Lock()
	w.dismissed = true
	w.mu.Unlock()
	w.store.Close()
}

// PlaceOrder charges the session cart and places it as an order at table
func (w *Workflow) PlaceOrder(ctx context.Context, restaurantID, table int) error {
	if !w.sess.Capabilities().CanPlaceOrder() {
		return ErrNotPermitted
	}
	return w.start(ctx, action{kind: payment.KindPlaceOrder, restaurantID: restaurantID, table: table})
}

// SendTip charges a tip on an existing order. subtotal is the order subtotal preset
// percentages apply to.
func (w *Workflow) SendTip(ctx context.Context, restaurantID, orderID int, t tip.State, subtotal decimal.Decimal) error {
	if !w.sess.Capabilities().CanSendTip() {
		return ErrNotPermitted
	}
	return w.start(ctx, action{
		kind:         payment.KindAddTip,
		restaurantID: restaurantID,
		orderID:      orderID,
		tip:          t,
		subtotal:     subtotal,
	})
}

func (w *Workflow) start(ctx context.Context, a action) error {
	w.mu.Lock()
	if w.inFlight {
		w.mu.Unlock()
		return ErrAttemptInProgress
	}
	w.inFlight = true
	w.pending = nil
	w.mu.Unlock()

	defer w.release()
	return w.run(ctx, a)
}

func (w *Workflow) release() {
	w.mu.Lock()
	w.inFlight = false
	w.mu.Unlock()
}

func (w *Workflow) run(ctx context.Context, a action) error {
	started := time.Now()
	w.metrics.AttemptStarted(a.kind)
	err := w.attempt(ctx, a)
	w.metrics.AttemptFinished(a.kind, outcomeLabel(err), time.Since(started))
	return err
}

func outcomeLabel(err error) string {
	if err == nil {
		return "succeeded"
	}
	var we *Error
	if errors.As(err, &we) {
		return we.Kind.String()
	}
	return "error"
}

func (w *Workflow) attempt(ctx context.Context, a action) error {
	requestID := logger.GenerateRequestID()

	w.publish(func(s *Snapshot) {
		s.Phase = Validating
		s.Action = a.kind
		s.Outcome = Idle
		s.Message = ""
		s.ChargeRef = ""
		s.Err = nil
	})

	w.mu.Lock()
	selected, method := w.tip, w.paymentMethod
	w.mu.Unlock()

	params, taken, verr := w.prepare(a, selected, method)
	if verr != nil {
		if verr == errMissingCard {
			w.mu.Lock()
			w.pending = &a
			w.mu.Unlock()
			w.publish(func(s *Snapshot) {
				s.Phase = AwaitingPaymentMethod
				s.Message = verr.Message
				s.Err = verr
			})
			return verr
		}
		return w.fail(verr)
	}

	w.publish(func(s *Snapshot) { s.Phase = SubmittingPayment })

	// the charge and everything after it must outlive the caller
	detached := context.WithoutCancel(ctx)

	attemptID, err := w.journal.Begin(detached, params)
	if err != nil {
		w.logger.Warn("journal_begin_failed", "Failed to journal payment attempt", requestID, map[string]interface{}{
			"error": err.Error(),
		})
	}

	fields := map[string]interface{}{
		"kind":          string(a.kind),
		"restaurant_id": a.restaurantID,
		"amount":        params.Amount().StringFixed(2),
		"attempt_id":    attemptID,
	}
	w.logger.Info("payment_submitting", "Charging payment method", requestID, fields)

	res, err := w.gateway.Charge(detached, params)
	if err != nil {
		w.logger.Error("payment_gateway_failed", "Payment gateway error", requestID, err, fields)
		w.journalFailed(detached, attemptID, err.Error())
		return w.fail(&Error{Kind: KindGateway, Message: "Payment could not be processed. Please try again.", Err: err})
	}
	if res.Outcome != payment.Authorized {
		w.logger.Info("payment_declined", "Payment declined", requestID, fields)
		w.journalFailed(detached, attemptID, res.Reason)
		msg := "Your card was declined"
		if res.Reason != "" {
			msg = fmt.Sprintf("%s: %s", msg, res.Reason)
		}
		return w.fail(&Error{Kind: KindGatewayDeclined, Message: msg})
	}

	if attemptID != "" {
		if err := w.journal.Authorized(detached, attemptID, res.ChargeRef); err != nil {
			w.logger.Warn("journal_update_failed", "Failed to journal authorization", requestID, map[string]interface{}{
				"attempt_id": attemptID,
				"error":      err.Error(),
			})
		}
	}
	w.publish(func(s *Snapshot) {
		s.Phase = AwaitingServerConfirmation
		s.ChargeRef = res.ChargeRef
	})

	if err := w.confirm(detached, params, res.ChargeRef); err != nil {
		werr := chargedError(a.kind, res.ChargeRef, err)
		w.logger.Error("payment_unreconciled", "Charge authorized but not recorded by server", requestID, err, map[string]interface{}{
			"attempt_id": attemptID,
			"charge_ref": res.ChargeRef,
			"kind":       werr.Kind.String(),
		})
		if attemptID != "" {
			if jerr := w.journal.Unreconciled(detached, attemptID, err.Error()); jerr != nil {
				w.logger.Error("journal_update_failed", "Failed to journal unreconciled charge", requestID, jerr, map[string]interface{}{
					"attempt_id": attemptID,
					"charge_ref": res.ChargeRef,
				})
			}
		}
		return w.fail(werr)
	}

	if attemptID != "" {
		if err := w.journal.Confirmed(detached, attemptID); err != nil {
			w.logger.Warn("journal_update_failed", "Failed to journal confirmation", requestID, map[string]interface{}{
				"attempt_id": attemptID,
				"error":      err.Error(),
			})
		}
	}
	w.logger.Info("payment_confirmed", "Payment recorded by server", requestID, fields)

	msg := "Your tip has been sent"
	if a.kind == payment.KindPlaceOrder {
		w.sess.Cart.Consume(taken)
		msg = "Your order has been placed"
	}
	w.publish(func(s *Snapshot) {
		w.tip = tip.DeferredState()
		s.Tip = w.tip
		s.Phase = Succeeded
		s.Outcome = Succeeded
		s.Message = msg
	})
	w.publish(func(s *Snapshot) { s.Phase = Idle })
	return nil
}

var errMissingCard = &Error{Kind: KindValidation, Message: "Please select a card"}

// prepare builds the params for a. For an order, taken names the cart lines charged for,
// which are the only ones removed on success.
func (w *Workflow) prepare(a action, selected tip.State, method string) (params payment.Params, taken cart.Mark, verr *Error) {
	switch a.kind {
	case payment.KindPlaceOrder:
		items, mark := w.sess.Cart.Snapshot()
		b := pricing.Quote(items, selected)
		if b.Total.LessThan(w.minCharge) {
			return nil, mark, &Error{Kind: KindValidation, Message: "Order total must be at least " + money.Format(w.minCharge)}
		}
		if method == "" {
			return nil, mark, errMissingCard
		}
		return payment.NewPlaceOrderParams(a.restaurantID, a.table, items, b.Tip, method, b.Total), mark, nil

	case payment.KindAddTip:
		amount, ok := pricing.Tip(a.subtotal, a.tip)
		if !ok || amount.LessThan(w.minCharge) {
			return nil, taken, &Error{Kind: KindValidation, Message: "Tip must be at least " + money.Format(w.minCharge)}
		}
		if method == "" {
			return nil, taken, errMissingCard
		}
		return payment.NewAddTipParams(a.restaurantID, a.orderID, amount, method), taken, nil
	}
	return nil, taken, &Error{Kind: KindValidation, Message: fmt.Sprintf("unknown action %q", a.kind)}
}

func (w *Workflow) confirm(ctx context.Context, params payment.Params, chargeRef string) error {
	switch p := params.(type) {
	case payment.PlaceOrderParams:
		return w.orders.PlaceOrder(ctx, p, chargeRef)
	case payment.AddTipParams:
		return w.orders.AddTip(ctx, p, chargeRef)
	}
	return fmt.Errorf("unsupported params %T", params)
}

func chargedError(kind payment.Kind, chargeRef string, err error) *Error {
	what := "order"
	if kind == payment.KindAddTip {
		what = "tip"
	}
	var se *api.StatusError
	if errors.As(err, &se) {
		msg := fmt.Sprintf("Your payment was taken (reference %s) but the %s was not accepted", chargeRef, what)
		if se.ServerMessage() != "" {
			msg += ": " + se.ServerMessage()
		}
		return &Error{Kind: KindServerRejected, Message: msg + ". Please show this reference to staff.", ChargeRef: chargeRef, Err: err}
	}
	return &Error{
		Kind:      KindNetwork,
		Message:   fmt.Sprintf("Your payment was taken (reference %s) but the %s could not be confirmed. Please show this reference to staff.", chargeRef, what),
		ChargeRef: chargeRef,
		Err:       err,
	}
}

func (w *Workflow) journalFailed(ctx context.Context, attemptID, reason string) {
	if attemptID == "" {
		return
	}
	if err := w.journal.Failed(ctx, attemptID, reason); err != nil {
		w.logger.Warn("journal_update_failed", "Failed to journal failed attempt", "", map[string]interface{}{
			"attempt_id": attemptID,
			"error":      err.Error(),
		})
	}
}

// fail publishes Failed, settles to Idle and returns e
func (w *Workflow) fail(e *Error) error {
	w.publish(func(s *Snapshot) {
		s.Phase = Failed
		s.Outcome = Failed
		s.Message = e.Message
		s.ChargeRef = e.ChargeRef
		s.Err = e
	})
	w.publish(func(s *Snapshot) { s.Phase = Idle })
	return e
}

// publish applies update to the current snapshot under the workflow lock and then
// hands a copy to the store
func (w *Workflow) publish(update func(*Snapshot)) {
	w.pubMu.Lock()
	defer w.pubMu.Unlock()

	w.mu.Lock()
	update(&w.snap)
	snap := w.snap
	dismissed := w.dismissed
	w.mu.Unlock()

	if !dismissed {
		w.store.Set(snap)
	}
}

type nopJournal struct{}

func (nopJournal) Begin(context.Context, payment.Params) (string, error) { return "", nil }
func (nopJournal) Authorized(context.Context, string, string) error      { return nil }
func (nopJournal) Confirmed(context.Context, string) error               { return nil }
func (nopJournal) Failed(context.Context, string, string) error          { return nil }
func (nopJournal) Unreconciled(context.Context, string, string) error    { return nil }

type nopRecorder struct{}

func (nopRecorder) AttemptStarted(payment.Kind)                         {}
func (nopRecorder) AttemptFinished(payment.Kind, string, time.Duration) {}
