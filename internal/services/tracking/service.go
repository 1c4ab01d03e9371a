package tracking

import (
	"context"
	"fmt"
	"sync"

	"swick/internal/logger"
	"swick/internal/models"
	"swick/internal/realtime"
	"swick/internal/state"
)

// View is what an order details screen shows
type View struct {
	Details *models.OrderDetails
	// Optimistic is set while Details.Status came from a push event rather than a fetch
	Optimistic bool
	Loading    bool
	Message    string
}

// Tracker keeps one order's details current from fetches and status pushes
type Tracker struct {
	orderID int
	source  DetailsSource
	logger  *logger.Logger
	store   *state.Store[View]

	mu   sync.Mutex
	view View
}

// NewTracker creates a tracker for orderID. Nothing is fetched until Refresh.
func NewTracker(source DetailsSource, orderID int, log *logger.Logger) *Tracker {
	return &Tracker{
		orderID: orderID,
		source:  source,
		logger:  log,
		store:   state.NewStore(View{}),
	}
}

func (t *Tracker) Store() *state.Store[View] { return t.store }

// View returns the latest view
func (t *Tracker) View() View { return t.store.Get() }

// Refresh replaces the details with a fresh server snapshot. On failure the previous
// details stay on screen with an error message.
func (t *Tracker) Refresh(ctx context.Context) error {
	requestID := logger.GenerateRequestID()
	t.update(func(v *View) {
		v.Loading = true
		v.Message = ""
	})

	details, err := t.source.GetOrderDetails(ctx, t.orderID)
	if err != nil {
		t.logger.Error("order_details_failed", "Failed to fetch order details", requestID, err, map[string]interface{}{
			"order_id": t.orderID,
		})
		t.update(func(v *View) {
			v.Loading = false
			v.Message = "Could not load order details"
		})
		return fmt.Errorf("failed to refresh order %d: %w", t.orderID, err)
	}

	t.update(func(v *View) {
		v.Details = details
		v.Optimistic = false
		v.Loading = false
	})
	t.logger.Debug("order_details_loaded", "Order details refreshed", requestID, map[string]interface{}{
		"order_id": t.orderID,
		"status":   string(details.Status),
	})
	return nil
}

// ApplyStatus shows a pushed status ahead of the next fetch. It reports whether the
// message was about this order.
func (t *Tracker) ApplyStatus(msg models.StatusUpdateMessage) bool {
	if msg.OrderID != t.orderID {
		return false
	}
	t.update(func(v *View) {
		var d models.OrderDetails
		if v.Details != nil {
			d = *v.Details
		} else {
			d.ID = t.orderID
		}
		d.Status = msg.NewStatus
		v.Details = &d
		v.Optimistic = true
	})
	return true
}

// Watch applies order-status pushes for this order and, when refresh is set, re-fetches
// the details after each one
func (t *Tracker) Watch(ctx context.Context, b Binder, refresh bool) {
	b.Bind(models.EventOrderStatus, func(ev realtime.Event) {
		var msg models.StatusUpdateMessage
		if err := ev.Unmarshal(&msg); err != nil {
			t.logger.Error("status_event_invalid", "Failed to parse order-status event", "", err, nil)
			return
		}
		if t.ApplyStatus(msg) && refresh {
			go t.Refresh(ctx)
		}
	})
}

func (t *Tracker) update(fn func(*View)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.view)
	t.store.Set(t.view)
}
