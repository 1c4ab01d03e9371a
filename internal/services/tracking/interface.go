package tracking

import (
	"context"

	"swick/internal/models"
	"swick/internal/realtime"
)

// DetailsSource fetches the server's snapshot of an order. *api.Client implements it.
type DetailsSource interface {
	GetOrderDetails(ctx context.Context, orderID int) (*models.OrderDetails, error)
}

// Binder registers realtime handlers. realtime.Notifier implements it.
type Binder interface {
	Bind(event string, h realtime.Handler)
}
