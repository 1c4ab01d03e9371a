package models

import (
	"time"
)

// Realtime event names
const (
	EventOrderStatus     = "order-status"
	EventOrderPlaced     = "order-placed"
	EventRequestMade     = "request-made"
	EventRestaurantAdded = "restaurant-added"
)

// StatusUpdateMessage is pushed to a customer when one of their orders changes status
type StatusUpdateMessage struct {
	OrderID   int         `json:"order_id"`
	OldStatus OrderStatus `json:"old_status,omitempty"`
	NewStatus OrderStatus `json:"new_status"`
	ChangedBy string      `json:"changed_by,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// OrderPlacedMessage is pushed to a restaurant channel when a customer places an order
type OrderPlacedMessage struct {
	OrderID   int       `json:"order_id"`
	Table     int       `json:"table"`
	Timestamp time.Time `json:"timestamp"`
}

// RequestMessage is pushed to a restaurant channel when a table sends a service request
type RequestMessage struct {
	RequestID int       `json:"request_id"`
	Name      string    `json:"request_name"`
	Table     int       `json:"table"`
	Timestamp time.Time `json:"timestamp"`
}

// RestaurantAddedMessage tells an unattached server which restaurant they now work for
type RestaurantAddedMessage struct {
	RestaurantID int `json:"restaurant_id"`
}

// CreateStatusUpdateMessage creates a StatusUpdateMessage stamped with the current time
func CreateStatusUpdateMessage(orderID int, oldStatus, newStatus OrderStatus, changedBy string) *StatusUpdateMessage {
	return &StatusUpdateMessage{
		OrderID:   orderID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		ChangedBy: changedBy,
		Timestamp: time.Now().UTC(),
	}
}
