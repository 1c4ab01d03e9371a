package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the status of an order as reported by the backend
type OrderStatus string

const (
	StatusActive    OrderStatus = "Active"
	StatusCooking   OrderStatus = "Cooking"
	StatusSending   OrderStatus = "Sending"
	StatusCompleted OrderStatus = "Completed"
)

// Order is the summary row of an order in the customer's history
type Order struct {
	ID             int       `json:"id"`
	RestaurantName string    `json:"restaurant_name"`
	Time           time.Time `json:"order_time"`
}

// OrderItem is one line of a placed order
type OrderItem struct {
	MealName       string          `json:"meal_name"`
	Quantity       int             `json:"quantity"`
	Total          decimal.Decimal `json:"total"`
	Customizations []Customization `json:"customizations"`
}

// OrderDetails is the server-owned snapshot of an order. The client only ever replaces it
// by re-fetching, except for an optimistic status shown while a refresh is pending.
type OrderDetails struct {
	ID         int             `json:"id"`
	Status     OrderStatus     `json:"status"`
	Table      int             `json:"table"`
	ServerName string          `json:"server_name"`
	Total      decimal.Decimal `json:"total"`
	Items      []OrderItem     `json:"items"`
}

// CustomizationText renders the customizations of an item one per line,
// with each chosen option on its own "- " line.
func (i OrderItem) CustomizationText() string {
	var b strings.Builder
	for _, c := range i.Customizations {
		b.WriteString(c.Name)
		b.WriteString("\n")
		for _, opt := range c.Options {
			b.WriteString("- ")
			b.WriteString(opt)
			b.WriteString("\n")
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// RequestOption is a non-order service request a customer can send to staff
type RequestOption struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
