// Package payment describes pending monetary actions and the gateway that charges them.
package payment

import (
	"github.com/shopspring/decimal"

	"swick/internal/models"
)

// Kind distinguishes the two monetary actions the app can take
type Kind string

const (
	KindPlaceOrder Kind = "place_order"
	KindAddTip     Kind = "add_tip"
)

// Params is an immutable description of one pending charge. It is built once per attempt
// and consumed once by a Gateway. The two implementations are PlaceOrderParams and AddTipParams.
type Params interface {
	Kind() Kind
	// Amount is the total to charge.
	Amount() decimal.Decimal
	// PaymentMethod is the tokenized payment method selected by the user.
	PaymentMethod() string
	Restaurant() int
}

// PlaceOrderParams charges for a cart at a table
type PlaceOrderParams struct {
	restaurantID  int
	table         int
	items         []models.CartItem
	tip           *decimal.Decimal
	paymentMethod string
	amount        decimal.Decimal
}

// NewPlaceOrderParams snapshots the cart: the items are deep-copied so later edits to the
// live cart cannot change what this attempt charges for.
func NewPlaceOrderParams(restaurantID, table int, items []models.CartItem, tip *decimal.Decimal, paymentMethod string, amount decimal.Decimal) PlaceOrderParams {
	var t *decimal.Decimal
	if tip != nil {
		v := *tip
		t = &v
	}
	return PlaceOrderParams{
		restaurantID:  restaurantID,
		table:         table,
		items:         models.CloneItems(items),
		tip:           t,
		paymentMethod: paymentMethod,
		amount:        amount,
	}
}

func (p PlaceOrderParams) Kind() Kind               { return KindPlaceOrder }
func (p PlaceOrderParams) Amount() decimal.Decimal  { return p.amount }
func (p PlaceOrderParams) PaymentMethod() string    { return p.paymentMethod }
func (p PlaceOrderParams) Restaurant() int          { return p.restaurantID }
func (p PlaceOrderParams) Table() int               { return p.table }
func (p PlaceOrderParams) Items() []models.CartItem { return models.CloneItems(p.items) }

// Tip returns the resolved tip, or ok=false when the customer chose to tip later.
func (p PlaceOrderParams) Tip() (decimal.Decimal, bool) {
	if p.tip == nil {
		return decimal.Zero, false
	}
	return *p.tip, true
}

// AddTipParams charges a tip on an order that was already placed
type AddTipParams struct {
	restaurantID  int
	orderID       int
	tip           decimal.Decimal
	paymentMethod string
}

func NewAddTipParams(restaurantID, orderID int, tip decimal.Decimal, paymentMethod string) AddTipParams {
	return AddTipParams{
		restaurantID:  restaurantID,
		orderID:       orderID,
		tip:           tip,
		paymentMethod: paymentMethod,
	}
}

func (p AddTipParams) Kind() Kind              { return KindAddTip }
func (p AddTipParams) Amount() decimal.Decimal { return p.tip }
func (p AddTipParams) PaymentMethod() string   { return p.paymentMethod }
func (p AddTipParams) Restaurant() int         { return p.restaurantID }
func (p AddTipParams) Order() int              { return p.orderID }
