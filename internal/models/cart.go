package models

import (
	"github.com/shopspring/decimal"
)

// Meal is a menu entry as served by the restaurant catalog
type Meal struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	// TaxPercent is the meal's tax rate in whole percentage points.
	TaxPercent int `json:"tax"`
}

// Customization is one customization group and the options chosen for it
type Customization struct {
	ID            int             `json:"id,omitempty"`
	Name          string          `json:"name"`
	Options       []string        `json:"options"`
	PriceAddition decimal.Decimal `json:"price_addition"`
}

// CartItem is one line of the active cart
type CartItem struct {
	Meal           Meal            `json:"meal"`
	Quantity       int             `json:"quantity"`
	Customizations []Customization `json:"customizations,omitempty"`
	// UnitPrice is the meal price with customization additions folded in at add time.
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// NewCartItem builds a line item, folding customization price additions into the unit price
func NewCartItem(meal Meal, quantity int, customizations []Customization) CartItem {
	unit := meal.Price
	for _, c := range customizations {
		unit = unit.Add(c.PriceAddition)
	}
	return CartItem{
		Meal:           meal,
		Quantity:       quantity,
		Customizations: cloneCustomizations(customizations),
		UnitPrice:      unit,
	}
}

// LineTotal returns unit price × quantity
func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Clone returns a deep copy that shares no slices with i
func (i CartItem) Clone() CartItem {
	i.Customizations = cloneCustomizations(i.Customizations)
	return i
}

// CloneItems deep-copies a slice of cart items
func CloneItems(items []CartItem) []CartItem {
	if items == nil {
		return nil
	}
	out := make([]CartItem, len(items))
	for idx, item := range items {
		out[idx] = item.Clone()
	}
	return out
}

func cloneCustomizations(in []Customization) []Customization {
	if in == nil {
		return nil
	}
	out := make([]Customization, len(in))
	for idx, c := range in {
		c.Options = append([]string(nil), c.Options...)
		out[idx] = c
	}
	return out
}
