// Package pricing derives subtotal, tax, tip and total for a cart.
// All arithmetic is exact decimal; the only rounding happens to cents at defined points.
package pricing

import (
	"github.com/shopspring/decimal"

	"swick/internal/models"
	"swick/internal/money"
	"swick/internal/tip"
)

// Breakdown is the priced view of a cart with a tip selection
type Breakdown struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	// Tip is nil when no tip applies (deferred, or a custom amount that resolves to zero).
	Tip   *decimal.Decimal `json:"tip"`
	Total decimal.Decimal  `json:"total"`
}

// Subtotal sums the line totals of the items
func Subtotal(items []models.CartItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.LineTotal())
	}
	return sum
}

// Tax sums lineTotal × rate / 100 over the items and rounds once, at the end
func Tax(items []models.CartItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(money.Percent(item.LineTotal(), decimal.NewFromInt(int64(item.Meal.TaxPercent))))
	}
	return money.Round(sum)
}

// Tip resolves a tip selection against a subtotal. ok is false when no tip applies:
// the state is deferred, or a custom amount is zero or fails to parse.
func Tip(subtotal decimal.Decimal, state tip.State) (amount decimal.Decimal, ok bool) {
	switch state.Kind() {
	case tip.Custom:
		custom := money.Sanitize(state.CustomAmount())
		if custom.IsZero() {
			return decimal.Zero, false
		}
		return money.Round(custom), true
	case tip.Low, tip.Mid, tip.High:
		pct, _ := state.Percent()
		return money.Round(money.Percent(subtotal, decimal.NewFromInt(int64(pct)))), true
	default:
		return decimal.Zero, false
	}
}

// Total is subtotal + tax + (tip or 0)
func Total(items []models.CartItem, state tip.State) decimal.Decimal {
	return Quote(items, state).Total
}

// Quote computes the full breakdown in one pass
func Quote(items []models.CartItem, state tip.State) Breakdown {
	subtotal := Subtotal(items)
	tax := Tax(items)
	b := Breakdown{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
	if t, ok := Tip(subtotal, state); ok {
		b.Tip = &t
		b.Total = b.Total.Add(t)
	}
	return b
}

// TipOrZero returns the tip of a breakdown, or zero when there is none
func (b Breakdown) TipOrZero() decimal.Decimal {
	if b.Tip == nil {
		return decimal.Zero
	}
	return *b.Tip
}
