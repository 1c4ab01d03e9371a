package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swick/internal/models"
	"swick/internal/tip"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func meal(price string, tax int) models.Meal {
	return models.Meal{Name: "Meal", Price: d(price), TaxPercent: tax}
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(d(want)), "want %s, got %s", want, got.String())
}

func TestQuote_SingleMealMidTier(t *testing.T) {
	items := []models.CartItem{models.NewCartItem(meal("10.00", 10), 1, nil)}
	b := Quote(items, tip.DefaultPolicy().Select(tip.Mid))

	assertMoney(t, "10.00", b.Subtotal)
	assertMoney(t, "1.00", b.Tax)
	require.NotNil(t, b.Tip)
	assertMoney(t, "1.50", *b.Tip)
	assertMoney(t, "12.50", b.Total)
}

func TestQuote_EmptyCart(t *testing.T) {
	b := Quote(nil, tip.DefaultPolicy().Select(tip.High))
	assert.True(t, b.Subtotal.IsZero())
	assert.True(t, b.Tax.IsZero())
	assert.True(t, b.Total.IsZero())
}

func TestTax_RoundsOnceAtTheEnd(t *testing.T) {
	// each line taxes to 0.0035; rounding per item would give 0.00, rounding the sum gives 0.01
	items := []models.CartItem{
		models.NewCartItem(meal("0.05", 7), 1, nil),
		models.NewCartItem(meal("0.05", 7), 1, nil),
	}
	assertMoney(t, "0.01", Tax(items))
}

func TestTax_RoundsHalfUp(t *testing.T) {
	items := []models.CartItem{models.NewCartItem(meal("0.50", 1), 1, nil)}
	// 0.005 rounds up
	assertMoney(t, "0.01", Tax(items))
}

func TestTip(t *testing.T) {
	p := tip.DefaultPolicy()
	subtotal := d("23.37")

	tests := []struct {
		name   string
		state  tip.State
		want   string
		wantOK bool
	}{
		{name: "deferred", state: tip.DeferredState()},
		{name: "low tier", state: p.Select(tip.Low), want: "2.34", wantOK: true},
		{name: "mid tier", state: p.Select(tip.Mid), want: "3.51", wantOK: true},
		{name: "high tier", state: p.Select(tip.High), want: "4.67", wantOK: true},
		{name: "custom", state: tip.CustomState("5"), want: "5.00", wantOK: true},
		{name: "custom rounds", state: tip.CustomState("2.345"), want: "2.35", wantOK: true},
		{name: "custom zero", state: tip.CustomState("0.00")},
		{name: "custom unparseable", state: tip.CustomState("abc")},
		{name: "custom negative", state: tip.CustomState("-3")},
		{name: "custom empty", state: tip.CustomState("")},
		{name: "custom exponent", state: tip.CustomState("1e3")},
		{name: "custom huge exponent", state: tip.CustomState("1e10000000")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Tip(subtotal, tt.state)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assertMoney(t, tt.want, got)
			}
		})
	}
}

func TestTotalIdentityAndNonNegative(t *testing.T) {
	carts := [][]models.CartItem{
		nil,
		{models.NewCartItem(meal("3.99", 8), 3, nil)},
		{
			models.NewCartItem(meal("12.49", 0), 1, nil),
			models.NewCartItem(meal("0.99", 13), 7, []models.Customization{{Name: "Size", Options: []string{"L"}, PriceAddition: d("0.50")}}),
		},
	}
	states := []tip.State{
		tip.DeferredState(),
		tip.DefaultPolicy().Select(tip.Low),
		tip.DefaultPolicy().Select(tip.High),
		tip.CustomState("4.20"),
		tip.CustomState("abc"),
	}
	for _, items := range carts {
		for _, s := range states {
			b := Quote(items, s)
			assert.False(t, b.Subtotal.IsNegative())
			assert.False(t, b.Tax.IsNegative())
			assert.False(t, b.TipOrZero().IsNegative())
			assert.True(t, b.Total.Equal(b.Subtotal.Add(b.Tax).Add(b.TipOrZero())))
			assert.True(t, Total(items, s).Equal(b.Total))
		}
	}
}

func TestDoublingQuantitiesDoublesSubtotalAndTax(t *testing.T) {
	single := []models.CartItem{
		models.NewCartItem(meal("10.00", 10), 1, nil),
		models.NewCartItem(meal("4.00", 5), 3, nil),
	}
	double := []models.CartItem{
		models.NewCartItem(meal("10.00", 10), 2, nil),
		models.NewCartItem(meal("4.00", 5), 6, nil),
	}
	assert.True(t, Subtotal(double).Equal(Subtotal(single).Mul(decimal.NewFromInt(2))))
	assert.True(t, Tax(double).Equal(Tax(single).Mul(decimal.NewFromInt(2))))
}

func TestTaxMonotonicInSubtotal(t *testing.T) {
	prev := decimal.Zero
	for qty := 1; qty <= 20; qty++ {
		tax := Tax([]models.CartItem{models.NewCartItem(meal("1.37", 9), qty, nil)})
		assert.True(t, tax.GreaterThanOrEqual(prev), "tax decreased at qty %d", qty)
		prev = tax
	}
}
