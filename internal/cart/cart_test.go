package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swick/internal/models"
)

func burger() models.Meal {
	return models.Meal{ID: 1, Name: "Burger", Price: decimal.RequireFromString("8.50"), TaxPercent: 10}
}

func TestAddAndSnapshotIsolation(t *testing.T) {
	c := New()
	item := models.NewCartItem(burger(), 2, []models.Customization{
		{Name: "Cheese", Options: []string{"Cheddar"}, PriceAddition: decimal.RequireFromString("0.75")},
	})
	require.NoError(t, c.Add(item))

	snap := c.Items()
	require.Len(t, snap, 1)
	assert.Equal(t, "9.25", snap[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "18.50", snap[0].LineTotal().StringFixed(2))

	// mutating the snapshot must not leak back into the cart
	snap[0].Customizations[0].Options[0] = "Swiss"
	snap[0].Quantity = 5
	again := c.Items()
	assert.Equal(t, "Cheddar", again[0].Customizations[0].Options[0])
	assert.Equal(t, 2, again[0].Quantity)

	// and later cart edits must not reach an earlier snapshot
	require.NoError(t, c.Add(models.NewCartItem(burger(), 1, nil)))
	assert.Len(t, again, 1)
}

func TestRemove(t *testing.T) {
	c := New(
		models.NewCartItem(models.Meal{Name: "A"}, 1, nil),
		models.NewCartItem(models.Meal{Name: "B"}, 1, nil),
		models.NewCartItem(models.Meal{Name: "C"}, 1, nil),
	)
	require.NoError(t, c.Remove(0, 2))
	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "B", items[0].Meal.Name)

	assert.Error(t, c.Remove(3))
	assert.Equal(t, 1, c.Len())
}

func TestClear(t *testing.T) {
	c := New(models.NewCartItem(burger(), 1, nil))
	assert.False(t, c.IsEmpty())
	c.Clear()
	assert.True(t, c.IsEmpty())
	assert.Empty(t, c.Items())
}

func TestConsumeKeepsLinesAddedAfterSnapshot(t *testing.T) {
	c := New(
		models.NewCartItem(models.Meal{Name: "A"}, 1, nil),
		models.NewCartItem(models.Meal{Name: "B"}, 1, nil),
	)
	items, mark := c.Snapshot()
	require.Len(t, items, 2)

	require.NoError(t, c.Add(models.NewCartItem(models.Meal{Name: "C"}, 1, nil)))
	require.NoError(t, c.Remove(0))
	c.Consume(mark)

	left := c.Items()
	require.Len(t, left, 1)
	assert.Equal(t, "C", left[0].Meal.Name)
}

func TestConsumeAfterClear(t *testing.T) {
	c := New(models.NewCartItem(burger(), 1, nil))
	_, mark := c.Snapshot()
	c.Clear()
	require.NoError(t, c.Add(models.NewCartItem(burger(), 2, nil)))

	c.Consume(mark)
	assert.Equal(t, 1, c.Len(), "a line added after Clear is a new line")
}

func TestValidateItem(t *testing.T) {
	tests := []struct {
		name    string
		item    models.CartItem
		wantErr bool
	}{
		{name: "valid item", item: models.NewCartItem(burger(), 1, nil)},
		{name: "zero quantity", item: models.NewCartItem(burger(), 0, nil), wantErr: true},
		{name: "negative quantity", item: models.NewCartItem(burger(), -1, nil), wantErr: true},
		{name: "too many", item: models.NewCartItem(burger(), 100, nil), wantErr: true},
		{name: "missing meal name", item: models.NewCartItem(models.Meal{Price: decimal.NewFromInt(1)}, 1, nil), wantErr: true},
		{name: "negative price", item: models.NewCartItem(models.Meal{Name: "X", Price: decimal.NewFromInt(-1)}, 1, nil), wantErr: true},
		{name: "tax above 100", item: models.NewCartItem(models.Meal{Name: "X", TaxPercent: 101}, 1, nil), wantErr: true},
		{name: "unnamed customization", item: models.NewCartItem(burger(), 1, []models.Customization{{}}), wantErr: true},
		{name: "exponent price", item: models.CartItem{Meal: models.Meal{Name: "X", Price: decimal.RequireFromString("1e3")}, Quantity: 1}, wantErr: true},
		{name: "too many price digits", item: models.CartItem{Meal: models.Meal{Name: "X", Price: decimal.RequireFromString("1234567890123")}, Quantity: 1}, wantErr: true},
		{name: "exponent customization", item: models.CartItem{Meal: burger(), Quantity: 1, Customizations: []models.Customization{
			{Name: "Cheese", PriceAddition: decimal.RequireFromString("1e10000000")},
		}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateItem(tt.item)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateItem() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateItemsPrefixesField(t *testing.T) {
	err := ValidateItems([]models.CartItem{
		models.NewCartItem(burger(), 1, nil),
		models.NewCartItem(burger(), 0, nil),
	})
	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "items[1].quantity", ve.Field)
}

func TestValidatePricesRejectsExponent(t *testing.T) {
	err := ValidatePrices(models.Meal{Name: "X", Price: decimal.RequireFromString("1e10000000")}, nil)
	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "meal.price", ve.Field)

	assert.NoError(t, ValidatePrices(burger(), []models.Customization{
		{Name: "Cheese", PriceAddition: decimal.RequireFromString("0.75")},
	}))
}

func TestAddRejectsInvalid(t *testing.T) {
	c := New()
	assert.Error(t, c.Add(models.NewCartItem(burger(), 0, nil)))
	assert.True(t, c.IsEmpty())
}
