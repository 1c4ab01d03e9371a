package cart

import (
	"fmt"

	"swick/internal/models"
	"swick/internal/money"
)

const maxQuantity = 99

// ValidationError reports the offending field of a rejected cart item
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidatePrices checks the prices of a meal and its customizations. Callers holding
// decoded input run it before models.NewCartItem adds the prices together.
func ValidatePrices(meal models.Meal, customizations []models.Customization) error {
	if !money.Plain(meal.Price) {
		return ValidationError{
			Field:   "meal.price",
			Message: fmt.Sprintf("price must be a plain amount of at most %d digits", money.MaxDigits),
		}
	}
	for i, c := range customizations {
		if !money.Plain(c.PriceAddition) {
			return ValidationError{
				Field:   fmt.Sprintf("customizations[%d].price_addition", i),
				Message: fmt.Sprintf("price must be a plain amount of at most %d digits", money.MaxDigits),
			}
		}
	}
	return nil
}

// ValidateItem checks a single line item before it enters the cart
func ValidateItem(item models.CartItem) error {
	if err := ValidatePrices(item.Meal, item.Customizations); err != nil {
		return err
	}

	if item.Meal.Name == "" {
		return ValidationError{
			Field:   "meal.name",
			Message: "meal name is required",
		}
	}

	if item.Meal.Price.IsNegative() || item.UnitPrice.IsNegative() {
		return ValidationError{
			Field:   "meal.price",
			Message: "price must not be negative",
		}
	}

	if item.Meal.TaxPercent < 0 || item.Meal.TaxPercent > 100 {
		return ValidationError{
			Field:   "meal.tax",
			Message: "tax must be between 0 and 100 percent",
		}
	}

	if item.Quantity <= 0 {
		return ValidationError{
			Field:   "quantity",
			Message: "quantity must be greater than 0",
		}
	}

	if item.Quantity > maxQuantity {
		return ValidationError{
			Field:   "quantity",
			Message: fmt.Sprintf("quantity must be less than or equal to %d", maxQuantity),
		}
	}

	for i, c := range item.Customizations {
		if c.Name == "" {
			return ValidationError{
				Field:   fmt.Sprintf("customizations[%d].name", i),
				Message: "customization name is required",
			}
		}
	}
	return nil
}

// ValidateItems validates every item, prefixing the field with its position
func ValidateItems(items []models.CartItem) error {
	for i, item := range items {
		if err := ValidateItem(item); err != nil {
			if ve, ok := err.(ValidationError); ok {
				ve.Field = fmt.Sprintf("items[%d].%s", i, ve.Field)
				return ve
			}
			return err
		}
	}
	return nil
}
