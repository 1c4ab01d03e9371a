package quote

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"swick/internal/cart"
	"swick/internal/models"
	"swick/internal/pricing"
	"swick/internal/tip"
)

// LineRequest is one cart line as sent by a client. The unit price is recomputed.
type LineRequest struct {
	Meal           models.Meal            `json:"meal"`
	Quantity       int                    `json:"quantity"`
	Customizations []models.Customization `json:"customizations"`
}

// TipRequest selects a tip by picker label; Amount is used for "custom"
type TipRequest struct {
	Kind   string `json:"kind"`
	Amount string `json:"amount,omitempty"`
}

type Request struct {
	Items []LineRequest `json:"items"`
	Tip   TipRequest    `json:"tip"`
}

type Response struct {
	Subtotal     string  `json:"subtotal"`
	Tax          string  `json:"tax"`
	Tip          *string `json:"tip"`
	Total        string  `json:"total"`
	MinCharge    string  `json:"min_charge"`
	MeetsMinimum bool    `json:"meets_minimum"`
}

// Pinger reports whether a backing dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Service prices carts for clients that do not embed the pricing engine
type Service struct {
	policy    tip.Policy
	minCharge decimal.Decimal
	deps      []Pinger
}

// NewService creates a quote service. deps are checked by HealthCheck.
func NewService(policy tip.Policy, minCharge decimal.Decimal, deps ...Pinger) *Service {
	return &Service{policy: policy, minCharge: minCharge, deps: deps}
}

// Quote validates the lines and prices them with the requested tip
func (s *Service) Quote(req *Request) (*Response, error) {
	items := make([]models.CartItem, 0, len(req.Items))
	for i, line := range req.Items {
		if err := cart.ValidatePrices(line.Meal, line.Customizations); err != nil {
			if ve, ok := err.(cart.ValidationError); ok {
				ve.Field = fmt.Sprintf("items[%d].%s", i, ve.Field)
				return nil, ve
			}
			return nil, err
		}
		items = append(items, models.NewCartItem(line.Meal, line.Quantity, line.Customizations))
	}
	if err := cart.ValidateItems(items); err != nil {
		return nil, err
	}

	state, err := s.policy.Parse(req.Tip.Kind, req.Tip.Amount)
	if err != nil {
		return nil, cart.ValidationError{Field: "tip.kind", Message: err.Error()}
	}

	b := pricing.Quote(items, state)
	resp := &Response{
		Subtotal:     b.Subtotal.StringFixed(2),
		Tax:          b.Tax.StringFixed(2),
		Total:        b.Total.StringFixed(2),
		MinCharge:    s.minCharge.StringFixed(2),
		MeetsMinimum: !b.Total.LessThan(s.minCharge),
	}
	if b.Tip != nil {
		t := b.Tip.StringFixed(2)
		resp.Tip = &t
	}
	return resp, nil
}

// HealthCheck pings every dependency
func (s *Service) HealthCheck(ctx context.Context) error {
	for i, d := range s.deps {
		if err := d.Ping(ctx); err != nil {
			return fmt.Errorf("dependency %d: %w", i, err)
		}
	}
	return nil
}
