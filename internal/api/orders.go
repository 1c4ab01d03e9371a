package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"swick/internal/models"
	"swick/internal/payment"
)

// StatusRequestInProgress marks a service request that staff already have pending
const StatusRequestInProgress = "request_in_progress"

// LoginResult identifies the owner of the current token
type LoginResult struct {
	ID           int  `json:"id"`
	RestaurantID *int `json:"restaurant_id"`
	NameSet      bool `json:"name_set"`
}

type customizationLine struct {
	CustomizationID int      `json:"customization_id,omitempty"`
	Name            string   `json:"name"`
	Options         []string `json:"options"`
}

type orderLine struct {
	MealID         int                 `json:"meal_id"`
	Quantity       int                 `json:"quantity"`
	Customizations []customizationLine `json:"customizations"`
}

type placeOrderRequest struct {
	RestaurantID    int              `json:"restaurant_id"`
	Table           int              `json:"table"`
	Items           []orderLine      `json:"order_details"`
	Tip             *decimal.Decimal `json:"tip"`
	PaymentMethodID string           `json:"payment_method_id"`
	ChargeID        string           `json:"charge_id"`
}

type addTipRequest struct {
	RestaurantID int             `json:"restaurant_id"`
	OrderID      int             `json:"order_id"`
	Tip          decimal.Decimal `json:"tip"`
	ChargeID     string          `json:"charge_id"`
}

// Login checks the stored token and reports who it belongs to
func (c *Client) Login(ctx context.Context) (*LoginResult, error) {
	var out LoginResult
	if err := c.do(ctx, http.MethodGet, "/api/login/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRequestOptions loads the restaurant's catalog of service requests
func (c *Client) GetRequestOptions(ctx context.Context, restaurantID int) ([]models.RequestOption, error) {
	var out struct {
		RequestOptions []models.RequestOption `json:"request_options"`
	}
	path := fmt.Sprintf("/api/restaurant/%d/request-options/", restaurantID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.RequestOptions, nil
}

// MakeRequest sends a service request for a table. alreadySent is true when staff already
// have the same request pending; that case is not an error.
func (c *Client) MakeRequest(ctx context.Context, optionID, table int) (alreadySent bool, err error) {
	body := map[string]int{"request_option_id": optionID, "table": table}
	err = c.do(ctx, http.MethodPost, "/api/request/", body, nil)
	var se *StatusError
	if errors.As(err, &se) && se.Status == StatusRequestInProgress {
		return true, nil
	}
	return false, err
}

// PlaceOrder records an order paid by the given authorized charge
func (c *Client) PlaceOrder(ctx context.Context, params payment.PlaceOrderParams, chargeRef string) error {
	req := placeOrderRequest{
		RestaurantID:    params.Restaurant(),
		Table:           params.Table(),
		PaymentMethodID: params.PaymentMethod(),
		ChargeID:        chargeRef,
	}
	if t, ok := params.Tip(); ok {
		req.Tip = &t
	}
	for _, item := range params.Items() {
		line := orderLine{MealID: item.Meal.ID, Quantity: item.Quantity, Customizations: []customizationLine{}}
		for _, cust := range item.Customizations {
			line.Customizations = append(line.Customizations, customizationLine{
				CustomizationID: cust.ID,
				Name:            cust.Name,
				Options:         cust.Options,
			})
		}
		req.Items = append(req.Items, line)
	}
	return c.do(ctx, http.MethodPost, "/api/order/place/", req, nil)
}

// AddTip records a tip on a placed order, paid by the given authorized charge
func (c *Client) AddTip(ctx context.Context, params payment.AddTipParams, chargeRef string) error {
	req := addTipRequest{
		RestaurantID: params.Restaurant(),
		OrderID:      params.Order(),
		Tip:          params.Amount(),
		ChargeID:     chargeRef,
	}
	return c.do(ctx, http.MethodPost, "/api/order/tip/", req, nil)
}

// GetOrderDetails fetches the server's current snapshot of an order
func (c *Client) GetOrderDetails(ctx context.Context, orderID int) (*models.OrderDetails, error) {
	var out struct {
		OrderDetails models.OrderDetails `json:"order_details"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/order/%d/", orderID), nil, &out); err != nil {
		return nil, err
	}
	if out.OrderDetails.ID == 0 {
		out.OrderDetails.ID = orderID
	}
	return &out.OrderDetails, nil
}
