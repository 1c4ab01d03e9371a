package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swick/internal/logger"
	"swick/internal/models"
	"swick/internal/payment"
)

type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }

type noToken struct{}

var errNoToken = errors.New("no token")

func (noToken) Token(context.Context) (string, error) { return "", errNoToken }

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second, staticToken("tok"), logger.Discard())
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestGetRequestOptions(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/restaurant/26/request-options/", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		writeJSON(w, map[string]interface{}{
			"status":          "success",
			"request_options": []map[string]interface{}{{"id": 1, "name": "Napkins"}, {"id": 2, "name": "Check"}},
		})
	})

	opts, err := c.GetRequestOptions(context.Background(), 26)
	require.NoError(t, err)
	assert.Equal(t, []models.RequestOption{{ID: 1, Name: "Napkins"}, {ID: 2, Name: "Check"}}, opts)
}

func TestMakeRequest(t *testing.T) {
	status := "success"
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]int
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 4, body["table"])
		writeJSON(w, map[string]string{"status": status})
	})

	dup, err := c.MakeRequest(context.Background(), 1, 4)
	require.NoError(t, err)
	assert.False(t, dup)

	status = StatusRequestInProgress
	dup, err = c.MakeRequest(context.Background(), 1, 4)
	require.NoError(t, err)
	assert.True(t, dup)

	status = "restaurant_closed"
	_, err = c.MakeRequest(context.Background(), 1, 4)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "restaurant_closed", se.Status)
}

func TestPlaceOrderPayload(t *testing.T) {
	var got placeOrderRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/order/place/", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, map[string]string{"status": "success"})
	})

	tip := decimal.RequireFromString("1.50")
	items := []models.CartItem{models.NewCartItem(
		models.Meal{ID: 9, Name: "Pho", Price: decimal.RequireFromString("10.00")}, 2,
		[]models.Customization{{ID: 3, Name: "Spice", Options: []string{"Hot"}}},
	)}
	params := payment.NewPlaceOrderParams(26, 1, items, &tip, "pm_1", decimal.RequireFromString("23.50"))

	require.NoError(t, c.PlaceOrder(context.Background(), params, "ch_1"))
	assert.Equal(t, 26, got.RestaurantID)
	assert.Equal(t, "ch_1", got.ChargeID)
	require.NotNil(t, got.Tip)
	assert.Equal(t, "1.50", got.Tip.StringFixed(2))
	require.Len(t, got.Items, 1)
	assert.Equal(t, 9, got.Items[0].MealID)
	assert.Equal(t, []string{"Hot"}, got.Items[0].Customizations[0].Options)
}

func TestAddTipRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "order_closed", "message": "Order already closed"})
	})

	err := c.AddTip(context.Background(), payment.NewAddTipParams(1, 2, decimal.NewFromInt(1), "pm"), "ch")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Order already closed", se.ServerMessage())
	assert.False(t, errors.Is(err, ErrNetwork))
}

func TestGetOrderDetails(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/order/77/", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"success","order_details":{"status":"Cooking","table":5,"server_name":"Kim","total":"12.50",
			"items":[{"meal_name":"Pho","quantity":1,"total":"10.00","customizations":[{"name":"Spice","options":["Hot","Extra"]}]}]}}`))
	})

	d, err := c.GetOrderDetails(context.Background(), 77)
	require.NoError(t, err)
	assert.Equal(t, 77, d.ID)
	assert.Equal(t, models.StatusCooking, d.Status)
	assert.Equal(t, "Kim", d.ServerName)
	assert.Equal(t, "12.50", d.Total.StringFixed(2))
	require.Len(t, d.Items, 1)
	assert.Equal(t, "Spice\n- Hot\n- Extra", d.Items[0].CustomizationText())
}

func TestLogin(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","id":12,"restaurant_id":null,"name_set":false}`))
	})
	res, err := c.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, res.ID)
	assert.Nil(t, res.RestaurantID)
	assert.False(t, res.NameSet)
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, time.Second, staticToken("tok"), logger.Discard())
	_, err := c.GetOrderDetails(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestHTTPErrorWithoutEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{name: "plain text 500", handler: func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{name: "proxy html 502", handler: func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("<html><body>Bad Gateway</body></html>"))
		}},
		{name: "json without status", handler: func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusGatewayTimeout)
			_, _ = w.Write([]byte(`{"error": "upstream timed out"}`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			err := c.PlaceOrder(context.Background(), payment.NewPlaceOrderParams(1, 2, nil, nil, "pm", decimal.NewFromInt(5)), "ch_1")
			assert.ErrorIs(t, err, ErrNetwork)
			var se *StatusError
			assert.False(t, errors.As(err, &se), "only a backend envelope is a rejection")
		})
	}
}

func TestEnvelopeErrorOnHTTPErrorIsRejection(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status": "error", "message": "Table is closed"}`))
	})
	_, err := c.GetRequestOptions(context.Background(), 1)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.HTTPStatus)
	assert.Equal(t, "Table is closed", se.ServerMessage())
	assert.False(t, errors.Is(err, ErrNetwork))
}

func TestMissingTokenStopsBeforeNetwork(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, noToken{}, logger.Discard())
	_, err := c.Login(context.Background())
	assert.ErrorIs(t, err, errNoToken)
	assert.False(t, called)
}
