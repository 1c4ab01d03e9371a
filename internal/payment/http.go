package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"swick/internal/logger"
	"swick/internal/money"
)

// IdempotencyHeader carries a per-attempt key so a retried request never charges twice
const IdempotencyHeader = "Idempotency-Key"

// HTTPGateway charges through a card gateway's REST charge endpoint
type HTTPGateway struct {
	baseURL  string
	apiKey   string
	currency string
	client   *http.Client
	logger   *logger.Logger
}

// NewHTTPGateway creates a gateway adapter. A nil client gets a 30 second timeout.
func NewHTTPGateway(baseURL, apiKey, currency string, client *http.Client, log *logger.Logger) *HTTPGateway {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPGateway{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		currency: currency,
		client:   client,
		logger:   log,
	}
}

type chargeRequest struct {
	Amount        int64             `json:"amount"`
	Currency      string            `json:"currency"`
	PaymentMethod string            `json:"payment_method"`
	Description   string            `json:"description"`
	Metadata      map[string]string `json:"metadata"`
}

type chargeResponse struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	FailureMessage string `json:"failure_message"`
	Error          *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Charge implements Gateway
func (g *HTTPGateway) Charge(ctx context.Context, params Params) (Result, error) {
	requestID := logger.GenerateRequestID()
	key := uuid.NewString()

	body, err := json.Marshal(g.buildRequest(params))
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal charge: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/charges", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("failed to build charge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(IdempotencyHeader, key)
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	g.logger.Debug("charge_started", "Submitting charge to payment gateway", requestID, map[string]interface{}{
		"kind":            string(params.Kind()),
		"amount":          params.Amount().StringFixed(money.Places),
		"idempotency_key": key,
	})

	resp, err := g.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("payment gateway unreachable: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("failed to read gateway response: %w", err)
	}

	var parsed chargeResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return Result{}, fmt.Errorf("invalid gateway response (status %d): %w", resp.StatusCode, err)
		}
	}

	switch {
	case resp.StatusCode == http.StatusPaymentRequired:
		return Result{Outcome: Declined, Reason: parsed.reason("Your card was declined")}, nil
	case resp.StatusCode >= 300:
		return Result{}, fmt.Errorf("payment gateway error (status %d): %s", resp.StatusCode, parsed.reason(http.StatusText(resp.StatusCode)))
	}

	switch parsed.Status {
	case "authorized", "succeeded":
		if parsed.ID == "" {
			return Result{}, fmt.Errorf("payment gateway authorized without a charge reference")
		}
		g.logger.Info("charge_authorized", "Charge authorized", requestID, map[string]interface{}{
			"charge_ref": parsed.ID,
		})
		return Result{Outcome: Authorized, ChargeRef: parsed.ID}, nil
	case "declined", "failed":
		return Result{Outcome: Declined, Reason: parsed.reason("Your card was declined")}, nil
	default:
		return Result{}, fmt.Errorf("unexpected charge status %q", parsed.Status)
	}
}

func (g *HTTPGateway) buildRequest(params Params) chargeRequest {
	meta := map[string]string{
		"kind":          string(params.Kind()),
		"restaurant_id": strconv.Itoa(params.Restaurant()),
	}
	description := "swick order"
	switch p := params.(type) {
	case PlaceOrderParams:
		meta["table"] = strconv.Itoa(p.Table())
		if t, ok := p.Tip(); ok {
			meta["tip"] = t.StringFixed(money.Places)
		}
	case AddTipParams:
		meta["order_id"] = strconv.Itoa(p.Order())
		description = "swick tip"
	}
	return chargeRequest{
		Amount:        money.MinorUnits(params.Amount()),
		Currency:      g.currency,
		PaymentMethod: params.PaymentMethod(),
		Description:   description,
		Metadata:      meta,
	}
}

func (r chargeResponse) reason(fallback string) string {
	if r.FailureMessage != "" {
		return r.FailureMessage
	}
	if r.Error != nil && r.Error.Message != "" {
		return r.Error.Message
	}
	return fallback
}
