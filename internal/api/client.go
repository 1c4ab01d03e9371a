// Package api is the REST client for the swick backend (the remote order gateway).
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"swick/internal/logger"
)

// StatusSuccess is the status discriminator of every successful response
const StatusSuccess = "success"

// ErrNetwork wraps failures where the request could not complete
var ErrNetwork = errors.New("network error")

// StatusError is a response whose status discriminator was not "success"
type StatusError struct {
	Status     string
	Message    string
	HTTPStatus int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %s: %s", e.Status, e.Message)
}

// ServerMessage is the human-readable message supplied by the backend
func (e *StatusError) ServerMessage() string {
	return e.Message
}

// TokenSource supplies the session token sent as a bearer credential
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client talks to the backend REST API
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	logger  *logger.Logger
}

// NewClient creates an API client. tokens may be nil for unauthenticated use.
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource, log *logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
		logger:  log,
	}
}

type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// do sends one request and decodes the response into out. A backend envelope whose
// status is not "success" becomes a *StatusError; transport failures and HTTP errors
// without an envelope wrap ErrNetwork.
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	requestID := logger.GenerateRequestID()
	start := time.Now()

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("api_request_failed", fmt.Sprintf("%s %s failed", method, path), requestID, err, nil)
		return fmt.Errorf("%w: %s %s: %v", ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%w: reading %s response: %v", ErrNetwork, path, err)
	}

	c.logger.Debug("api_request_completed", fmt.Sprintf("%s %s - %d", method, path, resp.StatusCode), requestID, map[string]interface{}{
		"status_code": resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	// An HTTP error without the backend's envelope came from something in between
	// (a proxy page, a gateway timeout), so what the backend did is unknown.
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Status == "" {
		if resp.StatusCode >= 300 {
			return fmt.Errorf("%w: %s %s: HTTP %d %s", ErrNetwork, method, path,
				resp.StatusCode, http.StatusText(resp.StatusCode))
		}
		if err != nil {
			return fmt.Errorf("invalid response from %s: %w", path, err)
		}
	}

	if env.Status != StatusSuccess {
		msg := env.Message
		if msg == "" {
			msg = "Something went wrong, please try again"
		}
		status := env.Status
		if status == "" {
			status = "error"
		}
		return &StatusError{Status: status, Message: msg, HTTPStatus: resp.StatusCode}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", path, err)
		}
	}
	return nil
}
