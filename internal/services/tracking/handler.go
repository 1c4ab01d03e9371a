package tracking

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"swick/internal/api"
	"swick/internal/logger"
)

// Handler serves order details through the local service
type Handler struct {
	source DetailsSource
	logger *logger.Logger
}

// NewHandler creates a new tracking handler
func NewHandler(source DetailsSource, log *logger.Logger) *Handler {
	return &Handler{
		source: source,
		logger: log,
	}
}

// GetOrderDetails handles GET /orders/{id} requests
func (h *Handler) GetOrderDetails(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	if r.Method != http.MethodGet {
		h.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", requestID)
		return
	}

	orderID, ok := h.extractOrderID(r.URL.Path, "/orders/")
	if !ok {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid order id", requestID)
		return
	}

	details, err := h.source.GetOrderDetails(r.Context(), orderID)
	if err != nil {
		var se *api.StatusError
		switch {
		case errors.As(err, &se):
			h.writeErrorResponse(w, http.StatusBadGateway, se.ServerMessage(), requestID)
		case errors.Is(err, api.ErrNetwork):
			h.writeErrorResponse(w, http.StatusGatewayTimeout, "Backend unreachable", requestID)
		default:
			h.logger.Error("order_details_failed", "Failed to get order details", requestID, err, map[string]interface{}{
				"order_id": orderID,
			})
			h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(details); err != nil {
		h.logger.Error("response_encoding_failed", "Failed to encode response", requestID, err, nil)
	}
}

// Register mounts the handler on mux
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/orders/", h.GetOrderDetails)
}

func (h *Handler) extractOrderID(path, prefix string) (int, bool) {
	if !strings.HasPrefix(path, prefix) {
		return 0, false
	}
	id, err := strconv.Atoi(strings.Trim(strings.TrimPrefix(path, prefix), "/"))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (h *Handler) writeErrorResponse(w http.ResponseWriter, statusCode int, message, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResponse := map[string]interface{}{
		"error":      message,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"request_id": requestID,
	}

	json.NewEncoder(w).Encode(errorResponse)
}
