package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"time"

	"swick/internal/cart"
	"swick/internal/logger"
	"swick/internal/metrics"
)

const maxRequestBytes = 1 << 20

// Handler handles HTTP requests for the quote service
type Handler struct {
	service *Service
	logger  *logger.Logger
	metrics *metrics.ServerMetrics
	exposer http.Handler
}

// NewHandler creates a quote handler. exposer serves /metrics and may be nil.
func NewHandler(service *Service, m *metrics.ServerMetrics, exposer http.Handler, log *logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log,
		metrics: m,
		exposer: exposer,
	}
}

// Quote handles POST /quote requests
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())

	if r.Method != http.MethodPost {
		h.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", requestID)
		return
	}

	if mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err != nil || mediaType != "application/json" {
		h.writeErrorResponse(w, http.StatusBadRequest, "Content-Type must be application/json", requestID)
		return
	}

	var req Request
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&req); err != nil {
		h.logger.Error("validation_failed", "Failed to parse request body", requestID, err, nil)
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON format", requestID)
		return
	}

	response, err := h.service.Quote(&req)
	if err != nil {
		var ve cart.ValidationError
		if errors.As(err, &ve) {
			h.logger.Debug("validation_failed", "Quote request rejected", requestID, map[string]interface{}{
				"field": ve.Field,
			})
			h.writeErrorResponse(w, http.StatusBadRequest, err.Error(), requestID)
			return
		}
		h.logger.Error("quote_failed", "Failed to price cart", requestID, err, nil)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID)
		return
	}

	h.logger.Debug("quote_computed", "Cart priced", requestID, map[string]interface{}{
		"items": len(req.Items),
		"total": response.Total,
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("response_encoding_failed", "Failed to encode response", requestID, err, nil)
	}
}

// HealthCheck handles GET /health requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	err := h.service.HealthCheck(ctx)

	response := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "quote-service",
		"healthy":   err == nil,
	}

	w.Header().Set("Content-Type", "application/json")
	if err == nil {
		w.WriteHeader(http.StatusOK)
	} else {
		h.logger.Warn("health_check_failed", "Dependency unavailable", requestIDFrom(r.Context()), map[string]interface{}{
			"error": err.Error(),
		})
		w.WriteHeader(http.StatusServiceUnavailable)
		response["status"] = "unhealthy"
	}

	json.NewEncoder(w).Encode(response)
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

// SetupRoutes sets up the HTTP routes
func (h *Handler) SetupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/quote", h.withLogging("quote", h.Quote))
	mux.HandleFunc("/health", h.withLogging("health", h.HealthCheck))
	if h.exposer != nil {
		mux.Handle("/metrics", h.exposer)
	}
	return mux
}

type ctxKey struct{}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// withLogging logs each request and records it in the server metrics
func (h *Handler) withLogging(name string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := logger.GenerateRequestID()
		r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, requestID))

		h.logger.Debug("request_started",
			fmt.Sprintf("%s %s", r.Method, r.URL.Path),
			requestID,
			map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"remote_addr": r.RemoteAddr,
				"user_agent":  r.Header.Get("User-Agent"),
			})

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		if h.metrics != nil {
			h.metrics.Observe(name, strconv.Itoa(rw.statusCode), duration)
		}
		h.logger.Debug("request_completed",
			fmt.Sprintf("%s %s - %d", r.Method, r.URL.Path, rw.statusCode),
			requestID,
			map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status_code": rw.statusCode,
				"duration_ms": duration.Milliseconds(),
			})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
