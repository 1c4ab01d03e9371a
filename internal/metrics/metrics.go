package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"swick/internal/payment"
)

const namespace = "swick"

type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
}

func NewServerMetrics(reg prometheus.Registerer, service string) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: service,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: service,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
	}, []string{"handler"})

	reg.MustRegister(requests, latency)
	return &ServerMetrics{Requests: requests, LatencyMS: latency}
}

// Observe records one request
func (m *ServerMetrics) Observe(handler, status string, elapsed time.Duration) {
	m.Requests.WithLabelValues(handler, status).Inc()
	m.LatencyMS.WithLabelValues(handler).Observe(float64(elapsed.Milliseconds()))
}

// WorkflowMetrics counts payment attempts by action and outcome
type WorkflowMetrics struct {
	InFlight prometheus.Gauge
	Attempts *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

func NewWorkflowMetrics(reg prometheus.Registerer) *WorkflowMetrics {
	inFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "workflow",
		Name:      "attempts_in_flight",
		Help:      "Payment attempts currently between submission and outcome.",
	})
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "workflow",
		Name:      "attempts_total",
		Help:      "Finished payment attempts by action and outcome.",
	}, []string{"action", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "workflow",
		Name:      "attempt_duration_seconds",
		Help:      "Time from submission to outcome.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"action"})

	reg.MustRegister(inFlight, attempts, duration)
	return &WorkflowMetrics{InFlight: inFlight, Attempts: attempts, Duration: duration}
}

func (m *WorkflowMetrics) AttemptStarted(kind payment.Kind) {
	m.InFlight.Inc()
}

func (m *WorkflowMetrics) AttemptFinished(kind payment.Kind, outcome string, elapsed time.Duration) {
	m.InFlight.Dec()
	m.Attempts.WithLabelValues(string(kind), outcome).Inc()
	m.Duration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}

// Handler serves the metrics gathered by g
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
