package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "health_risk"

// Metrics holds the Prometheus collectors of the HTTP API.
type Metrics struct {
	// requests counts handled requests.
	// Labels: method, route (gin route pattern), status
	requests *prometheus.CounterVec

	// latency measures request handling time in seconds.
	// Labels: method, route
	latency *prometheus.HistogramVec

	// assessments counts stored assessments.
	// Labels: disease, level
	assessments *prometheus.CounterVec

	// predictions counts remote prediction calls.
	// Labels: disease, outcome (ok, error, unavailable)
	predictions *prometheus.CounterVec

	// streamClients tracks open dashboard websocket connections.
	streamClients prometheus.Gauge
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "route"}),
		assessments: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "assessments",
			Name:      "stored_total",
			Help:      "Total stored assessments by disease and risk level",
		}, []string{"disease", "level"}),
		predictions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "remote",
			Name:      "predictions_total",
			Help:      "Total remote prediction calls by outcome",
		}, []string{"disease", "outcome"}),
		streamClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "stream",
			Name:      "clients",
			Help:      "Open analytics stream connections",
		}),
	}
}

// Handler records request count and latency.
func (m *Metrics) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.latency.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// ObserveAssessment counts a stored assessment.
func (m *Metrics) ObserveAssessment(disease, level string) {
	m.assessments.WithLabelValues(disease, level).Inc()
}

// ObservePrediction counts a remote prediction outcome.
func (m *Metrics) ObservePrediction(disease, outcome string) {
	m.predictions.WithLabelValues(disease, outcome).Inc()
}

// StreamOpened and StreamClosed track dashboard connections.
func (m *Metrics) StreamOpened() { m.streamClients.Inc() }

func (m *Metrics) StreamClosed() { m.streamClients.Dec() }
