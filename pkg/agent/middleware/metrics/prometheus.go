package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder implements the Recorder interface using Prometheus metrics.
type PrometheusRecorder struct {
	requestsTotal   *prometheus.CounterVec
	tokensTotal     *prometheus.CounterVec
	costsTotal      *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a new Prometheus-based metrics recorder.
func NewPrometheusRecorder() *PrometheusRecorder {
	return &PrometheusRecorder{
		requestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_requests_total",
				Help: "Total number of agent capability calls by provider, model, and status",
			},
			[]string{"provider", "model", "status", "error_type"},
		),
		tokensTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_tokens_total",
				Help: "Total number of tokens used in agent capability calls",
			},
			[]string{"provider", "model", "type"},
		),
		costsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_costs_total",
				Help: "Total estimated cost in USD for agent capability calls",
			},
			[]string{"provider", "model"},
		),
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agent_request_duration_seconds",
				Help:    "Duration of agent capability calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider", "model"},
		),
	}
}

// ObserveRequest records metrics for a completed capability call.
func (p *PrometheusRecorder) ObserveRequest(
	provider, model string,
	promptTokens, completionTokens int64,
	cost float64,
	success bool,
	errorType string,
	duration time.Duration,
) {
	status := "success"
	if !success {
		status = "error"
	}

	p.requestsTotal.WithLabelValues(provider, model, status, errorType).Inc()

	if success {
		p.tokensTotal.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
		p.tokensTotal.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
		p.costsTotal.WithLabelValues(provider, model).Add(cost)
	}

	p.requestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
}
