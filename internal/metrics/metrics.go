package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry         *prometheus.Registry
	runs             *prometheus.CounterVec // total inventory runs
	runDuration      prometheus.Histogram   // time to run
	providerRequests *prometheus.CounterVec // provider http requests
	providerRetries  *prometheus.CounterVec // transient retries
	rateLimitPauses  *prometheus.CounterVec // 429 pauses
	recordsCollected *prometheus.GaugeVec   // fresh records per provider
	recordsCurrent   *prometheus.GaugeVec   // snapshot records by status
	storeRequests    *prometheus.CounterVec // snapshot store requests
}

// Public interface for metrics operations
func (m *Metrics) IncRun(success bool) {
	status := boolToResult(success)
	m.runs.WithLabelValues(status).Inc()
}

func (m *Metrics) SetRunDuration(duration time.Duration) {
	m.runDuration.Observe(duration.Seconds())
}

func (m *Metrics) IncProviderRequest(provider string, success bool) {
	if provider == "" {
		return
	}
	status := boolToResult(success)
	m.providerRequests.WithLabelValues(provider, status).Inc()
}

func (m *Metrics) IncProviderRetry(provider string) {
	if provider == "" {
		return
	}
	m.providerRetries.WithLabelValues(provider).Inc()
}

func (m *Metrics) IncRateLimitPause(provider string) {
	if provider == "" {
		return
	}
	m.rateLimitPauses.WithLabelValues(provider).Inc()
}

func (m *Metrics) SetRecordsCollected(provider string, count int) {
	if provider == "" {
		return
	}
	m.recordsCollected.WithLabelValues(provider).Set(float64(count))
}

func (m *Metrics) SetRecordsCurrent(status string, count int) {
	if !isValidStatus(status) {
		return
	}
	m.recordsCurrent.WithLabelValues(status).Set(float64(count))
}

func (m *Metrics) IncStoreRequest(operation string, success bool) {
	if !isValidOperation(operation) {
		return
	}
	status := boolToResult(success)
	m.storeRequests.WithLabelValues(operation, status).Inc()
}

// Validation helpers
func boolToResult(b bool) string {
	if b {
		return "success"
	}
	return "failure"
}

func isValidOperation(op string) bool {
	switch op {
	case "load", "save":
		return true
	}
	return false
}

func isValidStatus(status string) bool {
	switch status {
	case "active", "removed":
		return true
	}
	return false
}

func New(register bool) *Metrics {
	registry := prometheus.NewRegistry()
	namespace := "dns_inventory"

	m := &Metrics{
		registry: registry,

		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of inventory runs",
		}, []string{"status"}),

		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of inventory runs in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		providerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Total HTTP requests issued to providers",
		}, []string{"provider", "status"}),

		providerRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_retries_total",
			Help:      "Total transient failures retried against providers",
		}, []string{"provider"}),

		rateLimitPauses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_pauses_total",
			Help:      "Total pauses forced by provider rate limiting",
		}, []string{"provider"}),

		recordsCollected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records_collected",
			Help:      "Records collected per provider in the last run",
		}, []string{"provider"}),

		recordsCurrent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records_current",
			Help:      "Snapshot records by lifecycle status",
		}, []string{"status"}),

		storeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_requests_total",
			Help:      "Total snapshot store requests",
		}, []string{"operation", "status"}),
	}

	if register {
		registry.MustRegister(
			m.runs,
			m.runDuration,
			m.providerRequests,
			m.providerRetries,
			m.rateLimitPauses,
			m.recordsCollected,
			m.recordsCurrent,
			m.storeRequests,
		)
	}
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
