// Package metrics exposes Prometheus instrumentation for the resilience layer.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "veilo"

// Metrics groups the collectors registered on a dedicated registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry       *prometheus.Registry
	probes         *prometheus.CounterVec
	probeDuration  *prometheus.HistogramVec
	requests       *prometheus.CounterVec
	failovers      *prometheus.CounterVec
	emergencyPosts prometheus.Counter
	emergencyMode  prometheus.Gauge
}

// New builds and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_total",
			Help:      "Backend probes by caller and resulting status.",
		}, []string{"source", "status"}),
		probeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "probe_duration_seconds",
			Help:      "Backend probe latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Resilient requests by failure class (\"ok\" on success).",
		}, []string{"class"}),
		failovers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failover_runs_total",
			Help:      "Healthy-backend searches by outcome.",
		}, []string{"result"}),
		emergencyPosts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emergency_posts_saved_total",
			Help:      "Posts saved locally because the backend was unreachable.",
		}),
		emergencyMode: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "emergency_mode",
			Help:      "1 while the client is in emergency (offline) mode.",
		}),
	}

	m.registry.MustRegister(m.probes, m.probeDuration, m.requests, m.failovers, m.emergencyPosts, m.emergencyMode)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveProbe records one probe made by source ("health" or "connection").
func (m *Metrics) ObserveProbe(source, status string, latency time.Duration) {
	if m == nil {
		return
	}
	m.probes.WithLabelValues(source, status).Inc()
	m.probeDuration.WithLabelValues(source).Observe(latency.Seconds())
}

// ObserveRequest records one executor request outcome.
func (m *Metrics) ObserveRequest(class string) {
	if m == nil {
		return
	}
	if class == "" {
		class = "ok"
	}
	m.requests.WithLabelValues(class).Inc()
}

// ObserveFailover records a healthy-backend search ("pinned" or "all_offline").
func (m *Metrics) ObserveFailover(result string) {
	if m == nil {
		return
	}
	m.failovers.WithLabelValues(result).Inc()
}

// EmergencyPostSaved counts one locally saved post.
func (m *Metrics) EmergencyPostSaved() {
	if m == nil {
		return
	}
	m.emergencyPosts.Inc()
}

// SetEmergencyMode mirrors the mode flag into a gauge.
func (m *Metrics) SetEmergencyMode(on bool) {
	if m == nil {
		return
	}
	if on {
		m.emergencyMode.Set(1)
		return
	}
	m.emergencyMode.Set(0)
}
