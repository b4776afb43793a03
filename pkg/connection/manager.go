// Package connection fails over between candidate backend URLs.
package connection

import (
	"context"
	"sync"
	"time"

	"veilo/pkg/client"
	"veilo/pkg/config"
	"veilo/pkg/log"
	"veilo/pkg/metrics"
	"veilo/pkg/models"
	"veilo/pkg/notify"

	"github.com/rs/zerolog"
)

// Prober runs one bounded health request against a base URL.
type Prober interface {
	Probe(ctx context.Context, baseURL string, timeout time.Duration) client.ProbeResult
}

// Options configures a Manager. Zero values fall back to the config defaults.
type Options struct {
	ProbeTimeout time.Duration
	LogSize      int
	Notifier     notify.Notifier
	Metrics      *metrics.Metrics
}

// Manager probes candidate backends in priority order and pins the first healthy one.
type Manager struct {
	state        *config.State
	prober       Prober
	probeTimeout time.Duration
	notifier     notify.Notifier
	metrics      *metrics.Metrics
	logger       zerolog.Logger

	mu       sync.RWMutex
	urls     []string
	attempts *attemptLog
}

// NewManager creates a manager whose candidates are the pinned URL followed by fallbacks.
func NewManager(state *config.State, prober Prober, fallbacks []string, opts Options) *Manager {
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = config.DefaultProbeTimeout
	}
	if opts.LogSize <= 0 {
		opts.LogSize = config.DefaultAttemptLogSize
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop
	}

	return &Manager{
		state:        state,
		prober:       prober,
		probeTimeout: opts.ProbeTimeout,
		notifier:     opts.Notifier,
		metrics:      opts.Metrics,
		logger:       log.Component("connection"),
		urls:         config.Dedupe(append([]string{state.BaseURL()}, fallbacks...)),
		attempts:     newAttemptLog(opts.LogSize),
	}
}

// Candidates returns the probe order: the pinned URL first, then the
// remaining known URLs in priority order.
func (m *Manager) Candidates() []string {
	pinned := m.state.BaseURL()

	m.mu.RLock()
	defer m.mu.RUnlock()
	return config.Dedupe(append([]string{pinned}, m.urls...))
}

// FindHealthyBackend probes each candidate once and pins the first healthy
// one. When every candidate fails the pinned URL is left unchanged and
// returned together with ErrAllBackendsOffline.
func (m *Manager) FindHealthyBackend(ctx context.Context) (string, error) {
	candidates := m.Candidates()

	for _, url := range candidates {
		if err := ctx.Err(); err != nil {
			return m.state.BaseURL(), err
		}

		result := m.prober.Probe(ctx, url, m.probeTimeout)
		m.record(result.Attempt())
		m.metrics.ObserveProbe("connection", string(result.Status), result.Latency)

		if result.Healthy() {
			m.pin(url, result.Latency)
			m.metrics.ObserveFailover("pinned")
			return url, nil
		}

		m.logger.Debug().
			Str("backend", url).
			Str("status", string(result.Status)).
			Err(result.Err).
			Msg("Candidate backend failed")
	}

	pinned := m.state.BaseURL()
	m.logger.Error().
		Int("candidates", len(candidates)).
		Str("pinned", pinned).
		Msg("All backends are offline")
	m.metrics.ObserveFailover("all_offline")
	m.notifier.Notify(notify.Notification{
		Kind:    notify.KindAllOffline,
		Level:   notify.LevelError,
		Source:  "connection",
		Message: "All backends are offline",
	})
	return pinned, ErrAllBackendsOffline
}

// Stats summarizes the retained attempt log.
func (m *Manager) Stats() models.ConnectionStats {
	attempts := m.Attempts()
	stats := models.ConnectionStats{
		Pinned: m.state.BaseURL(),
		Total:  len(attempts),
	}

	var latency time.Duration
	for _, attempt := range attempts {
		if attempt.Success {
			stats.SuccessCount++
			latency += attempt.Latency
			continue
		}
		stats.FailureCount++
	}

	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.SuccessCount) / float64(stats.Total)
	}
	if stats.SuccessCount > 0 {
		stats.AverageLatency = latency / time.Duration(stats.SuccessCount)
	}
	return stats
}

// Attempts returns a copy of the retained attempts, oldest first.
func (m *Manager) Attempts() []models.ConnectionAttempt {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.attempts.snapshot()
}

func (m *Manager) record(attempt models.ConnectionAttempt) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts.add(attempt)
}

// pin moves url to the front of the candidate list and publishes it as the base URL.
func (m *Manager) pin(url string, latency time.Duration) {
	m.mu.Lock()
	m.urls = config.Dedupe(append([]string{url}, m.urls...))
	m.mu.Unlock()

	if m.state.SetBaseURL(url) {
		m.logger.Info().
			Str("backend", url).
			Int64("latency_ms", latency.Milliseconds()).
			Msg("Switched to healthy backend")
		return
	}
	m.logger.Debug().Str("backend", url).Msg("Pinned backend is healthy")
}
