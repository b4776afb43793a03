// Package health periodically probes the pinned backend and publishes its status.
package health

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

// Options configures a Monitor. Zero durations fall back to the config defaults.
type Options struct {
	Interval time.Duration
	Timeout  time.Duration
	Notifier notify.Notifier
	Metrics  *metrics.Metrics
}

// Monitor probes the pinned backend on a fixed interval and keeps the latest status.
type Monitor struct {
	state    *config.State
	prober   Prober
	interval time.Duration
	timeout  time.Duration
	notifier notify.Notifier
	metrics  *metrics.Metrics
	logger   zerolog.Logger

	mu          sync.RWMutex
	current     models.HealthStatus
	subscribers map[int]func(models.HealthStatus)
	nextID      int

	lifecycle sync.Mutex
	running   bool
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewMonitor creates a stopped monitor. Call Start to begin probing.
func NewMonitor(state *config.State, prober Prober, opts Options) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = config.DefaultHealthInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = config.DefaultHealthTimeout
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop
	}

	return &Monitor{
		state:       state,
		prober:      prober,
		interval:    opts.Interval,
		timeout:     opts.Timeout,
		notifier:    opts.Notifier,
		metrics:     opts.Metrics,
		logger:      log.Component("health"),
		subscribers: make(map[int]func(models.HealthStatus)),
	}
}

// Start probes immediately and then on every interval. Starting a running monitor is a no-op.
func (m *Monitor) Start() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	if m.running {
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})

	go m.loop(m.stopCh, m.doneCh)

	m.logger.Info().
		Str("backend", m.state.BaseURL()).
		Dur("interval", m.interval).
		Dur("timeout", m.timeout).
		Msg("Health monitor started")
}

// Stop prevents further scheduled probes and waits for the loop to exit.
// An in-flight probe finishes within its own timeout. Stopping twice is a no-op.
// Subscribers must not call Stop: it waits for the probe that is notifying them.
func (m *Monitor) Stop() {
	m.lifecycle.Lock()
	if !m.running {
		m.lifecycle.Unlock()
		return
	}
	m.running = false
	close(m.stopCh)
	done := m.doneCh
	m.lifecycle.Unlock()

	<-done
	m.logger.Info().Msg("Health monitor stopped")
}

// Running reports whether the probe loop is active.
func (m *Monitor) Running() bool {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	return m.running
}

// Status returns the most recent status; its Status field is empty before the first probe.
func (m *Monitor) Status() models.HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Subscribe registers fn to be called synchronously after every completed
// probe, whether or not the status changed. It returns an unsubscribe function.
func (m *Monitor) Subscribe(fn func(models.HealthStatus)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subscribers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subscribers, id)
		m.mu.Unlock()
	}
}

// Check probes the pinned backend now. It may overlap a scheduled probe;
// whichever completes last becomes the current status.
func (m *Monitor) Check(ctx context.Context) models.HealthStatus {
	result := m.prober.Probe(ctx, m.state.BaseURL(), m.timeout)
	return m.record(result)
}

func (m *Monitor) loop(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	m.Check(context.Background())

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			select {
			case <-stopCh:
				return
			default:
			}
			m.Check(context.Background())
		}
	}
}

func (m *Monitor) record(result client.ProbeResult) models.HealthStatus {
	status := result.HealthStatus()

	m.mu.Lock()
	previous := m.current
	m.current = status
	subscribers := make([]func(models.HealthStatus), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subscribers = append(subscribers, fn)
	}
	m.mu.Unlock()

	m.metrics.ObserveProbe("health", string(status.Status), status.Latency)
	m.logger.Debug().
		Str("backend", result.URL).
		Str("status", string(status.Status)).
		Int64("latency_ms", status.Latency.Milliseconds()).
		Str("error", status.Error).
		Msg("Health probe finished")

	for _, fn := range subscribers {
		fn(status)
	}

	if previous.Known() && previous.Status != status.Status {
		m.announce(result.URL, previous, status)
	}
	return status
}

// announce emits the single notification for a status change.
func (m *Monitor) announce(backend string, previous, current models.HealthStatus) {
	n := notify.Notification{Source: "health"}

	switch current.Status {
	case models.StatusHealthy:
		n.Kind = notify.KindBackendOnline
		n.Level = notify.LevelSuccess
		n.Message = "Backend is back online"
		m.logger.Info().
			Str("backend", backend).
			Str("previous", string(previous.Status)).
			Int64("latency_ms", current.Latency.Milliseconds()).
			Msg("Backend back online")
	case models.StatusDegraded:
		n.Kind = notify.KindBackendDegraded
		n.Level = notify.LevelWarning
		n.Message = "Backend degraded - some features may not work"
		m.logger.Warn().
			Str("backend", backend).
			Str("previous", string(previous.Status)).
			Str("error", current.Error).
			Msg("Backend degraded")
	default:
		n.Kind = notify.KindBackendOffline
		n.Level = notify.LevelError
		n.Message = "Backend offline"
		m.logger.Warn().
			Str("backend", backend).
			Str("previous", string(previous.Status)).
			Str("error", current.Error).
			Msg("Backend marked offline")
	}

	m.notifier.Notify(n)
}
