// Package mode derives emergency (offline) mode from backend health.
package mode

import (
	"sync"

	"veilo/pkg/log"
	"veilo/pkg/metrics"
	"veilo/pkg/models"
	"veilo/pkg/notify"

	"github.com/rs/zerolog"
)

// Snapshot is a consistent view of the controller state.
type Snapshot struct {
	Emergency bool                `json:"emergency"`
	Manual    bool                `json:"manual"`
	Cycle     uint64              `json:"cycle"`
	Health    models.HealthStatus `json:"health"`
}

// Controller switches between normal and emergency mode. Every observed
// health status opens a new cycle; a manual override only lasts until the next one.
type Controller struct {
	notifier notify.Notifier
	metrics  *metrics.Metrics
	logger   zerolog.Logger

	mu          sync.RWMutex
	emergency   bool
	manual      bool
	cycle       uint64
	health      models.HealthStatus
	subscribers map[int]func(bool)
	nextID      int
}

// NewController creates a controller in normal mode.
func NewController(notifier notify.Notifier, m *metrics.Metrics) *Controller {
	if notifier == nil {
		notifier = notify.Nop
	}
	m.SetEmergencyMode(false)

	return &Controller{
		notifier:    notifier,
		metrics:     m,
		logger:      log.Component("mode"),
		subscribers: make(map[int]func(bool)),
	}
}

// Observe applies the automatic rule for a new health status: enter emergency
// mode on the first non-healthy status, leave it on the first healthy one.
func (c *Controller) Observe(status models.HealthStatus) {
	c.mu.Lock()
	c.cycle++
	c.manual = false
	c.health = status
	c.mu.Unlock()

	c.set(!status.IsHealthy, false)
}

// SetEmergency overrides the mode for the current cycle.
func (c *Controller) SetEmergency(on bool) {
	c.set(on, true)
}

// Emergency reports whether emergency mode is active.
func (c *Controller) Emergency() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.emergency
}

// Snapshot returns the current mode, how it was set and the last observed status.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		Emergency: c.emergency,
		Manual:    c.manual,
		Cycle:     c.cycle,
		Health:    c.health,
	}
}

// Subscribe registers fn to receive every mode change and returns an unsubscribe function.
func (c *Controller) Subscribe(fn func(emergency bool)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subscribers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subscribers, id)
		c.mu.Unlock()
	}
}

func (c *Controller) set(on, manual bool) {
	c.mu.Lock()
	if manual {
		c.manual = true
	}
	if c.emergency == on {
		c.mu.Unlock()
		return
	}
	c.emergency = on
	cycle := c.cycle
	subscribers := make([]func(bool), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subscribers = append(subscribers, fn)
	}
	c.mu.Unlock()

	c.metrics.SetEmergencyMode(on)
	c.logger.Info().
		Bool("emergency", on).
		Bool("manual", manual).
		Uint64("cycle", cycle).
		Msg("Mode changed")

	if on {
		c.notifier.Notify(notify.Notification{
			Kind:    notify.KindOfflineMode,
			Level:   notify.LevelWarning,
			Source:  "mode",
			Message: "Offline mode enabled - posts will be saved locally",
		})
	} else {
		c.notifier.Notify(notify.Notification{
			Kind:    notify.KindBackOnline,
			Level:   notify.LevelSuccess,
			Source:  "mode",
			Message: "Back online",
		})
	}

	for _, fn := range subscribers {
		fn(on)
	}
}
