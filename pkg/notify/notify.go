// Package notify decouples user-facing notifications (toasts) from the state
// machines that produce them.
package notify

import (
	"sync"
	"time"

	"veilo/pkg/log"

	"github.com/rs/zerolog"
)

// Kind identifies the transition a notification reports.
type Kind string

const (
	KindBackendOnline   Kind = "backend_online"
	KindBackendDegraded Kind = "backend_degraded"
	KindBackendOffline  Kind = "backend_offline"
	KindAllOffline      Kind = "all_backends_offline"
	KindOfflineMode     Kind = "offline_mode_enabled"
	KindBackOnline      Kind = "back_online"
	KindRequestFailed   Kind = "request_failed"
)

// Level is the severity a UI should render the notification with.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

const defaultHistorySize = 50

// Notification is a single user-visible message.
type Notification struct {
	Kind      Kind      `json:"kind"`
	Level     Level     `json:"level"`
	Source    string    `json:"source"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier receives notifications.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(n Notification)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notification) {
	f(n)
}

// Nop discards every notification.
var Nop Notifier = NotifierFunc(func(Notification) {})

// Bus fans notifications out to subscribers, logs them and keeps a short history.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[int]Notifier
	nextID      int
	history     []Notification
	historySize int
	logger      zerolog.Logger
}

// NewBus creates a bus retaining up to historySize recent notifications.
func NewBus(historySize int) *Bus {
	if historySize <= 0 {
		historySize = defaultHistorySize
	}
	return &Bus{
		subscribers: make(map[int]Notifier),
		historySize: historySize,
		logger:      log.Component("notify"),
	}
}

// Notify stamps, records and delivers n to every subscriber synchronously.
func (b *Bus) Notify(n Notification) {
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	b.mu.Lock()
	b.history = append(b.history, n)
	if len(b.history) > b.historySize {
		b.history = b.history[len(b.history)-b.historySize:]
	}
	subscribers := make([]Notifier, 0, len(b.subscribers))
	for _, sub := range b.subscribers {
		subscribers = append(subscribers, sub)
	}
	b.mu.Unlock()

	b.logger.Info().
		Str("kind", string(n.Kind)).
		Str("level", string(n.Level)).
		Str("source", n.Source).
		Msg(n.Message)

	for _, sub := range subscribers {
		sub.Notify(n)
	}
}

// Subscribe registers n and returns a function removing it again.
func (b *Bus) Subscribe(n Notifier) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subscribers[id] = n
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subscribers, id)
		b.mu.Unlock()
	}
}

// Recent returns the retained notifications, oldest first.
func (b *Bus) Recent() []Notification {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Notification, len(b.history))
	copy(out, b.history)
	return out
}

// Count returns how many retained notifications have the given kind.
func (b *Bus) Count(kind Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, n := range b.history {
		if n.Kind == kind {
			count++
		}
	}
	return count
}
