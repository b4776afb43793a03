package models

import "time"

// Status is the classified state of the pinned backend.
type Status string

const (
	// StatusUnknown is the state before the first probe completes.
	StatusUnknown  Status = ""
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// HealthStatus is the result of the most recent health probe.
type HealthStatus struct {
	IsHealthy bool          `json:"is_healthy"`
	Status    Status        `json:"status"`
	Latency   time.Duration `json:"latency_ns"`
	Timestamp time.Time     `json:"timestamp"`
	Error     string        `json:"error,omitempty"`
}

// Known reports whether at least one probe has completed.
func (h HealthStatus) Known() bool {
	return h.Status != StatusUnknown
}
