package models

import "time"

// ConnectionAttempt records one probe of a candidate backend. Entries are never modified after creation.
type ConnectionAttempt struct {
	URL       string        `json:"url"`
	Timestamp time.Time     `json:"timestamp"`
	Success   bool          `json:"success"`
	Latency   time.Duration `json:"latency_ns,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// ConnectionStats is a read-only summary of the retained attempt log.
type ConnectionStats struct {
	Pinned         string        `json:"pinned"`
	Total          int           `json:"total"`
	SuccessCount   int           `json:"success_count"`
	FailureCount   int           `json:"failure_count"`
	SuccessRate    float64       `json:"success_rate"`
	AverageLatency time.Duration `json:"average_latency_ns"`
}
