package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"veilo/pkg/config"
	"veilo/pkg/models"

	"github.com/hashicorp/go-cleanhttp"
)

// ProbeResult is the outcome of a single bounded health request.
type ProbeResult struct {
	URL        string
	Status     models.Status
	Class      models.FailureClass
	StatusCode int
	Latency    time.Duration
	Timestamp  time.Time
	Err        error
}

// Healthy reports whether the probe classified the backend as healthy.
func (r ProbeResult) Healthy() bool {
	return r.Status == models.StatusHealthy
}

// HealthStatus converts the result into the monitor's status record.
func (r ProbeResult) HealthStatus() models.HealthStatus {
	status := models.HealthStatus{
		IsHealthy: r.Healthy(),
		Status:    r.Status,
		Latency:   r.Latency,
		Timestamp: r.Timestamp,
	}
	if r.Err != nil {
		status.Error = r.Err.Error()
	}
	return status
}

// Attempt converts the result into a connection attempt record.
func (r ProbeResult) Attempt() models.ConnectionAttempt {
	attempt := models.ConnectionAttempt{
		URL:       r.URL,
		Timestamp: r.Timestamp,
		Success:   r.Healthy(),
	}
	if attempt.Success {
		attempt.Latency = r.Latency
	}
	if r.Err != nil {
		attempt.Error = r.Err.Error()
	}
	return attempt
}

// Prober issues single-attempt health requests against a base URL.
type Prober struct {
	client     *http.Client
	healthPath string
}

// NewProber creates a prober hitting healthPath on each base URL.
func NewProber(healthPath string) *Prober {
	if healthPath == "" {
		healthPath = PathHealth
	}
	return &Prober{
		client:     cleanhttp.DefaultPooledClient(),
		healthPath: healthPath,
	}
}

// Probe requests <baseURL><healthPath> once, bounded by timeout, and classifies it:
// healthy for 2xx JSON, degraded for malformed JSON or non-2xx JSON, down for
// HTML bodies and transport failures.
func (p *Prober) Probe(ctx context.Context, baseURL string, timeout time.Duration) (result ProbeResult) {
	baseURL = config.NormalizeURL(baseURL)
	result.URL = baseURL

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		result.Latency = time.Since(start)
		result.Timestamp = time.Now()
	}()

	statusCode, body, err := p.fetch(ctx, baseURL+p.healthPath)
	result.StatusCode = statusCode
	if err != nil {
		result.Err = err
		result.Class = Classify(err)
		result.Status = statusForClass(result.Class)
		return result
	}

	_, err = classifyResponse(statusCode, body)
	result.Err = err
	result.Class = Classify(err)
	result.Status = statusForClass(result.Class)
	return result
}

func (p *Prober) fetch(ctx context.Context, url string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

func statusForClass(class models.FailureClass) models.Status {
	switch class {
	case models.ClassNone:
		return models.StatusHealthy
	case models.ClassMalformed, models.ClassHTTPStatus:
		return models.StatusDegraded
	default:
		return models.StatusDown
	}
}
