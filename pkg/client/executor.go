package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"veilo/pkg/config"
	"veilo/pkg/log"
	"veilo/pkg/metrics"
	"veilo/pkg/models"
	"veilo/pkg/notify"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

// OfflineSaver persists a post locally when the backend cannot take it.
type OfflineSaver interface {
	CreateOffline(ctx context.Context, content models.PostInput) (*models.EmergencyPost, error)
}

// RequestOptions describes a single backend call.
type RequestOptions struct {
	Method  string
	Headers map[string]string
	// Body is sent as-is when it is []byte, otherwise encoded as JSON.
	Body interface{}
	// Offline, when set on a write request, is saved through the OfflineSaver
	// if the backend turns out to be down.
	Offline *models.PostInput
}

// ExecutorOptions configures an Executor. Zero values fall back to the config defaults.
type ExecutorOptions struct {
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// Timeout bounds each call; zero leaves it to the caller's context.
	Timeout  time.Duration
	Saver    OfflineSaver
	Notifier notify.Notifier
	Metrics  *metrics.Metrics
}

// Executor performs backend requests against the pinned base URL and turns
// every outcome into a models.RequestResult.
type Executor struct {
	state    *config.State
	client   *retryablehttp.Client
	timeout  time.Duration
	saver    OfflineSaver
	notifier notify.Notifier
	metrics  *metrics.Metrics
	logger   zerolog.Logger

	mu       sync.Mutex
	notified map[models.FailureClass]bool
}

// NewExecutor creates an executor reading the base URL from state on every call.
func NewExecutor(state *config.State, opts ExecutorOptions) *Executor {
	if opts.RetryMax < 0 {
		opts.RetryMax = 0
	}
	if opts.RetryWaitMin <= 0 {
		opts.RetryWaitMin = config.DefaultRetryWaitMin
	}
	if opts.RetryWaitMax < opts.RetryWaitMin {
		opts.RetryWaitMax = opts.RetryWaitMin
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop
	}

	return &Executor{
		state:    state,
		client:   newRetryableClient(opts.RetryMax, opts.RetryWaitMin, opts.RetryWaitMax),
		timeout:  opts.Timeout,
		saver:    opts.Saver,
		notifier: opts.Notifier,
		metrics:  opts.Metrics,
		logger:   log.Component("executor"),
		notified: make(map[models.FailureClass]bool),
	}
}

// Execute calls path on the currently pinned backend.
func (e *Executor) Execute(ctx context.Context, path string, opts RequestOptions) models.RequestResult {
	return e.ExecuteURL(ctx, e.state.BaseURL()+path, opts)
}

// ExecuteURL calls an absolute URL. The body is read in full and checked for
// HTML before any JSON decoding.
func (e *Executor) ExecuteURL(ctx context.Context, url string, opts RequestOptions) models.RequestResult {
	if opts.Method == "" {
		opts.Method = http.MethodGet
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	payload, err := encodeBody(opts.Body)
	if err != nil {
		return models.RequestResult{Error: err}
	}

	statusCode, body, err := e.do(ctx, url, opts, payload)
	var data json.RawMessage
	if err == nil {
		data, err = classifyResponse(statusCode, body)
	}

	class := Classify(err)
	result := models.RequestResult{
		Success: err == nil,
		Data:    data,
		Error:   err,
		Class:   class,
		Status:  statusCode,
	}
	e.metrics.ObserveRequest(string(class))

	if err == nil {
		e.rearm()
		return result
	}

	logEvent := e.logger.Warn()
	if !class.BackendDown() {
		logEvent = e.logger.Debug()
	}
	logEvent.
		Str("method", opts.Method).
		Str("url", url).
		Int("status", statusCode).
		Str("class", string(class)).
		Err(err).
		Msg("Backend request failed")

	if !class.BackendDown() {
		return result
	}

	if isWrite(opts.Method) && opts.Offline != nil && e.saver != nil {
		return e.saveOffline(ctx, result, *opts.Offline)
	}

	e.notifyOnce(class, false)
	return result
}

func (e *Executor) do(ctx context.Context, url string, opts RequestOptions, payload []byte) (int, []byte, error) {
	var rawBody interface{}
	if payload != nil {
		rawBody = payload
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, opts.Method, url, rawBody)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			e.logger.Debug().Err(closeErr).Msg("Failed to close response body")
		}
	}()

	body, err := readBody(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

// saveOffline stores the write locally. A storage failure degrades to an
// "emergency save failed" result.
func (e *Executor) saveOffline(ctx context.Context, result models.RequestResult, content models.PostInput) models.RequestResult {
	post, err := e.saver.CreateOffline(context.WithoutCancel(ctx), content)
	if err != nil {
		e.logger.Error().Err(err).Msg("Emergency save failed")
		result.Error = fmt.Errorf("%w: %w", ErrEmergencySaveFailed, err)
		e.notifyOnce(result.Class, false)
		return result
	}

	e.metrics.EmergencyPostSaved()
	result.Emergency = post
	e.notifyOnce(result.Class, true)
	return result
}

// notifyOnce emits one notification per failure class until a request succeeds again.
func (e *Executor) notifyOnce(class models.FailureClass, savedLocally bool) {
	e.mu.Lock()
	if e.notified[class] {
		e.mu.Unlock()
		return
	}
	e.notified[class] = true
	e.mu.Unlock()

	message := "Cannot reach the server"
	if class == models.ClassHTML {
		message = "Server returned an error page instead of data"
	}
	if savedLocally {
		message += " - your post was saved locally and will sync later"
	}

	e.notifier.Notify(notify.Notification{
		Kind:    notify.KindRequestFailed,
		Level:   notify.LevelWarning,
		Source:  "executor",
		Message: message,
	})
}

func (e *Executor) rearm() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.notified) > 0 {
		e.notified = make(map[models.FailureClass]bool)
	}
}

func encodeBody(body interface{}) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		return data, nil
	}
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}
