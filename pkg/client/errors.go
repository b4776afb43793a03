package client

import (
	"errors"
	"fmt"

	"veilo/pkg/models"
)

var (
	// ErrHTMLResponse is returned when a backend answers with an HTML document instead of JSON.
	ErrHTMLResponse = errors.New("server returned HTML instead of JSON")

	// ErrMalformedResponse is returned when a response body is not valid JSON.
	ErrMalformedResponse = errors.New("malformed JSON response")

	// ErrResponseTooLarge is returned, wrapped in ErrMalformedResponse, when a body exceeds the read limit.
	ErrResponseTooLarge = errors.New("response body too large")

	// ErrNetwork is returned when no response was received (timeout, DNS failure, connection refused).
	ErrNetwork = errors.New("backend unreachable")

	// ErrEmergencySaveFailed is returned when a write could not be saved locally either.
	ErrEmergencySaveFailed = errors.New("emergency save failed")
)

// StatusError is a non-2xx response carrying a valid JSON body.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// Classify maps an error returned by this package onto the failure taxonomy.
func Classify(err error) models.FailureClass {
	var statusErr *StatusError
	switch {
	case err == nil:
		return models.ClassNone
	case errors.Is(err, ErrHTMLResponse):
		return models.ClassHTML
	case errors.Is(err, ErrMalformedResponse):
		return models.ClassMalformed
	case errors.As(err, &statusErr):
		return models.ClassHTTPStatus
	default:
		return models.ClassNetwork
	}
}

// IsBackendDown reports whether err means the backend should be treated as unreachable.
func IsBackendDown(err error) bool {
	return Classify(err).BackendDown()
}
