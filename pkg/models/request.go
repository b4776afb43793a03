package models

import "encoding/json"

// FailureClass identifies why a backend request did not succeed.
type FailureClass string

const (
	ClassNone FailureClass = ""
	// ClassHTML means a reachable server answered with an HTML document.
	ClassHTML FailureClass = "html"
	// ClassMalformed means the body was neither HTML nor valid JSON.
	ClassMalformed FailureClass = "malformed"
	// ClassHTTPStatus means valid JSON with a non-2xx status code.
	ClassHTTPStatus FailureClass = "http_status"
	// ClassNetwork means no response was received (timeout, DNS, refused).
	ClassNetwork FailureClass = "network"
)

// BackendDown reports whether the class means the backend should be treated as unreachable.
func (c FailureClass) BackendDown() bool {
	return c == ClassHTML || c == ClassNetwork
}

// RequestResult is the structured outcome of a resilient request.
type RequestResult struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     error           `json:"-"`
	Class     FailureClass    `json:"class,omitempty"`
	Status    int             `json:"status"`
	Emergency *EmergencyPost  `json:"emergency,omitempty"`
}
