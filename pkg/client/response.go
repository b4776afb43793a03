package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"veilo/pkg/detect"
)

// readLimit caps how much of a response body is read into memory.
const readLimit = 8 << 20

// readBody reads a whole response body. A body larger than readLimit is
// rejected instead of being truncated into invalid JSON.
func readBody(body io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, readLimit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrNetwork, err)
	}
	if len(data) > readLimit {
		return nil, fmt.Errorf("%w: %w (limit %d bytes)", ErrMalformedResponse, ErrResponseTooLarge, readLimit)
	}
	return data, nil
}

// classifyResponse inspects a fully read body. HTML is checked before any JSON
// decoding is attempted; a body that is not valid JSON is always malformed,
// whatever the status code.
func classifyResponse(statusCode int, body []byte) (json.RawMessage, error) {
	text := string(body)

	if detect.IsHTML(text) {
		return nil, fmt.Errorf("%w (status %d)", ErrHTMLResponse, statusCode)
	}

	success := statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices

	if strings.TrimSpace(text) == "" {
		if success {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: empty body (status %d)", ErrMalformedResponse, statusCode)
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("%w (status %d)", ErrMalformedResponse, statusCode)
	}

	if !success {
		return json.RawMessage(body), &StatusError{StatusCode: statusCode, Message: errorMessage(body)}
	}

	return json.RawMessage(body), nil
}

// errorMessage extracts the "error" or "message" field of a JSON error payload.
func errorMessage(body []byte) string {
	var payload struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	if len(payload.Error) > 0 {
		var text string
		if err := json.Unmarshal(payload.Error, &text); err == nil && text != "" {
			return text
		}
		var nested struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(payload.Error, &nested); err == nil && nested.Message != "" {
			return nested.Message
		}
	}
	return payload.Message
}
