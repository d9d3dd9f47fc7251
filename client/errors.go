package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUnauthorized matches 401 and 403 responses.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound matches 404 responses.
	ErrNotFound = errors.New("not found")
)

const reloginMessage = "authentication required, please log in again"

// maxTextMessage caps how much of a non-JSON error body is shown.
const maxTextMessage = 200

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string { return e.Message }

// Unwrap lets callers match with errors.Is(err, ErrUnauthorized) and
// errors.Is(err, ErrNotFound).
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// errorMessage prefers the body's "message", then "error", then the raw
// text, then the status line.
func errorMessage(status int, body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	text := strings.TrimSpace(string(body))
	if text != "" && !strings.HasPrefix(text, "{") {
		if len(text) > maxTextMessage {
			text = text[:maxTextMessage] + "..."
		}
		return text
	}
	return fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status))
}

// IsUnauthorized reports whether err came from a rejected session.
func IsUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }
