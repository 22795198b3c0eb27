package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNoCredentials    = errors.New("no credentials available")
	ErrCredentialsEmpty = errors.New("credentials are empty")
	ErrTFARequired      = errors.New("two-factor code required")
	ErrInvalidLogin     = errors.New("invalid username or password")
)

// NetworkError is a transport-level failure: DNS, connection reset, unreadable or
// undecodable body
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// TimeoutError is returned when the caller's timer fires before the response arrives.
// The underlying request keeps running.
type TimeoutError struct {
	Operation string
	After     time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Operation, e.After)
}

// APIError carries an error payload returned by the remote service, verbatim
type APIError struct {
	StatusCode int
	Payload    json.RawMessage
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, string(e.Payload))
}

// ErrorPayload renders err in the {"error": message} shape handed to callers
func ErrorPayload(err error) map[string]interface{} {
	var apiErr *APIError
	if errors.As(err, &apiErr) && len(apiErr.Payload) > 0 {
		return map[string]interface{}{"error": apiErr.Payload}
	}
	return map[string]interface{}{"error": err.Error()}
}
