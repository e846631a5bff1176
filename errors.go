package dyndns

import "fmt"

// A ConnectionError reports a transport-level failure: DNS resolution, TCP or
// TLS setup, no usable route, or an HTTP response that never carried a usable
// body. Callers can match it with errors.As.
type ConnectionError struct {
	Op  string // operation that failed, e.g. "dns-list_records"
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s: connection error: %s", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// A ProtocolError reports a provider response that could not be interpreted:
// a body that is not valid JSON, or JSON missing the expected result shape.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: protocol error: %s", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// An APIError reports a request the provider understood and rejected.
// Code carries the provider's error payload verbatim.
type APIError struct {
	Op     string
	Code   string
	Reason string
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: provider returned %q: %s", e.Op, e.Code, e.Reason)
	}
	return fmt.Sprintf("%s: provider returned %q", e.Op, e.Code)
}
