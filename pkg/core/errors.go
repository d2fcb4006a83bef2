package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the category of a client error.
type ErrorType int

// Error type constants categorize failures for retry and handling decisions.
const (
	// ErrorTypeUnknown indicates an unclassified error.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeTransport indicates a network or timeout failure. Transport
	// errors are retried according to the configured RetryPolicy.
	ErrorTypeTransport
	// ErrorTypeProtocol indicates a malformed inbound payload. Protocol
	// errors are logged and non-fatal to a running session.
	ErrorTypeProtocol
	// ErrorTypeAuth indicates the server rejected a signature or handshake.
	// Auth errors are surfaced immediately and never retried.
	ErrorTypeAuth
	// ErrorTypeUsage indicates the caller supplied an unsupported method or
	// invalid parameters. Usage errors are fatal immediately.
	ErrorTypeUsage
	// ErrorTypeRateLimit indicates the local rate limiter denied the call.
	ErrorTypeRateLimit
	// ErrorTypeServer indicates a server-side failure reported in-band.
	ErrorTypeServer
)

// String returns the string representation of the error type.
func (t ErrorType) String() string {
	return [...]string{
		"UNKNOWN",
		"TRANSPORT",
		"PROTOCOL",
		"AUTH",
		"USAGE",
		"RATE_LIMIT",
		"SERVER",
	}[t]
}

// Sentinel errors for common error conditions.
var (
	// ErrClientClosed is returned when attempting to use a closed client.
	ErrClientClosed = errors.New("client is closed")
	// ErrSessionClosed is returned when attempting to use a closed session.
	ErrSessionClosed = errors.New("session is closed")
	// ErrNotConnected is returned when the websocket is not connected.
	ErrNotConnected = errors.New("websocket not connected")
	// ErrCircuitBreakerOpen is returned when the circuit breaker is open.
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
	// ErrNoCredentials is returned when no signing credentials are configured.
	ErrNoCredentials = errors.New("no credentials configured")
	// ErrRetriesExhausted wraps the final transport error once every retry
	// attempt has failed.
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// ClientError represents a structured error produced by the client.
// It provides context for debugging and programmatic handling.
type ClientError struct {
	// Type categorizes the error.
	Type ErrorType `json:"type"`
	// StatusCode is the HTTP status code, when one was received.
	StatusCode int `json:"status_code,omitempty"`
	// Message is the human-readable error description.
	Message string `json:"message"`
	// Cause holds the underlying error, if any.
	Cause error `json:"-"`
	// Timestamp is when the error occurred.
	Timestamp time.Time `json:"timestamp"`
}

// Error implements the error interface for ClientError.
func (e *ClientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("edgex: %s (%d): %s", e.Type, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("edgex: %s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause for errors.Is / errors.As chains.
func (e *ClientError) Unwrap() error {
	return e.Cause
}

// NewError creates a ClientError of the given type. The timestamp is set to
// the current time.
func NewError(errorType ErrorType, message string) *ClientError {
	return &ClientError{
		Type:      errorType,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// WrapError creates a ClientError of the given type wrapping cause.
func WrapError(errorType ErrorType, message string, cause error) *ClientError {
	return &ClientError{
		Type:      errorType,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

// IsTransportError returns true if the error is a network or timeout failure.
// Transport errors are retryable.
func IsTransportError(err error) bool {
	return errorTypeOf(err) == ErrorTypeTransport
}

// IsProtocolError returns true if the error is a malformed-payload failure.
func IsProtocolError(err error) bool {
	return errorTypeOf(err) == ErrorTypeProtocol
}

// IsAuthError returns true if the error is an authentication failure.
// Auth errors require credential validation and are not retryable.
func IsAuthError(err error) bool {
	return errorTypeOf(err) == ErrorTypeAuth
}

// IsUsageError returns true if the error is a caller mistake. Usage errors
// will never succeed on retry.
func IsUsageError(err error) bool {
	return errorTypeOf(err) == ErrorTypeUsage
}

func errorTypeOf(err error) ErrorType {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Type
	}
	return ErrorTypeUnknown
}
