package client

import (
	"errors"
	"fmt"
	"time"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents a classification of fetch failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassDecode represents a response body that did not match the expected shape.
	ErrorClassDecode ErrorClass = "decode"

	// ErrorClassNone marks a successful attempt in attempt events.
	ErrorClassNone ErrorClass = ""
)

// TransportError is a failed network round trip or a non-2xx response.
type TransportError struct {
	Class      ErrorClass
	StatusCode int
	// RetryAfter is the server's Retry-After hint, zero if absent.
	RetryAfter time.Duration
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport %s error (status %d): %s: %v",
			e.Class, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("transport %s error (status %d): %s",
		e.Class, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError is a response body that could not be decoded into the target type.
type DecodeError struct {
	Size int
	Err  error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %d byte response: %v", e.Size, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Classify returns the error class of err, or ErrorClassNone for nil.
// Unknown errors count as network failures.
func Classify(err error) ErrorClass {
	if err == nil {
		return ErrorClassNone
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Class
	}

	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return ErrorClassDecode
	}

	return ErrorClassNetwork
}

// retryAfter extracts the Retry-After hint from a rate limit failure.
func retryAfter(err error) time.Duration {
	var transportErr *TransportError
	if errors.As(err, &transportErr) && transportErr.Class == ErrorClassRateLimit {
		return transportErr.RetryAfter
	}
	return 0
}
