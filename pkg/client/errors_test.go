package client

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"nil", nil, ErrorClassNone},
		{"transport client", &TransportError{Class: ErrorClassClient, StatusCode: 404}, ErrorClassClient},
		{"transport server", &TransportError{Class: ErrorClassServer, StatusCode: 502}, ErrorClassServer},
		{"transport rate limit", &TransportError{Class: ErrorClassRateLimit, StatusCode: 429}, ErrorClassRateLimit},
		{"transport network", &TransportError{Class: ErrorClassNetwork}, ErrorClassNetwork},
		{"decode", &DecodeError{Size: 3, Err: errors.New("bad")}, ErrorClassDecode},
		{"wrapped transport", fmt.Errorf("page 2: %w", &TransportError{Class: ErrorClassServer}), ErrorClassServer},
		{
			"exhausted keeps last class",
			fmt.Errorf("%w after 3 attempts: %w", ErrRetryExhausted, &TransportError{Class: ErrorClassRateLimit}),
			ErrorClassRateLimit,
		},
		{"unknown", errors.New("connection reset"), ErrorClassNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTransportError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *TransportError
		contains []string
	}{
		{
			name:     "status error",
			err:      &TransportError{Class: ErrorClassServer, StatusCode: 503, Message: "503 Service Unavailable"},
			contains: []string{"server", "503", "Service Unavailable"},
		},
		{
			name: "network error with cause",
			err: &TransportError{
				Class:   ErrorClassNetwork,
				Message: "request failed",
				Err:     errors.New("dial tcp: connection refused"),
			},
			contains: []string{"network", "request failed", "connection refused"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("Error() = %q, want it to contain %q", msg, s)
				}
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("underlying")

	if !errors.Is(&TransportError{Class: ErrorClassNetwork, Err: cause}, cause) {
		t.Error("TransportError should unwrap to its cause")
	}
	if (&TransportError{Class: ErrorClassServer}).Unwrap() != nil {
		t.Error("TransportError without cause should unwrap to nil")
	}
	if !errors.Is(&DecodeError{Size: 1, Err: cause}, cause) {
		t.Error("DecodeError should unwrap to its cause")
	}
	if got := (&DecodeError{Size: 12, Err: cause}).Error(); !strings.Contains(got, "12 byte") {
		t.Errorf("DecodeError.Error() = %q, want size", got)
	}
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want time.Duration
	}{
		{"rate limit hint", &TransportError{Class: ErrorClassRateLimit, RetryAfter: 3 * time.Second}, 3 * time.Second},
		{"rate limit without hint", &TransportError{Class: ErrorClassRateLimit}, 0},
		{"server hint ignored", &TransportError{Class: ErrorClassServer, RetryAfter: 3 * time.Second}, 0},
		{"decode", &DecodeError{}, 0},
		{"nil", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retryAfter(tt.err); got != tt.want {
				t.Errorf("retryAfter() = %v, want %v", got, tt.want)
			}
		})
	}
}
