package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akashgurava/deckterra/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for retry operations.
var (
	fetchAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deckterra_fetch_attempts_total",
		Help: "Total fetch attempts by outcome",
	}, []string{"outcome"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deckterra_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "deckterra_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deckterra_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by last error class",
	}, []string{"error_class"})
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	MaxAttempts int

	// Backoff is the wait after each failed attempt. Attempts beyond the
	// schedule reuse its last entry; an empty schedule retries immediately.
	Backoff []time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		Backoff:     []time.Duration{1500 * time.Millisecond},
	}
}

// BackoffFor returns the wait after the given failed attempt (1-based).
func (c RetryConfig) BackoffFor(attempt int) time.Duration {
	if len(c.Backoff) == 0 || attempt < 1 {
		return 0
	}
	if attempt > len(c.Backoff) {
		return c.Backoff[len(c.Backoff)-1]
	}
	return c.Backoff[attempt-1]
}

// AttemptEvent reports one fetch attempt.
type AttemptEvent struct {
	// Index is the descriptor's position in its batch.
	Index      int
	Descriptor Descriptor
	// Attempt is 1-based.
	Attempt int
	// Elapsed is the time since the fetch began.
	Elapsed time.Duration
	// Class is ErrorClassNone on success.
	Class ErrorClass
	Err   error
}

// Success reports whether the attempt produced a value.
func (e AttemptEvent) Success() bool {
	return e.Err == nil
}

// Observer receives every attempt event. It is called from fetch goroutines
// and must be safe for concurrent use.
type Observer func(AttemptEvent)

// Retrier fetches and decodes one descriptor with bounded retry.
// Every failure class is retried the same way up to the attempt budget;
// rate limit failures additionally honor Retry-After.
type Retrier[T any] struct {
	transport Transport
	decode    Decoder[T]
	config    RetryConfig
	observers []Observer
	logger    zerolog.Logger
}

// NewRetrier creates a retrier around a shared transport.
func NewRetrier[T any](transport Transport, decode Decoder[T], config RetryConfig, observers ...Observer) *Retrier[T] {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	return &Retrier[T]{
		transport: transport,
		decode:    decode,
		config:    config,
		observers: observers,
		logger:    logging.NewLogger("retrier"),
	}
}

// Config returns the retry configuration in use.
func (r *Retrier[T]) Config() RetryConfig {
	return r.config
}

// Fetch returns the decoded value, or false once the attempt budget is
// spent. Errors end here: they are logged and counted, never returned.
func (r *Retrier[T]) Fetch(ctx context.Context, index int, d Descriptor) (T, bool) {
	value, err := r.Do(ctx, index, d)
	if err != nil {
		r.logger.Error().
			Err(err).
			Int("index", index).
			Str("target", d.String()).
			Msg("Fetch failed, leaving result empty")
		return *new(T), false
	}
	return value, true
}

// Do is Fetch with the terminal error exposed. The error wraps
// ErrRetryExhausted or ErrContextCancelled.
func (r *Retrier[T]) Do(ctx context.Context, index int, d Descriptor) (T, error) {
	start := time.Now()

	var lastErr error
	lastClass := ErrorClassNone

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		value, err := r.attempt(ctx, d)
		class := Classify(err)
		r.report(AttemptEvent{
			Index:      index,
			Descriptor: d,
			Attempt:    attempt,
			Elapsed:    time.Since(start),
			Class:      class,
			Err:        err,
		})

		if err == nil {
			if attempt > 1 {
				r.logger.Info().
					Int("index", index).
					Int("attempt", attempt).
					Dur("elapsed", time.Since(start)).
					Msg("Request succeeded after retry")
			}
			return value, nil
		}

		lastErr = err
		lastClass = class

		// If this was the last attempt, don't wait
		if attempt >= r.config.MaxAttempts {
			break
		}

		if ctx.Err() != nil {
			return *new(T), fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		}

		backoff := r.config.BackoffFor(attempt)
		if hint := retryAfter(err); hint > backoff {
			backoff = hint
		}

		retriesTotal.WithLabelValues(string(class)).Inc()
		retryBackoffSeconds.WithLabelValues(string(class)).Observe(backoff.Seconds())

		r.logger.Warn().
			Err(err).
			Str("error_class", string(class)).
			Int("index", index).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("Retrying request after backoff")

		// Wait with context cancellation support
		select {
		case <-ctx.Done():
			r.logger.Warn().
				Int("index", index).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return *new(T), fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-time.After(backoff):
		}
	}

	retryExhaustedTotal.WithLabelValues(string(lastClass)).Inc()
	r.logger.Warn().
		Str("error_class", string(lastClass)).
		Int("index", index).
		Int("max_attempts", r.config.MaxAttempts).
		Dur("elapsed", time.Since(start)).
		Msg("Retry attempts exhausted")

	return *new(T), fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, r.config.MaxAttempts, lastErr)
}

// attempt is one network round trip followed by decoding.
func (r *Retrier[T]) attempt(ctx context.Context, d Descriptor) (T, error) {
	body, err := r.transport.Execute(ctx, d)
	if err != nil {
		return *new(T), err
	}

	value, err := r.decode(body)
	if err != nil {
		var decodeErr *DecodeError
		if !errors.As(err, &decodeErr) {
			err = &DecodeError{Size: len(body), Err: err}
		}
		if inv, ok := r.transport.(Invalidator); ok {
			if invErr := inv.Invalidate(ctx, d); invErr != nil {
				r.logger.Warn().Err(invErr).Str("target", d.String()).Msg("Failed to drop undecodable page")
			}
		}
		return *new(T), err
	}
	return value, nil
}

func (r *Retrier[T]) report(ev AttemptEvent) {
	outcome := "success"
	if ev.Err != nil {
		outcome = string(ev.Class)
	}
	fetchAttemptsTotal.WithLabelValues(outcome).Inc()

	r.logger.Debug().
		Int("index", ev.Index).
		Str("target", ev.Descriptor.String()).
		Int("attempt", ev.Attempt).
		Dur("elapsed", ev.Elapsed).
		Str("error_class", string(ev.Class)).
		Msg("Fetch attempt")

	for _, obs := range r.observers {
		obs(ev)
	}
}
