package pagination

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akashgurava/deckterra/pkg/client"
	"github.com/akashgurava/deckterra/pkg/logging"
	"github.com/akashgurava/deckterra/pkg/ratelimit"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/semaphore"
)

// Prometheus metrics for batch fetching.
var (
	batchInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "deckterra_batch_inflight",
		Help: "Number of page fetches currently in flight",
	})

	batchMissingTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deckterra_batch_missing_results_total",
		Help: "Total number of batch slots left empty after exhausted retries",
	})

	batchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "deckterra_batch_duration_seconds",
		Help:    "Wall time of a whole batch",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})
)

// Config holds batch fetcher configuration
type Config struct {
	// MinSpacing is the minimum time between two fetch starts.
	// Zero disables pacing.
	MinSpacing time.Duration
	// MaxConcurrency is the maximum number of fetches in flight
	MaxConcurrency int
}

// DefaultConfig returns safe default configuration for the library endpoint:
// one start per 250ms, at most 5 in flight.
func DefaultConfig() Config {
	return Config{
		MinSpacing:     250 * time.Millisecond,
		MaxConcurrency: 5,
	}
}

// PageFetcher fetches one descriptor, reporting false when it gave up.
// *client.Retrier satisfies it.
type PageFetcher[T any] interface {
	Fetch(ctx context.Context, index int, d client.Descriptor) (T, bool)
}

// Slot is one batch result: a value, or empty if the fetch gave up.
type Slot[T any] struct {
	Value   T
	Present bool
}

// BatchResult holds one slot per submitted descriptor, in submission order.
type BatchResult[T any] []Slot[T]

// Missing counts the empty slots.
func (r BatchResult[T]) Missing() int {
	n := 0
	for _, s := range r {
		if !s.Present {
			n++
		}
	}
	return n
}

// Values returns the present values in slot order.
func (r BatchResult[T]) Values() []T {
	values := make([]T, 0, len(r))
	for _, s := range r {
		if s.Present {
			values = append(values, s.Value)
		}
	}
	return values
}

// BatchFetcher runs many page fetches under admission pacing and a
// concurrency cap, preserving submission order in its result.
type BatchFetcher[T any] struct {
	fetcher PageFetcher[T]
	config  Config
}

// NewBatchFetcher creates a new batch fetcher
func NewBatchFetcher[T any](fetcher PageFetcher[T], config Config) *BatchFetcher[T] {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 1
	}
	if config.MinSpacing < 0 {
		config.MinSpacing = 0
	}

	return &BatchFetcher[T]{
		fetcher: fetcher,
		config:  config,
	}
}

// FetchAll fetches every descriptor and returns exactly len(descriptors)
// slots. A fetch that gives up leaves its slot empty without affecting the
// others. FetchAll returns once every started fetch has finished; if ctx is
// cancelled, descriptors not yet started stay empty.
func (bf *BatchFetcher[T]) FetchAll(ctx context.Context, descriptors []client.Descriptor) BatchResult[T] {
	start := time.Now()
	batchID := uuid.NewString()
	logger := logging.NewLogger("batch-fetcher").With().
		Str("batch_id", batchID).
		Logger()

	results := make(BatchResult[T], len(descriptors))
	if len(descriptors) == 0 {
		return results
	}

	logger.Info().
		Int("pages", len(descriptors)).
		Dur("min_spacing", bf.config.MinSpacing).
		Int("max_concurrency", bf.config.MaxConcurrency).
		Msg("Starting paced page fetch")

	// Both gates live only as long as this batch
	pacer := ratelimit.NewPacer(bf.config.MinSpacing)
	slots := semaphore.NewWeighted(int64(bf.config.MaxConcurrency))

	var wg sync.WaitGroup
	var mu sync.Mutex
	completed := 0
	var skipped atomic.Int64

	// The pacing turn passes from one descriptor to the next in index
	// order. Pacing runs on the fetching goroutine itself, right before the
	// fetch, so the admission time is the start time.
	turn := make(chan struct{})
	close(turn)

	for i, d := range descriptors {
		// A slot first, then pacing, so starts stay spaced even when a
		// slot frees up long after the pacing interval elapsed.
		if err := slots.Acquire(ctx, 1); err != nil {
			skipped.Add(int64(len(descriptors) - i))
			break
		}

		next := make(chan struct{})
		wg.Add(1)
		go func(index int, d client.Descriptor, turn <-chan struct{}, next chan<- struct{}) {
			defer wg.Done()
			defer slots.Release(1)

			<-turn
			err := pacer.Wait(ctx)
			close(next)
			if err != nil {
				skipped.Add(1)
				return
			}

			batchInFlight.Inc()
			defer batchInFlight.Dec()

			value, ok := bf.fetcher.Fetch(ctx, index, d)
			// Each goroutine owns exactly one slot index
			results[index] = Slot[T]{Value: value, Present: ok}

			mu.Lock()
			completed++
			done := completed
			mu.Unlock()

			// Progress logging every 10 pages
			if done%10 == 0 {
				logger.Info().
					Int("fetched", done).
					Int("total", len(descriptors)).
					Float64("progress_pct", float64(done)/float64(len(descriptors))*100).
					Msg("Fetch progress")
			}
		}(i, d, turn, next)
		turn = next
	}

	wg.Wait()

	if n := skipped.Load(); n > 0 {
		logger.Warn().
			Err(ctx.Err()).
			Int64("not_started", n).
			Msg("Batch cancelled before all pages started")
	}

	missing := results.Missing()
	batchMissingTotal.Add(float64(missing))
	batchDuration.Observe(time.Since(start).Seconds())

	event := logger.Info()
	if missing > 0 {
		event = logger.Warn()
	}
	event.
		Int("pages", len(descriptors)).
		Int("missing", missing).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return results
}

// RunBatch wires a retrier around the transport and fetches every
// descriptor through a fresh BatchFetcher.
func RunBatch[T any](
	ctx context.Context,
	transport client.Transport,
	decode client.Decoder[T],
	descriptors []client.Descriptor,
	config Config,
	retry client.RetryConfig,
	observers ...client.Observer,
) BatchResult[T] {
	retrier := client.NewRetrier(transport, decode, retry, observers...)
	return NewBatchFetcher[T](retrier, config).FetchAll(ctx, descriptors)
}
