// Package ratelimit implements admission pacing for batch fetches: a soft
// rate limit that spaces successive request starts by a minimum interval.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

// Prometheus metrics for admission pacing.
var (
	pacingWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "deckterra_pacing_wait_seconds",
		Help:    "Time spent waiting for an admission slot",
		Buckets: []float64{0, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})

	admissionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deckterra_admissions_total",
		Help: "Total number of fetches admitted by the pacer",
	})
)

// Pacer admits at most one start per MinSpacing. The first admission is
// immediate. A Pacer holds the time of the last admission, so create one
// per batch rather than sharing it across batches.
//
// The rate limiter schedules from planned admission times, so a late wakeup
// would shorten the next gap; the guarded last-admission time sets the floor.
type Pacer struct {
	minSpacing time.Duration
	limiter    *rate.Limiter

	mu   sync.Mutex
	last time.Time
}

// NewPacer creates a pacer. A non-positive spacing disables pacing.
func NewPacer(minSpacing time.Duration) *Pacer {
	limit := rate.Inf
	if minSpacing > 0 {
		limit = rate.Every(minSpacing)
	}
	return &Pacer{
		minSpacing: minSpacing,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// MinSpacing returns the configured interval.
func (p *Pacer) MinSpacing() time.Duration {
	return p.minSpacing
}

// Wait blocks until the next admission is allowed or ctx is done. Two
// admissions are never closer than MinSpacing, measured at the moment Wait
// returns.
func (p *Pacer) Wait(ctx context.Context) error {
	start := time.Now()
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for admission: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.minSpacing > 0 && !p.last.IsZero() {
		if d := time.Until(p.last.Add(p.minSpacing)); d > 0 {
			timer := time.NewTimer(d)
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("wait for admission: %w", ctx.Err())
			case <-timer.C:
			}
		}
	}

	pacingWaitSeconds.Observe(time.Since(start).Seconds())
	admissionsTotal.Inc()
	p.last = time.Now()
	return nil
}
