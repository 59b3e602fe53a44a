package ratelimit

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"
)

func TestPacer_FirstAdmissionImmediate(t *testing.T) {
	p := NewPacer(time.Second)

	start := time.Now()
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("first admission took %v, want immediate", elapsed)
	}
}

func TestPacer_Spacing(t *testing.T) {
	const spacing = 50 * time.Millisecond
	p := NewPacer(spacing)

	var admitted []time.Time
	for i := 0; i < 6; i++ {
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() #%d error = %v", i, err)
		}
		admitted = append(admitted, time.Now())
	}

	for i := 1; i < len(admitted); i++ {
		if gap := admitted[i].Sub(admitted[i-1]); gap < spacing {
			t.Errorf("gap %d = %v, want >= %v", i, gap, spacing)
		}
	}
}

func TestPacer_LateCallerStillSpaced(t *testing.T) {
	const spacing = 40 * time.Millisecond
	p := NewPacer(spacing)

	// A caller that shows up after its planned slot must still be spaced
	// from the admission before it, not from the slot it missed.
	var admitted []time.Time
	for i := 0; i < 5; i++ {
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() #%d error = %v", i, err)
		}
		admitted = append(admitted, time.Now())
		if i%2 == 0 {
			time.Sleep(spacing + 7*time.Millisecond)
		}
	}

	for i := 1; i < len(admitted); i++ {
		if gap := admitted[i].Sub(admitted[i-1]); gap < spacing {
			t.Errorf("gap %d = %v, want >= %v", i, gap, spacing)
		}
	}
}

func TestPacer_ConcurrentCallersSpaced(t *testing.T) {
	const spacing = 30 * time.Millisecond
	const callers = 8
	p := NewPacer(spacing)

	var mu sync.Mutex
	var admitted []time.Time
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Wait(context.Background()); err != nil {
				t.Errorf("Wait() error = %v", err)
				return
			}
			now := time.Now()
			mu.Lock()
			admitted = append(admitted, now)
			mu.Unlock()
		}()
	}
	wg.Wait()

	slices.SortFunc(admitted, func(a, b time.Time) int { return a.Compare(b) })
	for i := 1; i < len(admitted); i++ {
		if gap := admitted[i].Sub(admitted[i-1]); gap < spacing {
			t.Errorf("gap %d = %v, want >= %v", i, gap, spacing)
		}
	}
}

func TestPacer_ZeroSpacingDisabled(t *testing.T) {
	for _, spacing := range []time.Duration{0, -time.Second} {
		p := NewPacer(spacing)
		if p.MinSpacing() != spacing {
			t.Errorf("MinSpacing() = %v, want %v", p.MinSpacing(), spacing)
		}

		start := time.Now()
		for i := 0; i < 100; i++ {
			if err := p.Wait(context.Background()); err != nil {
				t.Fatalf("Wait() error = %v", err)
			}
		}
		if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
			t.Errorf("spacing %v: 100 admissions took %v, want no pacing", spacing, elapsed)
		}
	}
}

func TestPacer_ContextCancelled(t *testing.T) {
	p := NewPacer(time.Hour)
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Wait(ctx)
	if err == nil {
		t.Fatal("Wait() error = nil, want error")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() error = %v, want context.Canceled", err)
	}
}

func TestPacer_DeadlineShorterThanSpacing(t *testing.T) {
	p := NewPacer(time.Hour)
	_ = p.Wait(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := p.Wait(ctx); err == nil {
		t.Fatal("Wait() error = nil, want error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Wait() returned after %v, want prompt failure", elapsed)
	}
}
