package md2pdf

import (
	"context"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Gate sizing constants.
const (
	// MinPoolSize ensures at least one render can run.
	MinPoolSize = 1

	// MaxPoolSize caps concurrent browser processes to limit memory (~200MB each).
	MaxPoolSize = 8

	// cpuDivisor leaves headroom for Chrome child processes.
	cpuDivisor = 2
)

// renderGate caps the number of browser processes running at once.
// Waiting honors context cancellation.
type renderGate struct {
	sem      *semaphore.Weighted
	size     int
	inFlight atomic.Int64
	waiting  atomic.Int64
}

func newRenderGate(n int) *renderGate {
	if n < MinPoolSize {
		n = MinPoolSize
	}
	return &renderGate{sem: semaphore.NewWeighted(int64(n)), size: n}
}

// acquire blocks until a slot is free or ctx is done.
// The returned release func must be called exactly once.
func (g *renderGate) acquire(ctx context.Context) (release func(), err error) {
	g.waiting.Add(1)
	err = g.sem.Acquire(ctx, 1)
	g.waiting.Add(-1)
	if err != nil {
		return nil, err
	}

	g.inFlight.Add(1)
	var once atomic.Bool
	return func() {
		if once.CompareAndSwap(false, true) {
			g.inFlight.Add(-1)
			g.sem.Release(1)
		}
	}, nil
}

// ResolvePoolSize determines the admission gate capacity.
// Priority: explicit workers > GOMAXPROCS-based calculation.
// Exported for use by servers and CLIs.
func ResolvePoolSize(workers int) int {
	if workers > 0 {
		return workers
	}

	// GOMAXPROCS is adjusted by automaxprocs in containers.
	n := runtime.GOMAXPROCS(0) / cpuDivisor

	if n < MinPoolSize {
		return MinPoolSize
	}
	if n > MaxPoolSize {
		return MaxPoolSize
	}
	return n
}
