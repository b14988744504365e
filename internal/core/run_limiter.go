package core

// run_limiter.go gates build-run admission.
//
// Runs recompute the whole output tree and swap it into place, so two
// of them working at once would fight over sources and the staging
// swap. The limiter is a small semaphore (capacity 1 by default) with
// non-blocking admission: a second StartRun fails immediately with
// ErrRunInProgress instead of queueing.
//
// WaitForDrain supports graceful shutdown by blocking until active
// runs complete.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrRunInProgress is returned when a run is already executing.
var ErrRunInProgress = errors.New("a build run is already in progress")

// DefaultMaxConcurrentRuns is the admission limit. Builds are whole-
// tree recomputes, hence one at a time.
const DefaultMaxConcurrentRuns = 1

// RunLimiter controls concurrent run admission using a semaphore.
type RunLimiter struct {
	semaphore chan struct{}

	mu     sync.RWMutex
	active int
}

// NewRunLimiter creates a limiter that allows at most maxConcurrent
// simultaneous runs.
func NewRunLimiter(maxConcurrent int) *RunLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentRuns
	}
	return &RunLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
	}
}

// TryAcquire attempts to acquire a run slot without blocking.
// Returns ErrRunInProgress when all slots are taken.
// The caller MUST call Release() when the run completes.
func (l *RunLimiter) TryAcquire() error {
	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil
	default:
		return ErrRunInProgress
	}
}

// Release releases a previously acquired slot.
// Must be called exactly once for each successful TryAcquire.
func (l *RunLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// ActiveCount returns the number of currently executing runs.
func (l *RunLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// Available returns the number of free slots.
func (l *RunLimiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until all active runs complete or the context is
// cancelled. Used for graceful shutdown.
func (l *RunLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
