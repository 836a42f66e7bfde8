// Package throttle bounds how much work runs at once (Semaphore) and how
// fast new work starts (Allower). A single Semaphore may be shared by
// several pipeline stages, capping their combined in-flight calls at its
// capacity.
package throttle

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Semaphore is a permit pool over golang.org/x/sync/semaphore.Weighted
// with a single-permit Acquire/Release surface, which is all the pipeline
// combinators and the glob scanner need.
type Semaphore struct {
	sem *semaphore.Weighted
}

// NewSemaphore creates a Semaphore holding capacity permits.
func NewSemaphore(capacity int64) *Semaphore {
	return &Semaphore{
		sem: semaphore.NewWeighted(capacity),
	}
}

// Acquire takes one permit, blocking until one is free or ctx is done.
func (s *Semaphore) Acquire(ctx context.Context) error {
	return s.AcquireN(ctx, 1)
}

// AcquireN takes n permits, blocking until they are free or ctx is done.
func (s *Semaphore) AcquireN(ctx context.Context, n int64) error {
	return s.sem.Acquire(ctx, n)
}

// Release returns one permit to the pool.
func (s *Semaphore) Release() {
	s.ReleaseN(1)
}

// ReleaseN returns n permits to the pool.
func (s *Semaphore) ReleaseN(n int64) {
	s.sem.Release(n)
}
