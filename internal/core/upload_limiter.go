package core

// upload_limiter.go bounds how many files are decoded and parsed at once.
//
// Ingestion holds the whole file plus its parsed frame in memory, so the
// number of parallel ingestions is capped with a weighted semaphore. When all
// slots are taken, new requests wait up to maxWait before failing with
// ErrTooManyUploads.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrTooManyUploads is returned when all ingestion slots are occupied and the
// wait timeout expires. Clients should retry after a short delay.
var ErrTooManyUploads = errors.New("too many uploads in progress, please try again later")

// DefaultMaxConcurrentUploads is the default limit for parallel ingestions.
const DefaultMaxConcurrentUploads = 4

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// UploadLimiter controls concurrent ingestion.
type UploadLimiter struct {
	sem     *semaphore.Weighted
	max     int64
	maxWait time.Duration
	active  atomic.Int64
}

// NewUploadLimiter creates a limiter that allows at most maxConcurrent
// simultaneous ingestions.
func NewUploadLimiter(maxConcurrent int, maxWait time.Duration) *UploadLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentUploads
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	return &UploadLimiter{
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		max:     int64(maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire waits for a slot. It returns ErrTooManyUploads when maxWait passes
// first and ctx.Err() when ctx is cancelled. The caller MUST call Release
// after a successful Acquire.
func (l *UploadLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyUploads
	}
	l.active.Add(1)
	return nil
}

// TryAcquire takes a slot without blocking.
func (l *UploadLimiter) TryAcquire() bool {
	if !l.sem.TryAcquire(1) {
		return false
	}
	l.active.Add(1)
	return true
}

// Release returns a slot taken by Acquire or TryAcquire.
func (l *UploadLimiter) Release() {
	l.active.Add(-1)
	l.sem.Release(1)
}

// ActiveCount returns the number of ingestions in progress.
func (l *UploadLimiter) ActiveCount() int {
	return int(l.active.Load())
}

// MaxConcurrent returns the maximum allowed concurrent ingestions.
func (l *UploadLimiter) MaxConcurrent() int {
	return int(l.max)
}

// Available returns the number of free slots.
func (l *UploadLimiter) Available() int {
	return int(l.max) - l.ActiveCount()
}

// WaitForDrain blocks until every slot is free or ctx is cancelled.
// Used for graceful shutdown.
func (l *UploadLimiter) WaitForDrain(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, l.max); err != nil {
		return err
	}
	l.sem.Release(l.max)
	return nil
}

// UploadLimiterStatus is a snapshot of the limiter's state.
type UploadLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state for monitoring.
func (l *UploadLimiter) Status() UploadLimiterStatus {
	active := l.ActiveCount()
	return UploadLimiterStatus{
		Active:        active,
		Available:     l.MaxConcurrent() - active,
		MaxConcurrent: l.MaxConcurrent(),
	}
}
