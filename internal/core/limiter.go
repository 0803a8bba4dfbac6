package core

// limiter.go bounds how many conversions run at once.
//
// Parsing, building, reading back and encrypting a workbook all hold the
// whole table in memory, so parallel conversions are capped with a semaphore.
// When every slot is taken, new requests wait up to maxWait before failing
// with ErrTooManyConversions. WaitForDrain lets shutdown wait for in-flight
// conversions.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyConversions is returned when no slot frees up within the wait
// timeout. Clients should retry after a short delay.
var ErrTooManyConversions = errors.New("too many concurrent conversions, please try again later")

// DefaultMaxConcurrentConversions is the default slot count.
const DefaultMaxConcurrentConversions = 4

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// ConversionLimiter is a counting semaphore with introspection.
type ConversionLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu        sync.RWMutex
	active    int
	rejected  int64
	completed int64
}

// NewConversionLimiter allows at most maxConcurrent simultaneous conversions.
func NewConversionLimiter(maxConcurrent int, maxWait time.Duration) *ConversionLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentConversions
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	return &ConversionLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire waits for a slot. The caller must Release after a nil return.
func (l *ConversionLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		// Caller cancellation wins over our own timeout.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.mu.Lock()
		l.rejected++
		l.mu.Unlock()
		return ErrTooManyConversions
	}
}

// TryAcquire takes a slot without blocking.
func (l *ConversionLimiter) TryAcquire() bool {
	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return true
	default:
		return false
	}
}

// Release frees a slot taken by Acquire or TryAcquire.
func (l *ConversionLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.completed++
	l.mu.Unlock()

	<-l.semaphore
}

// ActiveCount returns the number of conversions holding a slot.
func (l *ConversionLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// MaxConcurrent returns the slot count.
func (l *ConversionLimiter) MaxConcurrent() int {
	return cap(l.semaphore)
}

// Available returns the number of free slots.
func (l *ConversionLimiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until no conversion holds a slot or ctx ends.
func (l *ConversionLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
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

// LimiterStatus is a snapshot of the limiter.
type LimiterStatus struct {
	Active        int   `json:"active"`
	Available     int   `json:"available"`
	MaxConcurrent int   `json:"max_concurrent"`
	Completed     int64 `json:"completed"`
	Rejected      int64 `json:"rejected"`
}

// Status returns the current limiter state for monitoring.
func (l *ConversionLimiter) Status() LimiterStatus {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return LimiterStatus{
		Active:        l.active,
		Available:     cap(l.semaphore) - len(l.semaphore),
		MaxConcurrent: cap(l.semaphore),
		Completed:     l.completed,
		Rejected:      l.rejected,
	}
}
