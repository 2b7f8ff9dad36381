package core

// gate.go serializes batch work. Imports and enrichment runs both rewrite
// contact records, so at most one batch may hold the gate at a time; a
// second request waits up to maxWait before failing with ErrBatchInProgress.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrBatchInProgress is returned when another import or enrichment batch
// holds the writer slot and the wait timeout expires.
var ErrBatchInProgress = errors.New("another batch is already in progress, please try again later")

// DefaultGateWait is how long to wait for the writer slot before rejecting.
const DefaultGateWait = 5 * time.Second

// BatchGate grants exclusive access to the contact snapshot for batch
// mutations. It is a one-slot semaphore: whoever holds it is the only
// writer until Release.
type BatchGate struct {
	slot    chan struct{}
	maxWait time.Duration

	mu     sync.RWMutex
	active bool
}

// NewBatchGate creates a gate. Requests that cannot take the slot within
// maxWait receive ErrBatchInProgress.
func NewBatchGate(maxWait time.Duration) *BatchGate {
	if maxWait <= 0 {
		maxWait = DefaultGateWait
	}
	return &BatchGate{
		slot:    make(chan struct{}, 1),
		maxWait: maxWait,
	}
}

// Acquire takes the writer slot, waiting up to the configured timeout.
// The caller MUST call Release when the batch completes (use defer).
func (g *BatchGate) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, g.maxWait)
	defer cancel()

	select {
	case g.slot <- struct{}{}:
		g.mu.Lock()
		g.active = true
		g.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrBatchInProgress
	}
}

// TryAcquire takes the slot without blocking.
func (g *BatchGate) TryAcquire() bool {
	select {
	case g.slot <- struct{}{}:
		g.mu.Lock()
		g.active = true
		g.mu.Unlock()
		return true
	default:
		return false
	}
}

// Release frees the slot. Must be called exactly once per successful
// Acquire or TryAcquire.
func (g *BatchGate) Release() {
	g.mu.Lock()
	g.active = false
	g.mu.Unlock()
	<-g.slot
}

// Busy reports whether a batch currently holds the gate.
func (g *BatchGate) Busy() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.active
}
