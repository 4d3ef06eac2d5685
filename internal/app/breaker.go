/**
 * @description
 * This file implements the circuit breaker: a reversible two-state switch
 * gating whether value-moving operations may proceed. It starts Active;
 * pausing and unpausing are restricted to principals holding the pauser role
 * (enforced by the engine, not here). Gated operations consult the state
 * synchronously at entry, before any other side effect.
 *
 * @dependencies
 * - sync: Standard Go library.
 */

package app

import "sync"

// BreakerState is the circuit breaker's externally visible state.
type BreakerState string

const (
	BreakerActive BreakerState = "active"
	BreakerPaused BreakerState = "paused"
)

// CircuitBreaker is the pausable gate for value-moving operations.
type CircuitBreaker struct {
	mu     sync.RWMutex
	paused bool
}

// NewCircuitBreaker returns a breaker in the Active state.
func NewCircuitBreaker() *CircuitBreaker {
	return &CircuitBreaker{}
}

// Pause transitions Active -> Paused; it fails with ErrAlreadyPaused if the
// breaker is already paused.
func (b *CircuitBreaker) Pause() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.paused {
		return ErrAlreadyPaused
	}
	b.paused = true
	return nil
}

// Unpause transitions Paused -> Active; it fails with ErrNotPaused if the
// breaker is already active.
func (b *CircuitBreaker) Unpause() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.paused {
		return ErrNotPaused
	}
	b.paused = false
	return nil
}

// State reports the current breaker state.
func (b *CircuitBreaker) State() BreakerState {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.paused {
		return BreakerPaused
	}
	return BreakerActive
}

// RequireActive fails with ErrCircuitOpen unless the breaker is active.
// Normal value-moving operations call this at entry.
func (b *CircuitBreaker) RequireActive() error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.paused {
		return ErrCircuitOpen
	}
	return nil
}

// RequirePaused fails with ErrNotPaused unless the breaker is paused.
// Emergency-only operations call this at entry.
func (b *CircuitBreaker) RequirePaused() error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.paused {
		return ErrNotPaused
	}
	return nil
}
