/**
 * @description
 * This file implements the reentrancy guard: a single-slot lock preventing
 * nested invocation of any guarded operation. The guard covers the whole
 * guarded call tree, including the external settlement call, which is the one
 * point where control leaves the engine's trust boundary and a hostile callee
 * could attempt to re-enter.
 *
 * In a networked deployment a re-entrant callback arrives on a different
 * goroutine than the operation that triggered it, so the guard cannot
 * distinguish re-entry from concurrent admission and does not try to: while
 * any guarded operation is in flight, every other guarded entry fails fast
 * with ErrReentrantCall. The API layer maps that to a retryable conflict.
 *
 * @dependencies
 * - sync/atomic: Standard Go library.
 */

package app

import "sync/atomic"

const (
	guardUnlocked uint32 = 0
	guardLocked   uint32 = 1
)

// ReentrancyGuard is a binary lock with states Unlocked and Locked.
type ReentrancyGuard struct {
	state uint32
}

// NewReentrancyGuard returns an unlocked guard.
func NewReentrancyGuard() *ReentrancyGuard {
	return &ReentrancyGuard{state: guardUnlocked}
}

// Enter transitions the guard to Locked, or fails with ErrReentrantCall if a
// guarded operation is already in flight.
func (g *ReentrancyGuard) Enter() error {
	if !atomic.CompareAndSwapUint32(&g.state, guardUnlocked, guardLocked) {
		return ErrReentrantCall
	}
	return nil
}

// Exit transitions the guard back to Unlocked. Callers defer it immediately
// after a successful Enter so release happens on every exit path, including
// early failure.
func (g *ReentrancyGuard) Exit() {
	atomic.StoreUint32(&g.state, guardUnlocked)
}

// Locked reports whether a guarded operation is currently in flight.
func (g *ReentrancyGuard) Locked() bool {
	return atomic.LoadUint32(&g.state) == guardLocked
}
