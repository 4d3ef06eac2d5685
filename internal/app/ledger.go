/**
 * @description
 * This file implements the account ledger: the per-principal pending balance
 * map plus the aggregate total every other engine component mutates. Credit
 * and debit are pure state mutations with no external calls, so all
 * bookkeeping happens before any external interaction. The conservation
 * invariant, that the aggregate always equals the sum of the per-account
 * balances, holds after every operation.
 *
 * @dependencies
 * - sort, sync: Standard Go libraries.
 * - internal/domain: For the balance listing model.
 */

package app

import (
	"sort"
	"sync"

	"github.com/transfa/custody-service/internal/domain"
)

// AccountLedger owns the principal -> pending balance mapping and the
// aggregate total. It is mutated exclusively through Credit/Debit and the
// batch variants; it lives for the engine's lifetime.
type AccountLedger struct {
	mu           sync.RWMutex
	balances     map[string]int64
	totalPending int64
}

// NewAccountLedger creates an empty ledger.
func NewAccountLedger() *AccountLedger {
	return &AccountLedger{balances: make(map[string]int64)}
}

// Credit increases the principal's pending balance and the aggregate total.
func (l *AccountLedger) Credit(principal string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.balances[principal] += amount
	l.totalPending += amount
	return nil
}

// Debit decreases the principal's pending balance and the aggregate total.
// It never drives a balance negative: a debit larger than the pending balance
// fails with ErrInsufficientBalance and mutates nothing.
func (l *AccountLedger) Debit(principal string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	balance, ok := l.balances[principal]
	if !ok || balance < amount {
		return ErrInsufficientBalance
	}

	if balance == amount {
		// No orphaned zero entries; BalanceOf reports 0 for unknown accounts.
		delete(l.balances, principal)
	} else {
		l.balances[principal] = balance - amount
	}
	l.totalPending -= amount
	return nil
}

// CreditAll applies every credit in the batch atomically: all amounts are
// validated under the lock before the first balance changes, so an invalid
// element leaves the ledger untouched.
func (l *AccountLedger) CreditAll(targets []string, amounts []int64) error {
	if len(targets) != len(amounts) {
		return ErrLengthMismatch
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, amount := range amounts {
		if amount <= 0 {
			return ErrInvalidAmount
		}
	}
	for i, target := range targets {
		l.balances[target] += amounts[i]
		l.totalPending += amounts[i]
	}
	return nil
}

// BalanceOf reports the pending balance for a principal; unknown principals
// have a zero balance.
func (l *AccountLedger) BalanceOf(principal string) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[principal]
}

// TotalPending reports the aggregate pending balance across all accounts.
func (l *AccountLedger) TotalPending() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totalPending
}

// Size reports the number of accounts with a non-zero pending balance.
func (l *AccountLedger) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.balances)
}

// Entries returns a deterministic page of balances ordered by principal.
// An offset at or past the end yields an empty page, not an error.
func (l *AccountLedger) Entries(limit, offset int) []domain.BalanceEntry {
	l.mu.RLock()
	principals := make([]string, 0, len(l.balances))
	for principal := range l.balances {
		principals = append(principals, principal)
	}
	sort.Strings(principals)

	entries := make([]domain.BalanceEntry, 0, len(principals))
	for _, principal := range principals {
		entries = append(entries, domain.BalanceEntry{
			Principal:      principal,
			PendingBalance: l.balances[principal],
		})
	}
	l.mu.RUnlock()

	if offset < 0 {
		offset = 0
	}
	if offset >= len(entries) {
		return []domain.BalanceEntry{}
	}
	entries = entries[offset:]
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries
}
