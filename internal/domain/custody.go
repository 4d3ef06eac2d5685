/**
 * @description
 * This file defines the core domain models for the custody-service: principals,
 * roles, batch requests, transfer outcomes, and the records persisted to the
 * operation journal. These models are shared between the engine (internal/app),
 * the journal (internal/store), and the API layer (internal/api).
 *
 * @dependencies
 * - time: Standard Go library.
 * - github.com/google/uuid: For operation and event identifiers.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is a named capability granted to principals. Principals are opaque,
// unforgeable identifiers presented by the caller; the service never
// authenticates identity itself, only consults the role registry.
type Role string

const (
	RoleOwner    Role = "owner"
	RolePauser   Role = "pauser"
	RoleExecutor Role = "executor"
	RoleAdmin    Role = "admin"
)

// KnownRoles lists every role the registry accepts.
var KnownRoles = []Role{RoleOwner, RolePauser, RoleExecutor, RoleAdmin}

// BatchRequest is a transient tuple of parallel target/amount sequences.
// It is validated atomically before any ledger mutation; an invalid batch
// never produces partial state.
type BatchRequest struct {
	Targets []string `json:"targets"`
	Amounts []int64  `json:"amounts"`
}

// Total returns the sum of all amounts in the batch.
func (b BatchRequest) Total() int64 {
	var total int64
	for _, amount := range b.Amounts {
		total += amount
	}
	return total
}

// TransferOutcome reports the result of one external settlement call.
// A false Succeeded is always surfaced to the caller as an operation-level
// failure, never merely logged.
type TransferOutcome struct {
	Succeeded       bool  `json:"succeeded"`
	AmountAttempted int64 `json:"amount_attempted"`
}

// BatchItemResult records what happened to a single element of a batch
// withdrawal. Elements after the first failure are reported as skipped.
type BatchItemResult struct {
	Target        string `json:"target"`
	Amount        int64  `json:"amount"`
	Succeeded     bool   `json:"succeeded"`
	Skipped       bool   `json:"skipped,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// BalanceEntry is one row of the paginated balance listing.
type BalanceEntry struct {
	Principal      string `json:"principal"`
	PendingBalance int64  `json:"pending_balance"`
}

// Operation kinds recorded in the journal.
const (
	OpDeposit           = "deposit"
	OpWithdraw          = "withdraw"
	OpBatchWithdraw     = "batch_withdraw"
	OpCreditPayment     = "credit_payment"
	OpBatchCredit       = "batch_credit"
	OpEmergencyWithdraw = "emergency_withdraw"
	OpExecute           = "execute"
)

// Operation statuses. Operations involving an external call are journaled as
// pending before the call and transitioned to a terminal status afterwards.
const (
	OpStatusPending   = "pending"
	OpStatusCompleted = "completed"
	OpStatusFailed    = "failed"
)

// Operation is the journal record for a single custody operation.
type Operation struct {
	ID            uuid.UUID `json:"id"`
	Kind          string    `json:"kind"`
	Principal     string    `json:"principal"`
	Status        string    `json:"status"`
	Amount        int64     `json:"amount"`
	TargetCount   int       `json:"target_count"`
	FailureReason *string   `json:"failure_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
