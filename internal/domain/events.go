package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event types forming the externally visible audit log. Every state-changing
// operation emits exactly one event carrying the acting principal, the
// affected account(s), and the amount(s).
const (
	EventDeposited          = "deposited"
	EventWithdrawn          = "withdrawn"
	EventCreditRegistered   = "credit_registered"
	EventBatchExecuted      = "batch_executed"
	EventEmergencyWithdrawn = "emergency_withdrawn"
	EventExecuted           = "executed"
	EventPaused             = "paused"
	EventUnpaused           = "unpaused"
	EventRoleGranted        = "role_granted"
	EventRoleRevoked        = "role_revoked"
)

// CustodyEvent is the audit record published to the message bus and persisted
// to the journal for every state-changing operation.
type CustodyEvent struct {
	EventID     uuid.UUID `json:"event_id"`
	EventType   string    `json:"event_type"`
	Principal   string    `json:"principal"`
	Accounts    []string  `json:"accounts,omitempty"`
	Amounts     []int64   `json:"amounts,omitempty"`
	TotalAmount int64     `json:"total_amount"`
	Role        string    `json:"role,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// ControlCommand is the message consumed from the control-plane routing keys
// (custody.control.pause / custody.control.unpause) so incident tooling can
// trip or reset the circuit breaker over the bus.
type ControlCommand struct {
	Principal string    `json:"principal"`
	Reason    string    `json:"reason,omitempty"`
	IssuedAt  time.Time `json:"issued_at"`
}
