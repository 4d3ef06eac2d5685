/**
 * @description
 * This file contains the core business logic for the custody-service. The
 * `Service` struct is the custody engine: it owns the account ledger, the
 * reentrancy guard, the circuit breaker, the role registry, and the batch
 * guard, and it orchestrates every value-moving operation against the
 * external settlement executor.
 *
 * Key features:
 * - Checks-effects-interactions ordering: the breaker and role checks run
 *   first, then the guard is acquired, then the ledger is mutated, and only
 *   last does the settlement executor perform the external call.
 * - A failed external call is never swallowed: the debit is rolled back and
 *   the operation fails with ErrTransferFailed.
 * - Every state-changing operation is journaled and published to RabbitMQ
 *   as an audit event (best effort on the hot path).
 *
 * @dependencies
 * - context, fmt, log, time: Standard Go libraries.
 * - github.com/google/uuid: For operation and event identifiers.
 * - internal/domain, internal/store: For domain models and the journal.
 * - pkg/rabbitmq: For audit event publishing.
 */

package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/transfa/custody-service/internal/domain"
	"github.com/transfa/custody-service/internal/store"
	"github.com/transfa/custody-service/pkg/rabbitmq"
)

// SettlementExecutor performs the external value transfer. It is invoked
// strictly after the ledger has recorded the debit, and it must be assumed
// hostile: the callee may attempt to re-enter the engine, which the
// reentrancy guard blocks.
type SettlementExecutor interface {
	Send(ctx context.Context, target string, amount int64, data []byte) (domain.TransferOutcome, error)
}

// FundingSource is the token-backed value collaborator. When configured,
// deposits pull value in via TransferFrom before the ledger credit is
// recorded, and payouts push value out via Transfer instead of the direct
// settlement send. Both primitives are all-or-nothing: a non-nil error means
// no value moved.
type FundingSource interface {
	TransferFrom(ctx context.Context, from string, amount int64) error
	Transfer(ctx context.Context, to string, amount int64) error
}

// WithdrawRateLimiter bounds withdrawal attempts per principal across
// service instances.
type WithdrawRateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// Service provides the core custody engine. All engine state is held by the
// struct, never at package level, so multiple independent instances can run
// in one process and tests stay deterministic.
type Service struct {
	ledger     *AccountLedger
	guard      *ReentrancyGuard
	breaker    *CircuitBreaker
	roles      *RoleRegistry
	batches    BatchGuard
	settlement SettlementExecutor

	journal       store.Repository
	eventProducer rabbitmq.Publisher
	funding       FundingSource

	rateLimiter       WithdrawRateLimiter
	withdrawRateLimit int
}

// NewService creates a new custody engine instance. The bootstrap admin
// principal starts holding every role so the registry is never empty.
func NewService(
	journal store.Repository,
	settlement SettlementExecutor,
	producer rabbitmq.Publisher,
	bootstrapAdmin string,
	batches BatchGuard,
) *Service {
	return &Service{
		ledger:        NewAccountLedger(),
		guard:         NewReentrancyGuard(),
		breaker:       NewCircuitBreaker(),
		roles:         NewRoleRegistry(bootstrapAdmin),
		batches:       batches,
		settlement:    settlement,
		journal:       journal,
		eventProducer: producer,
	}
}

// SetFundingSource enables the token-backed deposit variant.
func (s *Service) SetFundingSource(funding FundingSource) {
	s.funding = funding
}

// SetWithdrawRateLimiter enables distributed withdrawal rate limiting.
func (s *Service) SetWithdrawRateLimiter(limiter WithdrawRateLimiter, perMinute int) {
	s.rateLimiter = limiter
	s.withdrawRateLimit = perMinute
}

// Deposit credits the caller's own pending balance. With a funding source
// configured, the inbound TransferFrom must succeed before the credit is
// recorded.
func (s *Service) Deposit(ctx context.Context, principal string, amount int64) error {
	if err := s.breaker.RequireActive(); err != nil {
		return err
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if err := s.guard.Enter(); err != nil {
		return err
	}
	defer s.guard.Exit()

	opID := s.journalPending(ctx, domain.OpDeposit, principal, amount, 1)

	if s.funding != nil {
		if err := s.funding.TransferFrom(ctx, principal, amount); err != nil {
			wrapped := fmt.Errorf("%w: funding transfer: %v", ErrTransferFailed, err)
			s.journalOutcome(ctx, opID, wrapped)
			return wrapped
		}
	}

	if err := s.ledger.Credit(principal, amount); err != nil {
		s.journalOutcome(ctx, opID, err)
		return err
	}

	s.journalOutcome(ctx, opID, nil)
	s.emitEvent(ctx, domain.CustodyEvent{
		EventType:   domain.EventDeposited,
		Principal:   principal,
		Accounts:    []string{principal},
		Amounts:     []int64{amount},
		TotalAmount: amount,
	})
	return nil
}

// CreditPayment registers value owed to a payee: the pull-payment pattern's
// "async send". The payee later withdraws at their own initiative.
func (s *Service) CreditPayment(ctx context.Context, principal, payee string, amount int64) error {
	if err := s.breaker.RequireActive(); err != nil {
		return err
	}
	if err := s.guard.Enter(); err != nil {
		return err
	}
	defer s.guard.Exit()

	if err := s.ledger.Credit(payee, amount); err != nil {
		return err
	}

	s.recordOperation(ctx, domain.OpCreditPayment, principal, amount, 1, nil)
	s.emitEvent(ctx, domain.CustodyEvent{
		EventType:   domain.EventCreditRegistered,
		Principal:   principal,
		Accounts:    []string{payee},
		Amounts:     []int64{amount},
		TotalAmount: amount,
	})
	return nil
}

// BatchCredit registers a batch of credits all-or-nothing: the batch guard
// and the ledger validate every element before the first balance changes.
func (s *Service) BatchCredit(ctx context.Context, principal string, batch domain.BatchRequest) error {
	if err := s.breaker.RequireActive(); err != nil {
		return err
	}
	if err := s.batches.ValidateCredit(batch); err != nil {
		return err
	}
	if err := s.guard.Enter(); err != nil {
		return err
	}
	defer s.guard.Exit()

	if err := s.ledger.CreditAll(batch.Targets, batch.Amounts); err != nil {
		return err
	}

	total := batch.Total()
	s.recordOperation(ctx, domain.OpBatchCredit, principal, total, len(batch.Targets), nil)
	s.emitEvent(ctx, domain.CustodyEvent{
		EventType:   domain.EventBatchExecuted,
		Principal:   principal,
		Accounts:    batch.Targets,
		Amounts:     batch.Amounts,
		TotalAmount: total,
	})
	return nil
}

// Withdraw pays out part of the caller's pending balance. The debit is
// recorded before the external call; a failed call rolls the debit back and
// the whole operation fails.
func (s *Service) Withdraw(ctx context.Context, principal string, amount int64) error {
	if err := s.breaker.RequireActive(); err != nil {
		return err
	}
	if err := s.checkWithdrawRate(ctx, principal); err != nil {
		return err
	}
	if err := s.guard.Enter(); err != nil {
		return err
	}
	defer s.guard.Exit()

	if err := s.ledger.Debit(principal, amount); err != nil {
		return err
	}

	opID := s.journalPending(ctx, domain.OpWithdraw, principal, amount, 1)

	if err := s.sendOrRefund(ctx, principal, principal, amount, nil); err != nil {
		s.journalOutcome(ctx, opID, err)
		return err
	}

	s.journalOutcome(ctx, opID, nil)
	s.emitEvent(ctx, domain.CustodyEvent{
		EventType:   domain.EventWithdrawn,
		Principal:   principal,
		Accounts:    []string{principal},
		Amounts:     []int64{amount},
		TotalAmount: amount,
	})
	return nil
}

// BatchWithdraw pays out to a bounded list of targets. Validation (size,
// shape, amounts, aggregate per-target balance) is all-or-nothing before any
// mutation. During execution each element is debited immediately before its
// send; the first failed send rolls back that element's debit and aborts the
// remainder. Elements already sent stay debited because their value has
// irrevocably left custody, so conservation holds exactly.
func (s *Service) BatchWithdraw(ctx context.Context, principal string, batch domain.BatchRequest) ([]domain.BatchItemResult, error) {
	if err := s.breaker.RequireActive(); err != nil {
		return nil, err
	}
	if err := s.checkWithdrawRate(ctx, principal); err != nil {
		return nil, err
	}
	if err := s.batches.ValidateWithdraw(batch); err != nil {
		return nil, err
	}
	if err := s.guard.Enter(); err != nil {
		return nil, err
	}
	defer s.guard.Exit()

	// Pre-flight: every target must cover its aggregate batch amount, so a
	// shortfall is detected before the first debit.
	required := make(map[string]int64, len(batch.Targets))
	for i, target := range batch.Targets {
		required[target] += batch.Amounts[i]
	}
	for target, amount := range required {
		if s.ledger.BalanceOf(target) < amount {
			return nil, fmt.Errorf("%w: account %s", ErrInsufficientBalance, target)
		}
	}

	opID := s.journalPending(ctx, domain.OpBatchWithdraw, principal, batch.Total(), len(batch.Targets))

	results := make([]domain.BatchItemResult, 0, len(batch.Targets))
	for i, target := range batch.Targets {
		amount := batch.Amounts[i]

		if err := s.ledger.Debit(target, amount); err != nil {
			results = append(results, domain.BatchItemResult{Target: target, Amount: amount, FailureReason: err.Error()})
			results = markSkipped(results, batch, i+1)
			s.journalOutcome(ctx, opID, err)
			return results, err
		}

		if err := s.sendOrRefund(ctx, principal, target, amount, nil); err != nil {
			results = append(results, domain.BatchItemResult{Target: target, Amount: amount, FailureReason: err.Error()})
			results = markSkipped(results, batch, i+1)
			s.journalOutcome(ctx, opID, err)
			return results, err
		}

		results = append(results, domain.BatchItemResult{Target: target, Amount: amount, Succeeded: true})
	}

	total := batch.Total()
	s.journalOutcome(ctx, opID, nil)
	s.emitEvent(ctx, domain.CustodyEvent{
		EventType:   domain.EventBatchExecuted,
		Principal:   principal,
		Accounts:    batch.Targets,
		Amounts:     batch.Amounts,
		TotalAmount: total,
	})
	return results, nil
}

// EmergencyWithdraw drains a target account's full pending balance while the
// breaker is paused. Only owners may invoke it, and only during an incident:
// it fails with ErrNotPaused while the breaker is active.
func (s *Service) EmergencyWithdraw(ctx context.Context, principal, target string) (int64, error) {
	if !s.roles.Has(domain.RoleOwner, principal) {
		return 0, ErrUnauthorized
	}
	if err := s.breaker.RequirePaused(); err != nil {
		return 0, err
	}
	if err := s.guard.Enter(); err != nil {
		return 0, err
	}
	defer s.guard.Exit()

	amount := s.ledger.BalanceOf(target)
	if amount == 0 {
		return 0, ErrAccountNotFound
	}
	if err := s.ledger.Debit(target, amount); err != nil {
		return 0, err
	}

	opID := s.journalPending(ctx, domain.OpEmergencyWithdraw, principal, amount, 1)

	if err := s.sendOrRefund(ctx, principal, target, amount, nil); err != nil {
		s.journalOutcome(ctx, opID, err)
		return 0, err
	}

	s.journalOutcome(ctx, opID, nil)
	s.emitEvent(ctx, domain.CustodyEvent{
		EventType:   domain.EventEmergencyWithdrawn,
		Principal:   principal,
		Accounts:    []string{target},
		Amounts:     []int64{amount},
		TotalAmount: amount,
	})
	return amount, nil
}

// Execute performs a role-gated arbitrary outbound call for the treasury.
// The engine governs only guard state and authorization; the call's own
// logic and value source belong to the settlement collaborator.
func (s *Service) Execute(ctx context.Context, principal, target string, amount int64, data []byte) (domain.TransferOutcome, error) {
	if !s.roles.Has(domain.RoleExecutor, principal) {
		return domain.TransferOutcome{}, ErrUnauthorized
	}
	if err := s.breaker.RequireActive(); err != nil {
		return domain.TransferOutcome{}, err
	}
	if amount < 0 {
		return domain.TransferOutcome{}, ErrInvalidAmount
	}
	if err := s.guard.Enter(); err != nil {
		return domain.TransferOutcome{}, err
	}
	defer s.guard.Exit()

	opID := s.journalPending(ctx, domain.OpExecute, principal, amount, 1)

	outcome, err := s.settlement.Send(ctx, target, amount, data)
	if err != nil {
		wrapped := fmt.Errorf("%w: %v", ErrTransferFailed, err)
		s.journalOutcome(ctx, opID, wrapped)
		return outcome, wrapped
	}
	if !outcome.Succeeded {
		s.journalOutcome(ctx, opID, ErrTransferFailed)
		return outcome, ErrTransferFailed
	}

	s.journalOutcome(ctx, opID, nil)
	s.emitEvent(ctx, domain.CustodyEvent{
		EventType:   domain.EventExecuted,
		Principal:   principal,
		Accounts:    []string{target},
		Amounts:     []int64{amount},
		TotalAmount: amount,
	})
	return outcome, nil
}

// Pause trips the circuit breaker. Pauser role required.
func (s *Service) Pause(ctx context.Context, principal string) error {
	if !s.roles.Has(domain.RolePauser, principal) {
		return ErrUnauthorized
	}
	if err := s.breaker.Pause(); err != nil {
		return err
	}
	log.Printf("level=warn component=custody msg=\"circuit breaker paused\" principal=%s", principal)
	s.emitEvent(ctx, domain.CustodyEvent{EventType: domain.EventPaused, Principal: principal})
	return nil
}

// Unpause resets the circuit breaker. Pauser role required.
func (s *Service) Unpause(ctx context.Context, principal string) error {
	if !s.roles.Has(domain.RolePauser, principal) {
		return ErrUnauthorized
	}
	if err := s.breaker.Unpause(); err != nil {
		return err
	}
	log.Printf("level=info component=custody msg=\"circuit breaker unpaused\" principal=%s", principal)
	s.emitEvent(ctx, domain.CustodyEvent{EventType: domain.EventUnpaused, Principal: principal})
	return nil
}

// GrantRole grants a role to a principal. Admin role required.
func (s *Service) GrantRole(ctx context.Context, actor string, role domain.Role, principal string) error {
	if err := s.roles.Grant(actor, role, principal); err != nil {
		return err
	}
	s.emitEvent(ctx, domain.CustodyEvent{
		EventType: domain.EventRoleGranted,
		Principal: actor,
		Accounts:  []string{principal},
		Role:      string(role),
	})
	return nil
}

// RevokeRole revokes a role from a principal. Admin role required except for
// self-revocation; the last admin or owner can never be revoked.
func (s *Service) RevokeRole(ctx context.Context, actor string, role domain.Role, principal string) error {
	if err := s.roles.Revoke(actor, role, principal); err != nil {
		return err
	}
	s.emitEvent(ctx, domain.CustodyEvent{
		EventType: domain.EventRoleRevoked,
		Principal: actor,
		Accounts:  []string{principal},
		Role:      string(role),
	})
	return nil
}

// HasRole reports whether a principal holds a role.
func (s *Service) HasRole(role domain.Role, principal string) bool {
	return s.roles.Has(role, principal)
}

// RoleMembers lists the principals holding a role.
func (s *Service) RoleMembers(role domain.Role) []string {
	return s.roles.Members(role)
}

// BalanceOf reports a principal's pending balance.
func (s *Service) BalanceOf(principal string) int64 {
	return s.ledger.BalanceOf(principal)
}

// TotalPending reports the aggregate pending balance.
func (s *Service) TotalPending() int64 {
	return s.ledger.TotalPending()
}

// AccountCount reports the number of accounts holding a pending balance.
func (s *Service) AccountCount() int {
	return s.ledger.Size()
}

// BreakerState reports the circuit breaker's current state.
func (s *Service) BreakerState() BreakerState {
	return s.breaker.State()
}

// ListBalances returns a deterministic page of pending balances. An offset at
// or past the end yields an empty page.
func (s *Service) ListBalances(limit, offset int) []domain.BalanceEntry {
	return s.ledger.Entries(limit, offset)
}

// ListEvents returns a page of the persisted audit log.
func (s *Service) ListEvents(ctx context.Context, limit, offset int) ([]domain.CustodyEvent, error) {
	if s.journal == nil {
		return []domain.CustodyEvent{}, nil
	}
	return s.journal.ListEvents(ctx, limit, offset)
}

// ListOperations returns a page of a principal's journaled operations.
func (s *Service) ListOperations(ctx context.Context, principal string, limit, offset int) ([]domain.Operation, error) {
	if s.journal == nil {
		return []domain.Operation{}, nil
	}
	return s.journal.ListOperationsByPrincipal(ctx, principal, limit, offset)
}

// FindOperation retrieves one of the principal's journaled operations.
// Operations belonging to other principals are reported as not found rather
// than forbidden, so their existence is not leaked.
func (s *Service) FindOperation(ctx context.Context, principal string, operationID uuid.UUID) (*domain.Operation, error) {
	if s.journal == nil {
		return nil, store.ErrOperationNotFound
	}

	op, err := s.journal.FindOperationByID(ctx, operationID)
	if err != nil {
		return nil, err
	}
	if op.Principal != principal {
		return nil, store.ErrOperationNotFound
	}
	return op, nil
}

// sendOrRefund performs the external payout for an amount already debited
// from the ledger. On any failure the debit is rolled back so the operation
// as a whole is all-or-nothing.
func (s *Service) sendOrRefund(ctx context.Context, principal, target string, amount int64, data []byte) error {
	err := s.transferOut(ctx, target, amount, data)
	if err == nil {
		return nil
	}

	if refundErr := s.ledger.Credit(target, amount); refundErr != nil {
		log.Printf("level=error component=custody msg=\"CRITICAL: failed to restore debit after transfer failure\" principal=%s target=%s amount=%d err=%v", principal, target, amount, refundErr)
	}
	return err
}

// transferOut pushes value out of custody: through the token collaborator's
// transfer primitive when one is configured, otherwise through the direct
// settlement send.
func (s *Service) transferOut(ctx context.Context, target string, amount int64, data []byte) error {
	if s.funding != nil {
		if err := s.funding.Transfer(ctx, target, amount); err != nil {
			return fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
		return nil
	}

	outcome, err := s.settlement.Send(ctx, target, amount, data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	if !outcome.Succeeded {
		return ErrTransferFailed
	}
	return nil
}

// checkWithdrawRate consults the distributed rate limiter when configured.
func (s *Service) checkWithdrawRate(ctx context.Context, principal string) error {
	if s.rateLimiter == nil || s.withdrawRateLimit <= 0 {
		return nil
	}
	count, retryAfter, err := s.rateLimiter.ConsumeRateLimit(ctx, "withdraw", principal, s.withdrawRateLimit, time.Minute)
	if err != nil {
		// Limiter unavailability must not block withdrawals.
		log.Printf("level=warn component=custody msg=\"rate limiter unavailable; allowing withdrawal\" principal=%s err=%v", principal, err)
		return nil
	}
	if count > s.withdrawRateLimit {
		log.Printf("level=warn component=custody msg=\"withdrawal rate limited\" principal=%s count=%d retry_after=%d", principal, count, retryAfter)
		return ErrRateLimited
	}
	return nil
}

// recordOperation journals an already-terminal operation, best effort. Used
// by pure ledger operations that involve no external call.
func (s *Service) recordOperation(ctx context.Context, kind, principal string, amount int64, targetCount int, opErr error) {
	if s.journal == nil {
		return
	}

	op := &domain.Operation{
		ID:          uuid.New(),
		Kind:        kind,
		Principal:   principal,
		Status:      domain.OpStatusCompleted,
		Amount:      amount,
		TargetCount: targetCount,
	}
	if opErr != nil {
		op.Status = domain.OpStatusFailed
		reason := opErr.Error()
		op.FailureReason = &reason
	}

	if err := s.journal.CreateOperation(ctx, op); err != nil {
		log.Printf("level=warn component=custody msg=\"operation journal write failed\" kind=%s principal=%s err=%v", kind, principal, err)
	}
}

// journalPending journals an operation in the pending state before its
// external call, so the journal reflects mid-flight operations. Returns
// uuid.Nil when no journal is configured or the write fails; journalOutcome
// treats that as nothing to transition.
func (s *Service) journalPending(ctx context.Context, kind, principal string, amount int64, targetCount int) uuid.UUID {
	if s.journal == nil {
		return uuid.Nil
	}

	op := &domain.Operation{
		ID:          uuid.New(),
		Kind:        kind,
		Principal:   principal,
		Status:      domain.OpStatusPending,
		Amount:      amount,
		TargetCount: targetCount,
	}
	if err := s.journal.CreateOperation(ctx, op); err != nil {
		log.Printf("level=warn component=custody msg=\"operation journal write failed\" kind=%s principal=%s err=%v", kind, principal, err)
		return uuid.Nil
	}
	return op.ID
}

// journalOutcome transitions a pending journal record to its terminal
// status, best effort.
func (s *Service) journalOutcome(ctx context.Context, operationID uuid.UUID, opErr error) {
	if s.journal == nil || operationID == uuid.Nil {
		return
	}

	status := domain.OpStatusCompleted
	var reason *string
	if opErr != nil {
		status = domain.OpStatusFailed
		message := opErr.Error()
		reason = &message
	}

	if err := s.journal.UpdateOperationStatus(ctx, operationID, status, reason); err != nil {
		log.Printf("level=warn component=custody msg=\"operation journal transition failed\" operation_id=%s status=%s err=%v", operationID, status, err)
	}
}

// emitEvent persists and publishes one audit event, best effort.
func (s *Service) emitEvent(ctx context.Context, event domain.CustodyEvent) {
	event.EventID = uuid.New()
	event.OccurredAt = time.Now().UTC()

	if s.journal != nil {
		if err := s.journal.InsertEvent(ctx, event); err != nil {
			log.Printf("level=warn component=custody msg=\"audit event journal write failed\" event_type=%s err=%v", event.EventType, err)
		}
	}
	if s.eventProducer != nil {
		if err := s.eventProducer.PublishCustodyEvent(ctx, event); err != nil {
			log.Printf("level=warn component=custody msg=\"audit event publish failed\" event_type=%s err=%v", event.EventType, err)
		}
	}
}

func markSkipped(results []domain.BatchItemResult, batch domain.BatchRequest, from int) []domain.BatchItemResult {
	for i := from; i < len(batch.Targets); i++ {
		results = append(results, domain.BatchItemResult{
			Target:  batch.Targets[i],
			Amount:  batch.Amounts[i],
			Skipped: true,
		})
	}
	return results
}
