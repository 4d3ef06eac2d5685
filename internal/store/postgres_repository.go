/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository`
 * interface. It contains the SQL for the operation journal and the audit
 * event log. Reads are paginated; an offset at or past the end of the result
 * set yields an empty page, not an error.
 *
 * @dependencies
 * - context, errors: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/transfa/custody-service/internal/domain"
)

var (
	ErrOperationNotFound = errors.New("operation not found")
	ErrEventNotFound     = errors.New("event not found")
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateOperation inserts a new journal record for a custody operation.
func (r *PostgresRepository) CreateOperation(ctx context.Context, op *domain.Operation) error {
	query := `
		INSERT INTO custody_operations (id, kind, principal, status, amount, target_count, failure_reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`
	_, err := r.db.Exec(ctx, query,
		op.ID, op.Kind, op.Principal, op.Status, op.Amount, op.TargetCount, op.FailureReason,
	)
	return err
}

// UpdateOperationStatus transitions a journal record to its terminal status.
func (r *PostgresRepository) UpdateOperationStatus(ctx context.Context, operationID uuid.UUID, status string, failureReason *string) error {
	query := `
		UPDATE custody_operations
		SET status = $2, failure_reason = $3
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, operationID, status, failureReason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOperationNotFound
	}
	return nil
}

// FindOperationByID retrieves a single journal record.
func (r *PostgresRepository) FindOperationByID(ctx context.Context, operationID uuid.UUID) (*domain.Operation, error) {
	var op domain.Operation
	query := `
		SELECT id, kind, principal, status, amount, target_count, failure_reason, created_at
		FROM custody_operations
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, operationID).Scan(
		&op.ID, &op.Kind, &op.Principal, &op.Status, &op.Amount, &op.TargetCount, &op.FailureReason, &op.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrOperationNotFound
		}
		return nil, err
	}
	return &op, nil
}

// ListOperationsByPrincipal retrieves a page of journal records for one principal,
// newest first.
func (r *PostgresRepository) ListOperationsByPrincipal(ctx context.Context, principal string, limit, offset int) ([]domain.Operation, error) {
	limit, offset = clampPage(limit, offset)
	query := `
		SELECT id, kind, principal, status, amount, target_count, failure_reason, created_at
		FROM custody_operations
		WHERE principal = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, principal, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ops := make([]domain.Operation, 0, limit)
	for rows.Next() {
		var op domain.Operation
		if err := rows.Scan(
			&op.ID, &op.Kind, &op.Principal, &op.Status, &op.Amount, &op.TargetCount, &op.FailureReason, &op.CreatedAt,
		); err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// InsertEvent appends one audit event to the event log.
func (r *PostgresRepository) InsertEvent(ctx context.Context, event domain.CustodyEvent) error {
	query := `
		INSERT INTO custody_events (id, event_type, principal, accounts, amounts, total_amount, role, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)
	`
	_, err := r.db.Exec(ctx, query,
		event.EventID, event.EventType, event.Principal, event.Accounts, event.Amounts,
		event.TotalAmount, event.Role, event.OccurredAt,
	)
	return err
}

// ListEvents retrieves a page of the audit log, oldest first so pages are
// stable as new events append.
func (r *PostgresRepository) ListEvents(ctx context.Context, limit, offset int) ([]domain.CustodyEvent, error) {
	limit, offset = clampPage(limit, offset)
	query := `
		SELECT id, event_type, principal, accounts, amounts, total_amount, COALESCE(role, ''), occurred_at
		FROM custody_events
		ORDER BY occurred_at ASC, id ASC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]domain.CustodyEvent, 0, limit)
	for rows.Next() {
		var event domain.CustodyEvent
		if err := rows.Scan(
			&event.EventID, &event.EventType, &event.Principal, &event.Accounts, &event.Amounts,
			&event.TotalAmount, &event.Role, &event.OccurredAt,
		); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// clampPage normalizes pagination inputs to safe bounds.
func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
