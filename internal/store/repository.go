/**
 * @description
 * This file defines the `Repository` interface for the custody journal: the
 * persisted record of operations and audit events. Defining an interface
 * decouples the engine from the PostgreSQL implementation and lets tests use
 * in-memory fakes.
 *
 * @dependencies
 * - context: Standard Go library.
 * - github.com/google/uuid: For operation and event identifiers.
 * - internal/domain: For the journal models.
 */

package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/transfa/custody-service/internal/domain"
)

// Repository defines the set of methods for interacting with the journal.
type Repository interface {
	// Operation journal
	CreateOperation(ctx context.Context, op *domain.Operation) error
	UpdateOperationStatus(ctx context.Context, operationID uuid.UUID, status string, failureReason *string) error
	FindOperationByID(ctx context.Context, operationID uuid.UUID) (*domain.Operation, error)
	ListOperationsByPrincipal(ctx context.Context, principal string, limit, offset int) ([]domain.Operation, error)

	// Audit event log
	InsertEvent(ctx context.Context, event domain.CustodyEvent) error
	ListEvents(ctx context.Context, limit, offset int) ([]domain.CustodyEvent, error)
}
