/**
 * @description
 * This file implements the batch guard: the pre-check that bounds batch
 * operation input sizes before any mutation occurs. Validation is pure and
 * side-effect free, so an oversized or malformed batch never produces
 * partial state. Withdrawals and credits carry independent ceilings because
 * a withdrawal element costs an external call while a credit element is a
 * pure ledger write.
 *
 * @dependencies
 * - internal/domain: For the BatchRequest model.
 */

package app

import "github.com/transfa/custody-service/internal/domain"

const (
	DefaultWithdrawBatchMax = 50
	DefaultCreditBatchMax   = 100
)

// BatchGuard validates batch inputs against fixed ceilings.
type BatchGuard struct {
	withdrawMax int
	creditMax   int
}

// NewBatchGuard builds a guard with the given ceilings; non-positive values
// fall back to the defaults.
func NewBatchGuard(withdrawMax, creditMax int) BatchGuard {
	if withdrawMax <= 0 {
		withdrawMax = DefaultWithdrawBatchMax
	}
	if creditMax <= 0 {
		creditMax = DefaultCreditBatchMax
	}
	return BatchGuard{withdrawMax: withdrawMax, creditMax: creditMax}
}

// WithdrawMax reports the withdrawal batch ceiling.
func (g BatchGuard) WithdrawMax() int { return g.withdrawMax }

// CreditMax reports the credit batch ceiling.
func (g BatchGuard) CreditMax() int { return g.creditMax }

// ValidateWithdraw checks a withdrawal batch against the withdrawal ceiling.
func (g BatchGuard) ValidateWithdraw(batch domain.BatchRequest) error {
	return validateBatch(batch, g.withdrawMax)
}

// ValidateCredit checks a credit batch against the credit ceiling.
func (g BatchGuard) ValidateCredit(batch domain.BatchRequest) error {
	return validateBatch(batch, g.creditMax)
}

func validateBatch(batch domain.BatchRequest, maxSize int) error {
	if len(batch.Targets) != len(batch.Amounts) {
		return ErrLengthMismatch
	}
	if len(batch.Targets) == 0 {
		return ErrEmptyBatch
	}
	if len(batch.Targets) > maxSize {
		return ErrBatchTooLarge
	}
	for _, amount := range batch.Amounts {
		if amount <= 0 {
			return ErrInvalidAmount
		}
	}
	return nil
}
