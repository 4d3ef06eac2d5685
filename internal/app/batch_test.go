package app

import (
	"errors"
	"testing"

	"github.com/transfa/custody-service/internal/domain"
)

func TestBatchGuardValidation(t *testing.T) {
	guard := NewBatchGuard(2, 3)

	tests := []struct {
		name  string
		batch domain.BatchRequest
		want  error
	}{
		{
			name:  "length mismatch",
			batch: domain.BatchRequest{Targets: []string{"a", "b"}, Amounts: []int64{10}},
			want:  ErrLengthMismatch,
		},
		{
			name:  "empty batch",
			batch: domain.BatchRequest{},
			want:  ErrEmptyBatch,
		},
		{
			name:  "over withdrawal ceiling",
			batch: domain.BatchRequest{Targets: []string{"a", "b", "c"}, Amounts: []int64{1, 2, 3}},
			want:  ErrBatchTooLarge,
		},
		{
			name:  "non-positive amount",
			batch: domain.BatchRequest{Targets: []string{"a", "b"}, Amounts: []int64{10, 0}},
			want:  ErrInvalidAmount,
		},
		{
			name:  "valid batch",
			batch: domain.BatchRequest{Targets: []string{"a", "b"}, Amounts: []int64{10, 20}},
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.ValidateWithdraw(tt.batch)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("expected batch to validate, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestBatchGuardIndependentCeilings(t *testing.T) {
	guard := NewBatchGuard(2, 3)
	batch := domain.BatchRequest{Targets: []string{"a", "b", "c"}, Amounts: []int64{1, 2, 3}}

	if err := guard.ValidateWithdraw(batch); !errors.Is(err, ErrBatchTooLarge) {
		t.Fatalf("expected withdrawal ceiling of 2 to reject 3 elements, got %v", err)
	}
	if err := guard.ValidateCredit(batch); err != nil {
		t.Fatalf("expected credit ceiling of 3 to accept 3 elements, got %v", err)
	}
}

func TestBatchGuardDefaults(t *testing.T) {
	guard := NewBatchGuard(0, -1)

	if got := guard.WithdrawMax(); got != DefaultWithdrawBatchMax {
		t.Fatalf("expected withdraw default %d, got %d", DefaultWithdrawBatchMax, got)
	}
	if got := guard.CreditMax(); got != DefaultCreditBatchMax {
		t.Fatalf("expected credit default %d, got %d", DefaultCreditBatchMax, got)
	}
}
