package app

import (
	"errors"
	"testing"
)

func TestLedgerCreditDebit(t *testing.T) {
	ledger := NewAccountLedger()

	if err := ledger.Credit("alice", 100); err != nil {
		t.Fatalf("expected credit to succeed, got %v", err)
	}
	if got := ledger.BalanceOf("alice"); got != 100 {
		t.Fatalf("expected balance=100, got %d", got)
	}
	if got := ledger.TotalPending(); got != 100 {
		t.Fatalf("expected total=100, got %d", got)
	}

	if err := ledger.Debit("alice", 40); err != nil {
		t.Fatalf("expected debit to succeed, got %v", err)
	}
	if got := ledger.BalanceOf("alice"); got != 60 {
		t.Fatalf("expected balance=60, got %d", got)
	}
	if got := ledger.TotalPending(); got != 60 {
		t.Fatalf("expected total=60, got %d", got)
	}
}

func TestLedgerRejectsInvalidAmounts(t *testing.T) {
	ledger := NewAccountLedger()

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"zero credit", func() error { return ledger.Credit("alice", 0) }, ErrInvalidAmount},
		{"negative credit", func() error { return ledger.Credit("alice", -5) }, ErrInvalidAmount},
		{"zero debit", func() error { return ledger.Debit("alice", 0) }, ErrInvalidAmount},
		{"negative debit", func() error { return ledger.Debit("alice", -5) }, ErrInvalidAmount},
		{"debit unknown account", func() error { return ledger.Debit("ghost", 10) }, ErrInsufficientBalance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if got := ledger.TotalPending(); got != 0 {
		t.Fatalf("expected rejected operations to leave total=0, got %d", got)
	}
}

func TestLedgerOverdraftMutatesNothing(t *testing.T) {
	ledger := NewAccountLedger()
	if err := ledger.Credit("alice", 50); err != nil {
		t.Fatalf("expected credit to succeed, got %v", err)
	}

	if err := ledger.Debit("alice", 51); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if got := ledger.BalanceOf("alice"); got != 50 {
		t.Fatalf("expected balance unchanged at 50, got %d", got)
	}
	if got := ledger.TotalPending(); got != 50 {
		t.Fatalf("expected total unchanged at 50, got %d", got)
	}
}

func TestLedgerDrainRemovesEntry(t *testing.T) {
	ledger := NewAccountLedger()
	if err := ledger.Credit("alice", 75); err != nil {
		t.Fatalf("expected credit to succeed, got %v", err)
	}
	if err := ledger.Debit("alice", 75); err != nil {
		t.Fatalf("expected full debit to succeed, got %v", err)
	}

	if got := ledger.Size(); got != 0 {
		t.Fatalf("expected drained account to be removed, size=%d", got)
	}
	if got := ledger.BalanceOf("alice"); got != 0 {
		t.Fatalf("expected balance=0 for drained account, got %d", got)
	}
}

func TestLedgerCreditAllAtomic(t *testing.T) {
	ledger := NewAccountLedger()

	err := ledger.CreditAll([]string{"a", "b", "c"}, []int64{10, -1, 30})
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if got := ledger.TotalPending(); got != 0 {
		t.Fatalf("expected invalid batch to leave ledger untouched, total=%d", got)
	}

	if err := ledger.CreditAll([]string{"a", "b", "a"}, []int64{10, 20, 5}); err != nil {
		t.Fatalf("expected valid batch to succeed, got %v", err)
	}
	if got := ledger.BalanceOf("a"); got != 15 {
		t.Fatalf("expected repeated target to accumulate to 15, got %d", got)
	}
	if got := ledger.TotalPending(); got != 35 {
		t.Fatalf("expected total=35, got %d", got)
	}
}

func TestLedgerCreditAllLengthMismatch(t *testing.T) {
	ledger := NewAccountLedger()
	if err := ledger.CreditAll([]string{"a", "b"}, []int64{10}); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
}

func TestLedgerEntriesPagination(t *testing.T) {
	ledger := NewAccountLedger()
	for _, p := range []string{"carol", "alice", "bob"} {
		if err := ledger.Credit(p, 10); err != nil {
			t.Fatalf("expected credit to succeed, got %v", err)
		}
	}

	page := ledger.Entries(2, 0)
	if len(page) != 2 || page[0].Principal != "alice" || page[1].Principal != "bob" {
		t.Fatalf("expected first page [alice bob], got %+v", page)
	}

	page = ledger.Entries(2, 2)
	if len(page) != 1 || page[0].Principal != "carol" {
		t.Fatalf("expected second page [carol], got %+v", page)
	}

	page = ledger.Entries(2, 3)
	if len(page) != 0 {
		t.Fatalf("expected offset past end to yield empty page, got %+v", page)
	}

	page = ledger.Entries(0, 0)
	if len(page) != 3 {
		t.Fatalf("expected no limit to return all entries, got %d", len(page))
	}
}
