package app

import (
	"errors"
	"testing"
)

func TestGuardBlocksSecondEntry(t *testing.T) {
	guard := NewReentrancyGuard()

	if err := guard.Enter(); err != nil {
		t.Fatalf("expected first entry to succeed, got %v", err)
	}
	if err := guard.Enter(); !errors.Is(err, ErrReentrantCall) {
		t.Fatalf("expected ErrReentrantCall on nested entry, got %v", err)
	}
	if !guard.Locked() {
		t.Fatal("expected guard to remain locked after rejected entry")
	}
}

func TestGuardReleasesAfterExit(t *testing.T) {
	guard := NewReentrancyGuard()

	if err := guard.Enter(); err != nil {
		t.Fatalf("expected entry to succeed, got %v", err)
	}
	guard.Exit()

	if guard.Locked() {
		t.Fatal("expected guard to be unlocked after exit")
	}
	if err := guard.Enter(); err != nil {
		t.Fatalf("expected re-entry after exit to succeed, got %v", err)
	}
}
