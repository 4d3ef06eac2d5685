package app

import (
	"errors"
	"testing"
)

func TestBreakerStartsActive(t *testing.T) {
	breaker := NewCircuitBreaker()

	if got := breaker.State(); got != BreakerActive {
		t.Fatalf("expected initial state active, got %s", got)
	}
	if err := breaker.RequireActive(); err != nil {
		t.Fatalf("expected RequireActive to pass, got %v", err)
	}
	if err := breaker.RequirePaused(); !errors.Is(err, ErrNotPaused) {
		t.Fatalf("expected ErrNotPaused, got %v", err)
	}
}

func TestBreakerPauseUnpauseCycle(t *testing.T) {
	breaker := NewCircuitBreaker()

	if err := breaker.Pause(); err != nil {
		t.Fatalf("expected pause to succeed, got %v", err)
	}
	if got := breaker.State(); got != BreakerPaused {
		t.Fatalf("expected paused state, got %s", got)
	}
	if err := breaker.RequireActive(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen while paused, got %v", err)
	}
	if err := breaker.RequirePaused(); err != nil {
		t.Fatalf("expected RequirePaused to pass while paused, got %v", err)
	}
	if err := breaker.Pause(); !errors.Is(err, ErrAlreadyPaused) {
		t.Fatalf("expected ErrAlreadyPaused on double pause, got %v", err)
	}

	if err := breaker.Unpause(); err != nil {
		t.Fatalf("expected unpause to succeed, got %v", err)
	}
	if got := breaker.State(); got != BreakerActive {
		t.Fatalf("expected active state after unpause, got %s", got)
	}
	if err := breaker.Unpause(); !errors.Is(err, ErrNotPaused) {
		t.Fatalf("expected ErrNotPaused on double unpause, got %v", err)
	}
}
