package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/transfa/custody-service/internal/app"
)

func TestMapCustodyError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: app.ErrInvalidAmount, want: http.StatusBadRequest},
		{err: app.ErrEmptyBatch, want: http.StatusBadRequest},
		{err: app.ErrBatchTooLarge, want: http.StatusBadRequest},
		{err: app.ErrLengthMismatch, want: http.StatusBadRequest},
		{err: app.ErrUnknownRole, want: http.StatusBadRequest},
		{err: app.ErrInsufficientBalance, want: http.StatusUnprocessableEntity},
		{err: app.ErrAccountNotFound, want: http.StatusNotFound},
		{err: app.ErrUnauthorized, want: http.StatusForbidden},
		{err: app.ErrLastAdminRevocation, want: http.StatusForbidden},
		{err: app.ErrReentrantCall, want: http.StatusConflict},
		{err: app.ErrCircuitOpen, want: http.StatusLocked},
		{err: app.ErrNotPaused, want: http.StatusPreconditionFailed},
		{err: app.ErrAlreadyPaused, want: http.StatusPreconditionFailed},
		{err: app.ErrRateLimited, want: http.StatusTooManyRequests},
		{err: app.ErrTransferFailed, want: http.StatusBadGateway},
		{err: errors.New("something else"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			got, _ := mapCustodyError(tt.err)
			if got != tt.want {
				t.Fatalf("expected status %d, got %d", tt.want, got)
			}
		})
	}
}

func TestMapCustodyErrorUnwrapsCause(t *testing.T) {
	wrapped := fmt.Errorf("%w: account alice", app.ErrInsufficientBalance)
	got, _ := mapCustodyError(wrapped)
	if got != http.StatusUnprocessableEntity {
		t.Fatalf("expected wrapped sentinel to map to 422, got %d", got)
	}
}

func TestParseOptionalPositiveInt(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		fallback int
		want     int
		wantErr  bool
	}{
		{name: "empty uses fallback", raw: "", fallback: 50, want: 50},
		{name: "whitespace uses fallback", raw: "  ", fallback: 50, want: 50},
		{name: "valid value", raw: "25", fallback: 50, want: 25},
		{name: "zero is valid", raw: "0", fallback: 50, want: 0},
		{name: "negative rejected", raw: "-1", fallback: 50, wantErr: true},
		{name: "non-numeric rejected", raw: "ten", fallback: 50, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseOptionalPositiveInt(tt.raw, tt.fallback)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got value %d", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}
