/**
 * @description
 * This file defines the sentinel errors for the custody engine. Every
 * precondition violation aborts the whole operation with no partial mutation;
 * the API layer maps these values to HTTP status codes with errors.Is.
 *
 * @dependencies
 * - errors: Standard Go library.
 */

package app

import "errors"

var (
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInsufficientBalance = errors.New("insufficient pending balance")
	ErrAccountNotFound     = errors.New("account not found")
	ErrReentrantCall       = errors.New("reentrant call rejected")
	ErrCircuitOpen         = errors.New("custody operations are paused")
	ErrNotPaused           = errors.New("custody operations are not paused")
	ErrAlreadyPaused       = errors.New("custody operations are already paused")
	ErrUnauthorized        = errors.New("principal lacks the required role")
	ErrUnknownRole         = errors.New("unknown role")
	ErrLastAdminRevocation = errors.New("cannot revoke the last admin principal")
	ErrEmptyBatch          = errors.New("batch is empty")
	ErrBatchTooLarge       = errors.New("batch exceeds the maximum size")
	ErrLengthMismatch      = errors.New("batch targets and amounts differ in length")
	ErrTransferFailed      = errors.New("external transfer failed")
	ErrRateLimited         = errors.New("withdrawal rate limit exceeded")
)
