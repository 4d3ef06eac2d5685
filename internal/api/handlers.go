/**
 * @description
 * This file contains the HTTP handlers for the custody-service's API
 * endpoints. Handlers parse incoming requests, call the custody engine, and
 * write the HTTP response. Engine sentinel errors are mapped to status codes
 * here; a rejected reentrant call surfaces as a retryable conflict.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain: For the engine, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/transfa/custody-service/internal/app"
	"github.com/transfa/custody-service/internal/domain"
	"github.com/transfa/custody-service/internal/store"
)

// CustodyHandlers holds the custody engine that handlers will use.
type CustodyHandlers struct {
	service *app.Service
}

// NewCustodyHandlers creates a new instance of CustodyHandlers.
func NewCustodyHandlers(service *app.Service) *CustodyHandlers {
	return &CustodyHandlers{service: service}
}

type amountRequest struct {
	Amount int64 `json:"amount"`
}

type creditRequest struct {
	Payee  string `json:"payee"`
	Amount int64  `json:"amount"`
}

type roleRequest struct {
	Role      string `json:"role"`
	Principal string `json:"principal"`
}

type executeRequest struct {
	Target string `json:"target"`
	Amount int64  `json:"amount"`
	Data   []byte `json:"data,omitempty"`
}

type emergencyWithdrawRequest struct {
	Target string `json:"target"`
}

type operationResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type balanceResponse struct {
	Principal      string `json:"principal"`
	PendingBalance int64  `json:"pending_balance"`
}

type statusResponse struct {
	BreakerState string `json:"breaker_state"`
	TotalPending int64  `json:"total_pending"`
	Accounts     int64  `json:"accounts"`
}

type batchWithdrawResponse struct {
	Status  string                   `json:"status"`
	Message string                   `json:"message,omitempty"`
	Results []domain.BatchItemResult `json:"results"`
}

// mapCustodyError translates engine sentinel errors into HTTP status codes.
func mapCustodyError(err error) (int, string) {
	switch {
	case errors.Is(err, app.ErrInvalidAmount),
		errors.Is(err, app.ErrEmptyBatch),
		errors.Is(err, app.ErrBatchTooLarge),
		errors.Is(err, app.ErrLengthMismatch),
		errors.Is(err, app.ErrUnknownRole):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, app.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, app.ErrAccountNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, app.ErrUnauthorized), errors.Is(err, app.ErrLastAdminRevocation):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, app.ErrReentrantCall):
		return http.StatusConflict, "Another custody operation is in flight. Retry shortly."
	case errors.Is(err, app.ErrCircuitOpen):
		return http.StatusLocked, err.Error()
	case errors.Is(err, app.ErrNotPaused), errors.Is(err, app.ErrAlreadyPaused):
		return http.StatusPreconditionFailed, err.Error()
	case errors.Is(err, app.ErrRateLimited):
		return http.StatusTooManyRequests, err.Error()
	case errors.Is(err, app.ErrTransferFailed):
		return http.StatusBadGateway, err.Error()
	}
	return http.StatusInternalServerError, "Could not process custody operation."
}

func (h *CustodyHandlers) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("level=error component=api msg=\"response encode failed\" err=%v", err)
	}
}

func (h *CustodyHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *CustodyHandlers) writeCustodyError(w http.ResponseWriter, endpoint, principal string, err error) {
	status, message := mapCustodyError(err)
	if status >= 500 {
		log.Printf("level=error component=api endpoint=%s outcome=failed principal=%s err=%v", endpoint, principal, err)
	}
	h.writeError(w, status, message)
}

func (h *CustodyHandlers) principal(w http.ResponseWriter, r *http.Request) (string, bool) {
	principal, ok := GetPrincipal(r.Context())
	if !ok || principal == "" {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return "", false
	}
	return principal, true
}

func parseOptionalPositiveInt(raw string, fallback int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(trimmed)
	if err != nil || value < 0 {
		return 0, errors.New("value must be a non-negative integer")
	}
	return value, nil
}

// DepositHandler credits the caller's own pending balance.
func (h *CustodyHandlers) DepositHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.Deposit(r.Context(), principal, req.Amount); err != nil {
		h.writeCustodyError(w, "deposit", principal, err)
		return
	}

	h.writeJSON(w, http.StatusOK, operationResponse{Status: "completed"})
}

// WithdrawHandler pays out part of the caller's pending balance.
func (h *CustodyHandlers) WithdrawHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.Withdraw(r.Context(), principal, req.Amount); err != nil {
		h.writeCustodyError(w, "withdraw", principal, err)
		return
	}

	h.writeJSON(w, http.StatusOK, operationResponse{Status: "completed"})
}

// BatchWithdrawHandler pays out to a bounded list of targets.
func (h *CustodyHandlers) BatchWithdrawHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	var batch domain.BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	results, err := h.service.BatchWithdraw(r.Context(), principal, batch)
	if err != nil {
		status, message := mapCustodyError(err)
		if status >= 500 {
			log.Printf("level=error component=api endpoint=batch_withdraw outcome=failed principal=%s err=%v", principal, err)
		}
		h.writeJSON(w, status, batchWithdrawResponse{Status: "failed", Message: message, Results: results})
		return
	}

	h.writeJSON(w, http.StatusOK, batchWithdrawResponse{Status: "completed", Results: results})
}

// CreditPaymentHandler registers value owed to a payee.
func (h *CustodyHandlers) CreditPaymentHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req creditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Payee) == "" {
		h.writeError(w, http.StatusBadRequest, "Payee is required")
		return
	}

	if err := h.service.CreditPayment(r.Context(), principal, req.Payee, req.Amount); err != nil {
		h.writeCustodyError(w, "credit_payment", principal, err)
		return
	}

	h.writeJSON(w, http.StatusOK, operationResponse{Status: "completed"})
}

// BatchCreditHandler registers a batch of credits all-or-nothing.
func (h *CustodyHandlers) BatchCreditHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	var batch domain.BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.BatchCredit(r.Context(), principal, batch); err != nil {
		h.writeCustodyError(w, "batch_credit", principal, err)
		return
	}

	h.writeJSON(w, http.StatusOK, operationResponse{Status: "completed"})
}

// BalanceHandler reports the caller's pending balance.
func (h *CustodyHandlers) BalanceHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	h.writeJSON(w, http.StatusOK, balanceResponse{
		Principal:      principal,
		PendingBalance: h.service.BalanceOf(principal),
	})
}

// OperationsHandler lists the caller's journaled operations.
func (h *CustodyHandlers) OperationsHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	limit, err := parseOptionalPositiveInt(r.URL.Query().Get("limit"), 30)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid limit")
		return
	}
	offset, err := parseOptionalPositiveInt(r.URL.Query().Get("offset"), 0)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid offset")
		return
	}

	ops, err := h.service.ListOperations(r.Context(), principal, limit, offset)
	if err != nil {
		log.Printf("level=error component=api endpoint=operations outcome=failed principal=%s err=%v", principal, err)
		h.writeError(w, http.StatusInternalServerError, "Could not retrieve operations.")
		return
	}

	h.writeJSON(w, http.StatusOK, ops)
}

// OperationHandler retrieves one of the caller's journaled operations by id.
func (h *CustodyHandlers) OperationHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	operationID, err := uuid.Parse(chi.URLParam(r, "operationID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid operation id")
		return
	}

	op, err := h.service.FindOperation(r.Context(), principal, operationID)
	if err != nil {
		if errors.Is(err, store.ErrOperationNotFound) {
			h.writeError(w, http.StatusNotFound, "Operation not found")
			return
		}
		log.Printf("level=error component=api endpoint=operation outcome=failed principal=%s err=%v", principal, err)
		h.writeError(w, http.StatusInternalServerError, "Could not retrieve operation.")
		return
	}

	h.writeJSON(w, http.StatusOK, op)
}

// StatusHandler reports the breaker state and aggregate custody totals.
func (h *CustodyHandlers) StatusHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, statusResponse{
		BreakerState: string(h.service.BreakerState()),
		TotalPending: h.service.TotalPending(),
		Accounts:     int64(h.service.AccountCount()),
	})
}

// BalancesHandler lists pending balances, paginated. Admin plane only.
func (h *CustodyHandlers) BalancesHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := parseOptionalPositiveInt(r.URL.Query().Get("limit"), 50)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid limit")
		return
	}
	offset, err := parseOptionalPositiveInt(r.URL.Query().Get("offset"), 0)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid offset")
		return
	}

	h.writeJSON(w, http.StatusOK, h.service.ListBalances(limit, offset))
}

// EventsHandler lists the persisted audit log, paginated. Admin plane only.
func (h *CustodyHandlers) EventsHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := parseOptionalPositiveInt(r.URL.Query().Get("limit"), 50)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid limit")
		return
	}
	offset, err := parseOptionalPositiveInt(r.URL.Query().Get("offset"), 0)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid offset")
		return
	}

	events, err := h.service.ListEvents(r.Context(), limit, offset)
	if err != nil {
		log.Printf("level=error component=api endpoint=events outcome=failed err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Could not retrieve events.")
		return
	}

	h.writeJSON(w, http.StatusOK, events)
}

// PauseHandler trips the circuit breaker.
func (h *CustodyHandlers) PauseHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	if err := h.service.Pause(r.Context(), principal); err != nil {
		h.writeCustodyError(w, "pause", principal, err)
		return
	}

	h.writeJSON(w, http.StatusOK, operationResponse{Status: "paused"})
}

// UnpauseHandler resets the circuit breaker.
func (h *CustodyHandlers) UnpauseHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	if err := h.service.Unpause(r.Context(), principal); err != nil {
		h.writeCustodyError(w, "unpause", principal, err)
		return
	}

	h.writeJSON(w, http.StatusOK, operationResponse{Status: "active"})
}

// GrantRoleHandler grants a role to a principal.
func (h *CustodyHandlers) GrantRoleHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Principal) == "" {
		h.writeError(w, http.StatusBadRequest, "Principal is required")
		return
	}

	if err := h.service.GrantRole(r.Context(), actor, domain.Role(req.Role), req.Principal); err != nil {
		h.writeCustodyError(w, "grant_role", actor, err)
		return
	}

	h.writeJSON(w, http.StatusOK, operationResponse{Status: "granted"})
}

// RevokeRoleHandler revokes a role from a principal.
func (h *CustodyHandlers) RevokeRoleHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Principal) == "" {
		h.writeError(w, http.StatusBadRequest, "Principal is required")
		return
	}

	if err := h.service.RevokeRole(r.Context(), actor, domain.Role(req.Role), req.Principal); err != nil {
		h.writeCustodyError(w, "revoke_role", actor, err)
		return
	}

	h.writeJSON(w, http.StatusOK, operationResponse{Status: "revoked"})
}

// RoleMembersHandler lists the principals holding a role.
func (h *CustodyHandlers) RoleMembersHandler(w http.ResponseWriter, r *http.Request) {
	role := domain.Role(chi.URLParam(r, "role"))
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"role":    role,
		"members": h.service.RoleMembers(role),
	})
}

// ExecuteHandler performs a role-gated arbitrary outbound call.
func (h *CustodyHandlers) ExecuteHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Target) == "" {
		h.writeError(w, http.StatusBadRequest, "Target is required")
		return
	}

	outcome, err := h.service.Execute(r.Context(), principal, req.Target, req.Amount, req.Data)
	if err != nil {
		h.writeCustodyError(w, "execute", principal, err)
		return
	}

	h.writeJSON(w, http.StatusOK, outcome)
}

// EmergencyWithdrawHandler drains an account while the breaker is paused.
func (h *CustodyHandlers) EmergencyWithdrawHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req emergencyWithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Target) == "" {
		h.writeError(w, http.StatusBadRequest, "Target is required")
		return
	}

	amount, err := h.service.EmergencyWithdraw(r.Context(), principal, req.Target)
	if err != nil {
		h.writeCustodyError(w, "emergency_withdraw", principal, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"status": "completed", "amount": amount})
}
