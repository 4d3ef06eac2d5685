/**
 * @description
 * This file sets up the HTTP router for the custody-service. It defines the
 * API endpoints, associates them with their corresponding handlers, and
 * applies middleware. The admin plane (breaker control, role management,
 * treasury execution, full balance/event listings) sits behind the internal
 * API key in addition to JWT authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// CustodyRoutes creates and returns a new router for the custody service.
func CustodyRoutes(h *CustodyHandlers, jwksURL, internalAPIKey string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	r.Get("/status", h.StatusHandler)

	// Group routes that require authentication.
	r.Group(func(r chi.Router) {
		r.Use(PrincipalAuthMiddleware(jwksURL))

		r.Post("/deposit", h.DepositHandler)
		r.Post("/withdraw", h.WithdrawHandler)
		r.Post("/withdraw/batch", h.BatchWithdrawHandler)
		r.Post("/credits", h.CreditPaymentHandler)
		r.Post("/credits/batch", h.BatchCreditHandler)
		r.Get("/balance", h.BalanceHandler)
		r.Get("/operations", h.OperationsHandler)
		r.Get("/operations/{operationID}", h.OperationHandler)

		// Admin plane: JWT identity plus the internal API key.
		r.Group(func(r chi.Router) {
			r.Use(RequireInternalAPIKey(internalAPIKey))

			r.Post("/admin/pause", h.PauseHandler)
			r.Post("/admin/unpause", h.UnpauseHandler)
			r.Post("/admin/roles/grant", h.GrantRoleHandler)
			r.Post("/admin/roles/revoke", h.RevokeRoleHandler)
			r.Get("/admin/roles/{role}", h.RoleMembersHandler)
			r.Post("/admin/execute", h.ExecuteHandler)
			r.Post("/admin/emergency-withdraw", h.EmergencyWithdrawHandler)
			r.Get("/admin/balances", h.BalancesHandler)
			r.Get("/admin/events", h.EventsHandler)
		})
	})

	return r
}
