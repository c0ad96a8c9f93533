/**
 * @description
 * This file sets up the HTTP router for the savings-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies any
 * necessary middleware, such as for authentication.
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

// SavingsRoutes creates and returns a new router for the savings service.
func SavingsRoutes(h *SavingsHandlers, jwtSecret, jwtAudience, jwtIssuer string) http.Handler {
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

	// Group routes that require authentication.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwtSecret, jwtAudience, jwtIssuer))

		// User ledger endpoints
		r.Post("/users", h.RegisterUserHandler)
		r.Get("/users/me", h.GetUserHandler)
		r.Get("/users/me/exists", h.UserExistsHandler)

		// Flexi account endpoints
		r.Post("/flexi/deposit", h.FlexiDepositHandler)
		r.Post("/flexi/withdraw", h.FlexiWithdrawHandler)
		r.Get("/flexi/balance", h.FlexiBalanceHandler)

		// Lock plan endpoints
		r.Post("/locks", h.CreateLockHandler)
		r.Get("/locks", h.ListLocksHandler)
		r.Get("/locks/{lockID}", h.GetLockHandler)
		r.Get("/locks/{lockID}/matured", h.LockMaturedHandler)
		r.Post("/locks/{lockID}/withdraw", h.WithdrawLockHandler)

		// Goal plan endpoints
		r.Post("/goals", h.CreateGoalHandler)
		r.Get("/goals", h.ListGoalsHandler)
		r.Get("/goals/{goalID}", h.GetGoalHandler)
		r.Post("/goals/{goalID}/deposit", h.GoalDepositHandler)
		r.Post("/goals/{goalID}/withdraw", h.WithdrawGoalHandler)
		r.Post("/goals/{goalID}/break", h.BreakGoalHandler)

		// Group plan endpoints
		r.Post("/groups", h.CreateGroupHandler)
		r.Get("/groups", h.ListGroupsHandler)
		r.Get("/groups/{groupID}", h.GetGroupHandler)
		r.Post("/groups/{groupID}/join", h.JoinGroupHandler)
		r.Post("/groups/{groupID}/contribute", h.ContributeGroupHandler)
		r.Get("/groups/{groupID}/members", h.GroupMembersHandler)
		r.Get("/groups/{groupID}/contribution", h.GroupContributionHandler)

		// AutoSave schedule endpoints
		r.Post("/autosaves", h.CreateAutoSaveHandler)
		r.Get("/autosaves", h.ListAutoSavesHandler)
		r.Get("/autosaves/{scheduleID}", h.GetAutoSaveHandler)
		r.Post("/autosaves/{scheduleID}/execute", h.ExecuteAutoSaveHandler)
		r.Post("/autosaves/execute-batch", h.ExecuteBatchHandler)
		r.Delete("/autosaves/{scheduleID}", h.CancelAutoSaveHandler)

		// Protocol configuration endpoints
		r.Get("/config", h.GetConfigHandler)
		r.Get("/config/fee-balance", h.FeeBalanceHandler)
		r.Put("/config/protocol-fee", h.SetProtocolFeeHandler)
		r.Put("/config/early-break-fee", h.SetEarlyBreakFeeHandler)
		r.Put("/config/fee-recipient", h.SetFeeRecipientHandler)
		r.Post("/config/pause", h.PauseHandler)
		r.Post("/config/unpause", h.UnpauseHandler)
	})

	return r
}
