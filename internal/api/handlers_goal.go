/**
 * @description
 * HTTP handlers for the Goal plan endpoints: creation, contributions, the two
 * exit paths (matured withdraw, early break), and listings.
 */

package api

import (
	"net/http"

	"github.com/nestvault/savings-service/internal/domain"
)

type createGoalRequest struct {
	Name           string `json:"name"`
	TargetAmount   int64  `json:"target_amount"`
	InitialDeposit int64  `json:"initial_deposit"`
}

type goalDepositRequest struct {
	Amount int64 `json:"amount"`
}

// CreateGoalHandler opens a new goal plan for the caller.
func (h *SavingsHandlers) CreateGoalHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}
	if !h.allowRate(w, r, "goal_write", userID, h.writeRateLimitPerMinute) {
		return
	}

	var req createGoalRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	plan, err := h.service.CreateGoalPlan(r.Context(), userID, req.Name, req.TargetAmount, req.InitialDeposit)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, plan)
}

// GetGoalHandler returns one goal plan.
func (h *SavingsHandlers) GetGoalHandler(w http.ResponseWriter, r *http.Request) {
	goalID, ok := h.planIDParam(w, r, "goalID")
	if !ok {
		return
	}

	plan, err := h.service.GetGoalPlan(r.Context(), goalID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, plan)
}

// GoalDepositHandler adds a contribution to a live goal.
func (h *SavingsHandlers) GoalDepositHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}
	goalID, ok := h.planIDParam(w, r, "goalID")
	if !ok {
		return
	}
	if !h.allowRate(w, r, "goal_write", userID, h.writeRateLimitPerMinute) {
		return
	}

	var req goalDepositRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	plan, err := h.service.DepositToGoal(r.Context(), userID, goalID, req.Amount)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, plan)
}

// WithdrawGoalHandler pays out a completed goal.
func (h *SavingsHandlers) WithdrawGoalHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}
	goalID, ok := h.planIDParam(w, r, "goalID")
	if !ok {
		return
	}

	exit, err := h.service.WithdrawCompletedGoal(r.Context(), userID, goalID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, exit)
}

// BreakGoalHandler exits an incomplete goal early for the break fee.
func (h *SavingsHandlers) BreakGoalHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}
	goalID, ok := h.planIDParam(w, r, "goalID")
	if !ok {
		return
	}

	exit, err := h.service.BreakGoal(r.Context(), userID, goalID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, exit)
}

// ListGoalsHandler lists the caller's goals, optionally filtered to live or
// completed via the `status` query parameter.
func (h *SavingsHandlers) ListGoalsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	var statuses []domain.GoalStatus
	switch r.URL.Query().Get("status") {
	case "live":
		statuses = []domain.GoalStatus{domain.GoalStatusLive}
	case "completed":
		statuses = []domain.GoalStatus{domain.GoalStatusCompleted}
	}

	plans, err := h.service.ListGoalPlans(r.Context(), userID, statuses...)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, plans)
}
