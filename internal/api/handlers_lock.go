/**
 * @description
 * HTTP handlers for the Lock plan endpoints: creation, maturity checks,
 * withdrawal, and listings.
 */

package api

import (
	"net/http"
)

type createLockRequest struct {
	Amount          int64 `json:"amount"`
	DurationSeconds int64 `json:"duration_seconds"`
}

// CreateLockHandler opens a new time-locked deposit for the caller.
func (h *SavingsHandlers) CreateLockHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}
	if !h.allowRate(w, r, "lock_write", userID, h.writeRateLimitPerMinute) {
		return
	}

	var req createLockRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	plan, err := h.service.CreateLockPlan(r.Context(), userID, req.Amount, req.DurationSeconds)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, plan)
}

// GetLockHandler returns one lock plan.
func (h *SavingsHandlers) GetLockHandler(w http.ResponseWriter, r *http.Request) {
	lockID, ok := h.planIDParam(w, r, "lockID")
	if !ok {
		return
	}

	plan, err := h.service.GetLockPlan(r.Context(), lockID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, plan)
}

// LockMaturedHandler reports whether a lock plan has matured.
func (h *SavingsHandlers) LockMaturedHandler(w http.ResponseWriter, r *http.Request) {
	lockID, ok := h.planIDParam(w, r, "lockID")
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"matured": h.service.LockMatured(r.Context(), lockID)})
}

// WithdrawLockHandler closes a matured lock plan and returns the payout.
func (h *SavingsHandlers) WithdrawLockHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}
	lockID, ok := h.planIDParam(w, r, "lockID")
	if !ok {
		return
	}

	payout, err := h.service.WithdrawLockPlan(r.Context(), userID, lockID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int64{"payout": payout})
}

// ListLocksHandler lists the caller's lock plans. The `matured` query
// parameter selects matured (true) or ongoing (false) plans; omitted, it
// returns all plan ids.
func (h *SavingsHandlers) ListLocksHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	switch r.URL.Query().Get("matured") {
	case "true":
		plans, err := h.service.ListLockPlans(r.Context(), userID, true)
		if err != nil {
			h.handleServiceError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, plans)
	case "false":
		plans, err := h.service.ListLockPlans(r.Context(), userID, false)
		if err != nil {
			h.handleServiceError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, plans)
	default:
		ids, err := h.service.ListLockPlanIDs(r.Context(), userID)
		if err != nil {
			h.handleServiceError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, map[string][]uint64{"lock_ids": ids})
	}
}
