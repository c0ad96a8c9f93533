/**
 * @description
 * HTTP handlers for the Flexi account endpoints: deposits, withdrawals, and
 * balance views.
 */

package api

import (
	"net/http"
)

type flexiMovementRequest struct {
	Amount int64 `json:"amount"`
}

// FlexiDepositHandler credits the caller's Flexi balance.
func (h *SavingsHandlers) FlexiDepositHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}
	if !h.allowRate(w, r, "flexi_write", userID, h.writeRateLimitPerMinute) {
		return
	}

	var req flexiMovementRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	movement, err := h.service.FlexiDeposit(r.Context(), userID, req.Amount)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, movement)
}

// FlexiWithdrawHandler debits the caller's Flexi balance.
func (h *SavingsHandlers) FlexiWithdrawHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}
	if !h.allowRate(w, r, "flexi_write", userID, h.writeRateLimitPerMinute) {
		return
	}

	var req flexiMovementRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	movement, err := h.service.FlexiWithdraw(r.Context(), userID, req.Amount)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, movement)
}

// FlexiBalanceHandler returns the caller's Flexi balance.
func (h *SavingsHandlers) FlexiBalanceHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	balance, err := h.service.FlexiBalance(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int64{"balance": balance})
}
