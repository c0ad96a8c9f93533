/**
 * @description
 * HTTP handlers for the admin configuration endpoints: fee rates, the fee
 * recipient, the pause switch, and the fee sink view. The service layer
 * enforces the admin-identity check; these handlers only relay the caller.
 */

package api

import (
	"net/http"

	"github.com/google/uuid"
)

type setFeeBpsRequest struct {
	Bps uint32 `json:"bps"`
}

type setFeeRecipientRequest struct {
	Recipient uuid.UUID `json:"recipient"`
}

// GetConfigHandler returns the live protocol configuration.
func (h *SavingsHandlers) GetConfigHandler(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.GetProtocolConfig(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, cfg)
}

// SetProtocolFeeHandler updates the deposit/withdrawal fee rate.
func (h *SavingsHandlers) SetProtocolFeeHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	var req setFeeBpsRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	if err := h.service.SetProtocolFeeBps(r.Context(), userID, req.Bps); err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]uint32{"protocol_fee_bps": req.Bps})
}

// SetEarlyBreakFeeHandler updates the early-break fee rate.
func (h *SavingsHandlers) SetEarlyBreakFeeHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	var req setFeeBpsRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	if err := h.service.SetEarlyBreakFeeBps(r.Context(), userID, req.Bps); err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]uint32{"early_break_fee_bps": req.Bps})
}

// SetFeeRecipientHandler points fee routing at a new recipient.
func (h *SavingsHandlers) SetFeeRecipientHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	var req setFeeRecipientRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	if err := h.service.SetFeeRecipient(r.Context(), userID, req.Recipient); err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"fee_recipient": req.Recipient.String()})
}

// PauseHandler switches state-mutating operations off.
func (h *SavingsHandlers) PauseHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	if err := h.service.Pause(r.Context(), userID); err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"paused": true})
}

// UnpauseHandler re-enables state-mutating operations.
func (h *SavingsHandlers) UnpauseHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	if err := h.service.Unpause(r.Context(), userID); err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"paused": false})
}

// FeeBalanceHandler returns the accumulated fee balance for a recipient.
func (h *SavingsHandlers) FeeBalanceHandler(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("recipient")
	recipient, err := uuid.Parse(raw)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid recipient id")
		return
	}

	balance, err := h.service.FeeBalance(r.Context(), recipient)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int64{"balance": balance})
}
