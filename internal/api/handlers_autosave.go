/**
 * @description
 * HTTP handlers for the AutoSave schedule endpoints: creation, single and
 * batch execution, cancellation, and listings. Batch execution is also what
 * the internal cron sweep uses; the endpoint exists so operators can trigger
 * a targeted replay.
 */

package api

import (
	"net/http"
)

type createAutoSaveRequest struct {
	Amount          int64 `json:"amount"`
	IntervalSeconds int64 `json:"interval_seconds"`
	StartTime       int64 `json:"start_time"`
}

type executeBatchRequest struct {
	ScheduleIDs []uint64 `json:"schedule_ids"`
}

// CreateAutoSaveHandler registers a new recurring deposit schedule.
func (h *SavingsHandlers) CreateAutoSaveHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}
	if !h.allowRate(w, r, "autosave_write", userID, h.writeRateLimitPerMinute) {
		return
	}

	var req createAutoSaveRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	schedule, err := h.service.CreateAutoSave(r.Context(), userID, req.Amount, req.IntervalSeconds, req.StartTime)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, schedule)
}

// GetAutoSaveHandler returns one schedule.
func (h *SavingsHandlers) GetAutoSaveHandler(w http.ResponseWriter, r *http.Request) {
	scheduleID, ok := h.planIDParam(w, r, "scheduleID")
	if !ok {
		return
	}

	schedule, err := h.service.GetAutoSave(r.Context(), scheduleID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, schedule)
}

// ExecuteAutoSaveHandler runs a single schedule immediately.
func (h *SavingsHandlers) ExecuteAutoSaveHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}
	scheduleID, ok := h.planIDParam(w, r, "scheduleID")
	if !ok {
		return
	}
	if !h.allowRate(w, r, "autosave_execute", userID, h.executeRateLimitPerMinute) {
		return
	}

	if err := h.service.ExecuteAutoSave(r.Context(), scheduleID); err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "executed"})
}

// ExecuteBatchHandler runs a batch of schedules. The response carries one
// boolean per requested id, in request order; the endpoint succeeds even when
// every item is skipped.
func (h *SavingsHandlers) ExecuteBatchHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}
	if !h.allowRate(w, r, "autosave_execute", userID, h.executeRateLimitPerMinute) {
		return
	}

	var req executeBatchRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	results := h.service.ExecuteDueAutoSaves(r.Context(), req.ScheduleIDs)
	h.writeJSON(w, http.StatusOK, map[string][]bool{"results": results})
}

// CancelAutoSaveHandler turns a schedule off permanently.
func (h *SavingsHandlers) CancelAutoSaveHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}
	scheduleID, ok := h.planIDParam(w, r, "scheduleID")
	if !ok {
		return
	}

	if err := h.service.CancelAutoSave(r.Context(), userID, scheduleID); err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// ListAutoSavesHandler lists the caller's schedule ids.
func (h *SavingsHandlers) ListAutoSavesHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	ids, err := h.service.ListAutoSaveIDs(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string][]uint64{"schedule_ids": ids})
}
