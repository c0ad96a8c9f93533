/**
 * @description
 * HTTP handlers for the Group plan endpoints: creation, joining, pooled
 * contributions, membership views, and listings.
 */

package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/nestvault/savings-service/internal/app"
	"github.com/nestvault/savings-service/internal/domain"
)

type groupContributionRequest struct {
	Amount int64 `json:"amount"`
}

// CreateGroupHandler opens a new pooled goal with the caller as creator.
func (h *SavingsHandlers) CreateGroupHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}
	if !h.allowRate(w, r, "group_write", userID, h.writeRateLimitPerMinute) {
		return
	}

	var params app.CreateGroupParams
	if !h.decodeBody(w, r, &params) {
		return
	}

	plan, err := h.service.CreateGroupPlan(r.Context(), userID, params)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, plan)
}

// GetGroupHandler returns one group plan.
func (h *SavingsHandlers) GetGroupHandler(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.planIDParam(w, r, "groupID")
	if !ok {
		return
	}

	plan, err := h.service.GetGroupPlan(r.Context(), groupID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, plan)
}

// JoinGroupHandler enrolls the caller into a public group.
func (h *SavingsHandlers) JoinGroupHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}
	groupID, ok := h.planIDParam(w, r, "groupID")
	if !ok {
		return
	}

	if err := h.service.JoinGroupPlan(r.Context(), userID, groupID); err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "joined"})
}

// ContributeGroupHandler adds the caller's contribution to the pool.
func (h *SavingsHandlers) ContributeGroupHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}
	groupID, ok := h.planIDParam(w, r, "groupID")
	if !ok {
		return
	}
	if !h.allowRate(w, r, "group_write", userID, h.writeRateLimitPerMinute) {
		return
	}

	var req groupContributionRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	plan, err := h.service.ContributeToGroup(r.Context(), userID, groupID, req.Amount)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, plan)
}

// GroupMembersHandler returns a group's membership roster.
func (h *SavingsHandlers) GroupMembersHandler(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.planIDParam(w, r, "groupID")
	if !ok {
		return
	}

	members, err := h.service.GroupMembers(r.Context(), groupID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, members)
}

// GroupContributionHandler returns one member's contribution. The `user`
// query parameter defaults to the caller.
func (h *SavingsHandlers) GroupContributionHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}
	groupID, ok := h.planIDParam(w, r, "groupID")
	if !ok {
		return
	}

	if raw := r.URL.Query().Get("user"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid user id")
			return
		}
		userID = parsed
	}

	h.writeJSON(w, http.StatusOK, map[string]int64{
		"contribution": h.service.MemberContribution(r.Context(), groupID, userID),
	})
}

// ListGroupsHandler lists the caller's groups, optionally filtered to live or
// completed via the `status` query parameter.
func (h *SavingsHandlers) ListGroupsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	var statuses []domain.GroupStatus
	switch r.URL.Query().Get("status") {
	case "live":
		statuses = []domain.GroupStatus{domain.GroupStatusLive}
	case "completed":
		statuses = []domain.GroupStatus{domain.GroupStatusCompleted}
	}

	plans, err := h.service.ListGroupPlans(r.Context(), userID, statuses...)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, plans)
}
