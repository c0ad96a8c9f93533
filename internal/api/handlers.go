/**
 * @description
 * This file contains the HTTP handlers for the savings-service's API endpoints.
 * Handlers are responsible for parsing incoming requests, calling the appropriate
 * methods on the application service, and writing the HTTP response. They act as the
 * bridge between the web layer and the business logic layer.
 *
 * This file holds the shared handler plumbing (error translation, JSON
 * helpers, rate limiting) plus the user-ledger endpoints; per-product handlers
 * live in their own handlers_*.go files.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app: For service logic and the error taxonomy.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nestvault/savings-service/internal/app"
	"github.com/nestvault/savings-service/internal/store"
)

// SavingsHandlers holds the application service that handlers will use.
type SavingsHandlers struct {
	service *app.Service
	limiter *app.RedisRateLimiter

	writeRateLimitPerMinute   int
	executeRateLimitPerMinute int
}

// NewSavingsHandlers creates a new instance of SavingsHandlers.
func NewSavingsHandlers(service *app.Service, limiter *app.RedisRateLimiter, writeLimit, executeLimit int) *SavingsHandlers {
	return &SavingsHandlers{
		service:                   service,
		limiter:                   limiter,
		writeRateLimitPerMinute:   writeLimit,
		executeRateLimitPerMinute: executeLimit,
	}
}

// callerID extracts the authenticated user from the request context. A
// missing identity means the auth middleware did not run; that is a server
// wiring bug, not a client error.
func (h *SavingsHandlers) callerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := GetAuthUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return uuid.Nil, false
	}
	return userID, true
}

// decodeBody parses a JSON request body into dest.
func (h *SavingsHandlers) decodeBody(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		log.Printf("level=warn component=api outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// planIDParam parses the {planID} URL parameter.
func (h *SavingsHandlers) planIDParam(w http.ResponseWriter, r *http.Request, name string) (uint64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid plan id")
		return 0, false
	}
	return id, true
}

// allowRate consumes one unit of the caller's rate budget for a scope.
// Limiter failures fail open so Redis trouble never blocks the API.
func (h *SavingsHandlers) allowRate(w http.ResponseWriter, r *http.Request, scope string, userID uuid.UUID, limit int) bool {
	count, retryAfter, err := h.limiter.ConsumeRateLimit(r.Context(), scope, userID.String(), limit, time.Minute)
	if err != nil {
		log.Printf("level=warn component=api msg=\"rate limiter unavailable; allowing request\" scope=%s err=%v", scope, err)
		return true
	}
	if limit > 0 && count > limit {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		h.writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
		return false
	}
	return true
}

// handleServiceError maps the service error taxonomy onto HTTP status codes.
func (h *SavingsHandlers) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrUnauthorized):
		h.writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, app.ErrNotGroupMember):
		h.writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, app.ErrPaused):
		h.writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, app.ErrUserNotFound), errors.Is(err, app.ErrPlanNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrUserAlreadyExists),
		errors.Is(err, app.ErrPlanCompleted),
		errors.Is(err, app.ErrTooEarly),
		errors.Is(err, store.ErrTxConflict):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrInvalidAmount),
		errors.Is(err, app.ErrInvalidTimestamp),
		errors.Is(err, app.ErrInvalidPlanConfig),
		errors.Is(err, app.ErrInvalidGroupConfig),
		errors.Is(err, app.ErrInvalidFeeBps):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrInsufficientBalance),
		errors.Is(err, app.ErrOverflow),
		errors.Is(err, app.ErrUnderflow):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		log.Printf("level=error component=api msg=\"unhandled service error\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// RegisterUserHandler creates the caller's ledger record.
func (h *SavingsHandlers) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	user, err := h.service.RegisterUser(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, user)
}

// GetUserHandler returns the caller's ledger record.
func (h *SavingsHandlers) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	user, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

// UserExistsHandler reports whether the caller is registered.
func (h *SavingsHandlers) UserExistsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"exists": h.service.UserExists(r.Context(), userID)})
}

// writeJSON is a helper for writing JSON responses.
func (h *SavingsHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *SavingsHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
