/**
 * @description
 * This file defines the service-level error taxonomy. Handlers translate these
 * sentinels into HTTP status codes with errors.Is, so every business rule
 * failure has exactly one canonical error value.
 */

package app

import "errors"

var (
	// ErrUnauthorized is returned when the caller is not the owner of the
	// operated-on record, or lacks the admin role for admin operations.
	ErrUnauthorized = errors.New("caller is not authorized for this operation")

	// ErrPaused is returned by every state-mutating operation while the
	// protocol pause switch is on.
	ErrPaused = errors.New("service is paused")

	ErrUserNotFound      = errors.New("user is not registered")
	ErrUserAlreadyExists = errors.New("user is already registered")

	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInsufficientBalance = errors.New("insufficient balance")

	ErrPlanNotFound  = errors.New("savings plan not found")
	ErrPlanCompleted = errors.New("savings plan is already closed")
	ErrTooEarly      = errors.New("savings plan is not ready for withdrawal")

	ErrInvalidTimestamp   = errors.New("invalid timestamp")
	ErrInvalidPlanConfig  = errors.New("invalid plan configuration")
	ErrInvalidGroupConfig = errors.New("invalid group configuration")
	ErrNotGroupMember     = errors.New("caller is not a member of this group")

	ErrOverflow  = errors.New("arithmetic overflow")
	ErrUnderflow = errors.New("arithmetic underflow")

	ErrInvalidFeeBps = errors.New("fee rate must be between 0 and 10000 basis points")
)
