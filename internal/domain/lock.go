/**
 * @description
 * This file defines the Lock plan domain model: a fixed-term deposit that
 * accrues simple interest and can only be withdrawn at or after maturity.
 *
 * @notes
 * - Times are stored as Unix seconds to keep plan records stable across
 *   serialization and clock implementations.
 * - Status replaces a raw `withdrawn` flag so that the lifecycle is explicit
 *   in stored records and API responses.
 */

package domain

import "github.com/google/uuid"

// LockStatus is the lifecycle state of a lock plan.
type LockStatus string

const (
	LockStatusLocked    LockStatus = "locked"
	LockStatusWithdrawn LockStatus = "withdrawn"
)

// LockPlan is a time-locked deposit with a fixed annual interest rate.
type LockPlan struct {
	ID           uint64     `json:"id"`
	Owner        uuid.UUID  `json:"owner"`
	Amount       int64      `json:"amount"`
	InterestBps  uint32     `json:"interest_bps"`
	CreatedAt    int64      `json:"created_at"`
	MaturityTime int64      `json:"maturity_time"`
	Status       LockStatus `json:"status"`
}

// Matured reports whether the plan can be withdrawn at the given time.
func (p *LockPlan) Matured(now int64) bool {
	return now >= p.MaturityTime
}
