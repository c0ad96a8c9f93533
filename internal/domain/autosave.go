/**
 * @description
 * This file defines the AutoSave schedule domain model: a recurring standing
 * order that deposits a fixed amount into the owner's Flexi account on a
 * fixed interval.
 */

package domain

import "github.com/google/uuid"

// ScheduleStatus is the lifecycle state of an autosave schedule.
type ScheduleStatus string

const (
	ScheduleStatusActive    ScheduleStatus = "active"
	ScheduleStatusCancelled ScheduleStatus = "cancelled"
)

// AutoSaveSchedule is a recurring deposit instruction owned by one user.
type AutoSaveSchedule struct {
	ID              uint64         `json:"id"`
	Owner           uuid.UUID      `json:"owner"`
	Amount          int64          `json:"amount"`
	IntervalSeconds int64          `json:"interval_seconds"`
	NextRunAt       int64          `json:"next_run_at"`
	CreatedAt       int64          `json:"created_at"`
	Status          ScheduleStatus `json:"status"`
}

// Due reports whether the schedule should be executed at the given time.
func (s *AutoSaveSchedule) Due(now int64) bool {
	return s.Status == ScheduleStatusActive && now >= s.NextRunAt
}
