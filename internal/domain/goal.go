/**
 * @description
 * This file defines the Goal plan domain model: a personal accumulation plan
 * with a target amount. Contributions are fee-charged on the way in; reaching
 * the target completes the goal, after which the full balance can be withdrawn.
 * An incomplete goal can be broken early for an extra fee.
 */

package domain

import "github.com/google/uuid"

// GoalStatus is the lifecycle state of a goal plan.
type GoalStatus string

const (
	GoalStatusLive      GoalStatus = "live"
	GoalStatusCompleted GoalStatus = "completed"
	GoalStatusWithdrawn GoalStatus = "withdrawn"
	GoalStatusBroken    GoalStatus = "broken"
)

// GoalPlan is a target-based savings plan owned by a single user.
type GoalPlan struct {
	ID            uint64     `json:"id"`
	Owner         uuid.UUID  `json:"owner"`
	Name          string     `json:"name"`
	TargetAmount  int64      `json:"target_amount"`
	CurrentAmount int64      `json:"current_amount"`
	CreatedAt     int64      `json:"created_at"`
	Status        GoalStatus `json:"status"`
}

// Open reports whether the plan can still accept contributions.
func (p *GoalPlan) Open() bool {
	return p.Status == GoalStatusLive
}

// Breakable reports whether the plan qualifies for an early break.
func (p *GoalPlan) Breakable() bool {
	return p.Status == GoalStatusLive
}
