/**
 * @description
 * This file defines the Group plan domain model: a pooled savings goal with a
 * creator, a membership roster, and per-member contribution tracking. Public
 * groups are joinable by any registered user; private groups are closed to
 * their initial membership.
 *
 * @notes
 * - Contributions into groups are not fee-charged, unlike Flexi and Goal
 *   deposits.
 * - Completion latches: once CurrentAmount reaches TargetAmount the status
 *   moves to completed and never returns to live.
 */

package domain

import "github.com/google/uuid"

// GroupStatus is the lifecycle state of a group plan.
type GroupStatus string

const (
	GroupStatusLive      GroupStatus = "live"
	GroupStatusCompleted GroupStatus = "completed"
)

// ContributionType describes how members are expected to pay into a group.
type ContributionType uint32

const (
	ContributionFixed      ContributionType = 0
	ContributionFlexible   ContributionType = 1
	ContributionPercentage ContributionType = 2
)

// Valid reports whether the contribution type is one of the known kinds.
func (t ContributionType) Valid() bool {
	return t <= ContributionPercentage
}

// GroupPlan is a pooled savings goal shared by multiple members.
type GroupPlan struct {
	ID                 uint64           `json:"id"`
	Creator            uuid.UUID        `json:"creator"`
	Title              string           `json:"title"`
	Description        string           `json:"description"`
	Category           string           `json:"category"`
	TargetAmount       int64            `json:"target_amount"`
	CurrentAmount      int64            `json:"current_amount"`
	ContributionType   ContributionType `json:"contribution_type"`
	ContributionAmount int64            `json:"contribution_amount"`
	IsPublic           bool             `json:"is_public"`
	MemberCount        uint32           `json:"member_count"`
	StartTime          int64            `json:"start_time"`
	EndTime            int64            `json:"end_time"`
	CreatedAt          int64            `json:"created_at"`
	Status             GroupStatus      `json:"status"`
}

// GroupMember records one member's stake in a group plan.
type GroupMember struct {
	GroupID     uint64    `json:"group_id"`
	UserID      uuid.UUID `json:"user_id"`
	Contributed int64     `json:"contributed"`
	JoinedAt    int64     `json:"joined_at"`
}

// Open reports whether the group can still accept contributions.
func (p *GroupPlan) Open() bool {
	return p.Status == GroupStatusLive
}
