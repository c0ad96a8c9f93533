/**
 * @description
 * This file implements the Group plan store: pooled savings goals with a
 * membership roster and per-member contribution tracking. Group contributions
 * are deliberately fee-free; the pool fills with the full contributed amount
 * and completion latches once the target is reached.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/nestvault/savings-service/internal/domain"
	"github.com/nestvault/savings-service/internal/store"
)

// CreateGroupParams carries the caller-supplied fields for a new group plan.
type CreateGroupParams struct {
	Title              string                  `json:"title"`
	Description        string                  `json:"description"`
	Category           string                  `json:"category"`
	TargetAmount       int64                   `json:"target_amount"`
	ContributionType   domain.ContributionType `json:"contribution_type"`
	ContributionAmount int64                   `json:"contribution_amount"`
	IsPublic           bool                    `json:"is_public"`
	StartTime          int64                   `json:"start_time"`
	EndTime            int64                   `json:"end_time"`
}

// CreateGroupPlan opens a new pooled goal with the creator auto-enrolled as
// its first member.
func (s *Service) CreateGroupPlan(ctx context.Context, creatorID uuid.UUID, params CreateGroupParams) (*domain.GroupPlan, error) {
	if err := s.requireNotPaused(ctx); err != nil {
		return nil, err
	}
	if params.TargetAmount <= 0 || params.ContributionAmount <= 0 {
		return nil, ErrInvalidAmount
	}
	if params.StartTime >= params.EndTime {
		return nil, ErrInvalidTimestamp
	}
	if !params.ContributionType.Valid() {
		return nil, ErrInvalidGroupConfig
	}
	if strings.TrimSpace(params.Title) == "" ||
		strings.TrimSpace(params.Description) == "" ||
		strings.TrimSpace(params.Category) == "" {
		return nil, ErrInvalidGroupConfig
	}

	creator, err := s.requireUser(ctx, creatorID)
	if err != nil {
		return nil, err
	}

	id, err := s.repo.NextGroupID(ctx)
	if err != nil {
		return nil, fmt.Errorf("allocate group id: %w", err)
	}

	now := s.nowUnix()
	plan := &domain.GroupPlan{
		ID:                 id,
		Creator:            creatorID,
		Title:              params.Title,
		Description:        params.Description,
		Category:           params.Category,
		TargetAmount:       params.TargetAmount,
		ContributionType:   params.ContributionType,
		ContributionAmount: params.ContributionAmount,
		IsPublic:           params.IsPublic,
		MemberCount:        1,
		StartTime:          params.StartTime,
		EndTime:            params.EndTime,
		CreatedAt:          now,
		Status:             domain.GroupStatusLive,
	}
	err = s.repo.Update(ctx, nil, func(tx store.Tx) error {
		if err := tx.SaveGroupPlan(ctx, plan); err != nil {
			return fmt.Errorf("save group plan %d: %w", id, err)
		}
		member := &domain.GroupMember{GroupID: id, UserID: creatorID, JoinedAt: now}
		if err := tx.SaveGroupMember(ctx, member); err != nil {
			return fmt.Errorf("enroll creator in group %d: %w", id, err)
		}
		tx.AddGroupPlanToMember(ctx, creatorID, id)
		tx.IncrSavingsCount(ctx, creator.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("CreateGroupPlan: creator=%s group=%d target=%d public=%v", creatorID, id, params.TargetAmount, params.IsPublic)
	s.publishEvent(ctx, "savings.group.created", map[string]any{
		"creator": creatorID, "group_id": id, "target": params.TargetAmount,
	})
	return plan, nil
}

// JoinGroupPlan enrolls the caller into a public group.
func (s *Service) JoinGroupPlan(ctx context.Context, userID uuid.UUID, groupID uint64) error {
	if err := s.requireNotPaused(ctx); err != nil {
		return err
	}
	if _, err := s.requireUser(ctx, userID); err != nil {
		return err
	}

	var memberCount uint32
	guards := []store.Guard{store.GuardGroupPlan(groupID), store.GuardGroupMember(groupID, userID)}
	err := s.repo.Update(ctx, guards, func(tx store.Tx) error {
		plan, err := s.txGroupPlan(ctx, tx, groupID)
		if err != nil {
			return err
		}
		if !plan.IsPublic {
			return ErrInvalidGroupConfig
		}
		if _, err := tx.FindGroupMember(ctx, groupID, userID); err == nil {
			return ErrInvalidGroupConfig
		} else if !errors.Is(err, store.ErrMemberNotFound) {
			return fmt.Errorf("check group membership %d: %w", groupID, err)
		}

		member := &domain.GroupMember{GroupID: groupID, UserID: userID, JoinedAt: s.nowUnix()}
		if err := tx.SaveGroupMember(ctx, member); err != nil {
			return fmt.Errorf("enroll member in group %d: %w", groupID, err)
		}
		plan.MemberCount++
		memberCount = plan.MemberCount
		if err := tx.SaveGroupPlan(ctx, plan); err != nil {
			return fmt.Errorf("save group plan %d: %w", groupID, err)
		}
		tx.AddGroupPlanToMember(ctx, userID, groupID)
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("JoinGroupPlan: user=%s group=%d members=%d", userID, groupID, memberCount)
	s.publishEvent(ctx, "savings.group.joined", map[string]any{
		"user_id": userID, "group_id": groupID,
	})
	return nil
}

// ContributeToGroup adds a member's contribution to the pool. No fee is
// charged on group contributions.
func (s *Service) ContributeToGroup(ctx context.Context, userID uuid.UUID, groupID uint64, amount int64) (*domain.GroupPlan, error) {
	if err := s.requireNotPaused(ctx); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var plan *domain.GroupPlan
	guards := []store.Guard{store.GuardGroupPlan(groupID), store.GuardGroupMember(groupID, userID)}
	err := s.repo.Update(ctx, guards, func(tx store.Tx) error {
		var err error
		plan, err = s.txGroupPlan(ctx, tx, groupID)
		if err != nil {
			return err
		}
		member, err := tx.FindGroupMember(ctx, groupID, userID)
		if errors.Is(err, store.ErrMemberNotFound) {
			return ErrNotGroupMember
		}
		if err != nil {
			return fmt.Errorf("check group membership %d: %w", groupID, err)
		}
		if member.Contributed > math.MaxInt64-amount || plan.CurrentAmount > math.MaxInt64-amount {
			return ErrOverflow
		}

		member.Contributed += amount
		if err := tx.SaveGroupMember(ctx, member); err != nil {
			return fmt.Errorf("save group member %s: %w", userID, err)
		}

		plan.CurrentAmount += amount
		if plan.CurrentAmount >= plan.TargetAmount {
			plan.Status = domain.GroupStatusCompleted
		}
		if err := tx.SaveGroupPlan(ctx, plan); err != nil {
			return fmt.Errorf("save group plan %d: %w", groupID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("ContributeToGroup: user=%s group=%d amount=%d pool=%d status=%s", userID, groupID, amount, plan.CurrentAmount, plan.Status)
	s.publishEvent(ctx, "savings.group.contributed", map[string]any{
		"user_id": userID, "group_id": groupID, "amount": amount,
	})
	return plan, nil
}

// GetGroupPlan returns a group plan by id.
func (s *Service) GetGroupPlan(ctx context.Context, groupID uint64) (*domain.GroupPlan, error) {
	plan, err := s.repo.FindGroupPlanByID(ctx, groupID)
	if errors.Is(err, store.ErrPlanNotFound) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load group plan %d: %w", groupID, err)
	}
	return plan, nil
}

func (s *Service) txGroupPlan(ctx context.Context, tx store.Tx, groupID uint64) (*domain.GroupPlan, error) {
	plan, err := tx.FindGroupPlanByID(ctx, groupID)
	if errors.Is(err, store.ErrPlanNotFound) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load group plan %d: %w", groupID, err)
	}
	return plan, nil
}

// GroupExists reports whether a group plan exists.
func (s *Service) GroupExists(ctx context.Context, groupID uint64) bool {
	_, err := s.repo.FindGroupPlanByID(ctx, groupID)
	return err == nil
}

// IsGroupMember reports whether the user belongs to the group.
func (s *Service) IsGroupMember(ctx context.Context, groupID uint64, userID uuid.UUID) bool {
	_, err := s.repo.FindGroupMember(ctx, groupID, userID)
	return err == nil
}

// GroupMembers returns the full membership roster of a group.
func (s *Service) GroupMembers(ctx context.Context, groupID uint64) ([]domain.GroupMember, error) {
	if _, err := s.GetGroupPlan(ctx, groupID); err != nil {
		return nil, err
	}
	members, err := s.repo.FindGroupMembers(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("list group members %d: %w", groupID, err)
	}
	return members, nil
}

// MemberContribution returns how much one member has paid into a group.
// Non-members report zero.
func (s *Service) MemberContribution(ctx context.Context, groupID uint64, userID uuid.UUID) int64 {
	member, err := s.repo.FindGroupMember(ctx, groupID, userID)
	if err != nil {
		return 0
	}
	return member.Contributed
}

// ListGroupPlans returns the groups the user belongs to, optionally filtered
// by status.
func (s *Service) ListGroupPlans(ctx context.Context, userID uuid.UUID, statuses ...domain.GroupStatus) ([]domain.GroupPlan, error) {
	ids, err := s.repo.FindGroupPlanIDsByMember(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list group plans %s: %w", userID, err)
	}
	plans := make([]domain.GroupPlan, 0, len(ids))
	for _, id := range ids {
		plan, err := s.repo.FindGroupPlanByID(ctx, id)
		if errors.Is(err, store.ErrPlanNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load group plan %d: %w", id, err)
		}
		if len(statuses) > 0 && !groupStatusIn(plan.Status, statuses) {
			continue
		}
		plans = append(plans, *plan)
	}
	return plans, nil
}

func groupStatusIn(status domain.GroupStatus, set []domain.GroupStatus) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}
