/**
 * @description
 * This file implements the Goal plan store: target-based savings with
 * fee-charged contributions and two exit paths. A completed goal pays the
 * accumulated balance (minus the protocol fee) into the user's aggregate
 * ledger; an incomplete goal can be broken early for the separate early-break
 * fee, after which it is delisted from the owner's goal index.
 *
 * @notes
 * - Completion is evaluated immediately on create (a qualifying initial
 *   deposit completes the goal on the spot) and re-evaluated on every deposit.
 * - Both exit paths close the plan and credit the user's ledger inside one
 *   unit of work, so a storage failure can never close the goal without
 *   paying out or vice versa.
 * - There is no redis SREM in the repository API; delisting a broken goal is
 *   modeled by the Broken status, which listing views filter out.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/google/uuid"

	"github.com/nestvault/savings-service/internal/domain"
	"github.com/nestvault/savings-service/internal/store"
)

// GoalExit describes the outcome of a completed-withdraw or an early break.
type GoalExit struct {
	Gross int64 `json:"gross"`
	Fee   int64 `json:"fee"`
	Net   int64 `json:"net"`
}

// CreateGoalPlan opens a new goal with an optional initial deposit. The
// protocol fee is charged on the initial deposit before it is credited.
func (s *Service) CreateGoalPlan(ctx context.Context, userID uuid.UUID, name string, target, initialDeposit int64) (*domain.GoalPlan, error) {
	if err := s.requireNotPaused(ctx); err != nil {
		return nil, err
	}
	if target <= 0 || initialDeposit < 0 {
		return nil, ErrInvalidAmount
	}

	user, err := s.requireUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	cfg, err := s.protocolConfig(ctx)
	if err != nil {
		return nil, err
	}
	fee := CalculateFee(initialDeposit, cfg.ProtocolFeeBps)
	net, err := NetAfterFee(initialDeposit, fee)
	if err != nil {
		return nil, err
	}

	id, err := s.repo.NextGoalID(ctx)
	if err != nil {
		return nil, fmt.Errorf("allocate goal id: %w", err)
	}

	plan := &domain.GoalPlan{
		ID:            id,
		Owner:         userID,
		Name:          name,
		TargetAmount:  target,
		CurrentAmount: net,
		CreatedAt:     s.nowUnix(),
		Status:        domain.GoalStatusLive,
	}
	if net >= target {
		plan.Status = domain.GoalStatusCompleted
	}

	var routed bool
	err = s.repo.Update(ctx, nil, func(tx store.Tx) error {
		if err := tx.SaveGoalPlan(ctx, plan); err != nil {
			return fmt.Errorf("save goal plan %d: %w", id, err)
		}
		tx.AddGoalPlanToOwner(ctx, userID, id)
		tx.IncrSavingsCount(ctx, user.ID)
		routed = s.stageFee(ctx, tx, cfg, fee)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if routed {
		s.emitFeeEvent(ctx, userID, cfg.FeeRecipient, fee, "goal_create")
	}

	log.Printf("CreateGoalPlan: user=%s goal=%d target=%d initial=%d fee=%d", userID, id, target, initialDeposit, fee)
	s.publishEvent(ctx, "savings.goal.created", map[string]any{
		"user_id": userID, "goal_id": id, "target": target, "initial": net,
	})
	return plan, nil
}

// DepositToGoal adds a fee-charged contribution to a live goal.
func (s *Service) DepositToGoal(ctx context.Context, userID uuid.UUID, goalID uint64, amount int64) (*domain.GoalPlan, error) {
	if err := s.requireNotPaused(ctx); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	cfg, err := s.protocolConfig(ctx)
	if err != nil {
		return nil, err
	}
	fee := CalculateFee(amount, cfg.ProtocolFeeBps)
	net, err := NetAfterFee(amount, fee)
	if err != nil {
		return nil, err
	}

	var (
		plan   *domain.GoalPlan
		routed bool
	)
	guards := []store.Guard{store.GuardGoalPlan(goalID)}
	err = s.repo.Update(ctx, guards, func(tx store.Tx) error {
		var err error
		plan, err = s.txGoalPlan(ctx, tx, goalID)
		if err != nil {
			return err
		}
		if plan.Owner != userID {
			return ErrUnauthorized
		}
		if !plan.Open() {
			return ErrPlanCompleted
		}
		if plan.CurrentAmount > math.MaxInt64-net {
			return ErrOverflow
		}

		plan.CurrentAmount += net
		if plan.CurrentAmount >= plan.TargetAmount {
			plan.Status = domain.GoalStatusCompleted
		}
		if err := tx.SaveGoalPlan(ctx, plan); err != nil {
			return fmt.Errorf("save goal plan %d: %w", goalID, err)
		}
		routed = s.stageFee(ctx, tx, cfg, fee)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if routed {
		s.emitFeeEvent(ctx, userID, cfg.FeeRecipient, fee, "goal_deposit")
	}

	log.Printf("DepositToGoal: user=%s goal=%d amount=%d fee=%d current=%d", userID, goalID, amount, fee, plan.CurrentAmount)
	s.publishEvent(ctx, "savings.goal.deposited", map[string]any{
		"user_id": userID, "goal_id": goalID, "amount": amount, "net": net,
	})
	return plan, nil
}

// WithdrawCompletedGoal pays out a completed goal. The protocol fee is taken
// from the accumulated balance and the net is credited to the user's ledger.
func (s *Service) WithdrawCompletedGoal(ctx context.Context, userID uuid.UUID, goalID uint64) (*GoalExit, error) {
	if err := s.requireNotPaused(ctx); err != nil {
		return nil, err
	}

	cfg, err := s.protocolConfig(ctx)
	if err != nil {
		return nil, err
	}

	var (
		exit   *GoalExit
		routed bool
	)
	guards := []store.Guard{store.GuardGoalPlan(goalID), store.GuardUser(userID)}
	err = s.repo.Update(ctx, guards, func(tx store.Tx) error {
		user, err := s.txUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		plan, err := s.txGoalPlan(ctx, tx, goalID)
		if err != nil {
			return err
		}
		if plan.Owner != userID {
			return ErrUnauthorized
		}
		switch plan.Status {
		case domain.GoalStatusLive:
			return ErrTooEarly
		case domain.GoalStatusWithdrawn, domain.GoalStatusBroken:
			return ErrPlanCompleted
		}

		fee := CalculateFee(plan.CurrentAmount, cfg.ProtocolFeeBps)
		net, err := NetAfterFee(plan.CurrentAmount, fee)
		if err != nil {
			return err
		}
		if err := s.stageLedgerCredit(ctx, tx, user, net); err != nil {
			return err
		}

		exit = &GoalExit{Gross: plan.CurrentAmount, Fee: fee, Net: net}
		plan.Status = domain.GoalStatusWithdrawn
		if err := tx.SaveGoalPlan(ctx, plan); err != nil {
			return fmt.Errorf("save goal plan %d: %w", goalID, err)
		}
		routed = s.stageFee(ctx, tx, cfg, fee)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if routed {
		s.emitFeeEvent(ctx, userID, cfg.FeeRecipient, exit.Fee, "goal_withdraw")
	}

	log.Printf("WithdrawCompletedGoal: user=%s goal=%d gross=%d fee=%d net=%d", userID, goalID, exit.Gross, exit.Fee, exit.Net)
	s.publishEvent(ctx, "savings.goal.withdrawn", map[string]any{
		"user_id": userID, "goal_id": goalID, "net": exit.Net,
	})
	return exit, nil
}

// BreakGoal exits an incomplete goal early. The early-break fee is charged on
// the accumulated balance and the net is credited to the user's ledger.
func (s *Service) BreakGoal(ctx context.Context, userID uuid.UUID, goalID uint64) (*GoalExit, error) {
	if err := s.requireNotPaused(ctx); err != nil {
		return nil, err
	}

	cfg, err := s.protocolConfig(ctx)
	if err != nil {
		return nil, err
	}

	var (
		exit   *GoalExit
		routed bool
	)
	guards := []store.Guard{store.GuardGoalPlan(goalID), store.GuardUser(userID)}
	err = s.repo.Update(ctx, guards, func(tx store.Tx) error {
		user, err := s.txUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		plan, err := s.txGoalPlan(ctx, tx, goalID)
		if err != nil {
			return err
		}
		if plan.Owner != userID {
			return ErrUnauthorized
		}
		if !plan.Breakable() {
			return ErrPlanCompleted
		}

		fee := CalculateFee(plan.CurrentAmount, cfg.EarlyBreakFeeBps)
		net, err := NetAfterFee(plan.CurrentAmount, fee)
		if err != nil {
			return err
		}
		if err := s.stageLedgerCredit(ctx, tx, user, net); err != nil {
			return err
		}

		exit = &GoalExit{Gross: plan.CurrentAmount, Fee: fee, Net: net}
		plan.Status = domain.GoalStatusBroken
		if err := tx.SaveGoalPlan(ctx, plan); err != nil {
			return fmt.Errorf("save goal plan %d: %w", goalID, err)
		}
		routed = s.stageFee(ctx, tx, cfg, fee)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if routed {
		s.emitFeeEvent(ctx, userID, cfg.FeeRecipient, exit.Fee, "goal_break")
	}

	log.Printf("BreakGoal: user=%s goal=%d gross=%d fee=%d net=%d", userID, goalID, exit.Gross, exit.Fee, exit.Net)
	s.publishEvent(ctx, "savings.goal.broken", map[string]any{
		"user_id": userID, "goal_id": goalID, "net": exit.Net,
	})
	return exit, nil
}

// GetGoalPlan returns a goal plan by id.
func (s *Service) GetGoalPlan(ctx context.Context, goalID uint64) (*domain.GoalPlan, error) {
	plan, err := s.repo.FindGoalPlanByID(ctx, goalID)
	if errors.Is(err, store.ErrPlanNotFound) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load goal plan %d: %w", goalID, err)
	}
	return plan, nil
}

func (s *Service) txGoalPlan(ctx context.Context, tx store.Tx, goalID uint64) (*domain.GoalPlan, error) {
	plan, err := tx.FindGoalPlanByID(ctx, goalID)
	if errors.Is(err, store.ErrPlanNotFound) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load goal plan %d: %w", goalID, err)
	}
	return plan, nil
}

// ListGoalPlans returns the user's goals filtered by status. Broken goals are
// delisted and never returned.
func (s *Service) ListGoalPlans(ctx context.Context, userID uuid.UUID, statuses ...domain.GoalStatus) ([]domain.GoalPlan, error) {
	ids, err := s.repo.FindGoalPlanIDsByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list goal plans %s: %w", userID, err)
	}
	plans := make([]domain.GoalPlan, 0, len(ids))
	for _, id := range ids {
		plan, err := s.repo.FindGoalPlanByID(ctx, id)
		if errors.Is(err, store.ErrPlanNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load goal plan %d: %w", id, err)
		}
		if plan.Status == domain.GoalStatusBroken {
			continue
		}
		if len(statuses) > 0 && !goalStatusIn(plan.Status, statuses) {
			continue
		}
		plans = append(plans, *plan)
	}
	return plans, nil
}

func goalStatusIn(status domain.GoalStatus, set []domain.GoalStatus) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}
