/**
 * @description
 * This file implements the Lock plan store: fixed-term deposits that accrue
 * simple annual interest and can only be withdrawn once matured. The payout is
 * computed with shopspring/decimal to keep the interest arithmetic exact in
 * the face of fractional year spans.
 *
 * @notes
 * - The payout is returned to the caller and intentionally not folded back
 *   into the user's aggregate ledger; lock principal never entered
 *   TotalBalance either, so the ledger stays consistent.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nestvault/savings-service/internal/domain"
	"github.com/nestvault/savings-service/internal/store"
)

// secondsPerYear uses the Julian year (365.25 days) for interest accrual.
const secondsPerYear = 31557600

// CreateLockPlan opens a new time-locked deposit for the caller.
func (s *Service) CreateLockPlan(ctx context.Context, userID uuid.UUID, amount int64, durationSeconds int64) (*domain.LockPlan, error) {
	if err := s.requireNotPaused(ctx); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if durationSeconds <= 0 {
		return nil, ErrInvalidTimestamp
	}

	user, err := s.requireUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.nowUnix()
	if durationSeconds > math.MaxInt64-now {
		return nil, ErrOverflow
	}

	id, err := s.repo.NextLockID(ctx)
	if err != nil {
		return nil, fmt.Errorf("allocate lock id: %w", err)
	}

	plan := &domain.LockPlan{
		ID:           id,
		Owner:        userID,
		Amount:       amount,
		InterestBps:  DefaultLockInterestBps,
		CreatedAt:    now,
		MaturityTime: now + durationSeconds,
		Status:       domain.LockStatusLocked,
	}
	err = s.repo.Update(ctx, nil, func(tx store.Tx) error {
		if err := tx.SaveLockPlan(ctx, plan); err != nil {
			return fmt.Errorf("save lock plan %d: %w", id, err)
		}
		tx.AddLockPlanToOwner(ctx, userID, id)
		tx.IncrSavingsCount(ctx, user.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("CreateLockPlan: user=%s lock=%d amount=%d maturity=%d", userID, id, amount, plan.MaturityTime)
	s.publishEvent(ctx, "savings.lock.created", map[string]any{
		"user_id": userID, "lock_id": id, "amount": amount, "maturity_time": plan.MaturityTime,
	})
	return plan, nil
}

// LockMatured reports whether a lock plan has reached its maturity time.
// Missing plans report false.
func (s *Service) LockMatured(ctx context.Context, lockID uint64) bool {
	plan, err := s.repo.FindLockPlanByID(ctx, lockID)
	if err != nil {
		return false
	}
	return plan.Matured(s.nowUnix())
}

// GetLockPlan returns a lock plan by id.
func (s *Service) GetLockPlan(ctx context.Context, lockID uint64) (*domain.LockPlan, error) {
	plan, err := s.repo.FindLockPlanByID(ctx, lockID)
	if errors.Is(err, store.ErrPlanNotFound) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load lock plan %d: %w", lockID, err)
	}
	return plan, nil
}

// WithdrawLockPlan closes a matured lock plan and returns the payout with
// accrued simple interest.
func (s *Service) WithdrawLockPlan(ctx context.Context, userID uuid.UUID, lockID uint64) (int64, error) {
	if err := s.requireNotPaused(ctx); err != nil {
		return 0, err
	}

	var payout int64
	guards := []store.Guard{store.GuardLockPlan(lockID)}
	err := s.repo.Update(ctx, guards, func(tx store.Tx) error {
		plan, err := tx.FindLockPlanByID(ctx, lockID)
		if errors.Is(err, store.ErrPlanNotFound) {
			return ErrPlanNotFound
		}
		if err != nil {
			return fmt.Errorf("load lock plan %d: %w", lockID, err)
		}
		if plan.Owner != userID {
			return ErrUnauthorized
		}
		if plan.Status == domain.LockStatusWithdrawn {
			return ErrPlanCompleted
		}
		now := s.nowUnix()
		if !plan.Matured(now) {
			return ErrTooEarly
		}

		plan.Status = domain.LockStatusWithdrawn
		if err := tx.SaveLockPlan(ctx, plan); err != nil {
			return fmt.Errorf("save lock plan %d: %w", lockID, err)
		}
		payout = lockPayout(plan, now)
		return nil
	})
	if err != nil {
		return 0, err
	}
	log.Printf("WithdrawLockPlan: user=%s lock=%d payout=%d", userID, lockID, payout)
	s.publishEvent(ctx, "savings.lock.withdrawn", map[string]any{
		"user_id": userID, "lock_id": lockID, "payout": payout,
	})
	return payout, nil
}

// ListLockPlanIDs returns the ids of all lock plans the user has opened.
func (s *Service) ListLockPlanIDs(ctx context.Context, userID uuid.UUID) ([]uint64, error) {
	ids, err := s.repo.FindLockPlanIDsByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list lock plans %s: %w", userID, err)
	}
	return ids, nil
}

// ListLockPlans returns the user's open lock plans. Withdrawn plans never
// appear; with maturedOnly the result narrows to plans past maturity, while
// the ongoing view keeps matured plans until the owner withdraws them.
func (s *Service) ListLockPlans(ctx context.Context, userID uuid.UUID, maturedOnly bool) ([]domain.LockPlan, error) {
	ids, err := s.ListLockPlanIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.nowUnix()
	plans := make([]domain.LockPlan, 0, len(ids))
	for _, id := range ids {
		plan, err := s.repo.FindLockPlanByID(ctx, id)
		if errors.Is(err, store.ErrPlanNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load lock plan %d: %w", id, err)
		}
		if plan.Status == domain.LockStatusWithdrawn {
			continue
		}
		if maturedOnly && !plan.Matured(now) {
			continue
		}
		plans = append(plans, *plan)
	}
	return plans, nil
}

// lockPayout computes principal × (1 + rate × elapsed/secondsPerYear) with
// simple interest, truncated to whole minor units.
func lockPayout(plan *domain.LockPlan, now int64) int64 {
	elapsed := now - plan.CreatedAt
	if elapsed < 0 {
		elapsed = 0
	}
	rate := decimal.New(int64(plan.InterestBps), 0).Div(decimal.New(bpsDenominator, 0))
	years := decimal.New(elapsed, 0).Div(decimal.New(secondsPerYear, 0))
	multiplier := decimal.New(1, 0).Add(rate.Mul(years))
	return decimal.New(plan.Amount, 0).Mul(multiplier).IntPart()
}
