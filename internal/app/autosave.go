/**
 * @description
 * This file implements the AutoSave schedule store: recurring standing orders
 * that deposit into the owner's Flexi account. Batch execution is the
 * workhorse the cron sweep calls: it processes every id independently,
 * reports per-item success in input order, and never fails as a whole.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/nestvault/savings-service/internal/domain"
	"github.com/nestvault/savings-service/internal/store"
)

// CreateAutoSave registers a new recurring deposit schedule. The first run is
// due at startTime.
func (s *Service) CreateAutoSave(ctx context.Context, userID uuid.UUID, amount, intervalSeconds, startTime int64) (*domain.AutoSaveSchedule, error) {
	if err := s.requireNotPaused(ctx); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if intervalSeconds <= 0 {
		return nil, ErrInvalidTimestamp
	}
	if _, err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	id, err := s.repo.NextScheduleID(ctx)
	if err != nil {
		return nil, fmt.Errorf("allocate schedule id: %w", err)
	}

	schedule := &domain.AutoSaveSchedule{
		ID:              id,
		Owner:           userID,
		Amount:          amount,
		IntervalSeconds: intervalSeconds,
		NextRunAt:       startTime,
		CreatedAt:       s.nowUnix(),
		Status:          domain.ScheduleStatusActive,
	}
	err = s.repo.Update(ctx, nil, func(tx store.Tx) error {
		if err := tx.SaveSchedule(ctx, schedule); err != nil {
			return fmt.Errorf("save schedule %d: %w", id, err)
		}
		tx.AddScheduleToOwner(ctx, userID, id)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("CreateAutoSave: user=%s schedule=%d amount=%d interval=%d", userID, id, amount, intervalSeconds)
	s.publishEvent(ctx, "savings.autosave.created", map[string]any{
		"user_id": userID, "schedule_id": id, "amount": amount,
	})
	return schedule, nil
}

// executeSchedule runs one due schedule: the Flexi deposit and the next-run
// advance commit in the same unit of work, so a schedule can never advance
// without its deposit landing. The schedule owner is immutable, so the
// preview read outside the unit safely names the guard keys.
func (s *Service) executeSchedule(ctx context.Context, scheduleID uint64) (*domain.AutoSaveSchedule, *FlexiMovement, bool, error) {
	preview, err := s.repo.FindScheduleByID(ctx, scheduleID)
	if errors.Is(err, store.ErrScheduleNotFound) {
		return nil, nil, false, ErrPlanNotFound
	}
	if err != nil {
		return nil, nil, false, fmt.Errorf("load schedule %d: %w", scheduleID, err)
	}

	cfg, err := s.protocolConfig(ctx)
	if err != nil {
		return nil, nil, false, err
	}
	if cfg.Paused {
		return nil, nil, false, ErrPaused
	}

	var (
		schedule *domain.AutoSaveSchedule
		movement *FlexiMovement
		routed   bool
	)
	guards := []store.Guard{
		store.GuardSchedule(scheduleID),
		store.GuardUser(preview.Owner),
		store.GuardFlexi(preview.Owner),
	}
	err = s.repo.Update(ctx, guards, func(tx store.Tx) error {
		var err error
		schedule, err = tx.FindScheduleByID(ctx, scheduleID)
		if errors.Is(err, store.ErrScheduleNotFound) {
			return ErrPlanNotFound
		}
		if err != nil {
			return fmt.Errorf("load schedule %d: %w", scheduleID, err)
		}
		if schedule.Status != domain.ScheduleStatusActive {
			return ErrInvalidPlanConfig
		}
		if s.nowUnix() < schedule.NextRunAt {
			return ErrInvalidTimestamp
		}

		movement, routed, err = s.stageFlexiDeposit(ctx, tx, cfg, schedule.Owner, schedule.Amount)
		if err != nil {
			return err
		}

		schedule.NextRunAt += schedule.IntervalSeconds
		if err := tx.SaveSchedule(ctx, schedule); err != nil {
			return fmt.Errorf("save schedule %d: %w", scheduleID, err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, false, err
	}
	if routed {
		s.emitFeeEvent(ctx, schedule.Owner, cfg.FeeRecipient, movement.Fee, "flexi_deposit")
	}
	return schedule, movement, routed, nil
}

// ExecuteAutoSave runs a single schedule: it performs the Flexi deposit and
// advances the next run time by one interval.
func (s *Service) ExecuteAutoSave(ctx context.Context, scheduleID uint64) error {
	schedule, movement, _, err := s.executeSchedule(ctx, scheduleID)
	if err != nil {
		return err
	}

	s.publishEvent(ctx, "savings.flexi.deposited", map[string]any{
		"user_id": schedule.Owner, "amount": schedule.Amount, "fee": movement.Fee, "net": movement.Net,
	})
	s.publishEvent(ctx, "savings.autosave.executed", map[string]any{
		"user_id": schedule.Owner, "schedule_id": scheduleID, "amount": schedule.Amount,
	})
	return nil
}

// ExecuteDueAutoSaves runs a batch of schedules and reports per-item success
// in input order. A missing, inactive, or not-yet-due schedule yields false
// for that slot, as does a failed deposit, without affecting its siblings.
// The call itself never fails.
func (s *Service) ExecuteDueAutoSaves(ctx context.Context, scheduleIDs []uint64) []bool {
	results := make([]bool, 0, len(scheduleIDs))

	for _, id := range scheduleIDs {
		schedule, _, _, err := s.executeSchedule(ctx, id)
		if err != nil {
			if !scheduleSkipped(err) {
				log.Printf("ExecuteDueAutoSaves: schedule=%d failed: %v", id, err)
			}
			results = append(results, false)
			continue
		}
		s.publishEvent(ctx, "savings.autosave.executed", map[string]any{
			"user_id": schedule.Owner, "schedule_id": id, "amount": schedule.Amount,
		})
		results = append(results, true)
	}

	return results
}

// scheduleSkipped reports whether a batch item failed for a routine reason
// that does not warrant a log line.
func scheduleSkipped(err error) bool {
	return errors.Is(err, ErrPlanNotFound) ||
		errors.Is(err, ErrInvalidPlanConfig) ||
		errors.Is(err, ErrInvalidTimestamp)
}

// CancelAutoSave turns a schedule off permanently.
func (s *Service) CancelAutoSave(ctx context.Context, userID uuid.UUID, scheduleID uint64) error {
	if err := s.requireNotPaused(ctx); err != nil {
		return err
	}

	guards := []store.Guard{store.GuardSchedule(scheduleID)}
	err := s.repo.Update(ctx, guards, func(tx store.Tx) error {
		schedule, err := tx.FindScheduleByID(ctx, scheduleID)
		if errors.Is(err, store.ErrScheduleNotFound) {
			return ErrPlanNotFound
		}
		if err != nil {
			return fmt.Errorf("load schedule %d: %w", scheduleID, err)
		}
		if schedule.Owner != userID {
			return ErrUnauthorized
		}

		schedule.Status = domain.ScheduleStatusCancelled
		if err := tx.SaveSchedule(ctx, schedule); err != nil {
			return fmt.Errorf("save schedule %d: %w", scheduleID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("CancelAutoSave: user=%s schedule=%d", userID, scheduleID)
	s.publishEvent(ctx, "savings.autosave.cancelled", map[string]any{
		"user_id": userID, "schedule_id": scheduleID,
	})
	return nil
}

// GetAutoSave returns a schedule by id.
func (s *Service) GetAutoSave(ctx context.Context, scheduleID uint64) (*domain.AutoSaveSchedule, error) {
	schedule, err := s.repo.FindScheduleByID(ctx, scheduleID)
	if errors.Is(err, store.ErrScheduleNotFound) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load schedule %d: %w", scheduleID, err)
	}
	return schedule, nil
}

// ListAutoSaveIDs returns the ids of all schedules the user has created.
func (s *Service) ListAutoSaveIDs(ctx context.Context, userID uuid.UUID) ([]uint64, error) {
	ids, err := s.repo.FindScheduleIDsByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list schedules %s: %w", userID, err)
	}
	return ids, nil
}
