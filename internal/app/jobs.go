/**
 * @description
 * Scheduled job implementations for the savings-service.
 */
package app

import (
	"context"
	"log/slog"
)

// Jobs contains the logic for all scheduled tasks.
type Jobs struct {
	service *Service
	logger  *slog.Logger
}

// NewJobs creates a new Jobs runner.
func NewJobs(service *Service, logger *slog.Logger) *Jobs {
	return &Jobs{
		service: service,
		logger:  logger,
	}
}

// SweepDueAutoSaves is the job that executes every autosave schedule that has
// come due since the last sweep.
func (j *Jobs) SweepDueAutoSaves() {
	j.logger.Info("starting autosave sweep job")
	ctx := context.Background()

	ids, err := j.service.repo.AllScheduleIDs(ctx)
	if err != nil {
		j.logger.Error("failed to list autosave schedules", "error", err)
		return
	}

	if len(ids) == 0 {
		j.logger.Info("no autosave schedules to process")
		return
	}

	results := j.service.ExecuteDueAutoSaves(ctx, ids)

	executed := 0
	for _, ok := range results {
		if ok {
			executed++
		}
	}

	j.logger.Info("autosave sweep job finished", "schedules", len(ids), "executed", executed, "skipped", len(ids)-executed)
}
