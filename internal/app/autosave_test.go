package app

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/nestvault/savings-service/internal/domain"
)

func TestCreateAutoSave(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID := env.registerUser(t)

	start := env.nowUnix + 3600
	schedule, err := env.service.CreateAutoSave(ctx, userID, 250, 86_400, start)
	if err != nil {
		t.Fatalf("CreateAutoSave returned error: %v", err)
	}
	if schedule.NextRunAt != start {
		t.Fatalf("next run = %d, want %d", schedule.NextRunAt, start)
	}
	if schedule.Status != domain.ScheduleStatusActive {
		t.Fatalf("status = %s, want %s", schedule.Status, domain.ScheduleStatusActive)
	}

	if _, err := env.service.CreateAutoSave(ctx, userID, 0, 86_400, start); err != ErrInvalidAmount {
		t.Fatalf("zero amount: expected ErrInvalidAmount, got %v", err)
	}
	if _, err := env.service.CreateAutoSave(ctx, userID, 250, 0, start); err != ErrInvalidTimestamp {
		t.Fatalf("zero interval: expected ErrInvalidTimestamp, got %v", err)
	}
	if _, err := env.service.CreateAutoSave(ctx, uuid.New(), 250, 86_400, start); err != ErrUserNotFound {
		t.Fatalf("unregistered user: expected ErrUserNotFound, got %v", err)
	}
}

func TestExecuteAutoSave_DepositsAndAdvances(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID := env.registerUser(t)

	schedule, err := env.service.CreateAutoSave(ctx, userID, 250, 86_400, env.nowUnix)
	if err != nil {
		t.Fatalf("CreateAutoSave returned error: %v", err)
	}

	if err := env.service.ExecuteAutoSave(ctx, schedule.ID); err != nil {
		t.Fatalf("ExecuteAutoSave returned error: %v", err)
	}

	balance, err := env.service.FlexiBalance(ctx, userID)
	if err != nil {
		t.Fatalf("FlexiBalance returned error: %v", err)
	}
	if balance != 250 {
		t.Fatalf("balance = %d, want 250", balance)
	}

	stored, err := env.service.GetAutoSave(ctx, schedule.ID)
	if err != nil {
		t.Fatalf("GetAutoSave returned error: %v", err)
	}
	if stored.NextRunAt != schedule.NextRunAt+86_400 {
		t.Fatalf("next run = %d, want %d", stored.NextRunAt, schedule.NextRunAt+86_400)
	}

	// Immediately re-executing is too early for the advanced schedule.
	if err := env.service.ExecuteAutoSave(ctx, schedule.ID); err != ErrInvalidTimestamp {
		t.Fatalf("early re-execute: expected ErrInvalidTimestamp, got %v", err)
	}
}

func TestExecuteAutoSave_Rejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID := env.registerUser(t)

	if err := env.service.ExecuteAutoSave(ctx, 999); err != ErrPlanNotFound {
		t.Fatalf("missing schedule: expected ErrPlanNotFound, got %v", err)
	}

	schedule, err := env.service.CreateAutoSave(ctx, userID, 250, 86_400, env.nowUnix)
	if err != nil {
		t.Fatalf("CreateAutoSave returned error: %v", err)
	}
	if err := env.service.CancelAutoSave(ctx, userID, schedule.ID); err != nil {
		t.Fatalf("CancelAutoSave returned error: %v", err)
	}
	if err := env.service.ExecuteAutoSave(ctx, schedule.ID); err != ErrInvalidPlanConfig {
		t.Fatalf("cancelled schedule: expected ErrInvalidPlanConfig, got %v", err)
	}
}

func TestExecuteDueAutoSaves_BatchIsolation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	healthy := env.registerUser(t)
	broken := env.registerUser(t)

	due, err := env.service.CreateAutoSave(ctx, healthy, 100, 3600, env.nowUnix)
	if err != nil {
		t.Fatalf("CreateAutoSave returned error: %v", err)
	}
	notDue, err := env.service.CreateAutoSave(ctx, healthy, 100, 3600, env.nowUnix+7200)
	if err != nil {
		t.Fatalf("CreateAutoSave returned error: %v", err)
	}
	failing, err := env.service.CreateAutoSave(ctx, broken, 100, 3600, env.nowUnix)
	if err != nil {
		t.Fatalf("CreateAutoSave returned error: %v", err)
	}
	cancelled, err := env.service.CreateAutoSave(ctx, healthy, 100, 3600, env.nowUnix)
	if err != nil {
		t.Fatalf("CreateAutoSave returned error: %v", err)
	}
	if err := env.service.CancelAutoSave(ctx, healthy, cancelled.ID); err != nil {
		t.Fatalf("CancelAutoSave returned error: %v", err)
	}

	// Make the broken user's balance writes fail so its deposit errors out.
	env.repo.failFlexiWriteFor = broken

	ids := []uint64{due.ID, notDue.ID, failing.ID, cancelled.ID, 999}
	results := env.service.ExecuteDueAutoSaves(ctx, ids)
	want := []bool{true, false, false, false, false}
	if len(results) != len(want) {
		t.Fatalf("results length = %d, want %d", len(results), len(want))
	}
	for i := range want {
		if results[i] != want[i] {
			t.Fatalf("results[%d] = %v, want %v (ids %v)", i, results[i], want[i], ids)
		}
	}

	// Only the due schedule deposited and advanced.
	balance, err := env.service.FlexiBalance(ctx, healthy)
	if err != nil {
		t.Fatalf("FlexiBalance returned error: %v", err)
	}
	if balance != 100 {
		t.Fatalf("balance = %d, want 100", balance)
	}

	// A failed deposit must not consume the schedule's run slot.
	stored, err := env.service.GetAutoSave(ctx, failing.ID)
	if err != nil {
		t.Fatalf("GetAutoSave returned error: %v", err)
	}
	if stored.NextRunAt != failing.NextRunAt {
		t.Fatalf("failed schedule advanced: next run = %d, want %d", stored.NextRunAt, failing.NextRunAt)
	}
}

func TestExecuteDueAutoSaves_EmptyBatch(t *testing.T) {
	env := newTestEnv(t)

	results := env.service.ExecuteDueAutoSaves(context.Background(), nil)
	if len(results) != 0 {
		t.Fatalf("results = %v, want empty", results)
	}
}

func TestExecuteDueAutoSaves_RepeatSweepsAdvance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID := env.registerUser(t)

	schedule, err := env.service.CreateAutoSave(ctx, userID, 50, 3600, env.nowUnix)
	if err != nil {
		t.Fatalf("CreateAutoSave returned error: %v", err)
	}
	ids := []uint64{schedule.ID}

	if results := env.service.ExecuteDueAutoSaves(ctx, ids); !results[0] {
		t.Fatal("first sweep should execute the due schedule")
	}
	if results := env.service.ExecuteDueAutoSaves(ctx, ids); results[0] {
		t.Fatal("second sweep within the interval should skip the schedule")
	}

	env.advance(3600)
	if results := env.service.ExecuteDueAutoSaves(ctx, ids); !results[0] {
		t.Fatal("sweep after one interval should execute again")
	}

	balance, err := env.service.FlexiBalance(ctx, userID)
	if err != nil {
		t.Fatalf("FlexiBalance returned error: %v", err)
	}
	if balance != 100 {
		t.Fatalf("balance = %d, want 100 after two executions", balance)
	}
}

func TestCancelAutoSave_OwnerOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.registerUser(t)
	stranger := env.registerUser(t)

	schedule, err := env.service.CreateAutoSave(ctx, owner, 250, 86_400, env.nowUnix)
	if err != nil {
		t.Fatalf("CreateAutoSave returned error: %v", err)
	}
	if err := env.service.CancelAutoSave(ctx, stranger, schedule.ID); err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := env.service.CancelAutoSave(ctx, owner, 999); err != ErrPlanNotFound {
		t.Fatalf("missing schedule: expected ErrPlanNotFound, got %v", err)
	}
}
