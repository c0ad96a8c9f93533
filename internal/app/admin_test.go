package app

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSetProtocolFeeBps(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.service.SetProtocolFeeBps(ctx, env.admin, 250); err != nil {
		t.Fatalf("SetProtocolFeeBps returned error: %v", err)
	}
	cfg, err := env.service.GetProtocolConfig(ctx)
	if err != nil {
		t.Fatalf("GetProtocolConfig returned error: %v", err)
	}
	if cfg.ProtocolFeeBps != 250 {
		t.Fatalf("protocol fee = %d, want 250", cfg.ProtocolFeeBps)
	}

	// The full 10000 bps rate is the inclusive maximum.
	if err := env.service.SetProtocolFeeBps(ctx, env.admin, 10_000); err != nil {
		t.Fatalf("max rate returned error: %v", err)
	}
	if err := env.service.SetProtocolFeeBps(ctx, env.admin, 10_001); err != ErrInvalidFeeBps {
		t.Fatalf("over max: expected ErrInvalidFeeBps, got %v", err)
	}
}

func TestSetEarlyBreakFeeBps(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.service.SetEarlyBreakFeeBps(ctx, env.admin, 400); err != nil {
		t.Fatalf("SetEarlyBreakFeeBps returned error: %v", err)
	}
	cfg, err := env.service.GetProtocolConfig(ctx)
	if err != nil {
		t.Fatalf("GetProtocolConfig returned error: %v", err)
	}
	if cfg.EarlyBreakFeeBps != 400 {
		t.Fatalf("break fee = %d, want 400", cfg.EarlyBreakFeeBps)
	}
	if err := env.service.SetEarlyBreakFeeBps(ctx, env.admin, 20_000); err != ErrInvalidFeeBps {
		t.Fatalf("over max: expected ErrInvalidFeeBps, got %v", err)
	}
}

func TestAdminSurface_NonAdminRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	intruder := uuid.New()

	if err := env.service.SetProtocolFeeBps(ctx, intruder, 100); err != ErrUnauthorized {
		t.Fatalf("SetProtocolFeeBps: expected ErrUnauthorized, got %v", err)
	}
	if err := env.service.SetEarlyBreakFeeBps(ctx, intruder, 100); err != ErrUnauthorized {
		t.Fatalf("SetEarlyBreakFeeBps: expected ErrUnauthorized, got %v", err)
	}
	if err := env.service.SetFeeRecipient(ctx, intruder, uuid.New()); err != ErrUnauthorized {
		t.Fatalf("SetFeeRecipient: expected ErrUnauthorized, got %v", err)
	}
	if err := env.service.Pause(ctx, intruder); err != ErrUnauthorized {
		t.Fatalf("Pause: expected ErrUnauthorized, got %v", err)
	}
	if err := env.service.Unpause(ctx, intruder); err != ErrUnauthorized {
		t.Fatalf("Unpause: expected ErrUnauthorized, got %v", err)
	}
}

func TestAdminSurface_NoAdminConfigured(t *testing.T) {
	repo := newMemRepo()
	service := NewService(repo, &stubPublisher{}, uuid.Nil).WithClock(func() time.Time {
		return time.Unix(1_700_000_000, 0)
	})

	// With no admin configured every admin call is rejected, including one
	// from the nil principal itself.
	if err := service.Pause(context.Background(), uuid.Nil); err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestSetFeeRecipient_RedirectsFees(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	first := uuid.New()
	second := uuid.New()
	userID := env.registerUser(t)

	if err := env.service.SetProtocolFeeBps(ctx, env.admin, 100); err != nil {
		t.Fatalf("SetProtocolFeeBps returned error: %v", err)
	}
	if err := env.service.SetFeeRecipient(ctx, env.admin, first); err != nil {
		t.Fatalf("SetFeeRecipient returned error: %v", err)
	}
	if _, err := env.service.FlexiDeposit(ctx, userID, 10_000); err != nil {
		t.Fatalf("FlexiDeposit returned error: %v", err)
	}

	if err := env.service.SetFeeRecipient(ctx, env.admin, second); err != nil {
		t.Fatalf("SetFeeRecipient returned error: %v", err)
	}
	if _, err := env.service.FlexiDeposit(ctx, userID, 10_000); err != nil {
		t.Fatalf("FlexiDeposit returned error: %v", err)
	}

	firstSink, err := env.service.FeeBalance(ctx, first)
	if err != nil {
		t.Fatalf("FeeBalance returned error: %v", err)
	}
	secondSink, err := env.service.FeeBalance(ctx, second)
	if err != nil {
		t.Fatalf("FeeBalance returned error: %v", err)
	}
	if firstSink != 100 || secondSink != 100 {
		t.Fatalf("sinks = %d/%d, want 100 each", firstSink, secondSink)
	}
}

func TestFeesDroppedWithoutRecipient(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID := env.registerUser(t)

	if err := env.service.SetProtocolFeeBps(ctx, env.admin, 100); err != nil {
		t.Fatalf("SetProtocolFeeBps returned error: %v", err)
	}

	// The fee is still deducted from the user even with no recipient set.
	movement, err := env.service.FlexiDeposit(ctx, userID, 10_000)
	if err != nil {
		t.Fatalf("FlexiDeposit returned error: %v", err)
	}
	if movement.Fee != 100 || movement.NewBalance != 9900 {
		t.Fatalf("fee/balance = %d/%d, want 100/9900", movement.Fee, movement.NewBalance)
	}
	sink, err := env.service.FeeBalance(ctx, uuid.Nil)
	if err != nil {
		t.Fatalf("FeeBalance returned error: %v", err)
	}
	if sink != 0 {
		t.Fatalf("nil recipient sink = %d, want 0", sink)
	}
}

func TestPause_BlocksAllMutations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID := env.registerUser(t)

	if err := env.service.Pause(ctx, env.admin); err != nil {
		t.Fatalf("Pause returned error: %v", err)
	}

	if _, err := env.service.RegisterUser(ctx, uuid.New()); err != ErrPaused {
		t.Fatalf("RegisterUser: expected ErrPaused, got %v", err)
	}
	if _, err := env.service.CreateLockPlan(ctx, userID, 100, 3600); err != ErrPaused {
		t.Fatalf("CreateLockPlan: expected ErrPaused, got %v", err)
	}
	if _, err := env.service.CreateGoalPlan(ctx, userID, "blocked", 100, 0); err != ErrPaused {
		t.Fatalf("CreateGoalPlan: expected ErrPaused, got %v", err)
	}
	if _, err := env.service.CreateGroupPlan(ctx, userID, validGroupParams()); err != ErrPaused {
		t.Fatalf("CreateGroupPlan: expected ErrPaused, got %v", err)
	}
	if _, err := env.service.CreateAutoSave(ctx, userID, 100, 3600, env.nowUnix); err != ErrPaused {
		t.Fatalf("CreateAutoSave: expected ErrPaused, got %v", err)
	}
}
