/**
 * @description
 * This file contains the core business logic for the savings-service. The
 * `Service` struct orchestrates all savings operations, coordinating between
 * the storage repository and the message broker, and holds the cross-cutting
 * rules every product shares: the pause gate, fee routing to the configured
 * recipient, and the per-user aggregate ledger.
 *
 * Key features:
 * - Owns the injectable clock so time-dependent rules (lock maturity, autosave
 *   due checks) are deterministic under test.
 * - Routes fees through the fee sink and publishes fee events to RabbitMQ.
 * - Enforces the global pause switch on every state-mutating entry point.
 *
 * @dependencies
 * - context, errors, fmt, log, time: Standard Go libraries.
 * - github.com/google/uuid: For user identifiers.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/rabbitmq: For event publishing.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/nestvault/savings-service/internal/domain"
	"github.com/nestvault/savings-service/internal/store"
	"github.com/nestvault/savings-service/pkg/rabbitmq"
)

// DefaultLockInterestBps is the annual simple-interest rate applied to lock
// plans that do not specify one.
const DefaultLockInterestBps uint32 = 500

// Service provides the core business logic for savings products.
type Service struct {
	repo          store.Repository
	eventProducer rabbitmq.Publisher
	adminID       uuid.UUID
	now           func() time.Time
}

// NewService creates a new savings service instance.
func NewService(repo store.Repository, producer rabbitmq.Publisher, adminID uuid.UUID) *Service {
	return &Service{
		repo:          repo,
		eventProducer: producer,
		adminID:       adminID,
		now:           time.Now,
	}
}

// WithClock overrides the service clock. Intended for tests and the
// scheduler's replay tooling.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) nowUnix() int64 {
	return s.now().Unix()
}

// protocolConfig loads the live protocol configuration, falling back to a
// zero-fee, unpaused default when the record was never seeded.
func (s *Service) protocolConfig(ctx context.Context) (*domain.ProtocolConfig, error) {
	cfg, err := s.repo.GetProtocolConfig(ctx)
	if errors.Is(err, store.ErrConfigNotFound) {
		return &domain.ProtocolConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load protocol config: %w", err)
	}
	return cfg, nil
}

// requireNotPaused gates every state-mutating product operation.
func (s *Service) requireNotPaused(ctx context.Context) error {
	cfg, err := s.protocolConfig(ctx)
	if err != nil {
		return err
	}
	if cfg.Paused {
		return ErrPaused
	}
	return nil
}

// requireUser loads the caller's ledger record or fails with ErrUserNotFound.
func (s *Service) requireUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.repo.FindUserByID(ctx, userID)
	if errors.Is(err, store.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", userID, err)
	}
	return user, nil
}

// stageFee accrues a nonzero fee to the configured recipient inside the
// caller's unit of work. A missing recipient drops the fee on the floor; the
// user already paid it, so the deduction stands either way. The return
// reports whether the fee was actually routed, so the caller knows to emit
// a fee event once the unit commits.
func (s *Service) stageFee(ctx context.Context, tx store.Tx, cfg *domain.ProtocolConfig, fee int64) bool {
	if fee <= 0 || cfg.FeeRecipient == uuid.Nil {
		return false
	}
	tx.AddFeeBalance(ctx, cfg.FeeRecipient, fee)
	return true
}

// emitFeeEvent publishes a fee-routed event after the fee has been committed.
func (s *Service) emitFeeEvent(ctx context.Context, payer, recipient uuid.UUID, fee int64, reason string) {
	event := rabbitmq.FeeRoutedEvent{
		UserID:    payer,
		Recipient: recipient,
		Amount:    fee,
		Reason:    reason,
		Timestamp: s.now(),
	}
	if err := s.eventProducer.PublishFeeRoutedEvent(ctx, event); err != nil {
		// Fee accounting already happened; event delivery is best effort.
		log.Printf("WARN: failed to publish fee event for %s: %v", payer, err)
	}
}

// publishEvent sends a domain event to the savings exchange, logging instead
// of failing when the broker is unreachable.
func (s *Service) publishEvent(ctx context.Context, routingKey string, body interface{}) {
	if err := s.eventProducer.Publish(ctx, rabbitmq.SavingsEventsExchange, routingKey, body); err != nil {
		log.Printf("WARN: failed to publish %s event: %v", routingKey, err)
	}
}

// txUser loads the caller's ledger record through a unit of work.
func (s *Service) txUser(ctx context.Context, tx store.Tx, userID uuid.UUID) (*domain.User, error) {
	user, err := tx.FindUserByID(ctx, userID)
	if errors.Is(err, store.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", userID, err)
	}
	return user, nil
}

// stageLedgerCredit adds delta to the user's aggregate balance, rejecting
// additions that would wrap past the int64 ceiling.
func (s *Service) stageLedgerCredit(ctx context.Context, tx store.Tx, user *domain.User, delta int64) error {
	if delta > math.MaxInt64-user.TotalBalance {
		return ErrOverflow
	}
	tx.AdjustUserTotal(ctx, user.ID, delta)
	user.TotalBalance += delta
	return nil
}

// stageLedgerDebit subtracts delta from the user's aggregate balance. The
// ledger never goes negative; a debit exceeding it means the books drifted
// and the operation must fail rather than paper over the gap.
func (s *Service) stageLedgerDebit(ctx context.Context, tx store.Tx, user *domain.User, delta int64) error {
	if delta > user.TotalBalance {
		return ErrUnderflow
	}
	tx.AdjustUserTotal(ctx, user.ID, -delta)
	user.TotalBalance -= delta
	return nil
}
