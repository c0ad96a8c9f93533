/**
 * @description
 * This file implements the admin configuration surface: fee rates, the fee
 * recipient, and the global pause switch. All mutations are restricted to the
 * configured admin principal.
 */

package app

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/nestvault/savings-service/internal/domain"
)

func (s *Service) requireAdmin(callerID uuid.UUID) error {
	if s.adminID == uuid.Nil || callerID != s.adminID {
		return ErrUnauthorized
	}
	return nil
}

// GetProtocolConfig returns the live protocol configuration.
func (s *Service) GetProtocolConfig(ctx context.Context) (*domain.ProtocolConfig, error) {
	return s.protocolConfig(ctx)
}

// SetProtocolFeeBps updates the deposit/withdrawal fee rate.
func (s *Service) SetProtocolFeeBps(ctx context.Context, callerID uuid.UUID, bps uint32) error {
	if err := s.requireAdmin(callerID); err != nil {
		return err
	}
	if bps > domain.MaxFeeBps {
		return ErrInvalidFeeBps
	}
	return s.updateConfig(ctx, "protocol_fee_bps", func(cfg *domain.ProtocolConfig) {
		cfg.ProtocolFeeBps = bps
	})
}

// SetEarlyBreakFeeBps updates the fee rate charged on breaking a goal early.
func (s *Service) SetEarlyBreakFeeBps(ctx context.Context, callerID uuid.UUID, bps uint32) error {
	if err := s.requireAdmin(callerID); err != nil {
		return err
	}
	if bps > domain.MaxFeeBps {
		return ErrInvalidFeeBps
	}
	return s.updateConfig(ctx, "early_break_fee_bps", func(cfg *domain.ProtocolConfig) {
		cfg.EarlyBreakFeeBps = bps
	})
}

// SetFeeRecipient points fee routing at a new recipient principal.
func (s *Service) SetFeeRecipient(ctx context.Context, callerID, recipient uuid.UUID) error {
	if err := s.requireAdmin(callerID); err != nil {
		return err
	}
	return s.updateConfig(ctx, "fee_recipient", func(cfg *domain.ProtocolConfig) {
		cfg.FeeRecipient = recipient
	})
}

// Pause switches all state-mutating product operations off.
func (s *Service) Pause(ctx context.Context, callerID uuid.UUID) error {
	if err := s.requireAdmin(callerID); err != nil {
		return err
	}
	return s.updateConfig(ctx, "paused", func(cfg *domain.ProtocolConfig) {
		cfg.Paused = true
	})
}

// Unpause re-enables state-mutating product operations.
func (s *Service) Unpause(ctx context.Context, callerID uuid.UUID) error {
	if err := s.requireAdmin(callerID); err != nil {
		return err
	}
	return s.updateConfig(ctx, "paused", func(cfg *domain.ProtocolConfig) {
		cfg.Paused = false
	})
}

// FeeBalance returns the accumulated fee sink balance for a recipient.
func (s *Service) FeeBalance(ctx context.Context, recipient uuid.UUID) (int64, error) {
	balance, err := s.repo.GetFeeBalance(ctx, recipient)
	if err != nil {
		return 0, fmt.Errorf("load fee balance %s: %w", recipient, err)
	}
	return balance, nil
}

func (s *Service) updateConfig(ctx context.Context, field string, mutate func(*domain.ProtocolConfig)) error {
	cfg, err := s.protocolConfig(ctx)
	if err != nil {
		return err
	}
	mutate(cfg)
	if err := s.repo.SaveProtocolConfig(ctx, cfg); err != nil {
		return fmt.Errorf("save protocol config: %w", err)
	}
	log.Printf("ProtocolConfig: %s updated", field)
	s.publishEvent(ctx, "savings.config.updated", map[string]any{"field": field})
	return nil
}
