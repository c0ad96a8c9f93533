/**
 * @description
 * This file implements the Flexi account: an on-demand savings balance with
 * fee-charged deposits and free-form withdrawals. Deposits credit the net
 * amount after the protocol fee; withdrawals debit the gross amount and take
 * the fee out of what is paid back to the user.
 *
 * All balance movements run inside a repository unit of work guarded on the
 * user's ledger and Flexi keys, so a deposit racing a withdrawal reruns
 * against fresh state instead of clobbering it, and a failed write leaves
 * nothing half applied.
 */

package app

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/google/uuid"

	"github.com/nestvault/savings-service/internal/domain"
	"github.com/nestvault/savings-service/internal/store"
)

// FlexiMovement describes the outcome of a single deposit or withdrawal.
type FlexiMovement struct {
	Amount     int64 `json:"amount"`
	Fee        int64 `json:"fee"`
	Net        int64 `json:"net"`
	NewBalance int64 `json:"new_balance"`
}

// stageFlexiDeposit stages a fee-charged Flexi credit inside the caller's
// unit of work. AutoSave execution shares this path so scheduled deposits
// behave exactly like manual ones.
func (s *Service) stageFlexiDeposit(ctx context.Context, tx store.Tx, cfg *domain.ProtocolConfig, userID uuid.UUID, amount int64) (*FlexiMovement, bool, error) {
	user, err := s.txUser(ctx, tx, userID)
	if err != nil {
		return nil, false, err
	}

	fee := CalculateFee(amount, cfg.ProtocolFeeBps)
	net, err := NetAfterFee(amount, fee)
	if err != nil {
		return nil, false, err
	}

	balance, err := tx.GetFlexiBalance(ctx, userID)
	if err != nil {
		return nil, false, fmt.Errorf("load flexi balance %s: %w", userID, err)
	}
	if net > math.MaxInt64-balance {
		return nil, false, ErrOverflow
	}
	if err := s.stageLedgerCredit(ctx, tx, user, net); err != nil {
		return nil, false, err
	}
	tx.IncrFlexiBalance(ctx, userID, net)
	routed := s.stageFee(ctx, tx, cfg, fee)

	return &FlexiMovement{Amount: amount, Fee: fee, Net: net, NewBalance: balance + net}, routed, nil
}

// FlexiDeposit credits the user's Flexi balance with amount minus the
// protocol fee.
func (s *Service) FlexiDeposit(ctx context.Context, userID uuid.UUID, amount int64) (*FlexiMovement, error) {
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

	var (
		movement *FlexiMovement
		routed   bool
	)
	guards := []store.Guard{store.GuardUser(userID), store.GuardFlexi(userID)}
	err = s.repo.Update(ctx, guards, func(tx store.Tx) error {
		m, r, depositErr := s.stageFlexiDeposit(ctx, tx, cfg, userID, amount)
		if depositErr != nil {
			return depositErr
		}
		movement, routed = m, r
		return nil
	})
	if err != nil {
		return nil, err
	}

	if routed {
		s.emitFeeEvent(ctx, userID, cfg.FeeRecipient, movement.Fee, "flexi_deposit")
	}
	log.Printf("FlexiDeposit: user=%s amount=%d fee=%d net=%d balance=%d", userID, amount, movement.Fee, movement.Net, movement.NewBalance)
	s.publishEvent(ctx, "savings.flexi.deposited", map[string]any{
		"user_id": userID, "amount": amount, "fee": movement.Fee, "net": movement.Net,
	})
	return movement, nil
}

// FlexiWithdraw debits the gross amount from the user's Flexi balance. The
// protocol fee comes out of the withdrawn amount, so the user receives the
// net while their balance drops by the full amount.
func (s *Service) FlexiWithdraw(ctx context.Context, userID uuid.UUID, amount int64) (*FlexiMovement, error) {
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

	var (
		movement *FlexiMovement
		routed   bool
	)
	guards := []store.Guard{store.GuardUser(userID), store.GuardFlexi(userID)}
	err = s.repo.Update(ctx, guards, func(tx store.Tx) error {
		user, err := s.txUser(ctx, tx, userID)
		if err != nil {
			return err
		}

		balance, err := tx.GetFlexiBalance(ctx, userID)
		if err != nil {
			return fmt.Errorf("load flexi balance %s: %w", userID, err)
		}
		if balance < amount {
			return ErrInsufficientBalance
		}

		fee := CalculateFee(amount, cfg.ProtocolFeeBps)
		net, err := NetAfterFee(amount, fee)
		if err != nil {
			return err
		}

		if err := s.stageLedgerDebit(ctx, tx, user, amount); err != nil {
			return err
		}
		tx.IncrFlexiBalance(ctx, userID, -amount)
		routed = s.stageFee(ctx, tx, cfg, fee)

		movement = &FlexiMovement{Amount: amount, Fee: fee, Net: net, NewBalance: balance - amount}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if routed {
		s.emitFeeEvent(ctx, userID, cfg.FeeRecipient, movement.Fee, "flexi_withdraw")
	}
	log.Printf("FlexiWithdraw: user=%s amount=%d fee=%d net=%d balance=%d", userID, amount, movement.Fee, movement.Net, movement.NewBalance)
	s.publishEvent(ctx, "savings.flexi.withdrawn", map[string]any{
		"user_id": userID, "amount": amount, "fee": movement.Fee, "net": movement.Net,
	})
	return movement, nil
}

// FlexiBalance returns the user's current Flexi balance.
func (s *Service) FlexiBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	if _, err := s.requireUser(ctx, userID); err != nil {
		return 0, err
	}
	balance, err := s.repo.GetFlexiBalance(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("load flexi balance %s: %w", userID, err)
	}
	return balance, nil
}

// HasFlexiBalance reports whether the user holds a positive Flexi balance.
func (s *Service) HasFlexiBalance(ctx context.Context, userID uuid.UUID) bool {
	balance, err := s.repo.GetFlexiBalance(ctx, userID)
	return err == nil && balance > 0
}
