/**
 * @description
 * This file implements the user-ledger operations: registration, lookup, and
 * existence checks. Registration is explicit and required before any product
 * can be used; product operations fail with ErrUserNotFound rather than
 * auto-registering.
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

// RegisterUser creates the caller's ledger record.
func (s *Service) RegisterUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	if err := s.requireNotPaused(ctx); err != nil {
		return nil, err
	}

	user := domain.NewUser(userID)
	err := s.repo.CreateUser(ctx, user)
	if errors.Is(err, store.ErrUserAlreadyExists) {
		return nil, ErrUserAlreadyExists
	}
	if err != nil {
		return nil, fmt.Errorf("register user %s: %w", userID, err)
	}

	log.Printf("RegisterUser: registered %s", userID)
	s.publishEvent(ctx, "savings.user.registered", map[string]any{"user_id": userID})
	return user, nil
}

// GetUser returns the caller's ledger record.
func (s *Service) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.requireUser(ctx, userID)
}

// UserExists reports whether a ledger record exists for the user. Storage
// failures are treated as non-existence so callers get a plain boolean.
func (s *Service) UserExists(ctx context.Context, userID uuid.UUID) bool {
	_, err := s.repo.FindUserByID(ctx, userID)
	return err == nil
}
