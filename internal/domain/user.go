/**
 * @description
 * This file defines the user-level domain models for the savings-service.
 * A User is the per-principal aggregate ledger record: it caches the total
 * balance across products and counts the plans the user has opened.
 *
 * @notes
 * - Amounts are stored as `int64` in the smallest currency unit, which avoids
 *   floating-point inaccuracies with financial data.
 * - TotalBalance is a cache of net effects (Flexi movements plus Goal payouts),
 *   not the source of truth for individual plan balances.
 */

package domain

import "github.com/google/uuid"

// User is the aggregate ledger record for one principal.
type User struct {
	ID           uuid.UUID `json:"id"`
	TotalBalance int64     `json:"total_balance"`
	SavingsCount uint32    `json:"savings_count"`
}

// NewUser returns a freshly registered user with zero balances.
func NewUser(id uuid.UUID) *User {
	return &User{ID: id}
}
