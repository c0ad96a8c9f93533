/**
 * @description
 * This file defines the protocol-level configuration record: fee rates, the
 * fee recipient, and the global pause switch. The record is seeded once at
 * bootstrap and mutated only through admin operations.
 */

package domain

import "github.com/google/uuid"

// MaxFeeBps is the upper bound for any basis-point fee rate (100%).
const MaxFeeBps uint32 = 10000

// ProtocolConfig holds the service-wide fee and pause settings.
type ProtocolConfig struct {
	ProtocolFeeBps   uint32    `json:"protocol_fee_bps"`
	EarlyBreakFeeBps uint32    `json:"early_break_fee_bps"`
	FeeRecipient     uuid.UUID `json:"fee_recipient"`
	Paused           bool      `json:"paused"`
}
