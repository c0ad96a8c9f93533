/**
 * @description
 * This file implements the fee engine: pure basis-point fee arithmetic used by
 * every fee-charging product operation. Fees always round down, so the user
 * keeps the remainder of any fractional unit.
 *
 * @notes
 * - The intermediate amount × bps product is computed in math/big to rule out
 *   int64 overflow on large balances. With bps capped at 10000 the final fee
 *   always fits back into int64; if it ever did not, the fee saturates to 0
 *   rather than charging a corrupted amount.
 */

package app

import "math/big"

const bpsDenominator = 10000

// CalculateFee returns floor(amount × bps / 10000). A zero rate or a
// non-positive amount yields a zero fee.
func CalculateFee(amount int64, bps uint32) int64 {
	if amount <= 0 || bps == 0 {
		return 0
	}
	product := new(big.Int).Mul(big.NewInt(amount), big.NewInt(int64(bps)))
	fee := product.Quo(product, big.NewInt(bpsDenominator))
	if !fee.IsInt64() {
		return 0
	}
	return fee.Int64()
}

// NetAfterFee returns amount - fee, guarding against a fee larger than the
// amount it was charged on.
func NetAfterFee(amount, fee int64) (int64, error) {
	if fee > amount {
		return 0, ErrUnderflow
	}
	return amount - fee, nil
}
