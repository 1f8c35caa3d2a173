package utils

import (
	"github.com/shopspring/decimal"

	"github.com/ultravioletadao/x402-go/types"
)

// ParsePrice parses a human-readable price such as "5.00".
func ParsePrice(amount string) (decimal.Decimal, error) {
	if amount == "" {
		return decimal.Zero, types.NewError(types.ErrCodeInvalidAmount, types.ErrInvalidAmount, "amount cannot be empty")
	}

	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero, types.NewError(types.ErrCodeInvalidAmount, types.ErrInvalidAmount, "invalid amount format %q", amount)
	}

	if dec.IsNegative() {
		return decimal.Zero, types.NewError(types.ErrCodeInvalidAmount, types.ErrInvalidAmount, "amount cannot be negative")
	}

	return dec, nil
}

// ToAtomicUnits converts a price in whole token units to the token's atomic
// units. A price with more fractional digits than the token supports is
// rejected rather than rounded.
func ToAtomicUnits(price decimal.Decimal, decimals int) (string, error) {
	if decimals <= 0 {
		return "", types.NewError(types.ErrCodeInvalidAmount, types.ErrInvalidAmount, "token decimals must be positive, got %d", decimals)
	}
	if price.IsNegative() {
		return "", types.NewError(types.ErrCodeInvalidAmount, types.ErrInvalidAmount, "amount cannot be negative")
	}

	scaled := price.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return "", types.NewError(types.ErrCodeInvalidAmount, types.ErrInvalidAmount,
			"%s has more than %d decimal places", price.String(), decimals)
	}

	return scaled.BigInt().String(), nil
}
