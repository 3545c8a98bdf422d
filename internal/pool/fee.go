package pool

import (
	"fmt"

	"github.com/shopspring/decimal"

	"clmmSim/internal/tickmath"
)

// Standard fee tiers in hundredths of a bip.
const (
	Fee001 uint32 = 100
	Fee005 uint32 = 500
	Fee030 uint32 = 3000
	Fee100 uint32 = 10000
)

var defaultTickSpacing = map[uint32]int32{
	Fee001: 1,
	Fee005: 10,
	Fee030: 60,
	Fee100: 200,
}

var feeUnit = decimal.NewFromInt(tickmath.FeeDenominator)

// FeeFromFraction converts a fee fraction such as 0.003 to hundredths of a bip.
// Fractions finer than one hundredth of a bip are rejected.
func FeeFromFraction(fraction decimal.Decimal) (uint32, error) {
	if fraction.IsNegative() || fraction.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return 0, fmt.Errorf("fee %s: %w", fraction, ErrInvalidFee)
	}
	pips := fraction.Mul(feeUnit)
	if !pips.Equal(pips.Truncate(0)) {
		return 0, fmt.Errorf("fee %s finer than 1e-6: %w", fraction, ErrInvalidFee)
	}
	return uint32(pips.IntPart()), nil
}

// FeeFraction converts hundredths of a bip back to a fraction.
func FeeFraction(fee uint32) decimal.Decimal {
	return decimal.NewFromInt(int64(fee)).Div(feeUnit)
}

// DefaultTickSpacing returns the conventional spacing for a standard fee tier.
func DefaultTickSpacing(fee uint32) (int32, bool) {
	spacing, ok := defaultTickSpacing[fee]
	return spacing, ok
}
