package ledger

import "math/big"

// FeeGrowth holds a fee-per-unit-liquidity value for each token, in Q128.
type FeeGrowth struct {
	Token0 *big.Int
	Token1 *big.Int
}

// ZeroFeeGrowth returns a fresh zero pair.
func ZeroFeeGrowth() FeeGrowth {
	return FeeGrowth{Token0: new(big.Int), Token1: new(big.Int)}
}

// Clone deep-copies the pair. Nil components become zero.
func (f FeeGrowth) Clone() FeeGrowth {
	return FeeGrowth{Token0: copyInt(f.Token0), Token1: copyInt(f.Token1)}
}

// Sub returns f - other per token.
func (f FeeGrowth) Sub(other FeeGrowth) FeeGrowth {
	return FeeGrowth{
		Token0: new(big.Int).Sub(copyInt(f.Token0), copyInt(other.Token0)),
		Token1: new(big.Int).Sub(copyInt(f.Token1), copyInt(other.Token1)),
	}
}

// ComputeFeeGrowthInside returns the fee growth accrued inside [lower, upper)
// given each boundary's outside values and where the current tick sits.
//
// Below the lower tick "outside" means below, so the value is used as is when
// the current tick is at or above lower, and complemented against global
// otherwise. The upper tick is the mirror image.
func ComputeFeeGrowthInside(lowerOutside, upperOutside FeeGrowth, lower, upper, currentTick int32, global FeeGrowth) FeeGrowth {
	var below, above FeeGrowth
	if currentTick >= lower {
		below = lowerOutside.Clone()
	} else {
		below = global.Sub(lowerOutside)
	}
	if currentTick < upper {
		above = upperOutside.Clone()
	} else {
		above = global.Sub(upperOutside)
	}
	return global.Sub(below).Sub(above)
}

func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
