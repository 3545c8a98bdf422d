package tickmath

import (
	"fmt"
	"math/big"
)

// FeeDenominator is the fee unit: fees are expressed in hundredths of a bip.
const FeeDenominator = 1_000_000

// SwapStep is the outcome of swapping within a single constant-liquidity segment.
type SwapStep struct {
	SqrtPriceNextX96 *big.Int
	AmountIn         *big.Int
	AmountOut        *big.Int
	FeeAmount        *big.Int
}

// ComputeSwapStep swaps amountRemaining (input when exactIn, output otherwise)
// between sqrtPriceCurrentX96 and sqrtPriceTargetX96 at constant liquidity.
// Input amounts round up and output amounts round down. Direction is implied
// by the relative order of the two prices.
func ComputeSwapStep(sqrtPriceCurrentX96, sqrtPriceTargetX96, liquidity, amountRemaining *big.Int, exactIn bool, fee uint32) (SwapStep, error) {
	if fee >= FeeDenominator {
		return SwapStep{}, fmt.Errorf("fee %d out of range", fee)
	}
	if amountRemaining.Sign() < 0 {
		return SwapStep{}, fmt.Errorf("negative amount remaining")
	}

	zeroForOne := sqrtPriceCurrentX96.Cmp(sqrtPriceTargetX96) >= 0
	feeBig := big.NewInt(int64(fee))
	feeComplement := big.NewInt(int64(FeeDenominator - fee))
	denominator := big.NewInt(FeeDenominator)

	var (
		next      *big.Int
		amountIn  *big.Int
		amountOut *big.Int
		err       error
	)

	if exactIn {
		remainingLessFee := MulDiv(amountRemaining, feeComplement, denominator)
		if zeroForOne {
			amountIn = Amount0Delta(sqrtPriceTargetX96, sqrtPriceCurrentX96, liquidity, true)
		} else {
			amountIn = Amount1Delta(sqrtPriceCurrentX96, sqrtPriceTargetX96, liquidity, true)
		}
		if remainingLessFee.Cmp(amountIn) >= 0 {
			next = new(big.Int).Set(sqrtPriceTargetX96)
		} else {
			next, err = NextSqrtPriceFromInput(sqrtPriceCurrentX96, liquidity, remainingLessFee, zeroForOne)
			if err != nil {
				return SwapStep{}, err
			}
		}
	} else {
		if zeroForOne {
			amountOut = Amount1Delta(sqrtPriceTargetX96, sqrtPriceCurrentX96, liquidity, false)
		} else {
			amountOut = Amount0Delta(sqrtPriceCurrentX96, sqrtPriceTargetX96, liquidity, false)
		}
		if amountRemaining.Cmp(amountOut) >= 0 {
			next = new(big.Int).Set(sqrtPriceTargetX96)
		} else {
			next, err = NextSqrtPriceFromOutput(sqrtPriceCurrentX96, liquidity, amountRemaining, zeroForOne)
			if err != nil {
				return SwapStep{}, err
			}
		}
	}

	reachedTarget := next.Cmp(sqrtPriceTargetX96) == 0

	if zeroForOne {
		if !(reachedTarget && exactIn) {
			amountIn = Amount0Delta(next, sqrtPriceCurrentX96, liquidity, true)
		}
		if !(reachedTarget && !exactIn) {
			amountOut = Amount1Delta(next, sqrtPriceCurrentX96, liquidity, false)
		}
	} else {
		if !(reachedTarget && exactIn) {
			amountIn = Amount1Delta(sqrtPriceCurrentX96, next, liquidity, true)
		}
		if !(reachedTarget && !exactIn) {
			amountOut = Amount0Delta(sqrtPriceCurrentX96, next, liquidity, false)
		}
	}

	if !exactIn && amountOut.Cmp(amountRemaining) > 0 {
		amountOut = new(big.Int).Set(amountRemaining)
	}

	var feeAmount *big.Int
	if exactIn && !reachedTarget {
		// the price stopped inside the segment: whatever input is left is the fee
		feeAmount = new(big.Int).Sub(amountRemaining, amountIn)
	} else {
		feeAmount = MulDivRoundingUp(amountIn, feeBig, feeComplement)
	}

	return SwapStep{
		SqrtPriceNextX96: next,
		AmountIn:         amountIn,
		AmountOut:        amountOut,
		FeeAmount:        feeAmount,
	}, nil
}
