package tickmath

import (
	"errors"
	"math/big"
)

var (
	// Q96 is 2^96, the Q64.96 unit.
	Q96 = new(big.Int).Lsh(big.NewInt(1), 96)
	// Q128 is 2^128, the fee growth unit.
	Q128 = new(big.Int).Lsh(big.NewInt(1), 128)

	// ErrNoLiquidity is returned when a price move is requested against zero liquidity.
	ErrNoLiquidity = errors.New("price move requires liquidity")
	// ErrOutputExceedsReserves is returned when an output amount cannot be paid within a segment.
	ErrOutputExceedsReserves = errors.New("output exceeds segment reserves")
)

// MulDiv returns floor(a*b/denominator).
func MulDiv(a, b, denominator *big.Int) *big.Int {
	out := new(big.Int).Mul(a, b)
	return out.Quo(out, denominator)
}

// MulDivRoundingUp returns ceil(a*b/denominator) for non-negative inputs.
func MulDivRoundingUp(a, b, denominator *big.Int) *big.Int {
	product := new(big.Int).Mul(a, b)
	return divRoundingUp(product, denominator)
}

func divRoundingUp(a, b *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(a, b, new(big.Int))
	if r.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

func sortPrices(a, b *big.Int) (*big.Int, *big.Int) {
	if a.Cmp(b) > 0 {
		return b, a
	}
	return a, b
}

// Amount0Delta is the token0 amount spanned by liquidity between two sqrt prices:
// L * (sqrtB - sqrtA) / (sqrtA * sqrtB).
func Amount0Delta(sqrtA, sqrtB, liquidity *big.Int, roundUp bool) *big.Int {
	lower, upper := sortPrices(sqrtA, sqrtB)
	if lower.Sign() <= 0 || liquidity.Sign() == 0 {
		return new(big.Int)
	}

	numerator1 := new(big.Int).Lsh(liquidity, 96)
	numerator2 := new(big.Int).Sub(upper, lower)
	if roundUp {
		return divRoundingUp(MulDivRoundingUp(numerator1, numerator2, upper), lower)
	}
	return new(big.Int).Quo(MulDiv(numerator1, numerator2, upper), lower)
}

// Amount1Delta is the token1 amount spanned by liquidity between two sqrt prices:
// L * (sqrtB - sqrtA).
func Amount1Delta(sqrtA, sqrtB, liquidity *big.Int, roundUp bool) *big.Int {
	lower, upper := sortPrices(sqrtA, sqrtB)
	if liquidity.Sign() == 0 {
		return new(big.Int)
	}

	diff := new(big.Int).Sub(upper, lower)
	if roundUp {
		return MulDivRoundingUp(liquidity, diff, Q96)
	}
	return MulDiv(liquidity, diff, Q96)
}

// NextSqrtPriceFromInput moves the price by adding amountIn of the input token.
// The rounding always keeps the price on the pool-favourable side.
func NextSqrtPriceFromInput(sqrtPriceX96, liquidity, amountIn *big.Int, zeroForOne bool) (*big.Int, error) {
	if sqrtPriceX96.Sign() <= 0 {
		return nil, ErrDomain
	}
	if liquidity.Sign() <= 0 {
		return nil, ErrNoLiquidity
	}
	if zeroForOne {
		return nextFromAmount0RoundingUp(sqrtPriceX96, liquidity, amountIn, true)
	}
	return nextFromAmount1RoundingDown(sqrtPriceX96, liquidity, amountIn, true)
}

// NextSqrtPriceFromOutput moves the price by removing amountOut of the output token.
func NextSqrtPriceFromOutput(sqrtPriceX96, liquidity, amountOut *big.Int, zeroForOne bool) (*big.Int, error) {
	if sqrtPriceX96.Sign() <= 0 {
		return nil, ErrDomain
	}
	if liquidity.Sign() <= 0 {
		return nil, ErrNoLiquidity
	}
	if zeroForOne {
		return nextFromAmount1RoundingDown(sqrtPriceX96, liquidity, amountOut, false)
	}
	return nextFromAmount0RoundingUp(sqrtPriceX96, liquidity, amountOut, false)
}

func nextFromAmount0RoundingUp(sqrtPriceX96, liquidity, amount *big.Int, add bool) (*big.Int, error) {
	if amount.Sign() == 0 {
		return new(big.Int).Set(sqrtPriceX96), nil
	}

	numerator1 := new(big.Int).Lsh(liquidity, 96)
	product := new(big.Int).Mul(amount, sqrtPriceX96)
	denominator := new(big.Int)
	if add {
		denominator.Add(numerator1, product)
	} else {
		if numerator1.Cmp(product) <= 0 {
			return nil, ErrOutputExceedsReserves
		}
		denominator.Sub(numerator1, product)
	}
	return MulDivRoundingUp(numerator1, sqrtPriceX96, denominator), nil
}

func nextFromAmount1RoundingDown(sqrtPriceX96, liquidity, amount *big.Int, add bool) (*big.Int, error) {
	shifted := new(big.Int).Lsh(amount, 96)
	if add {
		quotient := shifted.Quo(shifted, liquidity)
		return quotient.Add(quotient, sqrtPriceX96), nil
	}

	quotient := divRoundingUp(shifted, liquidity)
	if sqrtPriceX96.Cmp(quotient) <= 0 {
		return nil, ErrOutputExceedsReserves
	}
	return quotient.Sub(sqrtPriceX96, quotient), nil
}
