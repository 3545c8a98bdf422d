package tickmath

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

const priceScale = 18

var (
	q96Decimal  = decimal.NewFromBigInt(Q96, 0)
	q192Decimal = decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), 192), 0)
)

// SqrtPriceX96FromDecimal converts a plain sqrt price (e.g. 1.0) to Q64.96, truncating.
func SqrtPriceX96FromDecimal(sqrtPrice decimal.Decimal) (*big.Int, error) {
	if !sqrtPrice.IsPositive() {
		return nil, fmt.Errorf("sqrt price %s must be positive: %w", sqrtPrice, ErrDomain)
	}
	out := sqrtPrice.Mul(q96Decimal).BigInt()
	if !ValidSqrtPrice(out) {
		return nil, fmt.Errorf("sqrt price %s: %w", sqrtPrice, ErrDomain)
	}
	return out, nil
}

// SqrtPriceX96FromPrice converts a token1/token0 price to a Q64.96 sqrt price.
func SqrtPriceX96FromPrice(price decimal.Decimal) (*big.Int, error) {
	if !price.IsPositive() {
		return nil, fmt.Errorf("price %s must be positive: %w", price, ErrDomain)
	}
	// sqrt(price * 2^192), floored
	scaled := price.Mul(q192Decimal).BigInt()
	out := new(big.Int).Sqrt(scaled)
	if !ValidSqrtPrice(out) {
		return nil, fmt.Errorf("price %s: %w", price, ErrDomain)
	}
	return out, nil
}

// SqrtPriceDecimal converts a Q64.96 sqrt price back to a decimal.
func SqrtPriceDecimal(sqrtPriceX96 *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(sqrtPriceX96, 0).DivRound(q96Decimal, priceScale)
}

// PriceFromSqrtPriceX96 returns the token1/token0 price of a Q64.96 sqrt price.
func PriceFromSqrtPriceX96(sqrtPriceX96 *big.Int) decimal.Decimal {
	squared := new(big.Int).Mul(sqrtPriceX96, sqrtPriceX96)
	return decimal.NewFromBigInt(squared, 0).DivRound(q192Decimal, priceScale)
}
