package pool

import (
	"errors"

	"clmmSim/internal/position"
	"clmmSim/internal/tickmath"
)

var (
	// ErrDomain reports a tick or price outside the representable range.
	ErrDomain = tickmath.ErrDomain
	// ErrInvalidRange reports lower >= upper or ticks off the spacing grid.
	ErrInvalidRange = errors.New("invalid tick range")
	// ErrInsufficientLiquidity reports a burn larger than the position holds.
	ErrInsufficientLiquidity = position.ErrInsufficientLiquidity
	// ErrInvalidPriceLimit reports a swap limit on the wrong side of the current price.
	ErrInvalidPriceLimit = errors.New("invalid sqrt price limit")
	// ErrZeroLiquidity reports a swap with no liquidity to absorb it.
	ErrZeroLiquidity = errors.New("no liquidity available")

	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidFee         = errors.New("fee must be in [0, 1)")
	ErrInvalidTickSpacing = errors.New("tick spacing must be > 0")
	ErrInvalidTokens      = errors.New("token0 and token1 must differ")
)
