package pool

import (
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"clmmSim/internal/ledger"
	"clmmSim/internal/tickmath"
)

// SwapResult reports the outcome of a swap. Amounts are signed: negative
// means the pool receives the token, positive means the pool pays it out.
// FeeAmount is charged in the input token and is included in its amount.
type SwapResult struct {
	Amount0      *big.Int
	Amount1      *big.Int
	SqrtPriceX96 *big.Int
	Tick         int32
	Liquidity    *big.Int
	FeeAmount    *big.Int
	TicksCrossed int
}

type swapState struct {
	remaining *big.Int
	sqrtPrice *big.Int
	tick      int32
	liquidity *big.Int
	growth    ledger.FeeGrowth
	amountIn  *big.Int
	amountOut *big.Int
	feeAmount *big.Int
}

type crossing struct {
	tick   int32
	global ledger.FeeGrowth
}

// SwapExactIn sells exactly amountIn of the input token, or less if the price
// limit or the last initialized tick is reached first. zeroForOne sells
// token0 for token1. A nil limit means no limit.
func (p *Pool) SwapExactIn(zeroForOne bool, amountIn, sqrtPriceLimitX96 *big.Int) (SwapResult, error) {
	return p.swap(zeroForOne, amountIn, true, sqrtPriceLimitX96)
}

// SwapExactOut buys exactly amountOut of the output token, or less if the
// price limit or the last initialized tick is reached first.
func (p *Pool) SwapExactOut(zeroForOne bool, amountOut, sqrtPriceLimitX96 *big.Int) (SwapResult, error) {
	return p.swap(zeroForOne, amountOut, false, sqrtPriceLimitX96)
}

// QuoteExactIn runs SwapExactIn against a copy of the pool.
func (p *Pool) QuoteExactIn(zeroForOne bool, amountIn, sqrtPriceLimitX96 *big.Int) (SwapResult, error) {
	return p.Clone().SwapExactIn(zeroForOne, amountIn, sqrtPriceLimitX96)
}

// QuoteExactOut runs SwapExactOut against a copy of the pool.
func (p *Pool) QuoteExactOut(zeroForOne bool, amountOut, sqrtPriceLimitX96 *big.Int) (SwapResult, error) {
	return p.Clone().SwapExactOut(zeroForOne, amountOut, sqrtPriceLimitX96)
}

func (p *Pool) resolveLimit(zeroForOne bool, limit *big.Int) (*big.Int, error) {
	if limit == nil {
		if zeroForOne {
			return new(big.Int).Set(tickmath.MinSqrtRatio), nil
		}
		return new(big.Int).Set(tickmath.MaxSqrtRatio), nil
	}
	if !tickmath.ValidSqrtPrice(limit) {
		return nil, fmt.Errorf("limit %s outside price range: %w", limit, ErrInvalidPriceLimit)
	}
	if zeroForOne && limit.Cmp(p.sqrtPriceX96) >= 0 {
		return nil, fmt.Errorf("limit %s not below price %s: %w", limit, p.sqrtPriceX96, ErrInvalidPriceLimit)
	}
	if !zeroForOne && limit.Cmp(p.sqrtPriceX96) <= 0 {
		return nil, fmt.Errorf("limit %s not above price %s: %w", limit, p.sqrtPriceX96, ErrInvalidPriceLimit)
	}
	return new(big.Int).Set(limit), nil
}

func (p *Pool) swap(zeroForOne bool, amount *big.Int, exactIn bool, limitArg *big.Int) (SwapResult, error) {
	if amount == nil || amount.Sign() <= 0 {
		return SwapResult{}, fmt.Errorf("swap amount %v: %w", amount, ErrInvalidAmount)
	}
	limit, err := p.resolveLimit(zeroForOne, limitArg)
	if err != nil {
		return SwapResult{}, err
	}
	if p.liquidity.Sign() == 0 {
		if _, ok := p.ledger.NextInitializedTick(p.tick, !zeroForOne); !ok {
			return SwapResult{}, ErrZeroLiquidity
		}
	}

	state := swapState{
		remaining: new(big.Int).Set(amount),
		sqrtPrice: new(big.Int).Set(p.sqrtPriceX96),
		tick:      p.tick,
		liquidity: new(big.Int).Set(p.liquidity),
		growth:    p.feeGrowthGlobal.Clone(),
		amountIn:  new(big.Int),
		amountOut: new(big.Int),
		feeAmount: new(big.Int),
	}
	var crossed []crossing

	if err := p.runSwap(&state, zeroForOne, exactIn, limit, &crossed); err != nil {
		p.undoCrossings(crossed)
		return SwapResult{}, err
	}

	p.sqrtPriceX96 = state.sqrtPrice
	p.tick = state.tick
	p.liquidity = state.liquidity
	p.feeGrowthGlobal = state.growth

	result := SwapResult{
		SqrtPriceX96: new(big.Int).Set(state.sqrtPrice),
		Tick:         state.tick,
		Liquidity:    new(big.Int).Set(state.liquidity),
		FeeAmount:    state.feeAmount,
		TicksCrossed: len(crossed),
	}
	if zeroForOne {
		p.reserve0.Add(p.reserve0, state.amountIn)
		p.reserve1.Sub(p.reserve1, state.amountOut)
		result.Amount0 = new(big.Int).Neg(state.amountIn)
		result.Amount1 = state.amountOut
	} else {
		p.reserve1.Add(p.reserve1, state.amountIn)
		p.reserve0.Sub(p.reserve0, state.amountOut)
		result.Amount0 = state.amountOut
		result.Amount1 = new(big.Int).Neg(state.amountIn)
	}

	p.logger.Debug("swap",
		zap.Bool("zero_for_one", zeroForOne),
		zap.Bool("exact_in", exactIn),
		zap.Stringer("amount0", result.Amount0),
		zap.Stringer("amount1", result.Amount1),
		zap.Stringer("fee", result.FeeAmount),
		zap.Int32("tick", result.Tick),
		zap.Int("ticks_crossed", result.TicksCrossed),
	)

	return result, nil
}

// runSwap walks the price segment by segment. Moving up, an initialized tick
// is crossed as soon as the price reaches it. Moving down, the price may rest
// on a boundary with tick == boundary; the boundary is crossed only when the
// next step continues below it, so a pool never crosses into an empty grid.
func (p *Pool) runSwap(state *swapState, zeroForOne, exactIn bool, limit *big.Int, crossed *[]crossing) error {
	for state.remaining.Sign() > 0 && state.sqrtPrice.Cmp(limit) != 0 {
		stepLiquidity := state.liquidity
		crossFirst := false
		var boundary int32

		next, ok := p.ledger.NextInitializedTick(state.tick, !zeroForOne)
		if !ok {
			break
		}
		if zeroForOne {
			sqrtNext, err := tickmath.TickToSqrtPrice(next)
			if err != nil {
				return err
			}
			if sqrtNext.Cmp(state.sqrtPrice) == 0 {
				below, ok := p.ledger.NextInitializedTick(next-1, false)
				if !ok {
					break
				}
				info, _ := p.ledger.Tick(next)
				stepLiquidity = new(big.Int).Sub(state.liquidity, info.LiquidityNet)
				crossFirst = true
				boundary = next
				next = below
			}
		}

		sqrtTarget, err := tickmath.TickToSqrtPrice(next)
		if err != nil {
			return err
		}
		clipped := sqrtTarget
		if (zeroForOne && sqrtTarget.Cmp(limit) < 0) || (!zeroForOne && sqrtTarget.Cmp(limit) > 0) {
			clipped = limit
		}

		step, err := tickmath.ComputeSwapStep(state.sqrtPrice, clipped, stepLiquidity, state.remaining, exactIn, p.fee)
		if err != nil {
			return err
		}
		if step.SqrtPriceNextX96.Cmp(state.sqrtPrice) == 0 {
			// the remainder is too small to move the price
			break
		}

		if crossFirst {
			if err := p.cross(state, boundary, true, crossed); err != nil {
				return err
			}
		}

		state.sqrtPrice = step.SqrtPriceNextX96
		spent := new(big.Int).Add(step.AmountIn, step.FeeAmount)
		if exactIn {
			state.remaining.Sub(state.remaining, spent)
		} else {
			state.remaining.Sub(state.remaining, step.AmountOut)
		}
		state.amountIn.Add(state.amountIn, spent)
		state.amountOut.Add(state.amountOut, step.AmountOut)
		state.feeAmount.Add(state.feeAmount, step.FeeAmount)

		if stepLiquidity.Sign() > 0 && step.FeeAmount.Sign() > 0 {
			growth := tickmath.MulDiv(step.FeeAmount, tickmath.Q128, stepLiquidity)
			if zeroForOne {
				state.growth.Token0.Add(state.growth.Token0, growth)
			} else {
				state.growth.Token1.Add(state.growth.Token1, growth)
			}
		}

		if !zeroForOne && state.sqrtPrice.Cmp(sqrtTarget) == 0 {
			if err := p.cross(state, next, false, crossed); err != nil {
				return err
			}
		}

		tick, err := tickmath.SqrtPriceToTick(state.sqrtPrice)
		if err != nil {
			return err
		}
		state.tick = tick
	}
	return nil
}

// cross moves the active liquidity across an initialized boundary in the
// swap direction and journals the crossing for rollback.
func (p *Pool) cross(state *swapState, tick int32, down bool, crossed *[]crossing) error {
	global := state.growth.Clone()
	net, err := p.ledger.CrossTick(tick, global)
	if err != nil {
		return err
	}
	*crossed = append(*crossed, crossing{tick: tick, global: global})

	if down {
		state.liquidity = new(big.Int).Sub(state.liquidity, net)
		state.tick = tick - 1
	} else {
		state.liquidity = new(big.Int).Add(state.liquidity, net)
		state.tick = tick
	}

	p.logger.Debug("tick crossed",
		zap.Int32("tick", tick),
		zap.Stringer("liquidity", state.liquidity),
	)
	return nil
}

// undoCrossings reverts journaled crossings in reverse order. Crossing twice
// with the same global growth restores the original outside values.
func (p *Pool) undoCrossings(crossed []crossing) {
	for i := len(crossed) - 1; i >= 0; i-- {
		if _, err := p.ledger.CrossTick(crossed[i].tick, crossed[i].global); err != nil {
			p.logger.Error("undo tick crossing", zap.Int32("tick", crossed[i].tick), zap.Error(err))
		}
	}
}
