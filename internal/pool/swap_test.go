package pool

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"clmmSim/internal/tickmath"
)

func mustSqrt(t *testing.T, tick int32) *big.Int {
	t.Helper()
	v, err := tickmath.TickToSqrtPrice(tick)
	require.NoError(t, err)
	return v
}

func resultString(r SwapResult) string {
	return fmt.Sprintf("%s/%s/%s/%d/%s/%s/%d",
		r.Amount0, r.Amount1, r.SqrtPriceX96, r.Tick, r.Liquidity, r.FeeAmount, r.TicksCrossed)
}

func TestSwapExactInStopsAtLastTick(t *testing.T) {
	p := newTestPool(t, 3000, 100)
	_, err := p.Mint(alice, -100, 100, big.NewInt(1000))
	require.NoError(t, err)

	res, err := p.SwapExactIn(true, big.NewInt(50), nil)
	require.NoError(t, err)

	require.Equal(t, "-7", res.Amount0.String())
	require.Equal(t, "4", res.Amount1.String())
	require.Equal(t, "1", res.FeeAmount.String())
	require.Equal(t, int32(-100), res.Tick)
	require.Equal(t, mustSqrt(t, -100).String(), res.SqrtPriceX96.String())
	require.Equal(t, "1000", res.Liquidity.String())
	require.Zero(t, res.TicksCrossed)

	st := p.State()
	require.Equal(t, int32(-100), st.Tick)
	require.Equal(t, "340282366920938463463374607431768211", st.FeeGrowthGlobal0X128.String())
	require.Zero(t, st.FeeGrowthGlobal1X128.Sign())
	require.Equal(t, "12", st.Reserve0.String())
	require.Equal(t, "1", st.Reserve1.String())
	requireActiveLiquidity(t, p)

	// Still at the lowest initialized tick: nothing more can be sold.
	res, err = p.SwapExactIn(true, big.NewInt(50), nil)
	require.NoError(t, err)
	require.Zero(t, res.Amount0.Sign())
	require.Zero(t, res.Amount1.Sign())
}

func TestSwapExactOut(t *testing.T) {
	p := newTestPool(t, 3000, 10)
	_, err := p.Mint(alice, -1000, 1000, bi("1000000000000000000"))
	require.NoError(t, err)

	res, err := p.SwapExactOut(true, bi("1000000000000000"), nil)
	require.NoError(t, err)

	require.Equal(t, "-1004013040121367", res.Amount0.String())
	require.Equal(t, "1000000000000000", res.Amount1.String())
	require.Equal(t, "3012039120365", res.FeeAmount.String())
	require.Equal(t, "79148934351750073255950406385", res.SqrtPriceX96.String())
	require.Equal(t, int32(-21), res.Tick)
}

func TestSwapWithinRangeLeavesTicksUntouched(t *testing.T) {
	p := newTestPool(t, 3000, 10)
	_, err := p.Mint(alice, -1000, 1000, bi("1000000000000000000"))
	require.NoError(t, err)
	before := p.Snapshot().Ticks

	res, err := p.SwapExactIn(true, bi("1000000000000000"), nil)
	require.NoError(t, err)
	require.Equal(t, "-1000000000000000", res.Amount0.String())
	require.Equal(t, "996006981039903", res.Amount1.String())
	require.Equal(t, "79149250711305166342700278159", res.SqrtPriceX96.String())
	require.Equal(t, int32(-20), res.Tick)
	require.Zero(t, res.TicksCrossed)
	require.Equal(t, before, p.Snapshot().Ticks)
	require.Equal(t, "1000000000000000000", p.State().Liquidity.String())
}

func TestSwapCrossesRanges(t *testing.T) {
	p := newTestPool(t, 500, 10)
	_, err := p.Mint(alice, -100, 100, bi("1000000000000000000"))
	require.NoError(t, err)
	_, err = p.Mint(bob, -50, 50, bi("1000000000000000000"))
	require.NoError(t, err)
	_, err = p.Mint(bob, 100, 200, bi("500000000000000000"))
	require.NoError(t, err)
	require.Equal(t, "2000000000000000000", p.State().Liquidity.String())

	up, err := p.SwapExactIn(false, bi("10000000000000000"), nil)
	require.NoError(t, err)
	require.Equal(t, "9927025064042823", up.Amount0.String())
	require.Equal(t, "-10000000000000000", up.Amount1.String())
	require.Equal(t, "80018204024467583872142501460", up.SqrtPriceX96.String())
	require.Equal(t, int32(198), up.Tick)
	require.Equal(t, 2, up.TicksCrossed)
	require.Equal(t, "500000000000000000", up.Liquidity.String())
	requireActiveLiquidity(t, p)

	// Back down past every boundary; the swap ends on the lowest tick with
	// input left over.
	down, err := p.SwapExactIn(true, bi("20000000000000000"), nil)
	require.NoError(t, err)
	require.Equal(t, "-17451022499609369", down.Amount0.String())
	require.Equal(t, "17479024993702779", down.Amount1.String())
	require.Equal(t, mustSqrt(t, -100).String(), down.SqrtPriceX96.String())
	require.Equal(t, int32(-100), down.Tick)
	require.Equal(t, 3, down.TicksCrossed)
	require.Equal(t, "1000000000000000000", down.Liquidity.String())
	requireActiveLiquidity(t, p)
}

func TestSwapTraversesEmptyGap(t *testing.T) {
	setup := func(t *testing.T) *Pool {
		p := newTestPool(t, 3000, 10)
		_, err := p.Mint(alice, -200, -100, bi("1000000000000000000"))
		require.NoError(t, err)
		_, err = p.Mint(alice, 100, 200, bi("1000000000000000000"))
		require.NoError(t, err)
		require.Zero(t, p.State().Liquidity.Sign())
		return p
	}

	t.Run("up", func(t *testing.T) {
		p := setup(t)
		res, err := p.SwapExactIn(false, bi("1000000000000000"), nil)
		require.NoError(t, err)
		require.Equal(t, "986101937328244", res.Amount0.String())
		require.Equal(t, "-1000000000000000", res.Amount1.String())
		require.Equal(t, "79704265904551470340911319446", res.SqrtPriceX96.String())
		require.Equal(t, int32(119), res.Tick)
		require.Equal(t, 1, res.TicksCrossed)
		requireActiveLiquidity(t, p)
	})

	t.Run("down", func(t *testing.T) {
		p := setup(t)
		res, err := p.SwapExactIn(true, bi("1000000000000000"), nil)
		require.NoError(t, err)
		require.Equal(t, "-1000000000000000", res.Amount0.String())
		require.Equal(t, "986101937328244", res.Amount1.String())
		require.Equal(t, "78754903067593903506766880362", res.SqrtPriceX96.String())
		require.Equal(t, int32(-120), res.Tick)
		require.Equal(t, 1, res.TicksCrossed)
		requireActiveLiquidity(t, p)
	})
}

func TestSwapZeroLiquidity(t *testing.T) {
	p := newTestPool(t, 3000, 10)
	_, err := p.SwapExactIn(true, big.NewInt(100), nil)
	require.ErrorIs(t, err, ErrZeroLiquidity)

	_, err = p.Mint(alice, -200, -100, big.NewInt(1000))
	require.NoError(t, err)
	_, err = p.SwapExactOut(false, big.NewInt(1), nil)
	require.ErrorIs(t, err, ErrZeroLiquidity)
}

func TestSwapPriceLimit(t *testing.T) {
	p := newTestPool(t, 3000, 10)
	_, err := p.Mint(alice, -1000, 1000, bi("1000000000000000000"))
	require.NoError(t, err)
	before := p.Snapshot()

	bad := []*big.Int{
		new(big.Int).Set(tickmath.Q96),
		mustSqrt(t, 10),
		new(big.Int).Sub(tickmath.MinSqrtRatio, big.NewInt(1)),
	}
	for _, limit := range bad {
		_, err := p.SwapExactIn(true, big.NewInt(1000), limit)
		require.ErrorIs(t, err, ErrInvalidPriceLimit)
	}
	_, err = p.SwapExactIn(false, big.NewInt(1000), mustSqrt(t, -10))
	require.ErrorIs(t, err, ErrInvalidPriceLimit)
	require.Equal(t, before, p.Snapshot())

	limit := mustSqrt(t, -55)
	res, err := p.SwapExactIn(true, bi("1000000000000000000"), limit)
	require.NoError(t, err)
	require.Equal(t, limit.String(), res.SqrtPriceX96.String())
	require.Equal(t, int32(-55), res.Tick)
	reserve1 := new(big.Int).Sub(bi(before.Reserve1), res.Amount1)
	require.Equal(t, reserve1.String(), p.State().Reserve1.String())
}

func TestSwapRejectsNonPositiveAmount(t *testing.T) {
	p := newTestPool(t, 3000, 10)
	_, err := p.SwapExactIn(true, big.NewInt(0), nil)
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = p.SwapExactOut(true, nil, nil)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestQuoteLeavesPoolUntouched(t *testing.T) {
	p := newTestPool(t, 500, 10)
	_, err := p.Mint(alice, -100, 100, bi("1000000000000000000"))
	require.NoError(t, err)
	_, err = p.Mint(bob, -50, 50, bi("1000000000000000000"))
	require.NoError(t, err)
	before := p.Snapshot()

	quote, err := p.QuoteExactIn(false, bi("10000000000000000"), nil)
	require.NoError(t, err)
	require.Equal(t, before, p.Snapshot())

	res, err := p.SwapExactIn(false, bi("10000000000000000"), nil)
	require.NoError(t, err)
	require.Equal(t, resultString(quote), resultString(res))

	_, err = p.QuoteExactOut(true, big.NewInt(0), nil)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestUndoCrossingsRestoresTicks(t *testing.T) {
	p := newTestPool(t, 500, 10)
	_, err := p.Mint(alice, -100, 100, bi("1000000000000000000"))
	require.NoError(t, err)
	_, err = p.Mint(bob, -50, 50, bi("1000000000000000000"))
	require.NoError(t, err)
	before := p.Snapshot().Ticks

	state := swapState{
		tick:      p.tick,
		liquidity: new(big.Int).Set(p.liquidity),
		growth:    p.feeGrowthGlobal.Clone(),
	}
	state.growth.Token1.SetString("123456789", 10)

	var crossed []crossing
	require.NoError(t, p.cross(&state, 50, false, &crossed))
	require.NoError(t, p.cross(&state, 100, false, &crossed))
	require.Zero(t, state.liquidity.Sign())
	require.NotEqual(t, before, p.Snapshot().Ticks)

	p.undoCrossings(crossed)
	require.Equal(t, before, p.Snapshot().Ticks)
}
