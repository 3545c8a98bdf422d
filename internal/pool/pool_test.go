package pool

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"clmmSim/internal/ledger"
	"clmmSim/internal/tickmath"
)

var (
	token0 = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	token1 = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	alice  = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob    = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

func bi(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad int " + s)
	}
	return v
}

func newTestPool(t *testing.T, fee uint32, spacing int32) *Pool {
	t.Helper()
	p, err := New(Params{
		Token0:       token0,
		Token1:       token1,
		SqrtPriceX96: new(big.Int).Set(tickmath.Q96),
		Fee:          fee,
		TickSpacing:  spacing,
	})
	require.NoError(t, err)
	return p
}

// requireActiveLiquidity checks that the active liquidity equals the sum of
// LiquidityNet over initialized ticks at or below the current tick.
func requireActiveLiquidity(t *testing.T, p *Pool) {
	t.Helper()
	sum := new(big.Int)
	for _, tick := range p.Ticks() {
		if tick.Index <= p.tick {
			sum.Add(sum, tick.LiquidityNet)
		}
	}
	require.Zero(t, sum.Cmp(p.liquidity), "active liquidity %s, tick sum %s", p.liquidity, sum)
}

func TestNewRejectsBadParams(t *testing.T) {
	_, err := New(Params{Token0: token0, Token1: token0, SqrtPriceX96: tickmath.Q96, Fee: 3000, TickSpacing: 60})
	require.ErrorIs(t, err, ErrInvalidTokens)

	_, err = New(Params{Token0: token0, Token1: token1, SqrtPriceX96: tickmath.Q96, Fee: 1_000_000, TickSpacing: 60})
	require.ErrorIs(t, err, ErrInvalidFee)

	_, err = New(Params{Token0: token0, Token1: token1, SqrtPriceX96: tickmath.Q96, Fee: 3000, TickSpacing: 0})
	require.ErrorIs(t, err, ErrInvalidTickSpacing)

	_, err = New(Params{Token0: token0, Token1: token1, SqrtPriceX96: big.NewInt(1), Fee: 3000, TickSpacing: 60})
	require.ErrorIs(t, err, ErrDomain)
}

func TestMintAmounts(t *testing.T) {
	p := newTestPool(t, 3000, 100)

	res, err := p.Mint(alice, -100, 100, big.NewInt(1000))
	require.NoError(t, err)
	require.Equal(t, "5", res.Amount0.String())
	require.Equal(t, "5", res.Amount1.String())

	st := p.State()
	require.Equal(t, "1000", st.Liquidity.String())
	require.Equal(t, "5", st.Reserve0.String())
	require.Equal(t, "5", st.Reserve1.String())

	// Entirely above the price: token0 only, no active liquidity.
	res, err = p.Mint(bob, 100, 200, big.NewInt(1000))
	require.NoError(t, err)
	require.Positive(t, res.Amount0.Sign())
	require.Zero(t, res.Amount1.Sign())
	require.Equal(t, "1000", p.State().Liquidity.String())

	// Entirely below the price: token1 only.
	res, err = p.Mint(bob, -200, -100, big.NewInt(1000))
	require.NoError(t, err)
	require.Zero(t, res.Amount0.Sign())
	require.Positive(t, res.Amount1.Sign())

	requireActiveLiquidity(t, p)
}

func TestMintRejectsBadInput(t *testing.T) {
	p := newTestPool(t, 3000, 60)

	_, err := p.Mint(alice, 60, 60, big.NewInt(1))
	require.ErrorIs(t, err, ErrInvalidRange)

	_, err = p.Mint(alice, 120, 60, big.NewInt(1))
	require.ErrorIs(t, err, ErrInvalidRange)

	_, err = p.Mint(alice, -50, 60, big.NewInt(1))
	require.ErrorIs(t, err, ErrInvalidRange)

	_, err = p.Mint(alice, -887280, 60, big.NewInt(1))
	require.ErrorIs(t, err, ErrDomain)

	_, err = p.Mint(alice, -60, 60, big.NewInt(0))
	require.ErrorIs(t, err, ErrInvalidAmount)

	require.Empty(t, p.Ticks())
	require.Empty(t, p.Positions())
}

func TestMintThenBurnConservesTokens(t *testing.T) {
	p := newTestPool(t, 3000, 10)
	liquidity := bi("123456789012345678")

	minted, err := p.Mint(alice, -1000, 2000, liquidity)
	require.NoError(t, err)

	amount0, amount1, err := p.Burn(alice, -1000, 2000, liquidity)
	require.NoError(t, err)

	require.True(t, amount0.Cmp(minted.Amount0) <= 0)
	require.True(t, amount1.Cmp(minted.Amount1) <= 0)
	require.True(t, new(big.Int).Sub(minted.Amount0, amount0).Cmp(big.NewInt(1)) <= 0)
	require.True(t, new(big.Int).Sub(minted.Amount1, amount1).Cmp(big.NewInt(1)) <= 0)

	st := p.State()
	require.Zero(t, st.Liquidity.Sign())
	require.True(t, st.Reserve0.Sign() >= 0)
	require.True(t, st.Reserve1.Sign() >= 0)
	require.Empty(t, p.Ticks())
	require.Empty(t, p.Positions())
}

func TestBurnMoreThanHeldLeavesStateUnchanged(t *testing.T) {
	p := newTestPool(t, 3000, 10)
	_, err := p.Mint(alice, -100, 100, big.NewInt(1000))
	require.NoError(t, err)

	before := p.Snapshot()
	_, _, err = p.Burn(alice, -100, 100, big.NewInt(1001))
	require.ErrorIs(t, err, ErrInsufficientLiquidity)
	require.Equal(t, before, p.Snapshot())

	_, _, err = p.Burn(bob, -100, 100, big.NewInt(1))
	require.ErrorIs(t, err, ErrInsufficientLiquidity)
	require.Equal(t, before, p.Snapshot())
}

func TestBurnKeepsFeesOwed(t *testing.T) {
	p := newTestPool(t, 3000, 10)
	liquidity := bi("1000000000000000000")
	_, err := p.Mint(alice, -1000, 1000, liquidity)
	require.NoError(t, err)
	_, err = p.SwapExactIn(true, bi("1000000000000000"), nil)
	require.NoError(t, err)

	_, _, err = p.Burn(alice, -1000, 1000, liquidity)
	require.NoError(t, err)

	pos, ok := p.Position(alice, -1000, 1000)
	require.True(t, ok)
	require.Zero(t, pos.Liquidity.Sign())
	require.Equal(t, "2999999999999", pos.TokensOwed0.String())
	require.Equal(t, "0", pos.TokensOwed1.String())
	require.Empty(t, p.Ticks())

	fee0, fee1, err := p.Collect(alice, -1000, 1000, bi("1000000000000000"), bi("1000000000000000"))
	require.NoError(t, err)
	require.Equal(t, "2999999999999", fee0.String())
	require.Zero(t, fee1.Sign())

	_, ok = p.Position(alice, -1000, 1000)
	require.False(t, ok)
}

func TestCollectIsIdempotent(t *testing.T) {
	p := newTestPool(t, 3000, 10)
	_, err := p.Mint(alice, -1000, 1000, bi("1000000000000000000"))
	require.NoError(t, err)

	_, err = p.SwapExactIn(true, bi("1000000000000000"), nil)
	require.NoError(t, err)
	_, err = p.SwapExactIn(false, bi("1000000000000000"), nil)
	require.NoError(t, err)

	all := bi("1000000000000000000000")
	fee0, fee1, err := p.Collect(alice, -1000, 1000, all, all)
	require.NoError(t, err)
	// the only LP earns every fee, minus floor rounding
	require.Equal(t, "2999999999999", fee0.String())
	require.Equal(t, "2999999999999", fee1.String())

	again0, again1, err := p.Collect(alice, -1000, 1000, all, all)
	require.NoError(t, err)
	require.Zero(t, again0.Sign())
	require.Zero(t, again1.Sign())
}

func TestCollectUnknownPosition(t *testing.T) {
	p := newTestPool(t, 3000, 10)
	a0, a1, err := p.Collect(bob, -10, 10, big.NewInt(5), big.NewInt(5))
	require.NoError(t, err)
	require.Zero(t, a0.Sign())
	require.Zero(t, a1.Sign())

	_, _, err = p.Collect(bob, -10, 10, big.NewInt(-1), big.NewInt(5))
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestCloneIsIndependent(t *testing.T) {
	p := newTestPool(t, 3000, 10)
	_, err := p.Mint(alice, -100, 100, bi("1000000000000000000"))
	require.NoError(t, err)

	c := p.Clone()
	_, err = c.SwapExactIn(true, bi("1000000000000000"), nil)
	require.NoError(t, err)
	_, err = c.Mint(bob, -50, 50, big.NewInt(7))
	require.NoError(t, err)

	require.Equal(t, tickmath.Q96.String(), p.State().SqrtPriceX96.String())
	require.Len(t, p.Positions(), 1)
	require.Len(t, p.Ticks(), 2)
}

func TestFeeHelpers(t *testing.T) {
	fee, err := FeeFromFraction(decimal.RequireFromString("0.003"))
	require.NoError(t, err)
	require.Equal(t, Fee030, fee)

	fee, err = FeeFromFraction(decimal.RequireFromString("0.0001"))
	require.NoError(t, err)
	require.Equal(t, Fee001, fee)

	_, err = FeeFromFraction(decimal.RequireFromString("0.0000005"))
	require.ErrorIs(t, err, ErrInvalidFee)

	_, err = FeeFromFraction(decimal.NewFromInt(1))
	require.ErrorIs(t, err, ErrInvalidFee)

	require.Equal(t, "0.0005", FeeFraction(Fee005).String())

	spacing, ok := DefaultTickSpacing(Fee100)
	require.True(t, ok)
	require.Equal(t, int32(200), spacing)

	_, ok = DefaultTickSpacing(1234)
	require.False(t, ok)
}

func TestFeeGrowthOnlyIncreases(t *testing.T) {
	p := newTestPool(t, 500, 10)
	_, err := p.Mint(alice, -100, 100, bi("1000000000000000000"))
	require.NoError(t, err)
	_, err = p.Mint(bob, -50, 50, bi("1000000000000000000"))
	require.NoError(t, err)

	prev := ledger.FeeGrowth{
		Token0: p.State().FeeGrowthGlobal0X128,
		Token1: p.State().FeeGrowthGlobal1X128,
	}
	swaps := []struct {
		zeroForOne bool
		amount     string
	}{
		{false, "3000000000000000"},
		{true, "5000000000000000"},
		{false, "1000000000000"},
		{true, "7"},
		{false, "4000000000000000"},
	}
	for _, s := range swaps {
		_, err := p.SwapExactIn(s.zeroForOne, bi(s.amount), nil)
		require.NoError(t, err)
		st := p.State()
		require.True(t, st.FeeGrowthGlobal0X128.Cmp(prev.Token0) >= 0)
		require.True(t, st.FeeGrowthGlobal1X128.Cmp(prev.Token1) >= 0)
		prev = ledger.FeeGrowth{Token0: st.FeeGrowthGlobal0X128, Token1: st.FeeGrowthGlobal1X128}
		requireActiveLiquidity(t, p)
	}
}
