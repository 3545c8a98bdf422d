package scenario

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"clmmSim/internal/pool"
	"clmmSim/internal/tickmath"
)

const owner = "0x00000000000000000000000000000000000a11ce"

func newPool(t *testing.T) *pool.Pool {
	t.Helper()
	p, err := pool.New(pool.Params{
		Token0:       common.HexToAddress("0x0000000000000000000000000000000000000001"),
		Token1:       common.HexToAddress("0x0000000000000000000000000000000000000002"),
		SqrtPriceX96: new(big.Int).Set(tickmath.Q96),
		Fee:          3000,
		TickSpacing:  100,
	})
	require.NoError(t, err)
	return p
}

func TestRunScenario(t *testing.T) {
	input := strings.Join([]string{
		`# single range, then sell token0 down to the lower tick`,
		`{"op":"mint","owner":"` + owner + `","lower":-100,"upper":100,"liquidity":"1000"}`,
		`{"op":"quote_exact_in","zero_for_one":true,"amount":"50"}`,
		`{"op":"swap_exact_in","zero_for_one":true,"amount":"50"}`,
		``,
		`{"op":"burn","owner":"` + owner + `","lower":-100,"upper":100,"liquidity":"5000"}`,
		`{"op":"collect","owner":"` + owner + `","lower":-100,"upper":100}`,
		`{"op":"rebalance"}`,
		`not json`,
		`{"op":"state"}`,
	}, "\n")

	core, logs := observer.New(zapcore.InfoLevel)
	p := newPool(t)
	stats, err := NewRunner(p, zap.New(core)).Run(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, Stats{Total: 8, Succeeded: 5, Failed: 3}, stats)

	st := p.State()
	require.Equal(t, int32(-100), st.Tick)
	require.Equal(t, "1000", st.Liquidity.String())

	quotes := logs.FilterMessage(OpQuoteIn).All()
	swaps := logs.FilterMessage(OpSwapExactIn).All()
	require.Len(t, quotes, 1)
	require.Len(t, swaps, 1)
	for _, entry := range []observer.LoggedEntry{quotes[0], swaps[0]} {
		fields := entry.ContextMap()
		require.Equal(t, "-7", fields["amount0"])
		require.Equal(t, "4", fields["amount1"])
		require.Equal(t, int32(-100), fields["tick"])
	}

	require.Equal(t, 3, logs.FilterMessage("op failed").Len()+logs.FilterMessage("decode op").Len())
	require.Equal(t, 1, logs.FilterMessage(OpState).Len())
}

func TestApplyRejectsBadFields(t *testing.T) {
	r := NewRunner(newPool(t), nil)

	require.Error(t, r.Apply(Op{Op: OpMint, Owner: "bob", Lower: -100, Upper: 100, Liquidity: "1"}))
	require.Error(t, r.Apply(Op{Op: OpMint, Owner: owner, Lower: -100, Upper: 100, Liquidity: "1e3"}))
	require.ErrorIs(t, r.Apply(Op{Op: OpMint, Owner: owner, Lower: 100, Upper: -100, Liquidity: "1"}), pool.ErrInvalidRange)
	require.ErrorIs(t, r.Apply(Op{Op: OpSwapExactOut, ZeroForOne: true, Amount: "10"}), pool.ErrZeroLiquidity)
	require.Error(t, r.Apply(Op{Op: OpSwapExactIn, Amount: "10", SqrtPriceLimitX96: "x"}))
	require.Error(t, r.Apply(Op{Op: OpCollect, Owner: owner, Lower: -100, Upper: 100, Amount0: "-"}))
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRunner(newPool(t), nil).Run(ctx, strings.NewReader(`{"op":"state"}`))
	require.ErrorIs(t, err, context.Canceled)
}
