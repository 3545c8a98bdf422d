package ledger

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeFeeGrowthInsidePositions(t *testing.T) {
	global := growth(100, 1000)
	lowerOutside := growth(10, 100)
	upperOutside := growth(30, 300)

	cases := []struct {
		name    string
		current int32
		want0   int64
		want1   int64
	}{
		// below: global - lowerOutside, above: upperOutside
		{name: "below range", current: -50, want0: 100 - 90 - 30, want1: 1000 - 900 - 300},
		{name: "inside range", current: 0, want0: 100 - 10 - 30, want1: 1000 - 100 - 300},
		{name: "on lower boundary", current: -10, want0: 60, want1: 600},
		{name: "on upper boundary", current: 10, want0: 100 - 10 - 70, want1: 1000 - 100 - 700},
		{name: "above range", current: 50, want0: 20, want1: 200},
	}

	for _, tc := range cases {
		got := ComputeFeeGrowthInside(lowerOutside, upperOutside, -10, 10, tc.current, global)
		require.Equal(t, tc.want0, got.Token0.Int64(), tc.name)
		require.Equal(t, tc.want1, got.Token1.Int64(), tc.name)
	}
}

func TestComputeFeeGrowthInsidePartitionsGlobal(t *testing.T) {
	global := growth(500, 800)
	lowerOutside := growth(120, 90)
	upperOutside := growth(40, 310)

	for current := int32(-30); current <= 30; current += 5 {
		inside := ComputeFeeGrowthInside(lowerOutside, upperOutside, -10, 10, current, global)

		below := lowerOutside.Clone()
		if current < -10 {
			below = global.Sub(lowerOutside)
		}
		above := upperOutside.Clone()
		if current >= 10 {
			above = global.Sub(upperOutside)
		}

		sum0 := new(big.Int).Add(inside.Token0, below.Token0)
		sum0.Add(sum0, above.Token0)
		sum1 := new(big.Int).Add(inside.Token1, below.Token1)
		sum1.Add(sum1, above.Token1)
		require.Equal(t, 0, sum0.Cmp(global.Token0), "tick %d", current)
		require.Equal(t, 0, sum1.Cmp(global.Token1), "tick %d", current)
	}
}

func TestComputeFeeGrowthInsideDoesNotAlias(t *testing.T) {
	global := growth(5, 5)
	lowerOutside := growth(1, 1)
	upperOutside := growth(1, 1)

	inside := ComputeFeeGrowthInside(lowerOutside, upperOutside, 0, 10, 5, global)
	inside.Token0.SetInt64(999)

	require.Equal(t, int64(1), lowerOutside.Token0.Int64())
	require.Equal(t, int64(5), global.Token0.Int64())
}

func TestLedgerFeeGrowthInsideMissingTicks(t *testing.T) {
	l := newLedger(t, 10)
	got := l.FeeGrowthInside(-10, 10, 0, growth(7, 9))
	require.Equal(t, int64(7), got.Token0.Int64())
	require.Equal(t, int64(9), got.Token1.Int64())
}
