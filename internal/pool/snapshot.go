package pool

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"clmmSim/internal/ledger"
	"clmmSim/internal/model"
	"clmmSim/internal/position"
)

// Snapshot serializes the complete pool state.
func (p *Pool) Snapshot() model.PoolSnapshot {
	snap := model.PoolSnapshot{
		Token0:               p.token0.Hex(),
		Token1:               p.token1.Hex(),
		Fee:                  p.fee,
		TickSpacing:          p.tickSpacing,
		SqrtPriceX96:         p.sqrtPriceX96.String(),
		Tick:                 p.tick,
		Liquidity:            p.liquidity.String(),
		FeeGrowthGlobal0X128: p.feeGrowthGlobal.Token0.String(),
		FeeGrowthGlobal1X128: p.feeGrowthGlobal.Token1.String(),
		Reserve0:             p.reserve0.String(),
		Reserve1:             p.reserve1.String(),
	}

	for _, t := range p.ledger.Ticks() {
		snap.Ticks = append(snap.Ticks, model.TickSnapshot{
			Index:                 t.Index,
			LiquidityGross:        t.LiquidityGross.String(),
			LiquidityNet:          t.LiquidityNet.String(),
			FeeGrowthOutside0X128: t.Outside.Token0.String(),
			FeeGrowthOutside1X128: t.Outside.Token1.String(),
		})
	}
	for _, e := range p.book.Positions() {
		snap.Positions = append(snap.Positions, model.PositionSnapshot{
			Owner:                    e.Key.Owner.Hex(),
			TickLower:                e.Key.Lower,
			TickUpper:                e.Key.Upper,
			Liquidity:                e.Liquidity.String(),
			FeeGrowthInside0LastX128: e.FeeGrowthInside.Token0.String(),
			FeeGrowthInside1LastX128: e.FeeGrowthInside.Token1.String(),
			TokensOwed0:              e.TokensOwed0.String(),
			TokensOwed1:              e.TokensOwed1.String(),
		})
	}
	return snap
}

// FromSnapshot rebuilds a pool from a snapshot. The stored tick must match
// the stored price and the active liquidity must equal the sum of
// LiquidityNet over ticks at or below it.
func FromSnapshot(snap model.PoolSnapshot, opts ...Option) (*Pool, error) {
	var ints snapshotInts
	sqrtPrice := ints.parse("sqrt_price_x96", snap.SqrtPriceX96)
	if ints.err != nil {
		return nil, ints.err
	}
	token0, err := parseAddress(snap.Token0)
	if err != nil {
		return nil, err
	}
	token1, err := parseAddress(snap.Token1)
	if err != nil {
		return nil, err
	}

	p, err := New(Params{
		Token0:       token0,
		Token1:       token1,
		SqrtPriceX96: sqrtPrice,
		Fee:          snap.Fee,
		TickSpacing:  snap.TickSpacing,
	}, opts...)
	if err != nil {
		return nil, err
	}
	if p.tick != snap.Tick {
		return nil, fmt.Errorf("snapshot tick %d does not match price tick %d", snap.Tick, p.tick)
	}

	p.liquidity = ints.parse("liquidity", snap.Liquidity)
	p.feeGrowthGlobal = ledger.FeeGrowth{
		Token0: ints.parse("fee_growth_global0_x128", snap.FeeGrowthGlobal0X128),
		Token1: ints.parse("fee_growth_global1_x128", snap.FeeGrowthGlobal1X128),
	}
	p.reserve0 = ints.parse("reserve0", snap.Reserve0)
	p.reserve1 = ints.parse("reserve1", snap.Reserve1)

	active := new(big.Int)
	for _, t := range snap.Ticks {
		info := ledger.TickInfo{
			LiquidityGross: ints.parse("liquidity_gross", t.LiquidityGross),
			LiquidityNet:   ints.parse("liquidity_net", t.LiquidityNet),
			Outside: ledger.FeeGrowth{
				Token0: ints.parse("fee_growth_outside0_x128", t.FeeGrowthOutside0X128),
				Token1: ints.parse("fee_growth_outside1_x128", t.FeeGrowthOutside1X128),
			},
		}
		if ints.err != nil {
			return nil, ints.err
		}
		if err := p.ledger.Restore(t.Index, info); err != nil {
			return nil, err
		}
		if t.Index <= p.tick {
			active.Add(active, info.LiquidityNet)
		}
	}

	for _, ps := range snap.Positions {
		owner, err := parseAddress(ps.Owner)
		if err != nil {
			return nil, err
		}
		pos := position.Position{
			Liquidity: ints.parse("liquidity", ps.Liquidity),
			FeeGrowthInside: ledger.FeeGrowth{
				Token0: ints.parse("fee_growth_inside0_last_x128", ps.FeeGrowthInside0LastX128),
				Token1: ints.parse("fee_growth_inside1_last_x128", ps.FeeGrowthInside1LastX128),
			},
			TokensOwed0: ints.parse("tokens_owed0", ps.TokensOwed0),
			TokensOwed1: ints.parse("tokens_owed1", ps.TokensOwed1),
		}
		if ints.err != nil {
			return nil, ints.err
		}
		if err := p.checkRange(ps.TickLower, ps.TickUpper); err != nil {
			return nil, err
		}
		p.book.Restore(position.Key{Owner: owner, Lower: ps.TickLower, Upper: ps.TickUpper}, pos)
	}

	if ints.err != nil {
		return nil, ints.err
	}
	if active.Cmp(p.liquidity) != 0 {
		return nil, fmt.Errorf("snapshot liquidity %s does not match tick sum %s", p.liquidity, active)
	}
	return p, nil
}

// snapshotInts parses decimal strings, keeping the first failure.
type snapshotInts struct {
	err error
}

func (s *snapshotInts) parse(field, value string) *big.Int {
	if value == "" {
		return new(big.Int)
	}
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		if s.err == nil {
			s.err = fmt.Errorf("snapshot %s: invalid int %q", field, value)
		}
		return new(big.Int)
	}
	return v
}

func parseAddress(value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("invalid address: %s", value)
	}
	return common.HexToAddress(value), nil
}
