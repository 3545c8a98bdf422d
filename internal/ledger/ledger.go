package ledger

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	"clmmSim/internal/tickmath"
)

var (
	ErrTickMisaligned     = errors.New("tick not aligned to spacing")
	ErrTickNotInitialized = errors.New("tick not initialized")
	ErrLiquidityUnderflow = errors.New("liquidity gross underflow")
)

// TickInfo is the per-tick liquidity and fee record.
type TickInfo struct {
	LiquidityGross *big.Int
	LiquidityNet   *big.Int
	Outside        FeeGrowth
}

func (t TickInfo) clone() TickInfo {
	return TickInfo{
		LiquidityGross: copyInt(t.LiquidityGross),
		LiquidityNet:   copyInt(t.LiquidityNet),
		Outside:        t.Outside.Clone(),
	}
}

// IndexedTick pairs a tick index with its record.
type IndexedTick struct {
	Index int32
	TickInfo
}

// Ledger tracks initialized ticks of a single pool.
type Ledger struct {
	tickSpacing int32
	ticks       map[int32]*TickInfo
	bitmap      *tickBitmap
}

func New(tickSpacing int32) (*Ledger, error) {
	if tickSpacing <= 0 {
		return nil, fmt.Errorf("tick spacing must be > 0, got %d", tickSpacing)
	}
	return &Ledger{
		tickSpacing: tickSpacing,
		ticks:       make(map[int32]*TickInfo),
		bitmap: newTickBitmap(
			tickmath.MinUsableTick(tickSpacing)/tickSpacing,
			tickmath.MaxUsableTick(tickSpacing)/tickSpacing,
		),
	}, nil
}

func (l *Ledger) TickSpacing() int32 {
	return l.tickSpacing
}

// CheckTick validates that tick is a usable boundary on this grid.
func (l *Ledger) CheckTick(tick int32) error {
	if tick < tickmath.MinTick || tick > tickmath.MaxTick {
		return fmt.Errorf("tick %d: %w", tick, tickmath.ErrDomain)
	}
	if tick%l.tickSpacing != 0 {
		return fmt.Errorf("tick %d spacing %d: %w", tick, l.tickSpacing, ErrTickMisaligned)
	}
	return nil
}

// ApplyDelta adds liquidityDelta to a boundary tick. Lower boundaries add the
// delta to LiquidityNet, upper boundaries subtract it. A new tick at or below
// currentTick starts with all global growth attributed to its outside.
// It reports whether the tick flipped between initialized and uninitialized.
func (l *Ledger) ApplyDelta(tick int32, liquidityDelta *big.Int, isUpper bool, currentTick int32, global FeeGrowth) (bool, error) {
	if err := l.CheckTick(tick); err != nil {
		return false, err
	}

	info, exists := l.ticks[tick]
	grossBefore := new(big.Int)
	if exists {
		grossBefore.Set(info.LiquidityGross)
	}
	grossAfter := new(big.Int).Add(grossBefore, liquidityDelta)
	if grossAfter.Sign() < 0 {
		return false, fmt.Errorf("tick %d: %w", tick, ErrLiquidityUnderflow)
	}
	if !exists && grossAfter.Sign() == 0 {
		return false, nil
	}

	if !exists {
		info = &TickInfo{
			LiquidityGross: new(big.Int),
			LiquidityNet:   new(big.Int),
			Outside:        ZeroFeeGrowth(),
		}
		if tick <= currentTick {
			info.Outside = global.Clone()
		}
		l.ticks[tick] = info
		l.bitmap.set(tick / l.tickSpacing)
	}

	info.LiquidityGross.Set(grossAfter)
	if isUpper {
		info.LiquidityNet.Sub(info.LiquidityNet, liquidityDelta)
	} else {
		info.LiquidityNet.Add(info.LiquidityNet, liquidityDelta)
	}

	if grossAfter.Sign() == 0 {
		delete(l.ticks, tick)
		l.bitmap.clear(tick / l.tickSpacing)
	}

	return (grossBefore.Sign() == 0) != (grossAfter.Sign() == 0), nil
}

// CrossTick flips the tick's outside fee growth against global and returns its
// LiquidityNet. It must be called exactly once per traversal of the boundary.
func (l *Ledger) CrossTick(tick int32, global FeeGrowth) (*big.Int, error) {
	info, ok := l.ticks[tick]
	if !ok {
		return nil, fmt.Errorf("cross %d: %w", tick, ErrTickNotInitialized)
	}
	info.Outside = global.Sub(info.Outside)
	return new(big.Int).Set(info.LiquidityNet), nil
}

// FeeGrowthInside returns the fee growth accrued inside [lower, upper).
// Uninitialized boundaries contribute zero outside growth.
func (l *Ledger) FeeGrowthInside(lower, upper, currentTick int32, global FeeGrowth) FeeGrowth {
	return ComputeFeeGrowthInside(l.outside(lower), l.outside(upper), lower, upper, currentTick, global)
}

func (l *Ledger) outside(tick int32) FeeGrowth {
	if info, ok := l.ticks[tick]; ok {
		return info.Outside
	}
	return ZeroFeeGrowth()
}

// NextInitializedTick finds the nearest initialized tick strictly above tick
// when up is set, or at or below tick otherwise.
func (l *Ledger) NextInitializedTick(tick int32, up bool) (int32, bool) {
	compressed := floorDiv(tick, l.tickSpacing)
	var (
		found int32
		ok    bool
	)
	if up {
		found, ok = l.bitmap.nextAtOrAbove(compressed + 1)
	} else {
		found, ok = l.bitmap.nextAtOrBelow(compressed)
	}
	if !ok {
		return 0, false
	}
	return found * l.tickSpacing, true
}

// IsInitialized reports whether tick currently holds liquidity.
func (l *Ledger) IsInitialized(tick int32) bool {
	if tick%l.tickSpacing != 0 {
		return false
	}
	return l.bitmap.isSet(tick / l.tickSpacing)
}

// Tick returns a copy of the record at tick.
func (l *Ledger) Tick(tick int32) (TickInfo, bool) {
	info, ok := l.ticks[tick]
	if !ok {
		return TickInfo{}, false
	}
	return info.clone(), true
}

// Ticks returns copies of all initialized ticks in ascending order.
func (l *Ledger) Ticks() []IndexedTick {
	out := make([]IndexedTick, 0, len(l.ticks))
	for idx, info := range l.ticks {
		out = append(out, IndexedTick{Index: idx, TickInfo: info.clone()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Restore installs a tick record verbatim, used when loading a snapshot.
func (l *Ledger) Restore(tick int32, info TickInfo) error {
	if err := l.CheckTick(tick); err != nil {
		return err
	}
	if info.LiquidityGross == nil || info.LiquidityGross.Sign() <= 0 {
		return fmt.Errorf("restore tick %d: liquidity gross must be > 0", tick)
	}
	rec := info.clone()
	l.ticks[tick] = &rec
	l.bitmap.set(tick / l.tickSpacing)
	return nil
}

// Clone returns an independent deep copy.
func (l *Ledger) Clone() *Ledger {
	out := &Ledger{
		tickSpacing: l.tickSpacing,
		ticks:       make(map[int32]*TickInfo, len(l.ticks)),
		bitmap:      l.bitmap.clone(),
	}
	for idx, info := range l.ticks {
		rec := info.clone()
		out.ticks[idx] = &rec
	}
	return out
}

func floorDiv(a, b int32) int32 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
