package position

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"clmmSim/internal/ledger"
	"clmmSim/internal/tickmath"
)

var (
	ErrInsufficientLiquidity = errors.New("insufficient position liquidity")
	ErrNonPositiveLiquidity  = errors.New("liquidity delta must be > 0")
)

// Key identifies a position by owner and tick range.
type Key struct {
	Owner common.Address
	Lower int32
	Upper int32
}

func (k Key) String() string {
	return fmt.Sprintf("%s[%d,%d)", k.Owner.Hex(), k.Lower, k.Upper)
}

// Position is a liquidity range with its fee checkpoints and uncollected fees.
type Position struct {
	Liquidity       *big.Int
	FeeGrowthInside ledger.FeeGrowth
	TokensOwed0     *big.Int
	TokensOwed1     *big.Int
}

func newPosition() *Position {
	return &Position{
		Liquidity:       new(big.Int),
		FeeGrowthInside: ledger.ZeroFeeGrowth(),
		TokensOwed0:     new(big.Int),
		TokensOwed1:     new(big.Int),
	}
}

func (p *Position) clone() *Position {
	return &Position{
		Liquidity:       new(big.Int).Set(p.Liquidity),
		FeeGrowthInside: p.FeeGrowthInside.Clone(),
		TokensOwed0:     new(big.Int).Set(p.TokensOwed0),
		TokensOwed1:     new(big.Int).Set(p.TokensOwed1),
	}
}

func (p *Position) empty() bool {
	return p.Liquidity.Sign() == 0 && p.TokensOwed0.Sign() == 0 && p.TokensOwed1.Sign() == 0
}

// settle credits fees earned since the last checkpoint and moves the checkpoint.
func (p *Position) settle(inside ledger.FeeGrowth) {
	delta := inside.Sub(p.FeeGrowthInside)
	if p.Liquidity.Sign() > 0 {
		p.TokensOwed0.Add(p.TokensOwed0, tickmath.MulDiv(p.Liquidity, delta.Token0, tickmath.Q128))
		p.TokensOwed1.Add(p.TokensOwed1, tickmath.MulDiv(p.Liquidity, delta.Token1, tickmath.Q128))
	}
	p.FeeGrowthInside = inside.Clone()
}

// Entry pairs a key with a copy of its position.
type Entry struct {
	Key Key
	Position
}

// Book tracks every position of one pool. Boundary liquidity is pushed into
// the ledger the book was created with.
type Book struct {
	ledger    *ledger.Ledger
	positions map[Key]*Position
}

func NewBook(l *ledger.Ledger) *Book {
	return &Book{ledger: l, positions: make(map[Key]*Position)}
}

// Mint adds liquidityDelta to the position, settling owed fees first.
func (b *Book) Mint(key Key, liquidityDelta *big.Int, currentTick int32, global ledger.FeeGrowth) (*Position, error) {
	if liquidityDelta == nil || liquidityDelta.Sign() <= 0 {
		return nil, ErrNonPositiveLiquidity
	}

	if _, err := b.ledger.ApplyDelta(key.Lower, liquidityDelta, false, currentTick, global); err != nil {
		return nil, err
	}
	if _, err := b.ledger.ApplyDelta(key.Upper, liquidityDelta, true, currentTick, global); err != nil {
		// undo the lower boundary so the ledger is untouched on failure
		neg := new(big.Int).Neg(liquidityDelta)
		if _, undoErr := b.ledger.ApplyDelta(key.Lower, neg, false, currentTick, global); undoErr != nil {
			return nil, fmt.Errorf("%w (rollback: %v)", err, undoErr)
		}
		return nil, err
	}

	pos, ok := b.positions[key]
	if !ok {
		pos = newPosition()
		b.positions[key] = pos
	}
	pos.settle(b.ledger.FeeGrowthInside(key.Lower, key.Upper, currentTick, global))
	pos.Liquidity.Add(pos.Liquidity, liquidityDelta)
	return pos.clone(), nil
}

// Burn removes liquidityDelta from the position, settling owed fees first.
// Nothing changes when the position holds less than liquidityDelta.
func (b *Book) Burn(key Key, liquidityDelta *big.Int, currentTick int32, global ledger.FeeGrowth) (*Position, error) {
	if liquidityDelta == nil || liquidityDelta.Sign() < 0 {
		return nil, ErrNonPositiveLiquidity
	}
	pos, ok := b.positions[key]
	if !ok || pos.Liquidity.Cmp(liquidityDelta) < 0 {
		held := "0"
		if ok {
			held = pos.Liquidity.String()
		}
		return nil, fmt.Errorf("burn %s from %s holding %s: %w", liquidityDelta, key, held, ErrInsufficientLiquidity)
	}

	if pos.Liquidity.Sign() > 0 {
		pos.settle(b.ledger.FeeGrowthInside(key.Lower, key.Upper, currentTick, global))
	}

	if liquidityDelta.Sign() > 0 {
		neg := new(big.Int).Neg(liquidityDelta)
		if _, err := b.ledger.ApplyDelta(key.Lower, neg, false, currentTick, global); err != nil {
			return nil, err
		}
		if _, err := b.ledger.ApplyDelta(key.Upper, neg, true, currentTick, global); err != nil {
			return nil, err
		}
		pos.Liquidity.Sub(pos.Liquidity, liquidityDelta)
	}

	out := pos.clone()
	if pos.empty() {
		delete(b.positions, key)
	}
	return out, nil
}

// Collect pays out up to the requested amounts of owed fees. Fees accrued
// since the last interaction are settled first.
func (b *Book) Collect(key Key, amount0Requested, amount1Requested *big.Int, currentTick int32, global ledger.FeeGrowth) (*big.Int, *big.Int) {
	pos, ok := b.positions[key]
	if !ok {
		return new(big.Int), new(big.Int)
	}
	if pos.Liquidity.Sign() > 0 {
		pos.settle(b.ledger.FeeGrowthInside(key.Lower, key.Upper, currentTick, global))
	}

	amount0 := minInt(amount0Requested, pos.TokensOwed0)
	amount1 := minInt(amount1Requested, pos.TokensOwed1)
	pos.TokensOwed0.Sub(pos.TokensOwed0, amount0)
	pos.TokensOwed1.Sub(pos.TokensOwed1, amount1)

	if pos.empty() {
		delete(b.positions, key)
	}
	return amount0, amount1
}

// Get returns a copy of the position at key.
func (b *Book) Get(key Key) (Position, bool) {
	pos, ok := b.positions[key]
	if !ok {
		return Position{}, false
	}
	return *pos.clone(), true
}

// Positions returns copies of all positions ordered by owner then range.
func (b *Book) Positions() []Entry {
	out := make([]Entry, 0, len(b.positions))
	for key, pos := range b.positions {
		out = append(out, Entry{Key: key, Position: *pos.clone()})
	}
	sort.Slice(out, func(i, j int) bool {
		a, c := out[i].Key, out[j].Key
		if cmp := a.Owner.Cmp(c.Owner); cmp != 0 {
			return cmp < 0
		}
		if a.Lower != c.Lower {
			return a.Lower < c.Lower
		}
		return a.Upper < c.Upper
	})
	return out
}

// Restore installs a position verbatim without touching the ledger.
func (b *Book) Restore(key Key, pos Position) {
	b.positions[key] = (&pos).clone()
}

// Clone deep-copies the book on top of an already cloned ledger.
func (b *Book) Clone(l *ledger.Ledger) *Book {
	out := &Book{ledger: l, positions: make(map[Key]*Position, len(b.positions))}
	for key, pos := range b.positions {
		out.positions[key] = pos.clone()
	}
	return out
}

func (b *Book) Len() int {
	return len(b.positions)
}

func minInt(requested, owed *big.Int) *big.Int {
	if requested == nil || requested.Sign() <= 0 {
		return new(big.Int)
	}
	if requested.Cmp(owed) < 0 {
		return new(big.Int).Set(requested)
	}
	return new(big.Int).Set(owed)
}
