package pool

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"clmmSim/internal/ledger"
	"clmmSim/internal/position"
	"clmmSim/internal/tickmath"
)

// Params describes a new pool. Fee is in hundredths of a bip, e.g. 3000 for 0.3%.
type Params struct {
	Token0       common.Address
	Token1       common.Address
	SqrtPriceX96 *big.Int
	Fee          uint32
	TickSpacing  int32
}

// Option customizes a Pool.
type Option func(*Pool)

// WithLogger sets the logger used for debug tracing of pool operations.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Pool is a single concentrated-liquidity pool. It is not safe for
// concurrent use; independent simulations should use independent pools.
type Pool struct {
	token0      common.Address
	token1      common.Address
	fee         uint32
	tickSpacing int32

	sqrtPriceX96    *big.Int
	tick            int32
	liquidity       *big.Int
	feeGrowthGlobal ledger.FeeGrowth
	reserve0        *big.Int
	reserve1        *big.Int

	ledger *ledger.Ledger
	book   *position.Book
	logger *zap.Logger
}

// State is a read-only copy of the pool's scalar state.
type State struct {
	Token0               common.Address
	Token1               common.Address
	Fee                  uint32
	TickSpacing          int32
	SqrtPriceX96         *big.Int
	Tick                 int32
	Liquidity            *big.Int
	FeeGrowthGlobal0X128 *big.Int
	FeeGrowthGlobal1X128 *big.Int
	Reserve0             *big.Int
	Reserve1             *big.Int
}

// MintResult identifies the minted position and the deposited amounts.
type MintResult struct {
	Position position.Key
	Amount0  *big.Int
	Amount1  *big.Int
}

func New(params Params, opts ...Option) (*Pool, error) {
	if params.Token0 == params.Token1 {
		return nil, ErrInvalidTokens
	}
	if params.Fee >= tickmath.FeeDenominator {
		return nil, fmt.Errorf("fee %d: %w", params.Fee, ErrInvalidFee)
	}
	if params.TickSpacing <= 0 {
		return nil, fmt.Errorf("tick spacing %d: %w", params.TickSpacing, ErrInvalidTickSpacing)
	}
	tick, err := tickmath.SqrtPriceToTick(params.SqrtPriceX96)
	if err != nil {
		return nil, err
	}
	l, err := ledger.New(params.TickSpacing)
	if err != nil {
		return nil, err
	}

	p := &Pool{
		token0:          params.Token0,
		token1:          params.Token1,
		fee:             params.Fee,
		tickSpacing:     params.TickSpacing,
		sqrtPriceX96:    new(big.Int).Set(params.SqrtPriceX96),
		tick:            tick,
		liquidity:       new(big.Int),
		feeGrowthGlobal: ledger.ZeroFeeGrowth(),
		reserve0:        new(big.Int),
		reserve1:        new(big.Int),
		ledger:          l,
		book:            position.NewBook(l),
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// State returns a copy of the current price, tick, liquidity and accumulators.
func (p *Pool) State() State {
	return State{
		Token0:               p.token0,
		Token1:               p.token1,
		Fee:                  p.fee,
		TickSpacing:          p.tickSpacing,
		SqrtPriceX96:         new(big.Int).Set(p.sqrtPriceX96),
		Tick:                 p.tick,
		Liquidity:            new(big.Int).Set(p.liquidity),
		FeeGrowthGlobal0X128: new(big.Int).Set(p.feeGrowthGlobal.Token0),
		FeeGrowthGlobal1X128: new(big.Int).Set(p.feeGrowthGlobal.Token1),
		Reserve0:             new(big.Int).Set(p.reserve0),
		Reserve1:             new(big.Int).Set(p.reserve1),
	}
}

// Mint adds liquidity to [lower, upper) for owner and returns the token
// amounts the owner must deposit, rounded up.
func (p *Pool) Mint(owner common.Address, lower, upper int32, liquidity *big.Int) (MintResult, error) {
	if err := p.checkRange(lower, upper); err != nil {
		return MintResult{}, err
	}
	if liquidity == nil || liquidity.Sign() <= 0 {
		return MintResult{}, fmt.Errorf("mint liquidity %v: %w", liquidity, ErrInvalidAmount)
	}

	amount0, amount1, err := p.amountsForLiquidity(lower, upper, liquidity, true)
	if err != nil {
		return MintResult{}, err
	}

	key := position.Key{Owner: owner, Lower: lower, Upper: upper}
	if _, err := p.book.Mint(key, liquidity, p.tick, p.feeGrowthGlobal); err != nil {
		return MintResult{}, err
	}
	if p.inRange(lower, upper) {
		p.liquidity.Add(p.liquidity, liquidity)
	}
	p.reserve0.Add(p.reserve0, amount0)
	p.reserve1.Add(p.reserve1, amount1)

	p.logger.Debug("mint",
		zap.Stringer("position", key),
		zap.Stringer("liquidity", liquidity),
		zap.Stringer("amount0", amount0),
		zap.Stringer("amount1", amount1),
	)

	return MintResult{Position: key, Amount0: amount0, Amount1: amount1}, nil
}

// Burn removes liquidity from the owner's position and returns the withdrawn
// reserves, rounded down. Owed fees stay with the position until collected.
func (p *Pool) Burn(owner common.Address, lower, upper int32, liquidity *big.Int) (*big.Int, *big.Int, error) {
	if err := p.checkRange(lower, upper); err != nil {
		return nil, nil, err
	}
	if liquidity == nil || liquidity.Sign() < 0 {
		return nil, nil, fmt.Errorf("burn liquidity %v: %w", liquidity, ErrInvalidAmount)
	}

	amount0, amount1, err := p.amountsForLiquidity(lower, upper, liquidity, false)
	if err != nil {
		return nil, nil, err
	}

	key := position.Key{Owner: owner, Lower: lower, Upper: upper}
	if _, err := p.book.Burn(key, liquidity, p.tick, p.feeGrowthGlobal); err != nil {
		return nil, nil, err
	}
	if p.inRange(lower, upper) {
		p.liquidity.Sub(p.liquidity, liquidity)
	}
	p.reserve0.Sub(p.reserve0, amount0)
	p.reserve1.Sub(p.reserve1, amount1)

	p.logger.Debug("burn",
		zap.Stringer("position", key),
		zap.Stringer("liquidity", liquidity),
		zap.Stringer("amount0", amount0),
		zap.Stringer("amount1", amount1),
	)

	return amount0, amount1, nil
}

// Collect pays out at most amount0Max/amount1Max of the owner's accrued fees.
func (p *Pool) Collect(owner common.Address, lower, upper int32, amount0Max, amount1Max *big.Int) (*big.Int, *big.Int, error) {
	if err := p.checkRange(lower, upper); err != nil {
		return nil, nil, err
	}
	if (amount0Max != nil && amount0Max.Sign() < 0) || (amount1Max != nil && amount1Max.Sign() < 0) {
		return nil, nil, fmt.Errorf("collect maximums must be >= 0: %w", ErrInvalidAmount)
	}

	key := position.Key{Owner: owner, Lower: lower, Upper: upper}
	amount0, amount1 := p.book.Collect(key, amount0Max, amount1Max, p.tick, p.feeGrowthGlobal)
	p.reserve0.Sub(p.reserve0, amount0)
	p.reserve1.Sub(p.reserve1, amount1)

	p.logger.Debug("collect",
		zap.Stringer("position", key),
		zap.Stringer("amount0", amount0),
		zap.Stringer("amount1", amount1),
	)

	return amount0, amount1, nil
}

// Position returns a copy of the owner's position over [lower, upper).
func (p *Pool) Position(owner common.Address, lower, upper int32) (position.Position, bool) {
	return p.book.Get(position.Key{Owner: owner, Lower: lower, Upper: upper})
}

// Positions returns copies of all open positions.
func (p *Pool) Positions() []position.Entry {
	return p.book.Positions()
}

// Ticks returns copies of all initialized ticks in ascending order.
func (p *Pool) Ticks() []ledger.IndexedTick {
	return p.ledger.Ticks()
}

// Clone returns a fully independent copy that logs nowhere.
func (p *Pool) Clone() *Pool {
	l := p.ledger.Clone()
	return &Pool{
		token0:          p.token0,
		token1:          p.token1,
		fee:             p.fee,
		tickSpacing:     p.tickSpacing,
		sqrtPriceX96:    new(big.Int).Set(p.sqrtPriceX96),
		tick:            p.tick,
		liquidity:       new(big.Int).Set(p.liquidity),
		feeGrowthGlobal: p.feeGrowthGlobal.Clone(),
		reserve0:        new(big.Int).Set(p.reserve0),
		reserve1:        new(big.Int).Set(p.reserve1),
		ledger:          l,
		book:            p.book.Clone(l),
		logger:          zap.NewNop(),
	}
}

func (p *Pool) checkRange(lower, upper int32) error {
	if lower >= upper {
		return fmt.Errorf("lower %d >= upper %d: %w", lower, upper, ErrInvalidRange)
	}
	if lower < tickmath.MinTick || upper > tickmath.MaxTick {
		return fmt.Errorf("range [%d, %d): %w", lower, upper, ErrDomain)
	}
	if lower%p.tickSpacing != 0 || upper%p.tickSpacing != 0 {
		return fmt.Errorf("range [%d, %d) not aligned to spacing %d: %w", lower, upper, p.tickSpacing, ErrInvalidRange)
	}
	return nil
}

// inRange mirrors the active-liquidity rule: a position is active when
// lower <= tick < upper.
func (p *Pool) inRange(lower, upper int32) bool {
	return lower <= p.tick && p.tick < upper
}

func (p *Pool) amountsForLiquidity(lower, upper int32, liquidity *big.Int, roundUp bool) (*big.Int, *big.Int, error) {
	sqrtLower, err := tickmath.TickToSqrtPrice(lower)
	if err != nil {
		return nil, nil, err
	}
	sqrtUpper, err := tickmath.TickToSqrtPrice(upper)
	if err != nil {
		return nil, nil, err
	}

	switch {
	case p.tick < lower:
		return tickmath.Amount0Delta(sqrtLower, sqrtUpper, liquidity, roundUp), new(big.Int), nil
	case p.tick < upper:
		return tickmath.Amount0Delta(p.sqrtPriceX96, sqrtUpper, liquidity, roundUp),
			tickmath.Amount1Delta(sqrtLower, p.sqrtPriceX96, liquidity, roundUp), nil
	default:
		return new(big.Int), tickmath.Amount1Delta(sqrtLower, sqrtUpper, liquidity, roundUp), nil
	}
}
