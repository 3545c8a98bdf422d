package scenario

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"clmmSim/internal/pool"
	"clmmSim/internal/tickmath"
)

// Operation names accepted in a scenario file.
const (
	OpMint         = "mint"
	OpBurn         = "burn"
	OpCollect      = "collect"
	OpSwapExactIn  = "swap_exact_in"
	OpSwapExactOut = "swap_exact_out"
	OpQuoteIn      = "quote_exact_in"
	OpQuoteOut     = "quote_exact_out"
	OpState        = "state"
)

// maxCollect stands in for an omitted collect maximum.
var maxCollect = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// Op is one line of a scenario file. Big integers are decimal strings.
type Op struct {
	Op                string `json:"op"`
	Owner             string `json:"owner,omitempty"`
	Lower             int32  `json:"lower,omitempty"`
	Upper             int32  `json:"upper,omitempty"`
	Liquidity         string `json:"liquidity,omitempty"`
	ZeroForOne        bool   `json:"zero_for_one,omitempty"`
	Amount            string `json:"amount,omitempty"`
	Amount0           string `json:"amount0,omitempty"`
	Amount1           string `json:"amount1,omitempty"`
	SqrtPriceLimitX96 string `json:"sqrt_price_limit_x96,omitempty"`
}

// Stats counts scenario lines by outcome.
type Stats struct {
	Total     int
	Succeeded int
	Failed    int
}

// Runner executes scenario operations against one pool.
type Runner struct {
	pool   *pool.Pool
	logger *zap.Logger
}

func NewRunner(p *pool.Pool, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{pool: p, logger: logger}
}

// Run reads one JSON operation per line. A failing operation is logged and
// counted; it leaves the pool unchanged and does not stop the run.
func (r *Runner) Run(ctx context.Context, in io.Reader) (Stats, error) {
	var stats Stats
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 || raw[0] == '#' {
			continue
		}
		stats.Total++

		var op Op
		if err := json.Unmarshal(raw, &op); err != nil {
			stats.Failed++
			r.logger.Warn("decode op", zap.Int("line", line), zap.Error(err))
			continue
		}
		if err := r.Apply(op); err != nil {
			stats.Failed++
			r.logger.Warn("op failed", zap.Int("line", line), zap.String("op", op.Op), zap.Error(err))
			continue
		}
		stats.Succeeded++
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("scan scenario: %w", err)
	}
	return stats, nil
}

// Apply executes a single operation and logs its result.
func (r *Runner) Apply(op Op) error {
	switch op.Op {
	case OpMint:
		owner, liquidity, err := ownerAndInt(op.Owner, op.Liquidity)
		if err != nil {
			return err
		}
		res, err := r.pool.Mint(owner, op.Lower, op.Upper, liquidity)
		if err != nil {
			return err
		}
		r.logger.Info("mint",
			zap.Stringer("position", res.Position),
			zap.Stringer("liquidity", liquidity),
			zap.Stringer("amount0", res.Amount0),
			zap.Stringer("amount1", res.Amount1),
		)
	case OpBurn:
		owner, liquidity, err := ownerAndInt(op.Owner, op.Liquidity)
		if err != nil {
			return err
		}
		amount0, amount1, err := r.pool.Burn(owner, op.Lower, op.Upper, liquidity)
		if err != nil {
			return err
		}
		r.logger.Info("burn",
			zap.String("owner", owner.Hex()),
			zap.Stringer("amount0", amount0),
			zap.Stringer("amount1", amount1),
		)
	case OpCollect:
		owner, err := parseOwner(op.Owner)
		if err != nil {
			return err
		}
		max0, err := optionalInt(op.Amount0, maxCollect)
		if err != nil {
			return err
		}
		max1, err := optionalInt(op.Amount1, maxCollect)
		if err != nil {
			return err
		}
		amount0, amount1, err := r.pool.Collect(owner, op.Lower, op.Upper, max0, max1)
		if err != nil {
			return err
		}
		r.logger.Info("collect",
			zap.String("owner", owner.Hex()),
			zap.Stringer("amount0", amount0),
			zap.Stringer("amount1", amount1),
		)
	case OpSwapExactIn, OpSwapExactOut, OpQuoteIn, OpQuoteOut:
		return r.swap(op)
	case OpState:
		st := r.pool.State()
		r.logger.Info("state",
			zap.Stringer("sqrt_price_x96", st.SqrtPriceX96),
			zap.String("price", tickmath.PriceFromSqrtPriceX96(st.SqrtPriceX96).String()),
			zap.Int32("tick", st.Tick),
			zap.Stringer("liquidity", st.Liquidity),
			zap.Stringer("fee_growth_global0_x128", st.FeeGrowthGlobal0X128),
			zap.Stringer("fee_growth_global1_x128", st.FeeGrowthGlobal1X128),
			zap.Stringer("reserve0", st.Reserve0),
			zap.Stringer("reserve1", st.Reserve1),
			zap.Int("positions", len(r.pool.Positions())),
		)
	default:
		return fmt.Errorf("unknown op %q", op.Op)
	}
	return nil
}

func (r *Runner) swap(op Op) error {
	amount, err := parseInt(op.Amount)
	if err != nil {
		return err
	}
	limit, err := optionalInt(op.SqrtPriceLimitX96, nil)
	if err != nil {
		return err
	}

	var res pool.SwapResult
	switch op.Op {
	case OpSwapExactIn:
		res, err = r.pool.SwapExactIn(op.ZeroForOne, amount, limit)
	case OpSwapExactOut:
		res, err = r.pool.SwapExactOut(op.ZeroForOne, amount, limit)
	case OpQuoteIn:
		res, err = r.pool.QuoteExactIn(op.ZeroForOne, amount, limit)
	default:
		res, err = r.pool.QuoteExactOut(op.ZeroForOne, amount, limit)
	}
	if err != nil {
		return err
	}

	r.logger.Info(op.Op,
		zap.Bool("zero_for_one", op.ZeroForOne),
		zap.Stringer("amount0", res.Amount0),
		zap.Stringer("amount1", res.Amount1),
		zap.Stringer("fee", res.FeeAmount),
		zap.Stringer("sqrt_price_x96", res.SqrtPriceX96),
		zap.Int32("tick", res.Tick),
		zap.Stringer("liquidity", res.Liquidity),
		zap.Int("ticks_crossed", res.TicksCrossed),
	)
	return nil
}

func ownerAndInt(owner, value string) (common.Address, *big.Int, error) {
	addr, err := parseOwner(owner)
	if err != nil {
		return common.Address{}, nil, err
	}
	v, err := parseInt(value)
	if err != nil {
		return common.Address{}, nil, err
	}
	return addr, v, nil
}

func parseOwner(value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("invalid owner address: %q", value)
	}
	return common.HexToAddress(value), nil
}

func parseInt(value string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer: %q", value)
	}
	return v, nil
}

func optionalInt(value string, fallback *big.Int) (*big.Int, error) {
	if value == "" {
		return fallback, nil
	}
	return parseInt(value)
}
