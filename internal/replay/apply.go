package replay

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"clmmSim/internal/model"
	"clmmSim/internal/pool"
	"clmmSim/internal/tickmath"
)

// Event names as emitted by the event indexer.
const (
	EventMint    = "Mint"
	EventBurn    = "Burn"
	EventCollect = "Collect"
	EventSwap    = "Swap"
)

var errMissingSlot0 = errors.New("pool meta has no slot0 price")

// seed creates the simulated pool from a record's pool metadata.
func (r *Replayer) seed(record model.TypedEventRecord) error {
	meta := record.PoolMeta
	if meta.Slot0 == nil {
		return fmt.Errorf("seed pool %s: %w", record.Address, errMissingSlot0)
	}
	token0, err := parseAddress(meta.Token0)
	if err != nil {
		return fmt.Errorf("seed pool %s token0: %w", record.Address, err)
	}
	token1, err := parseAddress(meta.Token1)
	if err != nil {
		return fmt.Errorf("seed pool %s token1: %w", record.Address, err)
	}
	sqrtPrice, err := parseInt(meta.Slot0.SqrtPriceX96)
	if err != nil {
		return fmt.Errorf("seed pool %s price: %w", record.Address, err)
	}
	spacing := meta.TickSpacing
	if spacing == 0 {
		var ok bool
		if spacing, ok = pool.DefaultTickSpacing(meta.Fee); !ok {
			return fmt.Errorf("seed pool %s: no tick spacing for fee %d", record.Address, meta.Fee)
		}
	}

	p, err := pool.New(pool.Params{
		Token0:       token0,
		Token1:       token1,
		SqrtPriceX96: sqrtPrice,
		Fee:          meta.Fee,
		TickSpacing:  spacing,
	}, pool.WithLogger(r.logger))
	if err != nil {
		return fmt.Errorf("seed pool %s: %w", record.Address, err)
	}

	r.pool = p
	r.cursor.ChainID = record.ChainID
	r.cursor.PoolAddress = record.Address
	r.logger.Info("pool seeded",
		zap.String("pool", record.Address),
		zap.Uint32("fee", meta.Fee),
		zap.Int32("tick_spacing", spacing),
		zap.String("price", tickmath.PriceFromSqrtPriceX96(sqrtPrice).String()),
	)
	return nil
}

// apply runs one record against the pool. It reports whether the record was
// a pool action and whether the simulated price drifted from the observed one.
func (r *Replayer) apply(record model.TypedEventRecord) (bool, bool, error) {
	switch record.EventName {
	case EventMint:
		var ev model.MintEventData
		if err := json.Unmarshal(record.Decoded, &ev); err != nil {
			return false, false, fmt.Errorf("decode mint: %w", err)
		}
		return true, false, r.applyMint(ev)
	case EventBurn:
		var ev model.BurnEventData
		if err := json.Unmarshal(record.Decoded, &ev); err != nil {
			return false, false, fmt.Errorf("decode burn: %w", err)
		}
		return true, false, r.applyBurn(ev)
	case EventCollect:
		var ev model.CollectEventData
		if err := json.Unmarshal(record.Decoded, &ev); err != nil {
			return false, false, fmt.Errorf("decode collect: %w", err)
		}
		return true, false, r.applyCollect(ev)
	case EventSwap:
		var ev model.SwapEventData
		if err := json.Unmarshal(record.Decoded, &ev); err != nil {
			return false, false, fmt.Errorf("decode swap: %w", err)
		}
		drifted, err := r.applySwap(ev)
		return true, drifted, err
	default:
		return false, false, nil
	}
}

func (r *Replayer) applyMint(ev model.MintEventData) error {
	owner, err := parseAddress(ev.Owner)
	if err != nil {
		return err
	}
	liquidity, err := parseInt(ev.Amount)
	if err != nil {
		return err
	}
	res, err := r.pool.Mint(owner, ev.TickLower, ev.TickUpper, liquidity)
	if err != nil {
		return err
	}
	r.logger.Debug("mint replayed",
		zap.Stringer("position", res.Position),
		zap.Stringer("amount0", res.Amount0),
		zap.String("observed_amount0", ev.Amount0),
		zap.Stringer("amount1", res.Amount1),
		zap.String("observed_amount1", ev.Amount1),
	)
	return nil
}

func (r *Replayer) applyBurn(ev model.BurnEventData) error {
	owner, err := parseAddress(ev.Owner)
	if err != nil {
		return err
	}
	liquidity, err := parseInt(ev.Amount)
	if err != nil {
		return err
	}
	amount0, amount1, err := r.pool.Burn(owner, ev.TickLower, ev.TickUpper, liquidity)
	if err != nil {
		return err
	}
	r.logger.Debug("burn replayed",
		zap.Stringer("amount0", amount0),
		zap.String("observed_amount0", ev.Amount0),
		zap.Stringer("amount1", amount1),
		zap.String("observed_amount1", ev.Amount1),
	)
	return nil
}

func (r *Replayer) applyCollect(ev model.CollectEventData) error {
	owner, err := parseAddress(ev.Owner)
	if err != nil {
		return err
	}
	amount0, err := parseInt(ev.Amount0)
	if err != nil {
		return err
	}
	amount1, err := parseInt(ev.Amount1)
	if err != nil {
		return err
	}
	got0, got1, err := r.pool.Collect(owner, ev.TickLower, ev.TickUpper, amount0, amount1)
	if err != nil {
		return err
	}
	if got0.Cmp(amount0) != 0 || got1.Cmp(amount1) != 0 {
		r.logger.Debug("collect short",
			zap.Stringer("amount0", got0),
			zap.String("observed_amount0", ev.Amount0),
			zap.Stringer("amount1", got1),
			zap.String("observed_amount1", ev.Amount1),
		)
	}
	return nil
}

// applySwap replays a swap as exact input. Event amounts are signed from the
// pool's side: positive is paid into the pool. The observed post-swap price is
// used as the limit when it lies in the swap direction.
func (r *Replayer) applySwap(ev model.SwapEventData) (bool, error) {
	amount0, err := parseInt(ev.Amount0)
	if err != nil {
		return false, err
	}
	amount1, err := parseInt(ev.Amount1)
	if err != nil {
		return false, err
	}
	observed, err := parseInt(ev.SqrtPriceX96)
	if err != nil {
		return false, err
	}

	zeroForOne := amount0.Sign() > 0
	amountIn := amount1
	if zeroForOne {
		amountIn = amount0
	}
	if amountIn.Sign() <= 0 {
		return false, fmt.Errorf("swap without input: amount0=%s amount1=%s", ev.Amount0, ev.Amount1)
	}

	current := r.pool.State().SqrtPriceX96
	var limit *big.Int
	if (zeroForOne && observed.Cmp(current) < 0) || (!zeroForOne && observed.Cmp(current) > 0) {
		if tickmath.ValidSqrtPrice(observed) {
			limit = observed
		}
	}

	res, err := r.pool.SwapExactIn(zeroForOne, amountIn, limit)
	if err != nil {
		return false, err
	}

	if res.SqrtPriceX96.Cmp(observed) == 0 {
		return false, nil
	}
	r.logger.Warn("price drift",
		zap.Stringer("sqrt_price_x96", res.SqrtPriceX96),
		zap.String("observed_sqrt_price_x96", ev.SqrtPriceX96),
		zap.Int32("tick", res.Tick),
		zap.Int32("observed_tick", ev.Tick),
		zap.Stringer("liquidity", res.Liquidity),
		zap.String("observed_liquidity", ev.Liquidity),
		zap.String("price", tickmath.PriceFromSqrtPriceX96(res.SqrtPriceX96).String()),
		zap.String("observed_price", tickmath.PriceFromSqrtPriceX96(observed).String()),
	)
	return true, nil
}

func parseAddress(value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("invalid address: %s", value)
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
