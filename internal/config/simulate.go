package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"

	"clmmSim/internal/pool"
	"clmmSim/internal/tickmath"
)

// SimulateConfig holds configuration for the simulate command.
type SimulateConfig struct {
	Scenario    string
	SqrtPrice   string
	Price       string
	FeeTier     string
	TickSpacing int32
	Token0      string
	Token1      string
	LogLevel    string
}

// LoadSimulate merges config file, environment variables, and flags into SimulateConfig.
func LoadSimulate(cfgFile string, flags *pflag.FlagSet) (SimulateConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"sqrt-price": "1",
		"fee-tier":   "0.003",
		"token0":     "0x0000000000000000000000000000000000000001",
		"token1":     "0x0000000000000000000000000000000000000002",
		"log-level":  "info",
	})
	if err != nil {
		return SimulateConfig{}, err
	}

	return SimulateConfig{
		Scenario:    v.GetString("in"),
		SqrtPrice:   v.GetString("sqrt-price"),
		Price:       v.GetString("price"),
		FeeTier:     v.GetString("fee-tier"),
		TickSpacing: v.GetInt32("tick-spacing"),
		Token0:      v.GetString("token0"),
		Token1:      v.GetString("token1"),
		LogLevel:    v.GetString("log-level"),
	}, nil
}

// PoolParams converts the configured pool into pool parameters. Price takes
// precedence over SqrtPrice; a zero tick spacing selects the fee tier default.
func (c SimulateConfig) PoolParams() (pool.Params, error) {
	var params pool.Params

	for _, tok := range []struct {
		name  string
		value string
		dst   *common.Address
	}{
		{"token0", c.Token0, &params.Token0},
		{"token1", c.Token1, &params.Token1},
	} {
		if !common.IsHexAddress(tok.value) {
			return pool.Params{}, fmt.Errorf("invalid %s address: %s", tok.name, tok.value)
		}
		*tok.dst = common.HexToAddress(tok.value)
	}

	fraction, err := decimal.NewFromString(strings.TrimSpace(c.FeeTier))
	if err != nil {
		return pool.Params{}, fmt.Errorf("parse fee tier: %w", err)
	}
	if params.Fee, err = pool.FeeFromFraction(fraction); err != nil {
		return pool.Params{}, err
	}

	params.TickSpacing = c.TickSpacing
	if params.TickSpacing == 0 {
		spacing, ok := pool.DefaultTickSpacing(params.Fee)
		if !ok {
			return pool.Params{}, fmt.Errorf("tick spacing required for fee %d", params.Fee)
		}
		params.TickSpacing = spacing
	}

	if strings.TrimSpace(c.Price) != "" {
		price, err := decimal.NewFromString(strings.TrimSpace(c.Price))
		if err != nil {
			return pool.Params{}, fmt.Errorf("parse price: %w", err)
		}
		if params.SqrtPriceX96, err = tickmath.SqrtPriceX96FromPrice(price); err != nil {
			return pool.Params{}, err
		}
		return params, nil
	}

	sqrtPrice, err := decimal.NewFromString(strings.TrimSpace(c.SqrtPrice))
	if err != nil {
		return pool.Params{}, fmt.Errorf("parse sqrt price: %w", err)
	}
	if params.SqrtPriceX96, err = tickmath.SqrtPriceX96FromDecimal(sqrtPrice); err != nil {
		return pool.Params{}, err
	}
	return params, nil
}
