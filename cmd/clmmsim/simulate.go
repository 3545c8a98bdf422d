package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"clmmSim/internal/config"
	"clmmSim/internal/pool"
	"clmmSim/internal/scenario"
	"clmmSim/internal/tickmath"
)

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSimulate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Scenario == "" {
		return fmt.Errorf("scenario path is required")
	}
	params, err := cfg.PoolParams()
	if err != nil {
		return err
	}

	p, err := pool.New(params, pool.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("create pool: %w", err)
	}

	file, err := os.Open(cfg.Scenario)
	if err != nil {
		return fmt.Errorf("open scenario: %w", err)
	}
	defer file.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st := p.State()
	logger.Info("simulate start",
		zap.String("scenario", cfg.Scenario),
		zap.String("token0", params.Token0.Hex()),
		zap.String("token1", params.Token1.Hex()),
		zap.Uint32("fee", params.Fee),
		zap.Int32("tick_spacing", params.TickSpacing),
		zap.Stringer("sqrt_price_x96", st.SqrtPriceX96),
		zap.String("price", tickmath.PriceFromSqrtPriceX96(st.SqrtPriceX96).String()),
		zap.Int32("tick", st.Tick),
	)

	stats, err := scenario.NewRunner(p, logger).Run(ctx, file)
	if err != nil {
		return err
	}

	st = p.State()
	logger.Info("simulate complete",
		zap.Int("total", stats.Total),
		zap.Int("succeeded", stats.Succeeded),
		zap.Int("failed", stats.Failed),
		zap.Stringer("sqrt_price_x96", st.SqrtPriceX96),
		zap.Int32("tick", st.Tick),
		zap.Stringer("liquidity", st.Liquidity),
	)
	return nil
}
