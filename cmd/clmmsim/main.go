package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "clmmsim",
		Short:        "Concentrated-liquidity pool simulator",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a scenario of pool operations",
		RunE:  runSimulate,
	}

	simulateCmd.Flags().String("in", "", "scenario JSONL path (one op per line)")
	simulateCmd.Flags().String("sqrt-price", "1", "initial sqrt price as a decimal")
	simulateCmd.Flags().String("price", "", "initial token1/token0 price, overrides --sqrt-price")
	simulateCmd.Flags().String("fee-tier", "0.003", "fee as a fraction (e.g. 0.0005, 0.003)")
	simulateCmd.Flags().Int32("tick-spacing", 0, "tick spacing, 0 means the fee tier default")
	simulateCmd.Flags().String("token0", "0x0000000000000000000000000000000000000001", "token0 address")
	simulateCmd.Flags().String("token1", "0x0000000000000000000000000000000000000002", "token1 address")
	simulateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(simulateCmd)

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay typed pool events against a simulated pool",
		RunE:  runReplay,
	}

	replayCmd.Flags().String("in", "", "input typed events JSONL")
	replayCmd.Flags().String("pg-dsn", "", "Postgres DSN for checkpoints")
	replayCmd.Flags().String("state-file", "", "local checkpoint file, used instead of Postgres when set")
	replayCmd.Flags().String("checkpoint-name", "replay", "checkpoint name in Postgres")
	replayCmd.Flags().Int("checkpoint-every", 500, "events between checkpoints")
	replayCmd.Flags().Int("max-retries", 5, "maximum checkpoint save retries")
	replayCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	replayCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(replayCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
