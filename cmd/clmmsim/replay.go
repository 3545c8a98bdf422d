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
	"clmmSim/internal/replay"
	"clmmSim/internal/storage/postgres"
)

func runReplay(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReplay(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Input == "" {
		return fmt.Errorf("input path is required")
	}
	if cfg.StateFile == "" && cfg.PGDSN == "" {
		return fmt.Errorf("either state-file or pg-dsn is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store replay.CheckpointStore
	if cfg.StateFile != "" {
		store = &replay.FileCheckpointStore{Path: cfg.StateFile}
	} else {
		pg, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pg.Close()
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		store = &replay.DBCheckpointStore{Store: pg, Name: cfg.CheckpointName}
	}

	r := replay.NewReplayer(replay.Config{
		CheckpointEvery: cfg.CheckpointEvery,
		MaxRetries:      cfg.MaxRetries,
		RetryBackoff:    cfg.RetryBackoff,
		Store:           store,
	}, logger)

	logger.Info("replay start",
		zap.String("input", cfg.Input),
		zap.String("state_file", cfg.StateFile),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.String("checkpoint_name", cfg.CheckpointName),
		zap.Int("checkpoint_every", cfg.CheckpointEvery),
	)

	if _, err := r.Run(ctx, cfg.Input); err != nil {
		return err
	}
	return nil
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
