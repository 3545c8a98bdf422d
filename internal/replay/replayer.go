package replay

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"clmmSim/internal/model"
	"clmmSim/internal/pool"
)

const defaultCheckpointEvery = 500

// Config controls replay behavior.
type Config struct {
	CheckpointEvery int
	MaxRetries      int
	RetryBackoff    time.Duration
	Store           CheckpointStore
}

// Stats counts what happened to the records of one run.
type Stats struct {
	Total   int
	Applied int
	Skipped int
	Failed  int
	Drifted int
}

// Replayer applies typed pool events to a simulated pool. The pool is seeded
// from the stored checkpoint or, failing that, from the first record's pool
// metadata. Only events of that pool are applied.
type Replayer struct {
	cfg    Config
	logger *zap.Logger

	pool      *pool.Pool
	cursor    model.ReplayCheckpoint
	hasCursor bool
}

func NewReplayer(cfg Config, logger *zap.Logger) *Replayer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CheckpointEvery <= 0 {
		cfg.CheckpointEvery = defaultCheckpointEvery
	}
	return &Replayer{cfg: cfg, logger: logger}
}

// Pool returns the simulated pool, nil before the first record is seen.
func (r *Replayer) Pool() *pool.Pool {
	return r.pool
}

// Cursor returns the position of the last processed record.
func (r *Replayer) Cursor() (model.ReplayCheckpoint, bool) {
	return r.cursor, r.hasCursor
}

// Run replays a typed events JSONL file.
func (r *Replayer) Run(ctx context.Context, inputPath string) (Stats, error) {
	file, err := os.Open(inputPath)
	if err != nil {
		return Stats{}, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()
	return r.Replay(ctx, file)
}

// Replay reads typed event records from in, one JSON object per line.
func (r *Replayer) Replay(ctx context.Context, in io.Reader) (Stats, error) {
	var stats Stats
	if err := r.restore(ctx); err != nil {
		return stats, err
	}

	scanner := bufio.NewScanner(in)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	sinceCheckpoint := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		stats.Total++

		var record model.TypedEventRecord
		if err := json.Unmarshal(line, &record); err != nil {
			stats.Failed++
			r.logger.Warn("decode typed event", zap.Error(err))
			continue
		}

		if r.pool == nil {
			if err := r.seed(record); err != nil {
				return stats, err
			}
		}
		if !strings.EqualFold(record.Address, r.cursor.PoolAddress) {
			stats.Skipped++
			continue
		}
		if r.hasCursor && !r.cursor.After(record.BlockNumber, record.LogIndex) {
			stats.Skipped++
			continue
		}

		applied, drifted, err := r.apply(record)
		switch {
		case err != nil:
			stats.Failed++
			r.logger.Warn("apply event",
				zap.Error(err),
				zap.String("event", record.EventName),
				zap.Uint64("block", record.BlockNumber),
				zap.Uint64("log_index", record.LogIndex),
			)
		case applied:
			stats.Applied++
		default:
			stats.Skipped++
		}
		if drifted {
			stats.Drifted++
		}

		r.cursor.BlockNumber = record.BlockNumber
		r.cursor.LogIndex = record.LogIndex
		r.cursor.Events++
		r.hasCursor = true

		sinceCheckpoint++
		if sinceCheckpoint >= r.cfg.CheckpointEvery {
			if err := r.saveCheckpoint(ctx); err != nil {
				return stats, err
			}
			sinceCheckpoint = 0
		}
	}

	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("scan input: %w", err)
	}
	if sinceCheckpoint > 0 {
		if err := r.saveCheckpoint(ctx); err != nil {
			return stats, err
		}
	}

	r.logger.Info("replay complete",
		zap.Int("total", stats.Total),
		zap.Int("applied", stats.Applied),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
		zap.Int("drifted", stats.Drifted),
	)
	return stats, nil
}

func (r *Replayer) restore(ctx context.Context) error {
	if r.pool != nil || r.cfg.Store == nil {
		return nil
	}
	cp, ok, err := r.cfg.Store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load checkpoint: %w", err)
	}
	if !ok {
		return nil
	}
	p, err := pool.FromSnapshot(cp.Snapshot, pool.WithLogger(r.logger))
	if err != nil {
		return fmt.Errorf("restore checkpoint: %w", err)
	}
	r.pool = p
	r.cursor = cp
	r.hasCursor = true
	r.logger.Info("resume from checkpoint",
		zap.String("pool", cp.PoolAddress),
		zap.Uint64("block", cp.BlockNumber),
		zap.Uint64("log_index", cp.LogIndex),
		zap.Uint64("events", cp.Events),
	)
	return nil
}

func (r *Replayer) saveCheckpoint(ctx context.Context) error {
	if r.cfg.Store == nil || r.pool == nil {
		return nil
	}
	cp := r.cursor
	cp.Snapshot = r.pool.Snapshot()
	if err := r.retry(ctx, "save checkpoint", func(ctx context.Context) error {
		return r.cfg.Store.Save(ctx, cp)
	}); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	r.logger.Debug("checkpoint saved", zap.Uint64("block", cp.BlockNumber), zap.Uint64("log_index", cp.LogIndex))
	return nil
}
