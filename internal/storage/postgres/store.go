package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"clmmSim/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS pools (
	chain_id         BIGINT  NOT NULL,
	pool_address     TEXT    NOT NULL,
	token0           TEXT    NOT NULL,
	token1           TEXT    NOT NULL,
	fee              INTEGER NOT NULL,
	tick_spacing     INTEGER NOT NULL,
	first_seen_block BIGINT  NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (chain_id, pool_address)
);
CREATE TABLE IF NOT EXISTS replay_checkpoints (
	name         TEXT   PRIMARY KEY,
	chain_id     BIGINT NOT NULL,
	pool_address TEXT   NOT NULL,
	block_number BIGINT NOT NULL,
	log_index    BIGINT NOT NULL,
	events       BIGINT NOT NULL,
	snapshot     JSONB  NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store provides Postgres persistence for replay checkpoints.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables used by the store if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// LoadCheckpoint returns the replay checkpoint stored under name.
func (s *Store) LoadCheckpoint(ctx context.Context, name string) (model.ReplayCheckpoint, bool, error) {
	if name == "" {
		return model.ReplayCheckpoint{}, false, fmt.Errorf("checkpoint name required")
	}

	var (
		cp       model.ReplayCheckpoint
		chainID  int64
		block    int64
		logIndex int64
		events   int64
		raw      []byte
	)
	row := s.pool.QueryRow(ctx, `
		SELECT chain_id, pool_address, block_number, log_index, events, snapshot, updated_at::text
		FROM replay_checkpoints WHERE name=$1
	`, name)
	if err := row.Scan(&chainID, &cp.PoolAddress, &block, &logIndex, &events, &raw, &cp.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ReplayCheckpoint{}, false, nil
		}
		return model.ReplayCheckpoint{}, false, err
	}
	if err := json.Unmarshal(raw, &cp.Snapshot); err != nil {
		return model.ReplayCheckpoint{}, false, fmt.Errorf("parse snapshot: %w", err)
	}
	cp.ChainID = uint64(chainID)
	cp.BlockNumber = uint64(block)
	cp.LogIndex = uint64(logIndex)
	cp.Events = uint64(events)
	return cp, true, nil
}

// SaveCheckpoint upserts the checkpoint under name together with the pool
// record it belongs to.
func (s *Store) SaveCheckpoint(ctx context.Context, name string, cp model.ReplayCheckpoint) error {
	if name == "" {
		return fmt.Errorf("checkpoint name required")
	}
	snapshot, err := json.Marshal(cp.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	batch := &pgx.Batch{}
	queuePool(batch, model.Pool{
		ChainID:        cp.ChainID,
		Address:        cp.PoolAddress,
		Token0:         cp.Snapshot.Token0,
		Token1:         cp.Snapshot.Token1,
		Fee:            cp.Snapshot.Fee,
		TickSpacing:    cp.Snapshot.TickSpacing,
		FirstSeenBlock: cp.BlockNumber,
	})
	batch.Queue(`
		INSERT INTO replay_checkpoints (
			name, chain_id, pool_address, block_number, log_index, events, snapshot, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (name) DO UPDATE
		SET chain_id = EXCLUDED.chain_id,
			pool_address = EXCLUDED.pool_address,
			block_number = EXCLUDED.block_number,
			log_index = EXCLUDED.log_index,
			events = EXCLUDED.events,
			snapshot = EXCLUDED.snapshot,
			updated_at = now()
	`,
		name,
		int64(cp.ChainID),
		cp.PoolAddress,
		int64(cp.BlockNumber),
		int64(cp.LogIndex),
		int64(cp.Events),
		snapshot,
	)

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func queuePool(batch *pgx.Batch, pool model.Pool) {
	batch.Queue(`
		INSERT INTO pools (
			chain_id, pool_address, token0, token1, fee, tick_spacing, first_seen_block, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		ON CONFLICT (chain_id, pool_address)
		DO UPDATE SET
			token0 = EXCLUDED.token0,
			token1 = EXCLUDED.token1,
			fee = EXCLUDED.fee,
			tick_spacing = EXCLUDED.tick_spacing,
			first_seen_block = LEAST(pools.first_seen_block, EXCLUDED.first_seen_block),
			updated_at = now()
	`,
		int64(pool.ChainID),
		pool.Address,
		pool.Token0,
		pool.Token1,
		pool.Fee,
		pool.TickSpacing,
		int64(pool.FirstSeenBlock),
	)
}
