package replay

import (
	"context"

	"clmmSim/internal/model"
	"clmmSim/internal/storage/postgres"
)

// DBCheckpointStore stores the checkpoint in the replay_checkpoints table.
type DBCheckpointStore struct {
	Store *postgres.Store
	Name  string
}

func (s *DBCheckpointStore) Load(ctx context.Context) (model.ReplayCheckpoint, bool, error) {
	if s == nil || s.Store == nil {
		return model.ReplayCheckpoint{}, false, nil
	}
	return s.Store.LoadCheckpoint(ctx, s.Name)
}

func (s *DBCheckpointStore) Save(ctx context.Context, cp model.ReplayCheckpoint) error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.SaveCheckpoint(ctx, s.Name, cp)
}
