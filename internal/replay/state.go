package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"clmmSim/internal/model"
)

// CheckpointStore persists the replay cursor and the pool snapshot taken at it.
type CheckpointStore interface {
	Load(ctx context.Context) (model.ReplayCheckpoint, bool, error)
	Save(ctx context.Context, cp model.ReplayCheckpoint) error
}

// FileCheckpointStore stores the checkpoint in a local JSON file.
type FileCheckpointStore struct {
	Path string
}

func (s *FileCheckpointStore) Load(ctx context.Context) (model.ReplayCheckpoint, bool, error) {
	if s == nil || s.Path == "" {
		return model.ReplayCheckpoint{}, false, nil
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.ReplayCheckpoint{}, false, nil
		}
		return model.ReplayCheckpoint{}, false, fmt.Errorf("read checkpoint: %w", err)
	}

	var cp model.ReplayCheckpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return model.ReplayCheckpoint{}, false, fmt.Errorf("parse checkpoint: %w", err)
	}
	return cp, true, nil
}

func (s *FileCheckpointStore) Save(ctx context.Context, cp model.ReplayCheckpoint) error {
	if s == nil || s.Path == "" {
		return nil
	}
	dir := filepath.Dir(s.Path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}

	cp.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint tmp: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	return nil
}
