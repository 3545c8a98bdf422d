package config

import (
	"time"

	"github.com/spf13/pflag"
)

// ReplayConfig holds configuration for the replay command.
type ReplayConfig struct {
	Input           string
	PGDSN           string
	StateFile       string
	CheckpointName  string
	CheckpointEvery int
	MaxRetries      int
	RetryBackoff    time.Duration
	LogLevel        string
}

// LoadReplay merges config file, environment variables, and flags into ReplayConfig.
func LoadReplay(cfgFile string, flags *pflag.FlagSet) (ReplayConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"checkpoint-name":  "replay",
		"checkpoint-every": 500,
		"max-retries":      5,
		"retry-backoff":    500 * time.Millisecond,
		"log-level":        "info",
	})
	if err != nil {
		return ReplayConfig{}, err
	}

	return ReplayConfig{
		Input:           v.GetString("in"),
		PGDSN:           v.GetString("pg-dsn"),
		StateFile:       v.GetString("state-file"),
		CheckpointName:  v.GetString("checkpoint-name"),
		CheckpointEvery: v.GetInt("checkpoint-every"),
		MaxRetries:      v.GetInt("max-retries"),
		RetryBackoff:    v.GetDuration("retry-backoff"),
		LogLevel:        v.GetString("log-level"),
	}, nil
}
