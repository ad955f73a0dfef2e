package config

import (
	"context"
	"fmt"

	"github.com/glizzus/sound-clips/internal/schedule"
	"github.com/sethvargo/go-envconfig"
)

const (
	StorageBackendFile  = "file"
	StorageBackendMinio = "minio"
)

// StorageConfig describes where clip blobs live and how large they may be.
type StorageConfig struct {
	Backend string `env:"CLIP_STORAGE_BACKEND, default=file"`
	Path    string `env:"CLIP_STORAGE_PATH, default=./clips"`

	// MaxClipSize is the largest accepted payload in bytes.
	MaxClipSize int64 `env:"CLIP_MAX_SIZE, default=2621440"`

	// GCCron schedules the orphan blob sweep. Empty disables it.
	GCCron string `env:"CLIP_GC_CRON, default=@daily"`
}

func NewStorageConfigFromEnv() (*StorageConfig, error) {
	var cfg StorageConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *StorageConfig) Validate() error {
	switch c.Backend {
	case StorageBackendFile:
		if c.Path == "" {
			return fmt.Errorf("CLIP_STORAGE_PATH is required for the file backend")
		}
	case StorageBackendMinio:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Backend)
	}
	if c.MaxClipSize <= 0 {
		return fmt.Errorf("CLIP_MAX_SIZE must be positive, got %d", c.MaxClipSize)
	}
	if c.GCCron != "" {
		if err := schedule.ValidateCron(c.GCCron); err != nil {
			return fmt.Errorf("invalid CLIP_GC_CRON: %w", err)
		}
	}
	return nil
}
