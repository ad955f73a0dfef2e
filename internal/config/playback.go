package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type PlaybackConfig struct {
	ConnectTimeout time.Duration `env:"PLAYBACK_CONNECT_TIMEOUT, default=10s"`

	// CommandRate is how many play/skip commands a single user may issue per minute.
	CommandRate int `env:"PLAYBACK_COMMANDS_PER_MINUTE, default=20"`
}

func NewPlaybackConfigFromEnv() (*PlaybackConfig, error) {
	var cfg PlaybackConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
