package config

import (
	"context"

	"github.com/sethvargo/go-envconfig"
)

type MetricsConfig struct {
	// Addr is the listen address of the /metrics endpoint. Empty disables it.
	Addr string `env:"METRICS_ADDR"`
}

func NewMetricsConfigFromEnv() (*MetricsConfig, error) {
	var cfg MetricsConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
