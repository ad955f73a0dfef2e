package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type MinioConfig struct {
	Endpoint  string        `env:"MINIO_ENDPOINT, required"`
	Username  string        `env:"MINIO_USERNAME, required"`
	Password  string        `env:"MINIO_PASSWORD, required"`
	Bucket    string        `env:"MINIO_BUCKET, default=soundclips"`
	Prefix    string        `env:"MINIO_PREFIX, default=clips"`
	Secure    bool          `env:"MINIO_SECURE, default=false"`
	URLExpiry time.Duration `env:"MINIO_URL_EXPIRY, default=15m"`
}

func NewMinioConfigFromEnv() (*MinioConfig, error) {
	var cfg MinioConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
