package datalayer

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/glizzus/sound-clips/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type PutOptions struct {
	Size        int64
	ContentType string
}

// BlobStorage is a flat key/value store of opaque payloads.
// Keys never contain path separators.
type BlobStorage interface {
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error

	// Locate returns a location a playback sink can read the blob from,
	// either a filesystem path or a URL.
	Locate(ctx context.Context, key string) (string, error)

	// Keys lists every stored key.
	Keys(ctx context.Context) ([]string, error)
}

// NewBlobStorageFromConfig builds the backend selected by cfg.Backend.
func NewBlobStorageFromConfig(ctx context.Context, cfg *config.StorageConfig) (BlobStorage, error) {
	switch cfg.Backend {
	case config.StorageBackendFile:
		return NewFileStorage(cfg.Path)
	case config.StorageBackendMinio:
		minioStorage, err := NewMinioStorageFromEnv()
		if err != nil {
			return nil, fmt.Errorf("failed to create minio storage: %w", err)
		}
		if err := minioStorage.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure minio bucket: %w", err)
		}
		return minioStorage, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

type MinioStorage struct {
	client    *minio.Client
	bucket    string
	prefix    string
	urlExpiry time.Duration
}

func NewMinioStorageFromEnv() (*MinioStorage, error) {
	cfg, err := config.NewMinioConfigFromEnv()
	if err != nil {
		return nil, err
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Username, cfg.Password, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, err
	}

	return &MinioStorage{
		client:    client,
		bucket:    cfg.Bucket,
		prefix:    strings.Trim(cfg.Prefix, "/"),
		urlExpiry: cfg.URLExpiry,
	}, nil
}

func (s *MinioStorage) EnsureBucket(ctx context.Context) error {
	err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
	// If the bucket is already owned, succeed
	if err != nil {
		if minio.ToErrorResponse(err).Code == "BucketAlreadyOwnedByYou" {
			return nil
		}
		return err
	}
	return nil
}

var _ BlobStorage = (*MinioStorage)(nil)

func (s *MinioStorage) objectName(key string) string {
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}

func (s *MinioStorage) Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.objectName(key), data, opts.Size, minio.PutObjectOptions{
		ContentType: opts.ContentType,
	})
	return err
}

func (s *MinioStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, s.objectName(key), minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Delete removes the object. Removing a missing object is not an error.
func (s *MinioStorage) Delete(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.bucket, s.objectName(key), minio.RemoveObjectOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != "NoSuchKey" {
		return err
	}
	return nil
}

// Locate returns a presigned GET URL valid for the configured expiry.
func (s *MinioStorage) Locate(ctx context.Context, key string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, s.objectName(key), s.urlExpiry, url.Values{})
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (s *MinioStorage) Keys(ctx context.Context) ([]string, error) {
	opts := minio.ListObjectsOptions{Recursive: true}
	if s.prefix != "" {
		opts.Prefix = s.prefix + "/"
	}

	var keys []string
	for obj := range s.client.ListObjects(ctx, s.bucket, opts) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		keys = append(keys, path.Base(obj.Key))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}
