package clipstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/glizzus/sound-clips/internal/datalayer"
)

var digestPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Digest returns the lowercase hex SHA-256 of data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ValidDigest reports whether s looks like a value returned by Digest.
func ValidDigest(s string) bool {
	return digestPattern.MatchString(s)
}

// ErrInvalidDigest is returned for keys that are not digests.
var ErrInvalidDigest = errors.New("not a clip digest")

// StorageError wraps a failure of the underlying blob storage.
type StorageError struct {
	Op     string
	Digest string
	Err    error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("clip storage %s %s: %v", e.Op, e.Digest, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

var _ error = (*StorageError)(nil)

type Store struct {
	blobs  datalayer.BlobStorage
	logger *slog.Logger
}

func New(blobs datalayer.BlobStorage, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{blobs: blobs, logger: logger}
}

// Put stores data under its digest unless a blob with that digest
// already exists, and returns the digest either way.
func (s *Store) Put(ctx context.Context, data []byte) (string, error) {
	digest := Digest(data)

	exists, err := s.blobs.Exists(ctx, digest)
	if err != nil {
		return "", &StorageError{Op: "stat", Digest: digest, Err: err}
	}
	if exists {
		s.logger.DebugContext(ctx, "blob already stored", slog.String("digest", digest))
		return digest, nil
	}

	err = s.blobs.Put(ctx, digest, bytes.NewReader(data), datalayer.PutOptions{
		Size:        int64(len(data)),
		ContentType: http.DetectContentType(data),
	})
	if err != nil {
		return "", &StorageError{Op: "put", Digest: digest, Err: err}
	}

	s.logger.InfoContext(ctx, "stored blob",
		slog.String("digest", digest),
		slog.Int("size", len(data)),
	)
	return digest, nil
}

func (s *Store) Exists(ctx context.Context, digest string) (bool, error) {
	if !ValidDigest(digest) {
		return false, &StorageError{Op: "stat", Digest: digest, Err: ErrInvalidDigest}
	}
	exists, err := s.blobs.Exists(ctx, digest)
	if err != nil {
		return false, &StorageError{Op: "stat", Digest: digest, Err: err}
	}
	return exists, nil
}

// Locate returns where a playback sink can read the blob for digest.
func (s *Store) Locate(ctx context.Context, digest string) (string, error) {
	location, err := s.blobs.Locate(ctx, digest)
	if err != nil {
		return "", &StorageError{Op: "locate", Digest: digest, Err: err}
	}
	return location, nil
}

// Delete removes the blob for digest. Deleting a missing blob is a no-op.
// Callers must have confirmed no clip references digest.
func (s *Store) Delete(ctx context.Context, digest string) error {
	if !ValidDigest(digest) {
		return &StorageError{Op: "delete", Digest: digest, Err: ErrInvalidDigest}
	}
	if err := s.blobs.Delete(ctx, digest); err != nil {
		return &StorageError{Op: "delete", Digest: digest, Err: err}
	}
	s.logger.InfoContext(ctx, "deleted blob", slog.String("digest", digest))
	return nil
}

// Sweep deletes every stored blob for which referenced reports false and
// returns the removed digests. Keys that are not digests are left alone.
func (s *Store) Sweep(ctx context.Context, referenced func(ctx context.Context, digest string) (bool, error)) ([]string, error) {
	keys, err := s.blobs.Keys(ctx)
	if err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}

	var removed []string
	for _, key := range keys {
		if !ValidDigest(key) {
			continue
		}
		inUse, err := referenced(ctx, key)
		if err != nil {
			return removed, fmt.Errorf("failed to check references for %s: %w", key, err)
		}
		if inUse {
			continue
		}
		if err := s.Delete(ctx, key); err != nil {
			return removed, err
		}
		removed = append(removed, key)
	}
	return removed, nil
}
