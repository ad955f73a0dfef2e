package clipstore_test

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"testing"

	"github.com/glizzus/sound-clips/internal/clipstore"
	"github.com/glizzus/sound-clips/internal/datalayer"
	"github.com/google/go-cmp/cmp"
)

func newStore(t *testing.T) (*clipstore.Store, *datalayer.FileStorage) {
	t.Helper()
	blobs, err := datalayer.NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create file storage: %v", err)
	}
	return clipstore.New(blobs, nil), blobs
}

func TestDigest(t *testing.T) {
	data := []byte("AUDIOBYTES")
	sum := sha256.Sum256(data)
	want := hex.EncodeToString(sum[:])

	if got := clipstore.Digest(data); got != want {
		t.Errorf("Digest() = %s, want %s", got, want)
	}
	if !clipstore.ValidDigest(want) {
		t.Errorf("ValidDigest(%s) = false, want true", want)
	}
	if clipstore.ValidDigest("boo") {
		t.Error("ValidDigest(boo) = true, want false")
	}
}

func TestPutDeduplicates(t *testing.T) {
	store, blobs := newStore(t)
	ctx := t.Context()

	first, err := store.Put(ctx, []byte("AUDIOBYTES"))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	second, err := store.Put(ctx, []byte("AUDIOBYTES"))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if first != second {
		t.Errorf("identical payloads produced digests %s and %s", first, second)
	}

	keys, err := blobs.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if diff := cmp.Diff([]string{first}, keys); diff != "" {
		t.Errorf("stored blobs mismatch (-want +got):\n%s", diff)
	}
}

func TestDeleteMissingIsNoop(t *testing.T) {
	store, _ := newStore(t)
	if err := store.Delete(t.Context(), clipstore.Digest([]byte("never stored"))); err != nil {
		t.Errorf("Delete of missing blob returned error: %v", err)
	}
}

func TestRejectsKeysThatAreNotDigests(t *testing.T) {
	store, blobs := newStore(t)
	ctx := t.Context()

	if err := blobs.Put(ctx, "notes.txt", bytes.NewReader([]byte("keep me")), datalayer.PutOptions{}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if err := store.Delete(ctx, "notes.txt"); !errors.Is(err, clipstore.ErrInvalidDigest) {
		t.Errorf("Delete() = %v, want ErrInvalidDigest", err)
	}
	if _, err := store.Exists(ctx, "notes.txt"); !errors.Is(err, clipstore.ErrInvalidDigest) {
		t.Errorf("Exists() = %v, want ErrInvalidDigest", err)
	}
	if exists, _ := blobs.Exists(ctx, "notes.txt"); !exists {
		t.Error("non-digest key was deleted")
	}
}

func TestSweepRemovesOnlyUnreferenced(t *testing.T) {
	store, _ := newStore(t)
	ctx := t.Context()

	kept, _ := store.Put(ctx, []byte("kept"))
	orphan, _ := store.Put(ctx, []byte("orphan"))

	removed, err := store.Sweep(ctx, func(_ context.Context, digest string) (bool, error) {
		return digest == kept, nil
	})
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if diff := cmp.Diff([]string{orphan}, removed); diff != "" {
		t.Errorf("Sweep() removed mismatch (-want +got):\n%s", diff)
	}

	if exists, _ := store.Exists(ctx, kept); !exists {
		t.Error("referenced blob was removed")
	}
	if exists, _ := store.Exists(ctx, orphan); exists {
		t.Error("unreferenced blob survived the sweep")
	}
}

type failingBlobs struct {
	datalayer.BlobStorage
}

func (failingBlobs) Exists(context.Context, string) (bool, error) { return false, nil }

func (failingBlobs) Put(context.Context, string, io.Reader, datalayer.PutOptions) error {
	return errors.New("disk full")
}

func TestPutWrapsStorageFailure(t *testing.T) {
	store := clipstore.New(failingBlobs{}, nil)

	_, err := store.Put(t.Context(), bytes.Repeat([]byte{1}, 8))
	var storageErr *clipstore.StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("Put error = %v, want *StorageError", err)
	}
	if storageErr.Op != "put" {
		t.Errorf("StorageError.Op = %q, want put", storageErr.Op)
	}
}
