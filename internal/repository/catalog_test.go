package repository_test

import (
	"errors"
	"testing"

	"github.com/glizzus/sound-clips/internal/generator"
	"github.com/glizzus/sound-clips/internal/repository"
	"github.com/google/go-cmp/cmp"
)

const (
	digestA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	digestB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

// testCatalog exercises the behaviour every ClipCatalog must share.
// ownerPrefix keeps runs against a shared database independent.
func testCatalog(t *testing.T, catalog repository.ClipCatalog, ownerPrefix string) {
	alice := ownerPrefix + "alice"
	bob := ownerPrefix + "bob"

	t.Run("create and find by name", func(t *testing.T) {
		created, err := catalog.Create(t.Context(), "boo", alice, digestA, "boo.ogg")
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		found, err := catalog.FindByName(t.Context(), alice, "boo")
		if err != nil {
			t.Fatalf("FindByName failed: %v", err)
		}
		if diff := cmp.Diff(&created, found); diff != "" {
			t.Errorf("FindByName() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("find by name for another owner returns nothing", func(t *testing.T) {
		found, err := catalog.FindByName(t.Context(), bob, "boo")
		if err != nil {
			t.Fatalf("FindByName failed: %v", err)
		}
		if found != nil {
			t.Errorf("FindByName() = %+v, want nil", found)
		}
	})

	t.Run("duplicate name for same owner conflicts", func(t *testing.T) {
		_, err := catalog.Create(t.Context(), "boo", alice, digestB, "other.ogg")
		var conflict *repository.NameConflictError
		if !errors.As(err, &conflict) {
			t.Fatalf("Create error = %v, want *NameConflictError", err)
		}
		if conflict.Name != "boo" {
			t.Errorf("conflict name = %q, want boo", conflict.Name)
		}
	})

	t.Run("same name for a different owner is allowed", func(t *testing.T) {
		if _, err := catalog.Create(t.Context(), "boo", bob, digestA, "boo.ogg"); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	})

	t.Run("find by digest ignores owner", func(t *testing.T) {
		found, err := catalog.FindByDigest(t.Context(), digestA)
		if err != nil {
			t.Fatalf("FindByDigest failed: %v", err)
		}
		if found == nil || found.Digest != digestA {
			t.Errorf("FindByDigest() = %+v, want clip with digest %s", found, digestA)
		}
	})

	t.Run("list is ordered by name in byte order", func(t *testing.T) {
		for _, name := range []string{"zap", "Zed", "apple"} {
			if _, err := catalog.Create(t.Context(), name, alice, digestB, name+".ogg"); err != nil {
				t.Fatalf("Create(%s) failed: %v", name, err)
			}
		}

		clips, err := catalog.ListForOwner(t.Context(), alice)
		if err != nil {
			t.Fatalf("ListForOwner failed: %v", err)
		}
		var names []string
		for _, clip := range clips {
			names = append(names, clip.Name)
		}
		if diff := cmp.Diff([]string{"Zed", "apple", "boo", "zap"}, names); diff != "" {
			t.Errorf("ListForOwner() names mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("rename keeps digest and rejects taken names", func(t *testing.T) {
		clip, _ := catalog.FindByName(t.Context(), alice, "zap")

		if _, err := catalog.Rename(t.Context(), *clip, "boo"); err == nil {
			t.Fatal("Rename to a taken name succeeded")
		}

		renamed, err := catalog.Rename(t.Context(), *clip, "zip")
		if err != nil {
			t.Fatalf("Rename failed: %v", err)
		}
		if renamed.Digest != clip.Digest || renamed.ID != clip.ID {
			t.Errorf("Rename changed identity: %+v -> %+v", clip, renamed)
		}
		if old, _ := catalog.FindByName(t.Context(), alice, "zap"); old != nil {
			t.Errorf("old name still resolves: %+v", old)
		}
	})

	t.Run("delete removes only the record", func(t *testing.T) {
		clip, _ := catalog.FindByName(t.Context(), alice, "boo")
		if err := catalog.Delete(t.Context(), *clip); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if found, _ := catalog.FindByName(t.Context(), alice, "boo"); found != nil {
			t.Errorf("deleted clip still found: %+v", found)
		}
		if found, _ := catalog.FindByDigest(t.Context(), digestA); found == nil {
			t.Error("bob's clip with the shared digest disappeared")
		}
		if err := catalog.Delete(t.Context(), *clip); !errors.Is(err, repository.ErrClipNotFound) {
			t.Errorf("second Delete error = %v, want ErrClipNotFound", err)
		}
	})
}

func TestMemoryClipRepository(t *testing.T) {
	testCatalog(t, repository.NewMemoryClipRepository(&generator.Sequence{Prefix: "clip"}), "")
}
