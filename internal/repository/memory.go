package repository

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/glizzus/sound-clips/internal/generator"
)

// MemoryClipRepository is a ClipCatalog held in process memory.
// It enforces the same (owner, name) uniqueness as the Postgres schema.
type MemoryClipRepository struct {
	mu    sync.RWMutex
	clips map[string]Clip
	ids   generator.Generator[string]
}

func NewMemoryClipRepository(ids generator.Generator[string]) *MemoryClipRepository {
	if ids == nil {
		ids = &generator.UUIDV4Generator{}
	}
	return &MemoryClipRepository{
		clips: make(map[string]Clip),
		ids:   ids,
	}
}

var _ ClipCatalog = (*MemoryClipRepository)(nil)

func (r *MemoryClipRepository) find(match func(Clip) bool) *Clip {
	for _, clip := range r.clips {
		if match(clip) {
			return &clip
		}
	}
	return nil
}

func (r *MemoryClipRepository) FindByName(_ context.Context, ownerID, name string) (*Clip, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.find(func(c Clip) bool { return c.OwnerID == ownerID && c.Name == name }), nil
}

func (r *MemoryClipRepository) FindByDigest(_ context.Context, digest string) (*Clip, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.find(func(c Clip) bool { return c.Digest == digest }), nil
}

func (r *MemoryClipRepository) ListForOwner(_ context.Context, ownerID string) ([]Clip, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clips := []Clip{}
	for _, clip := range r.clips {
		if clip.OwnerID == ownerID {
			clips = append(clips, clip)
		}
	}
	slices.SortFunc(clips, func(a, b Clip) int {
		return strings.Compare(a.Name, b.Name)
	})
	return clips, nil
}

func (r *MemoryClipRepository) Create(_ context.Context, name, ownerID, digest, filename string) (Clip, error) {
	id, err := r.ids.Next()
	if err != nil {
		return Clip{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.find(func(c Clip) bool { return c.OwnerID == ownerID && c.Name == name }) != nil {
		return Clip{}, &NameConflictError{OwnerID: ownerID, Name: name}
	}
	clip := Clip{ID: id, Name: name, OwnerID: ownerID, Digest: digest, Filename: filename}
	r.clips[id] = clip
	return clip, nil
}

func (r *MemoryClipRepository) Rename(_ context.Context, clip Clip, newName string) (Clip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.clips[clip.ID]
	if !ok {
		return Clip{}, ErrClipNotFound
	}
	conflict := r.find(func(c Clip) bool {
		return c.OwnerID == stored.OwnerID && c.Name == newName && c.ID != stored.ID
	})
	if conflict != nil {
		return Clip{}, &NameConflictError{OwnerID: stored.OwnerID, Name: newName}
	}
	stored.Name = newName
	r.clips[stored.ID] = stored
	return stored, nil
}

func (r *MemoryClipRepository) Delete(_ context.Context, clip Clip) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clips[clip.ID]; !ok {
		return ErrClipNotFound
	}
	delete(r.clips, clip.ID)
	return nil
}
