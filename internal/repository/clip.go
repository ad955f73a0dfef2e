package repository

import (
	"context"
	"errors"
	"fmt"
)

// Clip is a named pointer from an owner to a stored blob.
type Clip struct {
	ID       string
	Name     string
	OwnerID  string
	Digest   string
	Filename string
}

var ErrClipNotFound = errors.New("clip not found")

// NameConflictError indicates the owner already has a clip with Name.
type NameConflictError struct {
	OwnerID string
	Name    string
}

func (e *NameConflictError) Error() string {
	return fmt.Sprintf("a clip named %q already exists", e.Name)
}

var _ error = (*NameConflictError)(nil)

// ClipCatalog maps (owner, name) pairs to clips.
// Find methods return a nil clip and a nil error when nothing matches.
type ClipCatalog interface {
	FindByName(ctx context.Context, ownerID, name string) (*Clip, error)

	// FindByDigest returns any clip referencing digest, regardless of owner.
	FindByDigest(ctx context.Context, digest string) (*Clip, error)

	// ListForOwner returns the owner's clips ordered by name in byte order.
	ListForOwner(ctx context.Context, ownerID string) ([]Clip, error)

	Create(ctx context.Context, name, ownerID, digest, filename string) (Clip, error)
	Rename(ctx context.Context, clip Clip, newName string) (Clip, error)
	Delete(ctx context.Context, clip Clip) error
}
