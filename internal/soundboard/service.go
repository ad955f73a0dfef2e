package soundboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode"

	"github.com/glizzus/sound-clips/internal/clipstore"
	"github.com/glizzus/sound-clips/internal/playback"
	"github.com/glizzus/sound-clips/internal/repository"
	"github.com/glizzus/sound-clips/internal/util"
)

var errNoPlayer = errors.New("playback is not available")

// DefaultMaxClipSize is 2.5MB.
const DefaultMaxClipSize int64 = 2621440

// Player queues and skips clips. *playback.Coordinator implements it.
// A Service built without one can manage clips but not play them.
type Player interface {
	RequestPlay(ctx context.Context, guildID, channelID, location, requesterID string, notify func(error)) (int, error)
	RequestSkip(ctx context.Context, guildID, requesterID string) error
}

var _ Player = (*playback.Coordinator)(nil)

type Options struct {
	MaxClipSize int64
	Logger      *slog.Logger
}

type Service struct {
	catalog     repository.ClipCatalog
	store       *clipstore.Store
	player      Player
	maxClipSize int64
	logger      *slog.Logger

	// mu serializes every operation that writes a blob or a record
	// referencing one, so a last-reference delete can never remove a blob
	// that a concurrent upload is about to point at.
	mu sync.Mutex
}

func NewService(catalog repository.ClipCatalog, store *clipstore.Store, player Player, opts Options) *Service {
	if opts.MaxClipSize <= 0 {
		opts.MaxClipSize = DefaultMaxClipSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		catalog:     catalog,
		store:       store,
		player:      player,
		maxClipSize: opts.MaxClipSize,
		logger:      opts.Logger,
	}
}

// MaxClipSize is the largest attachment Upload accepts.
func (s *Service) MaxClipSize() int64 {
	return s.maxClipSize
}

func validName(name string) bool {
	return name != "" && !strings.ContainsFunc(name, unicode.IsSpace)
}

func (s *Service) find(ctx context.Context, ownerID, name string) (repository.Clip, error) {
	clip, err := s.catalog.FindByName(ctx, ownerID, name)
	if err != nil {
		return repository.Clip{}, fmt.Errorf("failed to find clip: %w", err)
	}
	if clip == nil {
		return repository.Clip{}, &NotFoundError{Name: name}
	}
	return *clip, nil
}

// Upload creates a clip named name for ownerID from source.
func (s *Service) Upload(ctx context.Context, ownerID, name string, source UploadSource) (repository.Clip, error) {
	if !validName(name) {
		return repository.Clip{}, ErrInvalidName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.catalog.FindByName(ctx, ownerID, name)
	if err != nil {
		return repository.Clip{}, fmt.Errorf("failed to find clip: %w", err)
	}
	if existing != nil {
		return repository.Clip{}, &repository.NameConflictError{OwnerID: ownerID, Name: name}
	}

	var (
		digest   string
		filename string
		stored   bool
	)
	switch src := source.(type) {
	case Attachment:
		if err := s.checkAttachment(ctx, ownerID, src); err != nil {
			return repository.Clip{}, err
		}
		digest = clipstore.Digest(src.Data)
		existed, err := s.store.Exists(ctx, digest)
		if err != nil {
			return repository.Clip{}, err
		}
		if _, err := s.store.Put(ctx, src.Data); err != nil {
			return repository.Clip{}, err
		}
		filename, stored = src.Filename, !existed
	case ExistingClip:
		if !clipstore.ValidDigest(src.Digest) {
			return repository.Clip{}, ErrUnknownDigest
		}
		exists, err := s.store.Exists(ctx, src.Digest)
		if err != nil {
			return repository.Clip{}, err
		}
		if !exists {
			return repository.Clip{}, ErrUnknownDigest
		}
		digest, filename = src.Digest, src.Filename
	default:
		return repository.Clip{}, fmt.Errorf("unsupported upload source %T", source)
	}

	clip, err := s.catalog.Create(ctx, name, ownerID, digest, filename)
	if err != nil {
		if stored {
			s.releaseBlob(ctx, digest)
		}
		return repository.Clip{}, fmt.Errorf("failed to create clip: %w", err)
	}

	s.logger.InfoContext(ctx, "uploaded clip",
		slog.String("ownerID", ownerID),
		slog.String("name", name),
		slog.String("digest", digest),
	)
	return clip, nil
}

func (s *Service) checkAttachment(ctx context.Context, ownerID string, src Attachment) error {
	if len(src.Data) == 0 {
		return ErrEmptyPayload
	}
	if size := int64(len(src.Data)); size > s.maxClipSize {
		return &PayloadTooLargeError{Size: size, Limit: s.maxClipSize}
	}

	clips, err := s.catalog.ListForOwner(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("failed to list clips: %w", err)
	}
	_, taken := util.FindFirst(clips, func(c repository.Clip) bool {
		return c.Filename == src.Filename
	})
	if taken {
		return &FilenameExistsError{Filename: src.Filename}
	}
	return nil
}

// releaseBlob deletes the blob for digest if no clip references it.
// Failures are logged; a later sweep picks up what is left behind.
func (s *Service) releaseBlob(ctx context.Context, digest string) {
	ref, err := s.catalog.FindByDigest(ctx, digest)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to check blob references", slog.String("digest", digest), slog.Any("error", err))
		return
	}
	if ref != nil {
		return
	}
	if err := s.store.Delete(ctx, digest); err != nil {
		s.logger.WarnContext(ctx, "failed to delete unreferenced blob", slog.String("digest", digest), slog.Any("error", err))
	}
}

// Remove deletes the owner's clip and, if it was the last one
// referencing its payload, the payload too.
func (s *Service) Remove(ctx context.Context, ownerID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clip, err := s.find(ctx, ownerID, name)
	if err != nil {
		return err
	}
	if err := s.catalog.Delete(ctx, clip); err != nil {
		return fmt.Errorf("failed to delete clip: %w", err)
	}

	ref, err := s.catalog.FindByDigest(ctx, clip.Digest)
	if err != nil {
		return fmt.Errorf("failed to check references for %s: %w", clip.Digest, err)
	}
	if ref == nil {
		if err := s.store.Delete(ctx, clip.Digest); err != nil {
			return err
		}
	}

	s.logger.InfoContext(ctx, "removed clip",
		slog.String("ownerID", ownerID),
		slog.String("name", name),
		slog.Bool("payloadDeleted", ref == nil),
	)
	return nil
}

func (s *Service) Rename(ctx context.Context, ownerID, name, newName string) (repository.Clip, error) {
	if !validName(newName) {
		return repository.Clip{}, ErrInvalidName
	}

	clip, err := s.find(ctx, ownerID, name)
	if err != nil {
		return repository.Clip{}, err
	}
	if newName == name {
		return clip, nil
	}

	renamed, err := s.catalog.Rename(ctx, clip, newName)
	if err != nil {
		return repository.Clip{}, fmt.Errorf("failed to rename clip: %w", err)
	}
	return renamed, nil
}

// Share gives targetOwnerID a clip pointing at the same payload as the
// owner's clip. An empty newName keeps the original name.
func (s *Service) Share(ctx context.Context, ownerID, name, targetOwnerID, newName string) (repository.Clip, error) {
	if newName == "" {
		newName = name
	}
	if !validName(newName) {
		return repository.Clip{}, ErrInvalidName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	clip, err := s.find(ctx, ownerID, name)
	if err != nil {
		return repository.Clip{}, err
	}

	shared, err := s.catalog.Create(ctx, newName, targetOwnerID, clip.Digest, clip.Filename)
	if err != nil {
		return repository.Clip{}, fmt.Errorf("failed to share clip: %w", err)
	}

	s.logger.InfoContext(ctx, "shared clip",
		slog.String("ownerID", ownerID),
		slog.String("targetOwnerID", targetOwnerID),
		slog.String("name", newName),
	)
	return shared, nil
}

// List returns the owner's clips ordered by name.
func (s *Service) List(ctx context.Context, ownerID string) ([]repository.Clip, error) {
	clips, err := s.catalog.ListForOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clips: %w", err)
	}
	return clips, nil
}

// Play queues the owner's clip in guildID. notify is called once the clip
// has played, been skipped, or failed.
func (s *Service) Play(
	ctx context.Context,
	guildID, channelID, ownerID, name, requesterID string,
	notify func(error),
) error {
	if s.player == nil {
		return errNoPlayer
	}

	clip, err := s.find(ctx, ownerID, name)
	if err != nil {
		return err
	}

	location, err := s.store.Locate(ctx, clip.Digest)
	if err != nil {
		return err
	}

	pending, err := s.player.RequestPlay(ctx, guildID, channelID, location, requesterID, notify)
	if err != nil {
		return err
	}

	s.logger.DebugContext(ctx, "queued clip",
		slog.String("guildID", guildID),
		slog.String("name", name),
		slog.Int("pending", pending),
	)
	return nil
}

func (s *Service) Skip(ctx context.Context, guildID, requesterID string) error {
	if s.player == nil {
		return errNoPlayer
	}
	return s.player.RequestSkip(ctx, guildID, requesterID)
}

// CollectGarbage deletes stored payloads that no clip references.
func (s *Service) CollectGarbage(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed, err := s.store.Sweep(ctx, func(ctx context.Context, digest string) (bool, error) {
		clip, err := s.catalog.FindByDigest(ctx, digest)
		if err != nil {
			return false, err
		}
		return clip != nil, nil
	})
	if len(removed) > 0 {
		s.logger.InfoContext(ctx, "collected unreferenced clips", slog.Int("count", len(removed)))
	}
	if err != nil {
		return removed, fmt.Errorf("failed to collect garbage: %w", err)
	}
	return removed, nil
}
