package soundboard

import (
	"errors"
	"fmt"

	"github.com/glizzus/sound-clips/internal/playback"
	"github.com/glizzus/sound-clips/internal/repository"
)

var (
	ErrInvalidName   = errors.New("clip names must not be empty or contain spaces")
	ErrEmptyPayload  = errors.New("the attached file is empty")
	ErrUnknownDigest = errors.New("no clip is stored with that digest")
)

// NotFoundError reports a clip name the owner does not have.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no clip named %q found", e.Name)
}

func (e *NotFoundError) Unwrap() error {
	return repository.ErrClipNotFound
}

// FilenameExistsError reports an upload whose filename the owner already used.
type FilenameExistsError struct {
	Filename string
}

func (e *FilenameExistsError) Error() string {
	return fmt.Sprintf("a file named %q has already been uploaded, rename the file and try again", e.Filename)
}

type PayloadTooLargeError struct {
	Size  int64
	Limit int64
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("clip files are limited to %s, this one is %s", formatSize(e.Limit), formatSize(e.Size))
}

var (
	_ error = (*NotFoundError)(nil)
	_ error = (*FilenameExistsError)(nil)
	_ error = (*PayloadTooLargeError)(nil)
)

func formatSize(n int64) string {
	const mb = 1024 * 1024
	const kb = 1024
	switch {
	case n >= mb:
		return fmt.Sprintf("%.1fMB", float64(n)/mb)
	case n >= kb:
		return fmt.Sprintf("%.1fKB", float64(n)/kb)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}

// IsUserError reports whether err was caused by the request itself and its
// message can be shown to the user as is.
func IsUserError(err error) bool {
	var (
		conflict *repository.NameConflictError
		filename *FilenameExistsError
		tooLarge *PayloadTooLargeError
	)
	switch {
	case errors.As(err, &conflict), errors.As(err, &filename), errors.As(err, &tooLarge):
		return true
	}

	for _, target := range []error{
		repository.ErrClipNotFound,
		ErrInvalidName,
		ErrEmptyPayload,
		ErrUnknownDigest,
		playback.ErrNotConnected,
		playback.ErrChannelFull,
		playback.ErrUnauthorized,
		playback.ErrNoActivePlayback,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
