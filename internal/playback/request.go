package playback

import (
	"errors"
	"fmt"
)

// Request asks a guild's queue to play one clip.
type Request struct {
	GuildID     string
	ChannelID   string
	Location    string
	RequesterID string

	// Notify, if set, is called once with the outcome of the request:
	// nil when the clip played (or was skipped), a *MediaError otherwise.
	Notify func(error)
}

var (
	ErrNotConnected     = errors.New("you must be connected to a voice channel to play a clip")
	ErrChannelFull      = errors.New("cannot connect to the voice channel: too many members connected")
	ErrUnauthorized     = errors.New("you are not allowed to skip the clip")
	ErrNoActivePlayback = errors.New("nothing is playing")
)

// MediaError is a failure to connect to or stream into a voice channel.
// The request that hit it is abandoned and the queue moves on.
type MediaError struct {
	Op  string
	Err error
}

func (e *MediaError) Error() string {
	return fmt.Sprintf("playback %s failed: %v", e.Op, e.Err)
}

func (e *MediaError) Unwrap() error {
	return e.Err
}

var _ error = (*MediaError)(nil)
