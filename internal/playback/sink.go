package playback

import "context"

// Connector opens voice connections for a guild.
type Connector interface {
	Connect(ctx context.Context, guildID, channelID string) (Connection, error)
}

// Connection is a live audio connection to one voice channel.
// Only a Queue's worker goroutine calls its methods.
type Connection interface {
	ChannelID() string

	// Move switches the connection to another channel in the same guild.
	Move(ctx context.Context, channelID string) error

	// Play starts streaming the clip at location and returns immediately.
	// done is called exactly once, from any goroutine, when the stream ends
	// naturally, is stopped, or fails.
	Play(location string, done func(error)) error

	// Stop ends the current stream early. done fires as for a natural end.
	Stop()

	Disconnect() error
}

// Presence answers questions about members' voice state.
type Presence interface {
	// VoiceChannel returns the channel the user is connected to, or "" if none.
	VoiceChannel(ctx context.Context, guildID, userID string) (string, error)

	// ChannelFull reports whether the channel is at its user limit.
	ChannelFull(ctx context.Context, guildID, channelID string) (bool, error)

	// IsAuthority reports whether the user may control playback for everyone.
	IsAuthority(ctx context.Context, guildID, userID string) (bool, error)
}
