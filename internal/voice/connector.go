package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/sound-clips/internal/opus"
	"github.com/glizzus/sound-clips/internal/playback"
)

// EncodeFunc turns a clip location into length-prefixed Opus frames.
type EncodeFunc func(ctx context.Context, location string) (io.ReadCloser, error)

// Connector joins Discord voice channels for the playback queues.
type Connector struct {
	session *discordgo.Session
	encode  EncodeFunc
	logger  *slog.Logger
}

func NewConnector(session *discordgo.Session, logger *slog.Logger) *Connector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Connector{session: session, encode: opus.Encode, logger: logger}
}

// Connect joins channelID deafened. discordgo waits for the voice handshake
// itself and does not take a context, so ctx is only checked up front.
func (c *Connector) Connect(ctx context.Context, guildID, channelID string) (playback.Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vc, err := c.session.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, fmt.Errorf("unable to join the voice channel: %w", err)
	}

	return &connection{
		vc:        vc,
		channelID: channelID,
		encode:    c.encode,
		logger:    c.logger.With(slog.String("guildID", guildID)),
	}, nil
}

type connection struct {
	vc     *discordgo.VoiceConnection
	encode EncodeFunc
	logger *slog.Logger

	// channelID is only touched by the queue worker.
	channelID string

	mu     sync.Mutex
	cancel context.CancelFunc
}

func (c *connection) ChannelID() string {
	return c.channelID
}

func (c *connection) Move(_ context.Context, channelID string) error {
	if err := c.vc.ChangeChannel(channelID, false, true); err != nil {
		return fmt.Errorf("unable to move to voice channel %s: %w", channelID, err)
	}
	c.channelID = channelID
	return nil
}

func (c *connection) Play(location string, done func(error)) error {
	ctx, cancel := context.WithCancel(context.Background())
	frames, err := c.encode(ctx, location)
	if err != nil {
		cancel()
		return err
	}

	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	go func() {
		defer cancel()
		defer frames.Close()

		if err := c.vc.Speaking(true); err != nil {
			c.logger.Warn("error setting speaking state to 'true'", slog.Any("error", err))
		}
		err := opus.Stream(ctx, opus.NewFrameReader(frames), c.vc.OpusSend)
		if err := c.vc.Speaking(false); err != nil {
			c.logger.Warn("failed to stop speaking", slog.Any("error", err))
		}

		if errors.Is(err, context.Canceled) {
			err = nil
		}
		done(err)
	}()
	return nil
}

func (c *connection) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *connection) Disconnect() error {
	c.Stop()
	if err := c.vc.Disconnect(); err != nil {
		return fmt.Errorf("failed to disconnect: %w", err)
	}
	return nil
}

var (
	_ playback.Connector  = (*Connector)(nil)
	_ playback.Connection = (*connection)(nil)
)
