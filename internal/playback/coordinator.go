package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var ErrCoordinatorClosed = errors.New("playback coordinator is closed")

// Coordinator owns one Queue per guild and starts its worker on first use.
type Coordinator struct {
	connector Connector
	presence  Presence
	opts      QueueOptions
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	queues map[string]*Queue
	closed bool
}

func NewCoordinator(connector Connector, presence Presence, opts QueueOptions) *Coordinator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		connector: connector,
		presence:  presence,
		opts:      opts,
		logger:    opts.Logger,
		ctx:       ctx,
		cancel:    cancel,
		queues:    make(map[string]*Queue),
	}
}

// Queue returns the guild's queue, creating it and starting its worker
// if this is the first request for the guild.
func (c *Coordinator) Queue(guildID string) (*Queue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrCoordinatorClosed
	}
	if q, ok := c.queues[guildID]; ok {
		return q, nil
	}

	q := NewQueue(guildID, c.connector, c.opts)
	c.queues[guildID] = q

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		q.Run(c.ctx)
	}()
	c.logger.Debug("created playback queue", slog.String("guildID", guildID))
	return q, nil
}

func (c *Coordinator) lookup(guildID string) (*Queue, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, ok := c.queues[guildID]
	return q, ok
}

// RequestPlay checks that the requester can be played to and enqueues the
// clip at location. An empty channelID targets the requester's own voice
// channel. It returns the number of requests waiting in the guild.
func (c *Coordinator) RequestPlay(
	ctx context.Context,
	guildID, channelID, location, requesterID string,
	notify func(error),
) (int, error) {
	userChannel, err := c.presence.VoiceChannel(ctx, guildID, requesterID)
	if err != nil {
		return 0, fmt.Errorf("failed to look up voice state: %w", err)
	}
	if userChannel == "" {
		return 0, ErrNotConnected
	}
	if channelID == "" {
		channelID = userChannel
	}

	full, err := c.presence.ChannelFull(ctx, guildID, channelID)
	if err != nil {
		return 0, fmt.Errorf("failed to check channel capacity: %w", err)
	}
	if full {
		return 0, ErrChannelFull
	}

	q, err := c.Queue(guildID)
	if err != nil {
		return 0, err
	}
	pending, err := q.Enqueue(ctx, Request{
		GuildID:     guildID,
		ChannelID:   channelID,
		Location:    location,
		RequesterID: requesterID,
		Notify:      notify,
	})
	if errors.Is(err, ErrQueueClosed) {
		return 0, ErrCoordinatorClosed
	}
	return pending, err
}

// RequestSkip skips the guild's current clip. Only the member who requested
// it, or a guild authority, may do so.
func (c *Coordinator) RequestSkip(ctx context.Context, guildID, requesterID string) error {
	q, ok := c.lookup(guildID)
	if !ok {
		return ErrNoActivePlayback
	}

	authority, err := c.presence.IsAuthority(ctx, guildID, requesterID)
	if err != nil {
		return fmt.Errorf("failed to check skip permission: %w", err)
	}

	return q.skipWith(func(current *Request) error {
		if authority {
			return nil
		}
		if current != nil && current.RequesterID == requesterID {
			return nil
		}
		return ErrUnauthorized
	})
}

// Close stops every worker and waits for them to release their connections.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}
