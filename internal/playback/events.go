package playback

import (
	"context"
	"log/slog"
)

type EventKind string

const (
	EventEnqueued EventKind = "enqueued"
	EventStarted  EventKind = "started"
	EventFinished EventKind = "finished"
	EventSkipped  EventKind = "skipped"
	EventFailed   EventKind = "failed"
)

// Event describes a transition of a single request.
type Event struct {
	Kind    EventKind
	Request Request
	Pending int
	Err     error
}

type EventHandler interface {
	HandleEvent(ctx context.Context, event Event)
}

// LoggingEventHandler writes every event to a slog.Logger.
type LoggingEventHandler struct {
	Logger *slog.Logger
}

func (h *LoggingEventHandler) HandleEvent(ctx context.Context, event Event) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []any{
		slog.String("event", string(event.Kind)),
		slog.String("guildID", event.Request.GuildID),
		slog.String("channelID", event.Request.ChannelID),
		slog.String("requesterID", event.Request.RequesterID),
		slog.Int("pending", event.Pending),
	}
	if event.Err != nil {
		logger.WarnContext(ctx, "playback event", append(attrs, slog.Any("error", event.Err))...)
		return
	}
	logger.InfoContext(ctx, "playback event", attrs...)
}

// MultiEventHandler fans an event out to several handlers in order.
type MultiEventHandler []EventHandler

func (m MultiEventHandler) HandleEvent(ctx context.Context, event Event) {
	for _, h := range m {
		h.HandleEvent(ctx, event)
	}
}

var (
	_ EventHandler = (*LoggingEventHandler)(nil)
	_ EventHandler = MultiEventHandler(nil)
)
