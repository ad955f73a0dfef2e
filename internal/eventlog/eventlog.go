package eventlog

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/glizzus/sound-clips/internal/playback"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultStream = "clip_playback"

	// maxStreamLength caps the stream; trimming is approximate.
	maxStreamLength = 10_000
)

// Entry is one playback event as recorded in the stream.
type Entry struct {
	ID          string
	Event       playback.EventKind
	GuildID     string
	ChannelID   string
	RequesterID string
	Pending     int
	Error       string
	At          time.Time
}

// RedisEventLog appends playback events to a Redis stream so they can be
// inspected after the fact.
type RedisEventLog struct {
	client *redis.Client
	stream string
	now    func() time.Time
}

func NewRedisEventLog(client *redis.Client, stream string) *RedisEventLog {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisEventLog{client: client, stream: stream, now: time.Now}
}

func (l *RedisEventLog) HandleEvent(ctx context.Context, event playback.Event) {
	if err := l.Append(ctx, event); err != nil {
		slog.WarnContext(ctx, "failed to record playback event",
			slog.String("event", string(event.Kind)),
			slog.String("guildID", event.Request.GuildID),
			slog.Any("error", err),
		)
	}
}

func (l *RedisEventLog) Append(ctx context.Context, event playback.Event) error {
	values := map[string]any{
		"event":       string(event.Kind),
		"guildID":     event.Request.GuildID,
		"channelID":   event.Request.ChannelID,
		"requesterID": event.Request.RequesterID,
		"pending":     event.Pending,
		"at":          l.now().UTC().Format(time.RFC3339),
	}
	if event.Err != nil {
		values["error"] = event.Err.Error()
	}

	err := l.client.XAdd(ctx, &redis.XAddArgs{
		Stream: l.stream,
		MaxLen: maxStreamLength,
		Approx: true,
		Values: values,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to append to stream %s: %w", l.stream, err)
	}
	return nil
}

// Recent returns up to count entries, newest first.
func (l *RedisEventLog) Recent(ctx context.Context, count int64) ([]Entry, error) {
	messages, err := l.client.XRevRangeN(ctx, l.stream, "+", "-", count).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read stream %s: %w", l.stream, err)
	}

	entries := make([]Entry, 0, len(messages))
	for _, msg := range messages {
		entries = append(entries, entryFromMessage(msg))
	}
	return entries, nil
}

func entryFromMessage(msg redis.XMessage) Entry {
	field := func(key string) string {
		s, _ := msg.Values[key].(string)
		return s
	}

	entry := Entry{
		ID:          msg.ID,
		Event:       playback.EventKind(field("event")),
		GuildID:     field("guildID"),
		ChannelID:   field("channelID"),
		RequesterID: field("requesterID"),
		Error:       field("error"),
	}
	if pending, err := strconv.Atoi(field("pending")); err == nil {
		entry.Pending = pending
	}
	if at, err := time.Parse(time.RFC3339, field("at")); err == nil {
		entry.At = at
	}
	return entry
}

var _ playback.EventHandler = (*RedisEventLog)(nil)
