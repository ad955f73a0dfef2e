package playback_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/glizzus/sound-clips/internal/playback"
)

func newTestCoordinator(t *testing.T, connector *fakeConnector, presence *fakePresence) *playback.Coordinator {
	t.Helper()
	c := playback.NewCoordinator(connector, presence, playback.QueueOptions{})
	t.Cleanup(c.Close)
	return c
}

func TestCoordinatorRequestPlayRejections(t *testing.T) {
	presence := &fakePresence{
		channels: map[string]string{"A": "C1", "B": "C2"},
		full:     map[string]bool{"C2": true},
	}

	tests := []struct {
		name      string
		channelID string
		requester string
		want      error
	}{
		{name: "requester not in voice", requester: "nobody", want: playback.ErrNotConnected},
		{name: "requester channel full", requester: "B", want: playback.ErrChannelFull},
		{name: "explicit channel full", channelID: "C2", requester: "A", want: playback.ErrChannelFull},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			connector := newFakeConnector(false)
			c := newTestCoordinator(t, connector, presence)

			_, err := c.RequestPlay(context.Background(), "G", tt.channelID, "clip", tt.requester, nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("RequestPlay() = %v, want %v", err, tt.want)
			}
			if len(connector.Log()) != 0 {
				t.Errorf("sink touched by rejected request: %v", connector.Log())
			}
		})
	}
}

func TestCoordinatorPlaysInRequesterChannel(t *testing.T) {
	connector := newFakeConnector(true)
	presence := &fakePresence{channels: map[string]string{"A": "C1"}}
	c := newTestCoordinator(t, connector, presence)
	o := newOutcomes()

	pending, err := c.RequestPlay(context.Background(), "G", "", "X", "A", o.notify("X"))
	if err != nil {
		t.Fatalf("RequestPlay failed: %v", err)
	}
	if pending != 1 {
		t.Errorf("pending = %d, want 1", pending)
	}

	p := nextPlay(t, connector)
	if p.Channel != "C1" {
		t.Errorf("played in %s, want C1", p.Channel)
	}
	p.Finish(nil)
	if res := o.next(t); res.err != nil {
		t.Errorf("request failed: %v", res.err)
	}
}

func TestCoordinatorQueuePerGuild(t *testing.T) {
	c := newTestCoordinator(t, newFakeConnector(false), &fakePresence{})

	g1, err := c.Queue("G1")
	if err != nil {
		t.Fatalf("Queue(G1) failed: %v", err)
	}
	again, err := c.Queue("G1")
	if err != nil {
		t.Fatalf("Queue(G1) failed: %v", err)
	}
	g2, err := c.Queue("G2")
	if err != nil {
		t.Fatalf("Queue(G2) failed: %v", err)
	}

	if g1 != again {
		t.Error("expected the same queue for repeated lookups of a guild")
	}
	if g1 == g2 {
		t.Error("expected distinct queues for distinct guilds")
	}
}

func TestCoordinatorRequestSkip(t *testing.T) {
	tests := []struct {
		name      string
		skipper   string
		want      error
		wantSkips bool
	}{
		{name: "requester may skip", skipper: "A", wantSkips: true},
		{name: "authority may skip", skipper: "owner", wantSkips: true},
		{name: "other member may not skip", skipper: "B", want: playback.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			connector := newFakeConnector(true)
			presence := &fakePresence{
				channels:    map[string]string{"A": "C1", "B": "C1", "owner": "C1"},
				authorities: map[string]bool{"owner": true},
			}
			c := newTestCoordinator(t, connector, presence)
			o := newOutcomes()

			if _, err := c.RequestPlay(context.Background(), "G", "", "X", "A", o.notify("X")); err != nil {
				t.Fatalf("RequestPlay failed: %v", err)
			}
			p := nextPlay(t, connector)

			err := c.RequestSkip(context.Background(), "G", tt.skipper)
			if !errors.Is(err, tt.want) {
				t.Fatalf("RequestSkip() = %v, want %v", err, tt.want)
			}

			if !tt.wantSkips {
				q, _ := c.Queue("G")
				if current, ok := q.Current(); !ok || current.Location != "X" {
					t.Errorf("current = %+v, %v; want X still playing", current, ok)
				}
				p.Finish(nil)
			}
			if res := o.next(t); res.location != "X" || res.err != nil {
				t.Errorf("outcome = %+v, want X without error", res)
			}
		})
	}
}

func TestCoordinatorRequestSkipWithoutQueue(t *testing.T) {
	c := newTestCoordinator(t, newFakeConnector(false), &fakePresence{})

	if err := c.RequestSkip(context.Background(), "G", "A"); !errors.Is(err, playback.ErrNoActivePlayback) {
		t.Errorf("RequestSkip() = %v, want ErrNoActivePlayback", err)
	}
}

func TestCoordinatorClose(t *testing.T) {
	connector := newFakeConnector(true)
	presence := &fakePresence{channels: map[string]string{"A": "C1"}}
	c := playback.NewCoordinator(connector, presence, playback.QueueOptions{})
	o := newOutcomes()

	ctx := context.Background()
	if _, err := c.RequestPlay(ctx, "G", "", "X", "A", o.notify("X")); err != nil {
		t.Fatalf("RequestPlay failed: %v", err)
	}
	nextPlay(t, connector)
	if _, err := c.RequestPlay(ctx, "G", "", "Y", "A", o.notify("Y")); err != nil {
		t.Fatalf("RequestPlay failed: %v", err)
	}

	c.Close()

	got := map[string]error{}
	for range 2 {
		res := o.next(t)
		got[res.location] = res.err
	}
	for _, location := range []string{"X", "Y"} {
		var mediaErr *playback.MediaError
		if !errors.As(got[location], &mediaErr) {
			t.Errorf("%s outcome = %v, want *MediaError", location, got[location])
		}
	}

	if _, err := c.RequestPlay(ctx, "G", "", "Z", "A", nil); !errors.Is(err, playback.ErrCoordinatorClosed) {
		t.Errorf("RequestPlay after Close = %v, want ErrCoordinatorClosed", err)
	}

	log := connector.Log()
	if len(log) == 0 || log[len(log)-1] != "disconnect" {
		t.Errorf("expected the connection to be released on close, log = %v", log)
	}
}

func TestCoordinatorCloseWhileRequesting(t *testing.T) {
	ctx := context.Background()
	for range 50 {
		connector := newFakeConnector(false)
		presence := &fakePresence{channels: map[string]string{"A": "C1"}}
		c := playback.NewCoordinator(connector, presence, playback.QueueOptions{})
		o := newOutcomes()

		closed := make(chan struct{})
		go func() {
			defer close(closed)
			c.Close()
		}()

		accepted := 0
		for i := range 5 {
			location := fmt.Sprintf("clip-%d", i)
			_, err := c.RequestPlay(ctx, "G", "", location, "A", o.notify(location))
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, playback.ErrCoordinatorClosed):
			default:
				t.Fatalf("RequestPlay(%s) = %v, want nil or ErrCoordinatorClosed", location, err)
			}
		}
		<-closed

		// Every accepted request is either played or abandoned with an error.
		for range accepted {
			o.next(t)
		}
	}
}
