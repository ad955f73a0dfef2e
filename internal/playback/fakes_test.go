package playback_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/glizzus/sound-clips/internal/playback"
)

// fakeConnector records every sink operation in order.
// In manual mode plays are handed to the test through plays and only end
// when the test finishes them; otherwise they end immediately.
type fakeConnector struct {
	mu       sync.Mutex
	log      []string
	connects int

	manual bool
	plays  chan *fakePlay

	failChannels  map[string]error
	hangChannels  map[string]bool
	panicChannels map[string]bool
}

func newFakeConnector(manual bool) *fakeConnector {
	return &fakeConnector{
		manual:       manual,
		plays:        make(chan *fakePlay, 16),
		failChannels:  map[string]error{},
		hangChannels:  map[string]bool{},
		panicChannels: map[string]bool{},
	}
}

func (c *fakeConnector) record(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log = append(c.log, fmt.Sprintf(format, args...))
}

func (c *fakeConnector) Log() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.log...)
}

func (c *fakeConnector) Connects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connects
}

func (c *fakeConnector) Connect(ctx context.Context, guildID, channelID string) (playback.Connection, error) {
	if c.panicChannels[channelID] {
		panic("connector exploded")
	}
	if c.hangChannels[channelID] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := c.failChannels[channelID]; err != nil {
		c.record("connect-failed %s", channelID)
		return nil, err
	}

	c.mu.Lock()
	c.connects++
	c.mu.Unlock()
	c.record("connect %s", channelID)
	return &fakeConnection{connector: c, channel: channelID}, nil
}

type fakePlay struct {
	Location string
	Channel  string
	done     func(error)
	once     sync.Once
}

func (p *fakePlay) Finish(err error) {
	p.once.Do(func() { p.done(err) })
}

type fakeConnection struct {
	connector *fakeConnector

	mu      sync.Mutex
	channel string
	current *fakePlay
}

func (c *fakeConnection) ChannelID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

func (c *fakeConnection) Move(_ context.Context, channelID string) error {
	c.connector.record("move %s", channelID)
	c.mu.Lock()
	c.channel = channelID
	c.mu.Unlock()
	return nil
}

func (c *fakeConnection) Play(location string, done func(error)) error {
	if location == "panic" {
		panic("sink exploded")
	}
	if location == "unplayable" {
		return errors.New("unsupported format")
	}

	c.mu.Lock()
	p := &fakePlay{Location: location, Channel: c.channel, done: done}
	c.current = p
	c.mu.Unlock()

	c.connector.record("play %s@%s", location, p.Channel)
	if c.connector.manual {
		c.connector.plays <- p
	} else {
		go p.Finish(nil)
	}
	return nil
}

func (c *fakeConnection) Stop() {
	c.connector.record("stop")
	c.mu.Lock()
	p := c.current
	c.mu.Unlock()
	if p != nil {
		go p.Finish(nil)
	}
}

func (c *fakeConnection) Disconnect() error {
	c.connector.record("disconnect")
	return nil
}

type fakePresence struct {
	channels    map[string]string
	full        map[string]bool
	authorities map[string]bool
}

func (p *fakePresence) VoiceChannel(_ context.Context, _, userID string) (string, error) {
	return p.channels[userID], nil
}

func (p *fakePresence) ChannelFull(_ context.Context, _, channelID string) (bool, error) {
	return p.full[channelID], nil
}

func (p *fakePresence) IsAuthority(_ context.Context, _, userID string) (bool, error) {
	return p.authorities[userID], nil
}

// outcomes collects Notify results keyed by location.
type outcomes struct {
	ch chan outcome
}

type outcome struct {
	location string
	err      error
}

func newOutcomes() *outcomes {
	return &outcomes{ch: make(chan outcome, 32)}
}

func (o *outcomes) notify(location string) func(error) {
	return func(err error) {
		o.ch <- outcome{location: location, err: err}
	}
}

func (o *outcomes) next(t *testing.T) outcome {
	t.Helper()
	select {
	case res := <-o.ch:
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a playback outcome")
		return outcome{}
	}
}

func nextPlay(t *testing.T, c *fakeConnector) *fakePlay {
	t.Helper()
	select {
	case p := <-c.plays:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for playback to start")
		return nil
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func startQueue(t *testing.T, connector playback.Connector, opts playback.QueueOptions) *playback.Queue {
	t.Helper()
	q := playback.NewQueue("guild", connector, opts)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		q.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return q
}
