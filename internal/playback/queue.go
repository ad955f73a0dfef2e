package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type State int

const (
	StateIdle State = iota
	StateConnecting
	StatePlaying
	StateDraining
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StatePlaying:
		return "playing"
	case StateDraining:
		return "draining"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

const (
	DefaultConnectTimeout = 10 * time.Second

	// stopGrace bounds how long the worker waits for a stopped stream to
	// report completion before giving up on the connection.
	stopGrace = 5 * time.Second

	// eventTimeout bounds each event handler call made by the worker.
	eventTimeout = 2 * time.Second
)

// ErrQueueClosed is returned by Enqueue once the worker has shut down.
var ErrQueueClosed = errors.New("playback queue is closed")

var errSkipped = errors.New("skipped")

type entry struct {
	req      Request
	skipped  chan struct{}
	skipOnce sync.Once
}

func (e *entry) skip() {
	e.skipOnce.Do(func() { close(e.skipped) })
}

type QueueOptions struct {
	ConnectTimeout time.Duration
	Events         EventHandler
	Logger         *slog.Logger
}

// Queue plays one guild's requests in arrival order over a single connection.
type Queue struct {
	guildID        string
	connector      Connector
	connectTimeout time.Duration
	events         EventHandler
	logger         *slog.Logger

	mu      sync.Mutex
	pending []*entry
	current *entry
	state   State
	closed  bool

	wake chan struct{}

	// conn is only touched by the worker goroutine.
	conn Connection
}

func NewQueue(guildID string, connector Connector, opts QueueOptions) *Queue {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Events == nil {
		opts.Events = MultiEventHandler(nil)
	}
	return &Queue{
		guildID:        guildID,
		connector:      connector,
		connectTimeout: opts.ConnectTimeout,
		events:         opts.Events,
		logger:         opts.Logger.With(slog.String("guildID", guildID)),
		wake:           make(chan struct{}, 1),
	}
}

// Enqueue appends req and wakes the worker. It is safe for concurrent use
// and returns the number of requests waiting, including req. Once the worker
// has stopped it returns ErrQueueClosed and req is dropped unnotified.
func (q *Queue) Enqueue(ctx context.Context, req Request) (int, error) {
	req.GuildID = q.guildID

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return 0, ErrQueueClosed
	}
	q.pending = append(q.pending, &entry{req: req, skipped: make(chan struct{})})
	pending := len(q.pending)
	q.mu.Unlock()

	q.emit(ctx, Event{Kind: EventEnqueued, Request: req, Pending: pending})

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return pending, nil
}

// Skip stops the clip that is currently playing.
// It returns ErrNoActivePlayback when no clip is current, even if requests
// are waiting.
func (q *Queue) Skip() error {
	return q.skipWith(nil)
}

func (q *Queue) skipWith(authorize func(current *Request) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.current == nil {
		return ErrNoActivePlayback
	}
	if authorize != nil {
		if err := authorize(&q.current.req); err != nil {
			return err
		}
	}

	q.current.skip()
	return nil
}

func (q *Queue) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// Current returns the request being played, if any.
func (q *Queue) Current() (Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.current == nil {
		return Request{}, false
	}
	return q.current.req, true
}

// Pending returns a copy of the requests waiting behind the current one.
func (q *Queue) Pending() []Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	reqs := make([]Request, 0, len(q.pending))
	for _, e := range q.pending {
		reqs = append(reqs, e.req)
	}
	return reqs
}

// Run is the worker loop. It parks until woken by Enqueue, plays everything
// queued, releases the connection and parks again. It returns when ctx is
// cancelled, abandoning whatever is still queued.
func (q *Queue) Run(ctx context.Context) {
	q.logger.DebugContext(ctx, "playback worker started")
	for {
		select {
		case <-ctx.Done():
			q.shutdown(ctx)
			return
		case <-q.wake:
		}
		q.drain(ctx)
	}
}

func (q *Queue) drain(ctx context.Context) {
	for ctx.Err() == nil {
		e := q.next()
		if e == nil {
			q.release(ctx)
			return
		}
		err := q.playEntry(ctx, e)
		q.complete(ctx, e, err)
	}
}

// next pops the head of the queue into current.
func (q *Queue) next() *entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		q.current = nil
		if q.conn != nil {
			q.state = StateDraining
		} else {
			q.state = StateIdle
		}
		return nil
	}

	e := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	q.current = e
	return e
}

func (q *Queue) setState(state State) {
	q.mu.Lock()
	q.state = state
	q.mu.Unlock()
}

func (q *Queue) playEntry(ctx context.Context, e *entry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.ErrorContext(ctx, "recovered from panic during playback", slog.Any("panic", r))
			q.dropConnection(ctx)
			err = &MediaError{Op: "play", Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if err := q.connect(ctx, e.req.ChannelID); err != nil {
		return err
	}

	select {
	case <-e.skipped:
		return errSkipped
	default:
	}

	done := make(chan error, 1)
	q.setState(StatePlaying)
	q.emit(ctx, Event{Kind: EventStarted, Request: e.req})

	err = q.conn.Play(e.req.Location, func(err error) {
		select {
		case done <- err:
		default:
		}
	})
	if err != nil {
		return &MediaError{Op: "play", Err: err}
	}

	select {
	case err := <-done:
		if err != nil {
			return &MediaError{Op: "stream", Err: err}
		}
		return nil
	case <-e.skipped:
		q.stop(ctx, done)
		return errSkipped
	case <-ctx.Done():
		q.stop(ctx, done)
		return &MediaError{Op: "stream", Err: ctx.Err()}
	}
}

// stop ends the current stream and waits for its completion callback.
func (q *Queue) stop(ctx context.Context, done <-chan error) {
	q.conn.Stop()

	timer := time.NewTimer(stopGrace)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		q.logger.WarnContext(ctx, "stream did not stop in time, dropping connection")
		q.dropConnection(ctx)
	}
}

type connectResult struct {
	conn Connection
	err  error
}

// connect makes sure the worker holds a connection to channelID,
// joining or moving as needed.
func (q *Queue) connect(ctx context.Context, channelID string) error {
	if q.conn != nil && q.conn.ChannelID() == channelID {
		return nil
	}

	q.setState(StateConnecting)
	connectCtx, cancel := context.WithTimeout(ctx, q.connectTimeout)
	defer cancel()

	if q.conn != nil {
		q.logger.InfoContext(ctx, "moving voice connection",
			slog.String("from", q.conn.ChannelID()),
			slog.String("to", channelID),
		)
		if err := q.conn.Move(connectCtx, channelID); err != nil {
			q.dropConnection(ctx)
			return &MediaError{Op: "move", Err: err}
		}
		return nil
	}

	results := make(chan connectResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				q.logger.ErrorContext(ctx, "recovered from panic while connecting", slog.Any("panic", r))
				results <- connectResult{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		conn, err := q.connector.Connect(connectCtx, q.guildID, channelID)
		results <- connectResult{conn: conn, err: err}
	}()

	select {
	case res := <-results:
		if res.err != nil {
			return &MediaError{Op: "connect", Err: res.err}
		}
		if res.conn == nil {
			return &MediaError{Op: "connect", Err: errors.New("connector returned no connection")}
		}
		q.conn = res.conn
		q.logger.InfoContext(ctx, "joined voice channel", slog.String("channelID", channelID))
		return nil
	case <-connectCtx.Done():
		// A connection that shows up late belongs to nobody.
		go func() {
			if res := <-results; res.conn != nil {
				_ = res.conn.Disconnect()
			}
		}()
		return &MediaError{Op: "connect", Err: connectCtx.Err()}
	}
}

func (q *Queue) complete(ctx context.Context, e *entry, err error) {
	ctx = context.WithoutCancel(ctx)

	q.mu.Lock()
	q.current = nil
	pending := len(q.pending)
	q.mu.Unlock()

	event := Event{Request: e.req, Pending: pending}
	var outcome error
	switch {
	case errors.Is(err, errSkipped):
		event.Kind = EventSkipped
	case err != nil:
		event.Kind = EventFailed
		event.Err = err
		outcome = err
	default:
		event.Kind = EventFinished
	}

	q.emit(ctx, event)
	if e.req.Notify != nil {
		q.safely(ctx, "notify", func() { e.req.Notify(outcome) })
	}
}

// release disconnects once the queue is empty.
func (q *Queue) release(ctx context.Context) {
	if q.conn != nil {
		q.logger.InfoContext(ctx, "queue drained, leaving voice channel")
		q.dropConnection(ctx)
	}

	q.mu.Lock()
	if q.current == nil {
		q.state = StateIdle
	}
	q.mu.Unlock()
}

func (q *Queue) dropConnection(ctx context.Context) {
	if q.conn == nil {
		return
	}
	if err := q.conn.Disconnect(); err != nil {
		q.logger.WarnContext(ctx, "failed to disconnect", slog.Any("error", err))
	}
	q.conn = nil
}

func (q *Queue) shutdown(ctx context.Context) {
	q.mu.Lock()
	abandoned := q.pending
	q.pending = nil
	q.closed = true
	q.mu.Unlock()

	detached := context.WithoutCancel(ctx)
	for _, e := range abandoned {
		q.complete(ctx, e, &MediaError{Op: "queue", Err: ctx.Err()})
	}
	q.release(detached)
	q.logger.DebugContext(detached, "playback worker stopped")
}

func (q *Queue) emit(ctx context.Context, event Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventTimeout)
	defer cancel()
	q.safely(ctx, "event", func() { q.events.HandleEvent(ctx, event) })
}

// safely runs caller-supplied code so that a panic in it cannot kill the worker.
func (q *Queue) safely(ctx context.Context, what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.ErrorContext(ctx, "recovered from panic", slog.String("in", what), slog.Any("panic", r))
		}
	}()
	fn()
}
