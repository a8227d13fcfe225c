package client

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/DoyleJ11/tictactoe-server/internal/rpc"
	"github.com/DoyleJ11/tictactoe-server/pkg/types"
	"go.uber.org/zap"
)

var ErrClosed = errors.New("controller closed")

type EventKind int

const (
	EventCreated EventKind = iota
	EventState
	EventMoveResult
	EventStreamClosed
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventCreated:
		return "created"
	case EventState:
		return "state"
	case EventMoveResult:
		return "move_result"
	case EventStreamClosed:
		return "stream_closed"
	case EventError:
		return "error"
	}
	return "unknown"
}

// Event is one result delivered to the interactive loop.
type Event struct {
	Kind    EventKind
	Created *types.CreateResponse
	State   *types.GameState
	Move    *types.MoveResponse
	Err     error
}

// Controller runs every call on a single worker goroutine and reports the
// outcome on Events. Only the JoinGame stream reader runs beside it.
type Controller struct {
	api    *rpc.Client
	log    *zap.Logger
	jobs   chan func(context.Context)
	events chan Event

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// worker-owned
	stopStream context.CancelFunc

	closeOnce sync.Once
	closeErr  error
}

func NewController(api *rpc.Client, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		api:    api,
		log:    log,
		jobs:   make(chan func(context.Context), 16),
		events: make(chan Event, 16),
		ctx:    ctx,
		cancel: cancel,
	}
	c.wg.Add(1)
	go c.worker()
	return c
}

// Events is closed by Close once the worker and stream have stopped.
func (c *Controller) Events() <-chan Event { return c.events }

// Create creates a game hosted by name and then follows it.
func (c *Controller) Create(name string) error {
	return c.submit(func(ctx context.Context) {
		resp, err := c.api.CreateGame(ctx, name)
		if err != nil {
			c.emit(Event{Kind: EventError, Err: err})
			return
		}
		c.emit(Event{Kind: EventCreated, Created: resp})
		c.follow(resp.GameID, name)
	})
}

// Join fetches the current state of gameID, then joins and follows it.
func (c *Controller) Join(gameID, name string) error {
	return c.submit(func(ctx context.Context) {
		state, err := c.api.GetState(ctx, gameID)
		if err != nil {
			c.emit(Event{Kind: EventError, Err: err})
			return
		}
		c.emit(Event{Kind: EventState, State: state})
		c.follow(gameID, name)
	})
}

func (c *Controller) Move(gameID, name string, row, col int) error {
	return c.submit(func(ctx context.Context) {
		resp, err := c.api.MakeMove(ctx, gameID, name, row, col)
		if err != nil {
			c.emit(Event{Kind: EventError, Err: err})
			return
		}
		c.emit(Event{Kind: EventMoveResult, Move: resp})
	})
}

// Close stops the stream and the worker, then closes the connection. Safe to
// call more than once.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		c.wg.Wait()
		close(c.events)
		c.closeErr = c.api.Close()
	})
	return c.closeErr
}

func (c *Controller) submit(job func(context.Context)) error {
	select {
	case <-c.ctx.Done():
		return ErrClosed
	default:
	}
	select {
	case c.jobs <- job:
		return nil
	case <-c.ctx.Done():
		return ErrClosed
	}
}

func (c *Controller) worker() {
	defer c.wg.Done()
	defer func() {
		if c.stopStream != nil {
			c.stopStream()
		}
	}()
	for {
		select {
		case <-c.ctx.Done():
			return
		case job := <-c.jobs:
			job(c.ctx)
		}
	}
}

// follow replaces the current stream, if any, with one for gameID.
func (c *Controller) follow(gameID, name string) {
	if c.stopStream != nil {
		c.stopStream()
	}
	ctx, cancel := context.WithCancel(c.ctx)
	c.stopStream = cancel

	stream, err := c.api.JoinGame(ctx, gameID, name)
	if err != nil {
		cancel()
		c.emit(Event{Kind: EventError, Err: err})
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		for {
			state, err := stream.Recv()
			if err != nil {
				c.streamEnded(ctx, err)
				return
			}
			c.emit(Event{Kind: EventState, State: state})
		}
	}()
}

func (c *Controller) streamEnded(ctx context.Context, err error) {
	switch {
	case errors.Is(err, io.EOF):
		c.emit(Event{Kind: EventStreamClosed})
	case ctx.Err() != nil:
		// replaced or closed by us
	default:
		c.log.Debug("stream error", zap.Error(err))
		c.emit(Event{Kind: EventStreamClosed, Err: err})
	}
}

func (c *Controller) emit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.ctx.Done():
	}
}
