package hub

import (
	"context"
	"errors"
	"time"

	"github.com/DoyleJ11/tictactoe-server/internal/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrSessionNotFound = errors.New("session not found")
var ErrHubClosed = errors.New("hub closed")
var ErrIDExhausted = errors.New("could not allocate a unique session id")

const maxIDAttempts = 8

// Archiver receives the final snapshot of every finished session that is
// reaped.
type Archiver interface {
	Save(ctx context.Context, snap session.Snapshot) error
}

type HubMsg interface{ isHubMsg() }

type CreateSession struct {
	Host  string
	Reply chan createResult
}

type createResult struct {
	session *session.Session
	err     error
}

type GetSession struct {
	ID    string
	Reply chan *session.Session
}

type RemoveSession struct {
	ID string
}

type ListSessions struct {
	Reply chan []*session.Session
}

type ShutdownHub struct{}

type sweepDone struct{}

func (CreateSession) isHubMsg() {}
func (GetSession) isHubMsg()    {}
func (RemoveSession) isHubMsg() {}
func (ListSessions) isHubMsg()  {}
func (ShutdownHub) isHubMsg()   {}
func (sweepDone) isHubMsg()     {}

type Options struct {
	Session      session.Options
	Policy       session.Policy
	ReapInterval time.Duration // 0 disables the background reaper
	Archive      Archiver
	Logger       *zap.Logger
	NewID        func() string
}

// Hub owns the id -> session map. Only the hub goroutine touches the map;
// session work happens on each session's own goroutine.
type Hub struct {
	inbox    chan HubMsg
	sessions map[string]*session.Session
	opts     Options
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewHub(parent context.Context, opts Options) *Hub {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Session.Logger == nil {
		opts.Session.Logger = opts.Logger
	}

	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		sessions: make(map[string]*session.Session),
		opts:     opts,
		log:      opts.Logger,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Done is closed once the hub and all of its sessions have stopped.
func (h *Hub) Done() <-chan struct{} { return h.done }

// Create allocates a fresh id and starts a session hosted by host.
func (h *Hub) Create(ctx context.Context, host string) (*session.Session, error) {
	reply := make(chan createResult, 1)
	if err := h.send(ctx, CreateSession{Host: host, Reply: reply}); err != nil {
		return nil, err
	}
	res, err := awaitReply(ctx, h, reply)
	if err != nil {
		return nil, err
	}
	return res.session, res.err
}

func (h *Hub) Get(ctx context.Context, id string) (*session.Session, error) {
	reply := make(chan *session.Session, 1)
	if err := h.send(ctx, GetSession{ID: id, Reply: reply}); err != nil {
		return nil, err
	}
	s, err := awaitReply(ctx, h, reply)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (h *Hub) Len(ctx context.Context) (int, error) {
	all, err := h.list(ctx)
	return len(all), err
}

// Shutdown stops every session, closing their subscribers, then the hub.
func (h *Hub) Shutdown() {
	select {
	case h.inbox <- ShutdownHub{}:
	case <-h.done:
		return
	}
	<-h.done
}

func (h *Hub) list(ctx context.Context) ([]*session.Session, error) {
	reply := make(chan []*session.Session, 1)
	if err := h.send(ctx, ListSessions{Reply: reply}); err != nil {
		return nil, err
	}
	return awaitReply(ctx, h, reply)
}

func (h *Hub) send(ctx context.Context, m HubMsg) error {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case h.inbox <- m:
		return nil
	case <-h.ctx.Done():
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func awaitReply[T any](ctx context.Context, h *Hub, reply <-chan T) (T, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-h.done:
		select {
		case v := <-reply:
			return v, nil
		default:
			return zero, ErrHubClosed
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (h *Hub) loop() {
	defer close(h.done)

	var tick <-chan time.Time
	if h.opts.ReapInterval > 0 {
		ticker := time.NewTicker(h.opts.ReapInterval)
		defer ticker.Stop()
		tick = ticker.C
	}
	sweeping := false

	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case <-tick:
			// one sweep at a time; ticks during a sweep are skipped
			if !sweeping && len(h.sessions) > 0 {
				sweeping = true
				go h.backgroundSweep(h.snapshotSessions())
			}

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateSession:
				s, err := h.create(msg.Host)
				msg.Reply <- createResult{session: s, err: err}

			case GetSession:
				msg.Reply <- h.sessions[msg.ID] // May be nil

			case ListSessions:
				msg.Reply <- h.snapshotSessions()

			case RemoveSession:
				delete(h.sessions, msg.ID)

			case sweepDone:
				sweeping = false

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) create(host string) (*session.Session, error) {
	id := h.opts.NewID()
	for attempt := 1; h.sessions[id] != nil; attempt++ {
		if attempt == maxIDAttempts {
			return nil, ErrIDExhausted
		}
		h.log.Warn("collision on session id, regenerating", zap.String("game_id", id))
		id = h.opts.NewID()
	}

	s, err := session.New(h.ctx, id, host, h.opts.Session)
	if err != nil {
		return nil, err
	}
	h.sessions[id] = s
	h.log.Info("session created", zap.String("game_id", id), zap.String("host", host))
	return s, nil
}

func (h *Hub) snapshotSessions() []*session.Session {
	out := make([]*session.Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		out = append(out, s)
	}
	return out
}

// shutdown stops every session and archives the ones that already finished,
// so their result survives a restart.
func (h *Hub) shutdown() {
	for id, s := range h.sessions {
		s.Shutdown()
		h.archive(s.State())
		delete(h.sessions, id)
	}
	h.cancel()
}
