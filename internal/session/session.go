package session

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/DoyleJ11/tictactoe-server/internal/engine"
	"go.uber.org/zap"
)

var ErrSessionFull = errors.New("session full")
var ErrDuplicateName = errors.New("player name already taken")
var ErrNotInProgress = errors.New("game not in progress")
var ErrUnknownPlayer = errors.New("player not in game")
var ErrNotYourTurn = errors.New("not your turn")
var ErrEmptyName = errors.New("empty player name")
var ErrClosed = errors.New("session closed")
var ErrSlowSubscriber = errors.New("subscriber fell behind")

const MaxPlayers = 2

// DefaultSubscriberBuffer is the queue depth of a subscriber when Options
// leaves it unset.
const DefaultSubscriberBuffer = 16

// Seat order: the host plays X, the second player O.
var seats = [MaxPlayers]engine.Symbol{engine.SymbolX, engine.SymbolO}

type msg interface{ isSessionMsg() }

type joinMsg struct {
	name  string
	reply chan joinResult
}

type joinResult struct {
	symbol engine.Symbol
	err    error
}

type moveMsg struct {
	player   string
	row, col int
	reply    chan error
}

type subscribeMsg struct {
	reply chan *Subscription
}

type enterMsg struct {
	name  string
	reply chan enterResult
}

type enterResult struct {
	symbol engine.Symbol
	sub    *Subscription
	err    error
}

type leaveMsg struct {
	id   uint64
	done chan struct{}
}

type retireMsg struct {
	policy Policy
	reply  chan bool
}

// test-only: reflect loop-owned state without data races
type viewMsg struct {
	reply chan View
}

func (joinMsg) isSessionMsg()      {}
func (moveMsg) isSessionMsg()      {}
func (subscribeMsg) isSessionMsg() {}
func (enterMsg) isSessionMsg()     {}
func (leaveMsg) isSessionMsg()     {}
func (retireMsg) isSessionMsg()    {}
func (viewMsg) isSessionMsg()      {}

type View struct {
	Snapshot       Snapshot
	NumSubscribers int
	LastActivity   time.Time
}

// Policy controls when an idle session may be retired. A zero AbandonedIdle
// keeps unfinished sessions alive forever.
type Policy struct {
	FinishedIdle  time.Duration
	AbandonedIdle time.Duration
}

type Options struct {
	SubscriberBuffer int
	Logger           *zap.Logger
	Now              func() time.Time
}

// Session is one game. A single goroutine owns the board, players and
// subscribers; every mutation is a message on the inbox so operations on one
// session are linearized while different sessions never contend.
type Session struct {
	id      string
	inbox   chan msg
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	current atomic.Pointer[Snapshot]
	log     *zap.Logger
	now     func() time.Time
	bufSize int

	// loop-owned
	board        engine.Board
	players      []Player
	nextTurn     engine.Symbol
	status       Status
	version      int
	subs         map[uint64]*Subscription
	lastSubID    uint64
	lastActivity time.Time
}

func New(parent context.Context, id, host string, opts Options) (*Session, error) {
	if host == "" {
		return nil, ErrEmptyName
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.SubscriberBuffer < 1 {
		opts.SubscriberBuffer = DefaultSubscriberBuffer
	}

	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		id:           id,
		inbox:        make(chan msg, 64),
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
		log:          opts.Logger.With(zap.String("game_id", id)),
		now:          opts.Now,
		bufSize:      opts.SubscriberBuffer,
		players:      []Player{{Name: host, Symbol: seats[0]}},
		nextTurn:     engine.SymbolX,
		status:       StatusWaiting,
		subs:         make(map[uint64]*Subscription),
		lastActivity: opts.Now(),
	}
	snap := s.snapshot()
	s.current.Store(&snap)

	go s.loop()
	return s, nil
}

func (s *Session) ID() string { return s.id }

// Done is closed once the session goroutine has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

// State returns a copy of the last published snapshot. It never waits on the
// session goroutine.
func (s *Session) State() Snapshot { return s.current.Load().clone() }

func (s *Session) Join(ctx context.Context, name string) (engine.Symbol, error) {
	if name == "" {
		return engine.SymbolNone, ErrEmptyName
	}
	reply := make(chan joinResult, 1)
	if err := s.send(ctx, joinMsg{name: name, reply: reply}); err != nil {
		return engine.SymbolNone, err
	}
	res, err := await(ctx, s, reply)
	if err != nil {
		return engine.SymbolNone, err
	}
	return res.symbol, res.err
}

func (s *Session) Move(ctx context.Context, player string, row, col int) error {
	reply := make(chan error, 1)
	if err := s.send(ctx, moveMsg{player: player, row: row, col: col, reply: reply}); err != nil {
		return err
	}
	res, err := await(ctx, s, reply)
	if err != nil {
		return err
	}
	return res
}

// Subscribe registers a new subscriber. The current snapshot is already
// queued on the returned subscription.
func (s *Session) Subscribe(ctx context.Context) (*Subscription, error) {
	reply := make(chan *Subscription, 1)
	if err := s.send(ctx, subscribeMsg{reply: reply}); err != nil {
		return nil, err
	}
	sub, err := await(ctx, s, reply)
	if err != nil {
		reclaim(s, reply, func(sub *Subscription) *Subscription { return sub })
		return nil, err
	}
	return sub, nil
}

// Enter joins name if it is not yet a player, then subscribes, as one step.
// An existing player re-subscribes without joining again.
func (s *Session) Enter(ctx context.Context, name string) (engine.Symbol, *Subscription, error) {
	if name == "" {
		return engine.SymbolNone, nil, ErrEmptyName
	}
	reply := make(chan enterResult, 1)
	if err := s.send(ctx, enterMsg{name: name, reply: reply}); err != nil {
		return engine.SymbolNone, nil, err
	}
	res, err := await(ctx, s, reply)
	if err != nil {
		reclaim(s, reply, func(r enterResult) *Subscription { return r.sub })
		return engine.SymbolNone, nil, err
	}
	return res.symbol, res.sub, res.err
}

// Retire asks the session whether it is idle under p. When it is, the session
// shuts down before replying, so no join or move can slip in after the
// decision.
func (s *Session) Retire(ctx context.Context, p Policy) (bool, error) {
	reply := make(chan bool, 1)
	if err := s.send(ctx, retireMsg{policy: p, reply: reply}); err != nil {
		return false, err
	}
	return await(ctx, s, reply)
}

// Shutdown closes every subscriber and stops the session goroutine.
func (s *Session) Shutdown() {
	s.cancel()
	<-s.done
}

func (s *Session) view(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := s.send(ctx, viewMsg{reply: reply}); err != nil {
		return View{}, err
	}
	return await(ctx, s, reply)
}

func (s *Session) send(ctx context.Context, m msg) error {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case s.inbox <- m:
		return nil
	case <-s.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func await[T any](ctx context.Context, s *Session, reply <-chan T) (T, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-s.done:
		// the loop may have replied right before exiting
		select {
		case v := <-reply:
			return v, nil
		default:
			return zero, ErrClosed
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// reclaim closes a subscription whose requester gave up waiting for it.
func reclaim[T any](s *Session, reply <-chan T, pick func(T) *Subscription) {
	go func() {
		select {
		case v := <-reply:
			if sub := pick(v); sub != nil {
				sub.Close()
			}
		case <-s.done:
		}
	}()
}

func (s *Session) loop() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown(ErrClosed)
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case joinMsg:
				sym, err := s.join(msg.name)
				msg.reply <- joinResult{symbol: sym, err: err}

			case moveMsg:
				msg.reply <- s.move(msg.player, msg.row, msg.col)

			case subscribeMsg:
				msg.reply <- s.subscribe()

			case enterMsg:
				msg.reply <- s.enter(msg.name)

			case leaveMsg:
				if sub, ok := s.subs[msg.id]; ok {
					s.closeSub(sub, nil)
					s.lastActivity = s.now()
				}
				close(msg.done)

			case retireMsg:
				if s.idle(msg.policy) {
					s.log.Info("retiring idle session", zap.String("status", string(s.status)))
					s.shutdown(ErrClosed)
					msg.reply <- true
					return
				}
				msg.reply <- false

			case viewMsg:
				msg.reply <- View{
					Snapshot:       s.State(),
					NumSubscribers: len(s.subs),
					LastActivity:   s.lastActivity,
				}
			}
		}
	}
}

func (s *Session) join(name string) (engine.Symbol, error) {
	if len(s.players) >= MaxPlayers {
		return engine.SymbolNone, ErrSessionFull
	}
	if s.playerIndex(name) >= 0 {
		return engine.SymbolNone, ErrDuplicateName
	}

	sym := seats[len(s.players)]
	s.players = append(s.players, Player{Name: name, Symbol: sym})
	if len(s.players) == MaxPlayers && s.status == StatusWaiting {
		s.status = StatusInProgress
		s.nextTurn = engine.SymbolX
	}
	s.log.Info("player joined", zap.String("player", name), zap.String("symbol", string(sym)))
	s.publish()
	return sym, nil
}

func (s *Session) move(player string, row, col int) error {
	if s.status != StatusInProgress {
		return ErrNotInProgress
	}
	i := s.playerIndex(player)
	if i < 0 {
		return ErrUnknownPlayer
	}
	sym := s.players[i].Symbol
	if sym != s.nextTurn {
		return ErrNotYourTurn
	}

	next, err := s.board.Apply(row, col, sym)
	if err != nil {
		return err
	}
	s.board = next

	switch s.board.Evaluate(sym) {
	case engine.OutcomeOngoing:
		s.nextTurn = sym.Other()
	case engine.OutcomeXWon:
		s.status = StatusXWon
	case engine.OutcomeOWon:
		s.status = StatusOWon
	case engine.OutcomeDraw:
		s.status = StatusDraw
	}
	if s.status.Terminal() {
		s.log.Info("game finished", zap.String("status", string(s.status)))
	}
	s.publish()
	return nil
}

func (s *Session) enter(name string) enterResult {
	if i := s.playerIndex(name); i >= 0 {
		return enterResult{symbol: s.players[i].Symbol, sub: s.subscribe()}
	}
	sym, err := s.join(name)
	if err != nil {
		return enterResult{err: err}
	}
	return enterResult{symbol: sym, sub: s.subscribe()}
}

func (s *Session) subscribe() *Subscription {
	s.lastSubID++
	ch := make(chan Snapshot, s.bufSize)
	sub := &Subscription{C: ch, id: s.lastSubID, ch: ch, session: s}
	// Late joiners are never blind to earlier moves.
	ch <- s.State()
	s.subs[sub.id] = sub
	s.lastActivity = s.now()
	return sub
}

func (s *Session) idle(p Policy) bool {
	if len(s.subs) > 0 {
		return false
	}
	idleFor := s.now().Sub(s.lastActivity)
	if s.status.Terminal() {
		return idleFor >= p.FinishedIdle
	}
	return p.AbandonedIdle > 0 && idleFor >= p.AbandonedIdle
}

// publish stores a new snapshot and fans it out. Every live subscriber gets
// each version exactly once, in order.
func (s *Session) publish() {
	s.version++
	s.lastActivity = s.now()
	snap := s.snapshot()
	s.current.Store(&snap)
	s.broadcast(snap)
}

func (s *Session) broadcast(snap Snapshot) {
	for id, sub := range s.subs {
		select {
		case sub.ch <- snap.clone():
			//ok
		default:
			// Subscriber is slow/full - drop them.
			s.log.Warn("dropping slow subscriber", zap.Uint64("subscriber", id), zap.Int("version", snap.Version))
			s.closeSub(sub, ErrSlowSubscriber)
		}
	}
}

func (s *Session) closeSub(sub *Subscription, reason error) {
	sub.err = reason
	close(sub.ch)
	delete(s.subs, sub.id)
}

func (s *Session) shutdown(reason error) {
	for _, sub := range s.subs {
		s.closeSub(sub, reason) // Tell subscriber no more snapshots
	}
	s.cancel()
}

func (s *Session) playerIndex(name string) int {
	for i, p := range s.players {
		if p.Name == name {
			return i
		}
	}
	return -1
}

func (s *Session) snapshot() Snapshot {
	players := make([]Player, len(s.players))
	copy(players, s.players)
	return Snapshot{
		GameID:    s.id,
		Version:   s.version,
		Status:    s.status,
		NextTurn:  s.nextTurn,
		Players:   players,
		Board:     s.board,
		UpdatedAt: s.lastActivity,
	}
}
