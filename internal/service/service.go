// Package service implements the four TicTacToe operations independent of
// transport. gRPC, HTTP and WebSocket handlers are thin adapters over it.
package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/DoyleJ11/tictactoe-server/internal/archive"
	"github.com/DoyleJ11/tictactoe-server/internal/hub"
	"github.com/DoyleJ11/tictactoe-server/internal/session"
	"github.com/DoyleJ11/tictactoe-server/pkg/types"
	"go.uber.org/zap"
)

const (
	maxNameLen   = 64
	maxGameIDLen = 64
	moveAccepted = "Move accepted"
)

// Registry is the part of the hub the service needs.
type Registry interface {
	Create(ctx context.Context, host string) (*session.Session, error)
	Get(ctx context.Context, id string) (*session.Session, error)
}

// Archive looks up games that were finished and reaped.
type Archive interface {
	Load(ctx context.Context, gameID string) (session.Snapshot, error)
}

type Service struct {
	hub     Registry
	archive Archive
	log     *zap.Logger
}

// New builds a Service. archive may be nil, in which case reaped games are
// simply not found.
func New(h Registry, a Archive, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{hub: h, archive: a, log: log}
}

func (s *Service) CreateGame(ctx context.Context, req *types.CreateRequest) (*types.CreateResponse, error) {
	name, err := playerName(req.PlayerName)
	if err != nil {
		return nil, err
	}
	sess, err := s.hub.Create(ctx, name)
	if err != nil {
		return nil, s.fail("create game", err)
	}
	snap := sess.State()
	return &types.CreateResponse{
		GameID:     sess.ID(),
		YourSymbol: string(snap.SymbolOf(name)),
	}, nil
}

// GetState returns the latest snapshot of a live game, or the archived final
// snapshot of one that has been reaped.
func (s *Service) GetState(ctx context.Context, req *types.StateRequest) (*types.GameState, error) {
	id, err := gameID(req.GameID)
	if err != nil {
		return nil, err
	}
	sess, err := s.hub.Get(ctx, id)
	if err == nil {
		return ToWire(sess.State()), nil
	}
	if !errors.Is(err, hub.ErrSessionNotFound) {
		return nil, s.fail("get state", err)
	}
	if s.archive == nil {
		return nil, newError(CodeSessionNotFound, messages[CodeSessionNotFound])
	}
	snap, err := s.archive.Load(ctx, id)
	switch {
	case errors.Is(err, archive.ErrNotFound):
		return nil, newError(CodeSessionNotFound, messages[CodeSessionNotFound])
	case err != nil:
		return nil, s.fail("load archived game", err)
	}
	return ToWire(snap), nil
}

// JoinGame adds the player to the game (or re-attaches an existing player)
// and pushes every snapshot to send, starting with the current one, until ctx
// ends, send fails or the game goes away. The subscription is always
// released before JoinGame returns.
func (s *Service) JoinGame(ctx context.Context, req *types.JoinRequest, send func(*types.GameState) error) error {
	id, err := gameID(req.GameID)
	if err != nil {
		return err
	}
	name, err := playerName(req.PlayerName)
	if err != nil {
		return err
	}
	sess, err := s.hub.Get(ctx, id)
	if err != nil {
		return s.fail("join game", err)
	}
	symbol, sub, err := sess.Enter(ctx, name)
	if err != nil {
		return s.fail("join game", err)
	}
	defer sub.Close()

	log := s.log.With(zap.String("game_id", id), zap.String("player", name))
	log.Info("subscriber attached", zap.String("symbol", string(symbol)))

	for {
		select {
		case <-ctx.Done():
			log.Info("subscriber disconnected")
			return nil
		case snap, ok := <-sub.C:
			if !ok {
				if errors.Is(sub.Err(), session.ErrSlowSubscriber) {
					log.Warn("subscriber dropped for falling behind")
					return newError(CodeSubscriberTooSlow, messages[CodeSubscriberTooSlow])
				}
				log.Info("game closed, ending stream")
				return nil
			}
			if err := send(ToWire(snap)); err != nil {
				log.Info("push failed, releasing subscriber", zap.Error(err))
				return nil
			}
		}
	}
}

// MakeMove applies one move. Rule violations, including an unknown game, are
// reported in the response with OK=false; only malformed requests and server
// failures return an error.
func (s *Service) MakeMove(ctx context.Context, req *types.MoveRequest) (*types.MoveResponse, error) {
	id, err := gameID(req.GameID)
	if err != nil {
		return nil, err
	}
	name, err := playerName(req.PlayerName)
	if err != nil {
		return nil, err
	}

	var moveErr error
	sess, err := s.hub.Get(ctx, id)
	if err != nil {
		moveErr = err
	} else {
		moveErr = sess.Move(ctx, name, int(req.Row), int(req.Col))
	}
	if moveErr == nil {
		return &types.MoveResponse{OK: true, Message: moveAccepted}, nil
	}

	code := CodeOf(moveErr)
	if !code.moveFailure() {
		return nil, s.fail("make move", moveErr)
	}
	s.log.Debug("move rejected",
		zap.String("game_id", id),
		zap.String("player", name),
		zap.Int32("row", req.Row),
		zap.Int32("col", req.Col),
		zap.String("code", string(code)),
	)
	return &types.MoveResponse{OK: false, Message: messageFor(code, moveErr)}, nil
}

// fail classifies err and logs the ones that are not the caller's fault.
func (s *Service) fail(op string, err error) *Error {
	e := AsError(err)
	if e.Code == CodeInternal {
		s.log.Error(op+" failed", zap.Error(err))
	}
	return e
}

func playerName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	switch {
	case name == "":
		return "", newError(CodeInvalidArgument, "playerName is required")
	case utf8.RuneCountInString(name) > maxNameLen:
		return "", newError(CodeInvalidArgument, "playerName is too long")
	}
	return name, nil
}

func gameID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	switch {
	case id == "":
		return "", newError(CodeInvalidArgument, "gameId is required")
	case len(id) > maxGameIDLen:
		return "", newError(CodeInvalidArgument, "gameId is too long")
	}
	return id, nil
}
