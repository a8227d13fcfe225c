package hub

import (
	"context"
	"errors"
	"time"

	"github.com/DoyleJ11/tictactoe-server/internal/session"
	"go.uber.org/zap"
)

const reapTimeout = 5 * time.Second

// Reap runs one sweep over all sessions and reports how many were evicted.
// The background ticker does the same thing on ReapInterval.
func (h *Hub) Reap(ctx context.Context) (int, error) {
	all, err := h.list(ctx)
	if err != nil {
		return 0, err
	}
	return h.sweep(ctx, all), nil
}

func (h *Hub) backgroundSweep(sessions []*session.Session) {
	h.sweep(h.ctx, sessions)
	select {
	case h.inbox <- sweepDone{}:
	case <-h.ctx.Done():
	}
}

func (h *Hub) sweep(ctx context.Context, sessions []*session.Session) int {
	n := 0
	for _, s := range sessions {
		if h.reap(ctx, s) {
			n++
		}
	}
	if n > 0 {
		h.log.Info("reaped idle sessions", zap.Int("count", n))
	}
	return n
}

// reap lets the session decide under its own serialization whether it is
// idle, so eviction never races a join or a move on that session.
func (h *Hub) reap(ctx context.Context, s *session.Session) bool {
	retireCtx, cancel := context.WithTimeout(ctx, reapTimeout)
	retired, err := s.Retire(retireCtx, h.opts.Policy)
	cancel()

	switch {
	case err == nil && !retired:
		return false
	case errors.Is(err, session.ErrClosed):
		// already gone; only the map entry is left
	case err != nil:
		h.log.Warn("retire session", zap.String("game_id", s.ID()), zap.Error(err))
		return false
	default:
		h.archive(s.State())
	}

	select {
	case h.inbox <- RemoveSession{ID: s.ID()}:
	case <-h.ctx.Done():
	}
	return true
}

func (h *Hub) archive(final session.Snapshot) {
	if h.opts.Archive == nil || !final.Status.Terminal() {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(h.ctx), reapTimeout)
	defer cancel()
	if err := h.opts.Archive.Save(ctx, final); err != nil {
		h.log.Error("archive finished session", zap.String("game_id", final.GameID), zap.Error(err))
	}
}
