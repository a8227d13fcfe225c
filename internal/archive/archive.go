// Package archive keeps the final state of finished games after their
// sessions have been reaped from memory.
package archive

import (
	"context"
	"errors"
	"sync"

	"github.com/DoyleJ11/tictactoe-server/internal/session"
)

var ErrNotFound = errors.New("archived game not found")

type Store interface {
	Save(ctx context.Context, snap session.Snapshot) error
	Load(ctx context.Context, gameID string) (session.Snapshot, error)
	Close() error
}

// Memory is a process-local Store, used when no database is configured.
type Memory struct {
	mu    sync.RWMutex
	games map[string]Record
}

func NewMemory() *Memory {
	return &Memory{games: make(map[string]Record)}
}

func (m *Memory) Save(_ context.Context, snap session.Snapshot) error {
	rec, err := FromSnapshot(snap)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.games[rec.GameID] = rec
	m.mu.Unlock()
	return nil
}

func (m *Memory) Load(_ context.Context, gameID string) (session.Snapshot, error) {
	m.mu.RLock()
	rec, ok := m.games[gameID]
	m.mu.RUnlock()
	if !ok {
		return session.Snapshot{}, ErrNotFound
	}
	return rec.Snapshot()
}

func (m *Memory) Close() error { return nil }
