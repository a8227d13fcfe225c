package archive

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/DoyleJ11/tictactoe-server/internal/engine"
	"github.com/DoyleJ11/tictactoe-server/internal/session"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func finishedSnapshot(id string) session.Snapshot {
	var b engine.Board
	for i, s := range []engine.Symbol{"X", "X", "X", "O", "O", "", "", "", ""} {
		b[i] = s
	}
	return session.Snapshot{
		GameID:   id,
		Version:  6,
		Status:   session.StatusXWon,
		NextTurn: engine.SymbolX,
		Players: []session.Player{
			{Name: "Alice", Symbol: engine.SymbolX},
			{Name: "Bob", Symbol: engine.SymbolO},
		},
		Board:     b,
		UpdatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRecord_BoardEncoding(t *testing.T) {
	rec, err := FromSnapshot(finishedSnapshot("g1"))
	require.NoError(t, err)
	assert.Equal(t, "XXXOO....", rec.Board)
	assert.Equal(t, "X_WON", rec.Status)

	back, err := rec.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, finishedSnapshot("g1"), back)
}

func TestRecord_RejectsCorruptRows(t *testing.T) {
	good, err := FromSnapshot(finishedSnapshot("g1"))
	require.NoError(t, err)

	cases := map[string]func(r *Record){
		"status":  func(r *Record) { r.Status = "PAUSED" },
		"board":   func(r *Record) { r.Board = "XX" },
		"cell":    func(r *Record) { r.Board = "XXXOOZ..." },
		"players": func(r *Record) { r.Players = "{" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			r := good
			mutate(&r)
			_, err := r.Snapshot()
			assert.Error(t, err)
		})
	}

	_, err = FromSnapshot(session.Snapshot{})
	assert.Error(t, err)
}

func TestMemory_SaveLoad(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.Load(ctx, "g1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.Save(ctx, finishedSnapshot("g1")))
	got, err := m.Load(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, finishedSnapshot("g1"), got)
	assert.NoError(t, m.Close())
}

// Runs against a real database only when TICTACTOE_TEST_DATABASE_URL is set.
func TestGorm_SaveLoad(t *testing.T) {
	dsn := os.Getenv("TICTACTOE_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TICTACTOE_TEST_DATABASE_URL not set")
	}
	store, err := OpenPostgres(dsn, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	id := uuid.NewString()
	_, err = store.Load(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	snap := finishedSnapshot(id)
	require.NoError(t, store.Save(ctx, snap))
	// upsert
	require.NoError(t, store.Save(ctx, snap))

	got, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, snap.Board, got.Board)
	assert.Equal(t, snap.Players, got.Players)
	assert.True(t, snap.UpdatedAt.Equal(got.UpdatedAt))
}
