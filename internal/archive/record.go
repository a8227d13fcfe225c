package archive

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/DoyleJ11/tictactoe-server/internal/engine"
	"github.com/DoyleJ11/tictactoe-server/internal/session"
)

// Record is the stored row of one finished game. The board is kept as a
// 9-character string with '.' for empty cells.
type Record struct {
	GameID     string    `gorm:"primaryKey;size:64"`
	Status     string    `gorm:"size:16;not null;index"`
	NextTurn   string    `gorm:"size:1"`
	Board      string    `gorm:"size:9;not null"`
	Players    string    `gorm:"type:text;not null"`
	Version    int       `gorm:"not null"`
	FinishedAt time.Time `gorm:"not null"`
}

func (Record) TableName() string { return "finished_games" }

type playerRow struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

func FromSnapshot(snap session.Snapshot) (Record, error) {
	if snap.GameID == "" {
		return Record{}, fmt.Errorf("archive: snapshot without game id")
	}
	rows := make([]playerRow, len(snap.Players))
	for i, p := range snap.Players {
		rows[i] = playerRow{Name: p.Name, Symbol: string(p.Symbol)}
	}
	players, err := json.Marshal(rows)
	if err != nil {
		return Record{}, fmt.Errorf("archive: encode players: %w", err)
	}

	board := make([]byte, engine.Cells)
	for i, c := range snap.Board {
		if c == engine.SymbolNone {
			board[i] = '.'
		} else {
			board[i] = string(c)[0]
		}
	}

	return Record{
		GameID:     snap.GameID,
		Status:     string(snap.Status),
		NextTurn:   string(snap.NextTurn),
		Board:      string(board),
		Players:    string(players),
		Version:    snap.Version,
		FinishedAt: snap.UpdatedAt.UTC(),
	}, nil
}

func (r Record) Snapshot() (session.Snapshot, error) {
	status, ok := session.ParseStatus(r.Status)
	if !ok {
		return session.Snapshot{}, fmt.Errorf("archive %s: unknown status %q", r.GameID, r.Status)
	}
	next, err := engine.ParseSymbol(r.NextTurn)
	if err != nil {
		return session.Snapshot{}, fmt.Errorf("archive %s: next turn: %w", r.GameID, err)
	}
	if len(r.Board) != engine.Cells {
		return session.Snapshot{}, fmt.Errorf("archive %s: board has %d cells", r.GameID, len(r.Board))
	}

	var board engine.Board
	for i := 0; i < engine.Cells; i++ {
		if r.Board[i] == '.' {
			continue
		}
		sym, err := engine.ParseSymbol(r.Board[i : i+1])
		if err != nil {
			return session.Snapshot{}, fmt.Errorf("archive %s: cell %d: %w", r.GameID, i, err)
		}
		board[i] = sym
	}

	var rows []playerRow
	if err := json.Unmarshal([]byte(r.Players), &rows); err != nil {
		return session.Snapshot{}, fmt.Errorf("archive %s: decode players: %w", r.GameID, err)
	}
	players := make([]session.Player, len(rows))
	for i, row := range rows {
		players[i] = session.Player{Name: row.Name, Symbol: engine.Symbol(row.Symbol)}
	}

	return session.Snapshot{
		GameID:    r.GameID,
		Version:   r.Version,
		Status:    status,
		NextTurn:  next,
		Players:   players,
		Board:     board,
		UpdatedAt: r.FinishedAt,
	}, nil
}
