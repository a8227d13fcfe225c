package session

import (
	"time"

	"github.com/DoyleJ11/tictactoe-server/internal/engine"
)

type Status string

const (
	StatusWaiting    Status = "WAITING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusXWon       Status = "X_WON"
	StatusOWon       Status = "O_WON"
	StatusDraw       Status = "DRAW"
)

// Terminal reports whether no further transition can leave s.
func (s Status) Terminal() bool {
	switch s {
	case StatusXWon, StatusOWon, StatusDraw:
		return true
	default:
		return false
	}
}

func ParseStatus(v string) (Status, bool) {
	switch Status(v) {
	case StatusWaiting, StatusInProgress, StatusXWon, StatusOWon, StatusDraw:
		return Status(v), true
	default:
		return "", false
	}
}

type Player struct {
	Name   string
	Symbol engine.Symbol
}

// Snapshot is a point-in-time copy of a session. Snapshots share no memory
// with the session that produced them and must be treated as read-only.
type Snapshot struct {
	GameID    string
	Version   int
	Status    Status
	NextTurn  engine.Symbol
	Players   []Player
	Board     engine.Board
	UpdatedAt time.Time
}

// SymbolOf returns the symbol assigned to name, or SymbolNone.
func (s Snapshot) SymbolOf(name string) engine.Symbol {
	for _, p := range s.Players {
		if p.Name == name {
			return p.Symbol
		}
	}
	return engine.SymbolNone
}

func (s Snapshot) clone() Snapshot {
	s.Players = append([]Player(nil), s.Players...)
	return s
}
