// Package client holds the client side of the TicTacToe protocol: a Tracker
// that derives what a player may do from pushed snapshots, and a Controller
// that runs every call on one worker goroutine.
package client

import (
	"errors"

	"github.com/DoyleJ11/tictactoe-server/pkg/types"
)

const cells = 9

var (
	ErrNotJoined   = errors.New("join a game first")
	ErrNotYourTurn = errors.New("not your turn or game not in progress")
	ErrCellTaken   = errors.New("cell is not free")
)

// Result is announced once when a game reaches a terminal status.
type Result struct {
	Status  string
	Message string
	Detail  string
}

// Tracker follows the latest snapshot for one named player. It is not safe
// for concurrent use; the interactive loop owns it.
type Tracker struct {
	name       string
	symbol     string
	latest     *types.GameState
	prevStatus string
}

func NewTracker(name string) *Tracker {
	return &Tracker{name: name}
}

func (t *Tracker) Name() string   { return t.name }
func (t *Tracker) Symbol() string { return t.symbol }

// SetSymbol records the symbol returned by CreateGame, before any push.
func (t *Tracker) SetSymbol(symbol string) { t.symbol = symbol }

func (t *Tracker) Latest() *types.GameState { return t.latest }

// Update adopts state and reports a Result the first time a terminal status
// is seen. Repeated pushes of the same terminal status return nil.
func (t *Tracker) Update(state *types.GameState) *Result {
	if state == nil {
		return nil
	}
	t.latest = state
	if sym := state.SymbolOf(t.name); sym != "" {
		t.symbol = sym
	}

	var res *Result
	if state.Status != t.prevStatus {
		res = t.result(state.Status)
	}
	t.prevStatus = state.Status
	return res
}

func (t *Tracker) result(status string) *Result {
	outcome := func(winner string) string {
		if t.symbol == winner {
			return "You won!"
		}
		return "You lost!"
	}
	switch status {
	case "X_WON":
		return &Result{Status: status, Message: "X Wins!", Detail: outcome("X")}
	case "O_WON":
		return &Result{Status: status, Message: "O Wins!", Detail: outcome("O")}
	case "DRAW":
		return &Result{Status: status, Message: "It's a Draw!", Detail: "The game ended in a tie."}
	}
	return nil
}

// MyTurn reports whether the game is in progress and waiting on this player.
func (t *Tracker) MyTurn() bool {
	return t.latest != nil &&
		t.symbol != "" &&
		t.latest.Status == "IN_PROGRESS" &&
		t.latest.NextTurn == t.symbol
}

// Enabled reports which cells the player may click: empty cells while the
// game is in progress and it is the player's turn.
func (t *Tracker) Enabled() [cells]bool {
	var out [cells]bool
	if !t.MyTurn() {
		return out
	}
	for i := range out {
		out[i] = i < len(t.latest.Board) && t.latest.Board[i] == ""
	}
	return out
}

// CanMove checks a cell locally before a move is sent. The server remains
// the authority; this only avoids pointless round trips.
func (t *Tracker) CanMove(cell int) error {
	switch {
	case t.latest == nil || t.symbol == "":
		return ErrNotJoined
	case !t.MyTurn():
		return ErrNotYourTurn
	case cell < 0 || cell >= cells || !t.Enabled()[cell]:
		return ErrCellTaken
	}
	return nil
}
