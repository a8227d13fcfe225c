package service

import (
	"github.com/DoyleJ11/tictactoe-server/internal/session"
	"github.com/DoyleJ11/tictactoe-server/pkg/types"
)

// ToWire converts a session snapshot into its wire form.
func ToWire(snap session.Snapshot) *types.GameState {
	players := make([]types.Player, 0, len(snap.Players))
	for _, p := range snap.Players {
		players = append(players, types.Player{Name: p.Name, Symbol: string(p.Symbol)})
	}
	return &types.GameState{
		GameID:   snap.GameID,
		Status:   string(snap.Status),
		NextTurn: string(snap.NextTurn),
		Players:  players,
		Board:    snap.Board.Strings(),
		Version:  int64(snap.Version),
	}
}
