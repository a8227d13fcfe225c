// Package types holds the wire messages of the TicTacToe service. The same
// structs travel over gRPC (json codec), HTTP and WebSocket.
package types

// Client -> Server
// CreateGame:
//   playerName: string
//
// GetState:
//   gameId: string
//
// JoinGame (server stream of GameState):
//   gameId: string
//   playerName: string
//
// MakeMove:
//   gameId: string
//   playerName: string
//   row: 0..2
//   col: 0..2

type CreateRequest struct {
	PlayerName string `json:"playerName"`
}

type CreateResponse struct {
	GameID     string `json:"gameId"`
	YourSymbol string `json:"yourSymbol"`
}

type StateRequest struct {
	GameID string `json:"gameId"`
}

type JoinRequest struct {
	GameID     string `json:"gameId"`
	PlayerName string `json:"playerName"`
}

type MoveRequest struct {
	GameID     string `json:"gameId"`
	PlayerName string `json:"playerName"`
	Row        int32  `json:"row"`
	Col        int32  `json:"col"`
}

// MoveResponse reports domain failures (wrong turn, occupied cell, ...) with
// OK=false; they never fail the call itself.
type MoveResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}
