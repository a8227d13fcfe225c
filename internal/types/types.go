package types

import (
	wire "github.com/DoyleJ11/tictactoe-server/pkg/types"
)

// ClientMessage is what a WebSocket client may send once its stream is open.
type ClientMessage struct {
	Type string `json:"type"` // "MakeMove"
	Row  int32  `json:"row"`
	Col  int32  `json:"col"`
}

type ServerMessage struct {
	Type   string             `json:"type"` // "StateSnapshot" | "MoveResult" | "Error"
	State  *wire.GameState    `json:"state,omitempty"`
	Result *wire.MoveResponse `json:"result,omitempty"`
	Code   string             `json:"code,omitempty"`
	Error  string             `json:"error,omitempty"`
}

const (
	MsgMakeMove      = "MakeMove"
	MsgStateSnapshot = "StateSnapshot"
	MsgMoveResult    = "MoveResult"
	MsgError         = "Error"
)
