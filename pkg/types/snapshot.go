package types

// GameState:
//   gameId: string
//   status: "WAITING" | "IN_PROGRESS" | "X_WON" | "O_WON" | "DRAW"
//   nextTurn: "X" | "O"
//   players: { name, symbol }[]   // at most two, host first
//   board: string[9]              // "", "X" or "O", row-major
//   version: number               // increases by one per accepted mutation

type GameState struct {
	GameID   string   `json:"gameId"`
	Status   string   `json:"status"`
	NextTurn string   `json:"nextTurn"`
	Players  []Player `json:"players"`
	Board    []string `json:"board"`
	Version  int64    `json:"version"`
}

type Player struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// SymbolOf returns the symbol of the named player or "".
func (g *GameState) SymbolOf(name string) string {
	if g == nil {
		return ""
	}
	for _, p := range g.Players {
		if p.Name == name {
			return p.Symbol
		}
	}
	return ""
}
