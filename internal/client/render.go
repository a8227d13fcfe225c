package client

import (
	"fmt"
	"strings"

	"github.com/DoyleJ11/tictactoe-server/pkg/types"
)

// Render draws a snapshot as text for terminal clients.
func Render(state *types.GameState) string {
	if state == nil {
		return "(no state)\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Game: %s Status: %s Next: %s\n", state.GameID, state.Status, state.NextTurn)
	if len(state.Players) > 0 {
		names := make([]string, 0, len(state.Players))
		for _, p := range state.Players {
			names = append(names, fmt.Sprintf("%s (%s)", p.Name, p.Symbol))
		}
		fmt.Fprintf(&b, "Players: %s\n", strings.Join(names, ", "))
	}
	for row := 0; row < 3; row++ {
		cellsInRow := make([]string, 3)
		for col := 0; col < 3; col++ {
			i := row*3 + col
			v := ""
			if i < len(state.Board) {
				v = state.Board[i]
			}
			if v == "" {
				v = "."
			}
			cellsInRow[col] = v
		}
		fmt.Fprintf(&b, " %s\n", strings.Join(cellsInRow, " | "))
	}
	return b.String()
}
