package engine

import "fmt"

// Index converts a (row, col) pair into a board index.
func Index(row, col int) (int, bool) {
	if row < 0 || row >= Size || col < 0 || col >= Size {
		return 0, false
	}
	return row*Size + col, true
}

func (b Board) Full() bool {
	return b.Count() == Cells
}

// Count returns the number of occupied cells.
func (b Board) Count() int {
	n := 0
	for _, c := range b {
		if c != SymbolNone {
			n++
		}
	}
	return n
}

// Strings renders the board in wire form: 9 entries of "", "X" or "O".
func (b Board) Strings() []string {
	out := make([]string, Cells)
	for i, c := range b {
		out[i] = string(c)
	}
	return out
}

func ParseSymbol(v string) (Symbol, error) {
	switch Symbol(v) {
	case SymbolX, SymbolO, SymbolNone:
		return Symbol(v), nil
	default:
		return SymbolNone, fmt.Errorf("%w: %q", ErrInvalidSymbol, v)
	}
}

// ParseBoard is the inverse of Strings.
func ParseBoard(cells []string) (Board, error) {
	var b Board
	if len(cells) != Cells {
		return b, fmt.Errorf("board: want %d cells, got %d", Cells, len(cells))
	}
	for i, v := range cells {
		s, err := ParseSymbol(v)
		if err != nil {
			return Board{}, fmt.Errorf("board cell %d: %w", i, err)
		}
		b[i] = s
	}
	return b, nil
}
