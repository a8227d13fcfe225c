package engine

import (
	"errors"
)

var ErrInvalidMove = errors.New("invalid move")
var ErrInvalidSymbol = errors.New("invalid symbol")

type Symbol string

const (
	SymbolNone Symbol = ""
	SymbolX    Symbol = "X"
	SymbolO    Symbol = "O"
)

// Other returns the opposing symbol. SymbolNone has no opponent.
func (s Symbol) Other() Symbol {
	switch s {
	case SymbolX:
		return SymbolO
	case SymbolO:
		return SymbolX
	default:
		return SymbolNone
	}
}

func (s Symbol) Valid() bool { return s == SymbolX || s == SymbolO }

type Outcome string

const (
	OutcomeOngoing Outcome = "ongoing"
	OutcomeXWon    Outcome = "x_won"
	OutcomeOWon    Outcome = "o_won"
	OutcomeDraw    Outcome = "draw"
)

func (o Outcome) Terminal() bool { return o != OutcomeOngoing }

// Board is indexed row-major: index = row*3 + col.
type Board [Cells]Symbol

const (
	Size  = 3
	Cells = Size * Size
)

/*
	Apply          -> (new board, nil)            legal move
	               -> (same board, ErrInvalidMove) out of range or occupied
	Evaluate(last) -> win for last mover first, then any win, then draw, else ongoing

	Whose turn it is lives in the session, the board only knows about cells.
*/

func (b Board) Apply(row, col int, s Symbol) (Board, error) {
	if !s.Valid() {
		return b, ErrInvalidSymbol
	}
	idx, ok := Index(row, col)
	if !ok {
		return b, ErrInvalidMove
	}
	if b[idx] != SymbolNone {
		return b, ErrInvalidMove
	}

	next := b
	next[idx] = s
	return next, nil
}

// Evaluate reports the outcome of the board after last moved. The mover's
// lines are checked before anything else so a filling move that completes a
// line is a win and never a draw.
func (b Board) Evaluate(last Symbol) Outcome {
	if last.Valid() && b.hasLine(last) {
		return outcomeFor(last)
	}
	for _, s := range []Symbol{SymbolX, SymbolO} {
		if s != last && b.hasLine(s) {
			return outcomeFor(s)
		}
	}
	if b.Full() {
		return OutcomeDraw
	}
	return OutcomeOngoing
}

func (b Board) hasLine(s Symbol) bool {
	for _, line := range WinLines {
		if b[line[0]] == s && b[line[1]] == s && b[line[2]] == s {
			return true
		}
	}
	return false
}

func outcomeFor(s Symbol) Outcome {
	if s == SymbolX {
		return OutcomeXWon
	}
	return OutcomeOWon
}
