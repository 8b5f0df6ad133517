package draughts

import (
	"errors"
	"fmt"
)

// NoCaptureLimit is the number of consecutive capture-free moves that ends a game in a tie.
const NoCaptureLimit = 50

var (
	ErrOutOfBounds = errors.New("coordinate out of bounds")
	ErrIllegalMove = errors.New("illegal move")
)

// Move is the canonical move shape.
type Move struct {
	From     Position   `json:"from"`
	To       Position   `json:"to"`
	Captured []Position `json:"captured"`
}

// Check validates the shape of m without looking at a board.
func (m Move) Check() error {
	if !m.From.InBounds() {
		return fmt.Errorf("%w: from %s", ErrOutOfBounds, m.From)
	}
	if !m.To.InBounds() {
		return fmt.Errorf("%w: to %s", ErrOutOfBounds, m.To)
	}
	for _, c := range m.Captured {
		if !c.InBounds() {
			return fmt.Errorf("%w: captured %s", ErrOutOfBounds, c)
		}
	}
	return nil
}

type OutcomeKind int

const (
	None OutcomeKind = iota
	Win
	Tie
)

type Outcome struct {
	Kind   OutcomeKind
	Winner Color
}

func (o Outcome) Terminal() bool {
	return o.Kind != None
}

func WinFor(c Color) Outcome {
	return Outcome{Kind: Win, Winner: c}
}

// Rules decides legality, applies moves and detects the end of a game.
type Rules interface {
	Validate(b Board, m Move, player Color) error
	Apply(b Board, m Move) Board
	CheckEnd(b Board, recent []Move) Outcome
}

// BasicRules only checks ownership, an empty destination and diagonal
// direction. Captures are taken from the move as declared.
type BasicRules struct{}

var _ Rules = BasicRules{}

func (BasicRules) Validate(b Board, m Move, player Color) error {
	if err := m.Check(); err != nil {
		return err
	}

	piece := b.At(m.From)
	if piece.Empty() {
		return fmt.Errorf("%w: no piece at %s", ErrIllegalMove, m.From)
	}
	if piece.Color != player {
		return fmt.Errorf("%w: piece at %s is not %s", ErrIllegalMove, m.From, player)
	}
	if !b.At(m.To).Empty() {
		return fmt.Errorf("%w: destination %s is occupied", ErrIllegalMove, m.To)
	}

	dr, dc := abs(m.To.Row-m.From.Row), abs(m.To.Col-m.From.Col)
	if dr == 0 || dr != dc {
		return fmt.Errorf("%w: %s to %s is not diagonal", ErrIllegalMove, m.From, m.To)
	}
	return nil
}

func (BasicRules) Apply(b Board, m Move) Board {
	piece := b.At(m.From)
	b[m.From.Row][m.From.Col] = Piece{}
	for _, c := range m.Captured {
		if c.InBounds() {
			b[c.Row][c.Col] = Piece{}
		}
	}
	if promotes(piece, m.To) {
		piece.Rank = King
	}
	b[m.To.Row][m.To.Col] = piece
	return b
}

func (BasicRules) CheckEnd(b Board, recent []Move) Outcome {
	red, black := b.Count(Red), b.Count(Black)
	switch {
	case red == 0:
		return WinFor(Black)
	case black == 0:
		return WinFor(Red)
	}

	if len(recent) < NoCaptureLimit {
		return Outcome{}
	}
	for _, m := range recent[len(recent)-NoCaptureLimit:] {
		if len(m.Captured) > 0 {
			return Outcome{}
		}
	}
	return Outcome{Kind: Tie}
}

// Promotes reports whether playing m on b crowns the moving piece.
func Promotes(b Board, m Move) bool {
	return promotes(b.At(m.From), m.To)
}

func promotes(p Piece, to Position) bool {
	if p.Empty() || p.Rank == King {
		return false
	}
	return (p.Color == Red && to.Row == 0) || (p.Color == Black && to.Row == Size-1)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
