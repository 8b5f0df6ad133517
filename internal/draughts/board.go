package draughts

import (
	"encoding/json"
	"fmt"
)

const Size = 8

type Color string

const (
	Red   Color = "red"
	Black Color = "black"
)

// Opponent returns the complementary color.
func (c Color) Opponent() Color {
	if c == Red {
		return Black
	}
	return Red
}

func (c Color) Valid() bool {
	return c == Red || c == Black
}

type Rank string

const (
	Normal Rank = "normal"
	King   Rank = "king"
)

// Piece is the content of one square. The zero value is an empty square.
type Piece struct {
	Color Color `json:"color"`
	Rank  Rank  `json:"type"`
}

func (p Piece) Empty() bool {
	return p.Color == ""
}

type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (p Position) InBounds() bool {
	return p.Row >= 0 && p.Row < Size && p.Col >= 0 && p.Col < Size
}

// Playable reports whether p is a dark square.
func (p Position) Playable() bool {
	return (p.Row+p.Col)%2 == 1
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}

// Board is an 8x8 grid held by value, so assignment copies it.
type Board [Size][Size]Piece

// NewBoard returns the starting position: black on rows 0-2, red on rows 5-7.
func NewBoard() Board {
	var b Board
	for row := 0; row < Size; row++ {
		var color Color
		switch {
		case row < 3:
			color = Black
		case row > 4:
			color = Red
		default:
			continue
		}
		for col := 0; col < Size; col++ {
			if (Position{row, col}).Playable() {
				b[row][col] = Piece{Color: color, Rank: Normal}
			}
		}
	}
	return b
}

func (b Board) At(p Position) Piece {
	if !p.InBounds() {
		return Piece{}
	}
	return b[p.Row][p.Col]
}

// Count returns the number of pieces of the given color.
func (b Board) Count(c Color) int {
	n := 0
	for row := range b {
		for col := range b[row] {
			if b[row][col].Color == c {
				n++
			}
		}
	}
	return n
}

func (b Board) Pieces() int {
	return b.Count(Red) + b.Count(Black)
}

// MarshalJSON encodes empty squares as null.
func (b Board) MarshalJSON() ([]byte, error) {
	var grid [Size][Size]*Piece
	for row := range b {
		for col := range b[row] {
			if !b[row][col].Empty() {
				p := b[row][col]
				grid[row][col] = &p
			}
		}
	}
	return json.Marshal(grid)
}

func (b *Board) UnmarshalJSON(data []byte) error {
	var grid [][]*Piece
	if err := json.Unmarshal(data, &grid); err != nil {
		return err
	}
	if len(grid) != Size {
		return fmt.Errorf("board must have %d rows, got %d", Size, len(grid))
	}

	var out Board
	for row := range grid {
		if len(grid[row]) != Size {
			return fmt.Errorf("board row %d must have %d cells, got %d", row, Size, len(grid[row]))
		}
		for col, p := range grid[row] {
			if p == nil {
				continue
			}
			if !p.Color.Valid() || (p.Rank != Normal && p.Rank != King) {
				return fmt.Errorf("invalid piece at (%d,%d)", row, col)
			}
			out[row][col] = *p
		}
	}
	*b = out
	return nil
}
