// Package checkers implements 10x10 competitive checkers: flying kings,
// mandatory captures and multi-jump chains.
package checkers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/park285/cheese-arena/internal/game"
)

// Size is the board edge length.
const Size = 10

// PiecesPerSide is the starting count for each color.
const PiecesPerSide = 20

// PieceType distinguishes men from kings. The zero value marks an empty square.
type PieceType uint8

const (
	Empty PieceType = iota
	Man
	King
)

func (t PieceType) String() string {
	switch t {
	case Man:
		return "man"
	case King:
		return "king"
	default:
		return ""
	}
}

func (t PieceType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *PieceType) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "man":
		*t = Man
	case "king":
		*t = King
	default:
		return fmt.Errorf("unknown checkers piece %q", b)
	}
	return nil
}

// Piece is a checker on the board.
type Piece struct {
	Type  PieceType  `json:"type"`
	Color game.Color `json:"color"`
}

func (p Piece) IsEmpty() bool { return p.Type == Empty }

// Board is a row-major 10x10 grid. Row 0 is BLACK's home edge.
type Board struct {
	cells [Size * Size]Piece
}

func index(p game.Position) int { return p.Row*Size + p.Col }

// IsDark reports whether p is a playable square.
func IsDark(p game.Position) bool { return (p.Row+p.Col)%2 == 1 }

// NewBoard returns the opening position: BLACK on rows 0-3, RED on rows 6-9.
func NewBoard() *Board {
	b := &Board{}
	for row := 0; row < Size; row++ {
		var c game.Color
		switch {
		case row <= 3:
			c = game.Black
		case row >= 6:
			c = game.Red
		default:
			continue
		}
		for col := 0; col < Size; col++ {
			p := game.Pos(row, col)
			if IsDark(p) {
				b.place(p, Piece{Type: Man, Color: c})
			}
		}
	}
	return b
}

// place is used while setting up positions; occupying a square twice is a bug.
func (b *Board) place(p game.Position, pc Piece) {
	if !p.InBounds(Size) {
		panic(fmt.Sprintf("checkers: place out of bounds %v", p))
	}
	if !b.cells[index(p)].IsEmpty() {
		panic(fmt.Sprintf("checkers: square %v already occupied", p))
	}
	b.cells[index(p)] = pc
}

// Piece returns the piece at p, or the empty piece.
func (b *Board) Piece(p game.Position) (Piece, error) {
	if !p.InBounds(Size) {
		return Piece{}, fmt.Errorf("%v: %w", p, game.ErrInvalidPosition)
	}
	return b.cells[index(p)], nil
}

// SetPiece overwrites the square at p. Use the empty Piece to clear it.
func (b *Board) SetPiece(p game.Position, pc Piece) error {
	if !p.InBounds(Size) {
		return fmt.Errorf("%v: %w", p, game.ErrInvalidPosition)
	}
	b.cells[index(p)] = pc
	return nil
}

func (b *Board) at(p game.Position) Piece { return b.cells[index(p)] }

func (b *Board) empty(p game.Position) bool { return p.InBounds(Size) && b.cells[index(p)].IsEmpty() }

// Count returns the number of men and kings of c.
func (b *Board) Count(c game.Color) (men, kings int) {
	for _, pc := range b.cells {
		if pc.Color != c {
			continue
		}
		switch pc.Type {
		case Man:
			men++
		case King:
			kings++
		}
	}
	return men, kings
}

// Clone returns an independent copy.
func (b *Board) Clone() *Board {
	c := *b
	return &c
}

// Rows serializes the board as a row-major nested list; empty squares are nil.
func (b *Board) Rows() [][]*Piece {
	out := make([][]*Piece, Size)
	for r := 0; r < Size; r++ {
		out[r] = make([]*Piece, Size)
		for c := 0; c < Size; c++ {
			pc := b.cells[r*Size+c]
			if !pc.IsEmpty() {
				cp := pc
				out[r][c] = &cp
			}
		}
	}
	return out
}

// BoardFromRows validates and rebuilds a board from Rows output.
func BoardFromRows(rows [][]*Piece) (*Board, error) {
	if len(rows) != Size {
		return nil, fmt.Errorf("checkers board: %d rows, want %d", len(rows), Size)
	}
	b := &Board{}
	var count [4]int
	for r, row := range rows {
		if len(row) != Size {
			return nil, fmt.Errorf("checkers board: row %d has %d cells, want %d", r, len(row), Size)
		}
		for c, pc := range row {
			if pc == nil {
				continue
			}
			p := game.Pos(r, c)
			if pc.Type == Empty {
				return nil, fmt.Errorf("checkers board: piece at %v has no type", p)
			}
			if pc.Color != game.Red && pc.Color != game.Black {
				return nil, fmt.Errorf("checkers board: piece at %v has color %q", p, pc.Color)
			}
			if !IsDark(p) {
				return nil, fmt.Errorf("checkers board: piece on light square %v", p)
			}
			count[pc.Color]++
			if count[pc.Color] > PiecesPerSide {
				return nil, fmt.Errorf("checkers board: more than %d %s pieces", PiecesPerSide, pc.Color)
			}
			b.cells[index(p)] = *pc
		}
	}
	return b, nil
}

func (b *Board) MarshalJSON() ([]byte, error) { return json.Marshal(b.Rows()) }

func (b *Board) UnmarshalJSON(data []byte) error {
	var rows [][]*Piece
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	nb, err := BoardFromRows(rows)
	if err != nil {
		return err
	}
	*b = *nb
	return nil
}

// Square returns the 1-50 number of a dark square, or 0 for light squares.
func Square(p game.Position) int {
	if !p.InBounds(Size) || !IsDark(p) {
		return 0
	}
	return p.Row*(Size/2) + p.Col/2 + 1
}

// SquarePos is the inverse of Square.
func SquarePos(n int) (game.Position, error) {
	if n < 1 || n > Size*Size/2 {
		return game.Position{}, fmt.Errorf("square %d: %w", n, game.ErrInvalidPosition)
	}
	n--
	row := n / (Size / 2)
	col := (n % (Size / 2)) * 2
	if row%2 == 0 {
		col++
	}
	return game.Pos(row, col), nil
}

// Glyph returns the Unicode draughts symbol for pc.
func Glyph(pc Piece) rune {
	switch {
	case pc.Color == game.Red && pc.Type == Man:
		return '⛀'
	case pc.Color == game.Red && pc.Type == King:
		return '⛁'
	case pc.Color == game.Black && pc.Type == Man:
		return '⛂'
	case pc.Color == game.Black && pc.Type == King:
		return '⛃'
	default:
		return 0
	}
}
