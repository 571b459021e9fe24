// Package game holds the vocabulary shared by every board-game variant:
// colors, board coordinates, moves, outcomes, clocks and scores.
package game

import (
	"fmt"
	"strings"
)

// Variant names a rule set.
type Variant string

const (
	VariantCheckers Variant = "checkers"
	VariantChess    Variant = "chess"
)

// ParseVariant accepts a few common spellings.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "checkers", "draughts", "dames":
		return VariantCheckers, nil
	case "chess", "echecs":
		return VariantChess, nil
	default:
		return "", fmt.Errorf("unknown variant %q", s)
	}
}

// Color identifies a side. Checkers uses Red/Black, chess uses White/Black.
type Color uint8

const (
	NoColor Color = iota
	Red
	Black
	White
)

func (c Color) String() string {
	switch c {
	case Red:
		return "red"
	case Black:
		return "black"
	case White:
		return "white"
	default:
		return ""
	}
}

// ParseColor is the inverse of String.
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "red", "r":
		return Red, nil
	case "black", "b":
		return Black, nil
	case "white", "w":
		return White, nil
	case "":
		return NoColor, nil
	default:
		return NoColor, fmt.Errorf("unknown color %q", s)
	}
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Color) UnmarshalText(b []byte) error {
	v, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Position is a (row, col) board coordinate. Row 0 is the top edge as rendered.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Pos is shorthand for Position{Row: row, Col: col}.
func Pos(row, col int) Position { return Position{Row: row, Col: col} }

func (p Position) String() string { return fmt.Sprintf("(%d,%d)", p.Row, p.Col) }

// Add offsets p by a direction.
func (p Position) Add(dr, dc int) Position { return Position{Row: p.Row + dr, Col: p.Col + dc} }

// InBounds reports whether p lies on a size×size board.
func (p Position) InBounds(size int) bool {
	return p.Row >= 0 && p.Row < size && p.Col >= 0 && p.Col < size
}

// Move is one legal move. Captured lists jumped squares in the order they were taken.
type Move struct {
	From      Position   `json:"from"`
	To        Position   `json:"to"`
	Captured  []Position `json:"captured,omitempty"`
	Points    int        `json:"points_earned"`
	Promotion string     `json:"promotion,omitempty"`
	Notation  string     `json:"notation,omitempty"`
}

// IsCapture reports whether the move removes at least one piece.
func (m Move) IsCapture() bool { return len(m.Captured) > 0 }

// SamePath reports whether path matches the captured squares of m.
func (m Move) SamePath(path []Position) bool {
	if len(path) != len(m.Captured) {
		return false
	}
	for i := range path {
		if path[i] != m.Captured[i] {
			return false
		}
	}
	return true
}

// MoveRequest is a move as submitted by a player.
// Color is optional; when set, a mismatch with the side to move is NotYourTurn.
// Path optionally disambiguates between capture chains with the same endpoints.
type MoveRequest struct {
	Color     Color
	From      Position
	To        Position
	Promotion string
	Path      []Position
}

// Cell describes one rendered square for display adapters.
type Cell struct {
	Occupied bool
	Color    Color
	Glyph    rune
	Label    string
	Dark     bool
}
