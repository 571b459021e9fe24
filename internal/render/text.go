// Package render draws boards for display adapters: a Unicode text grid for
// chat-style clients and a PNG snapshot for image endpoints.
package render

import (
	"strings"

	"github.com/park285/cheese-arena/internal/game"
)

// Grid is a square board exposed cell by cell. Both rule engines implement it.
type Grid interface {
	Dim() int
	Cell(row, col int) game.Cell
}

const (
	lightGlyph = '·'
	darkGlyph  = '▪'
)

// Text renders g as lines of Unicode glyphs, row 0 first, with column letters
// underneath and row numbers on the left.
func Text(g Grid) string {
	n := g.Dim()
	var b strings.Builder
	for r := 0; r < n; r++ {
		b.WriteString(padLeft(rowLabel(n, r), 2))
		b.WriteByte(' ')
		for c := 0; c < n; c++ {
			cell := g.Cell(r, c)
			switch {
			case cell.Occupied:
				b.WriteRune(cell.Glyph)
			case cell.Dark:
				b.WriteRune(darkGlyph)
			default:
				b.WriteRune(lightGlyph)
			}
			if c < n-1 {
				b.WriteByte(' ')
			}
		}
		b.WriteByte('\n')
	}
	b.WriteString("   ")
	for c := 0; c < n; c++ {
		b.WriteByte(byte('a' + c))
		if c < n-1 {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// rowLabel numbers rows bottom-up the way both games print ranks.
func rowLabel(n, row int) string {
	v := n - row
	if v >= 10 {
		return string([]byte{byte('0' + v/10), byte('0' + v%10)})
	}
	return string([]byte{byte('0' + v)})
}

func padLeft(s string, w int) string {
	if len(s) >= w {
		return s
	}
	return strings.Repeat(" ", w-len(s)) + s
}
