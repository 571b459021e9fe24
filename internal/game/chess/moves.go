package chess

import (
	"sort"
	"strings"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/cheese-arena/internal/game"
)

// Opponent returns the other chess side.
func Opponent(c game.Color) game.Color {
	if c == game.White {
		return game.Black
	}
	return game.White
}

// turnedTo returns the position with c to move. The en passant target only
// belongs to the side that was to move, so it is cleared on a switch.
func (b *Board) turnedTo(c game.Color) *nchess.Position {
	if b.Turn() == c {
		return b.pos
	}
	fields := strings.Fields(b.pos.String())
	fields[1] = libColor(c).String()
	fields[3] = "-"
	pos, err := decodePosition(strings.Join(fields, " "))
	if err != nil {
		panic("chess: re-encode position: " + err.Error())
	}
	return pos
}

// legal returns the library's legal moves for c in row-major source order.
func (b *Board) legal(c game.Color) []nchess.Move {
	ms := b.turnedTo(c).ValidMoves()
	sort.SliceStable(ms, func(i, j int) bool {
		fi, fj := positionOf(ms[i].S1()), positionOf(ms[j].S1())
		if fi != fj {
			return index(fi) < index(fj)
		}
		return index(positionOf(ms[i].S2())) < index(positionOf(ms[j].S2()))
	})
	return ms
}

func index(p game.Position) int { return p.Row*Size + p.Col }

// capturedBy returns the square of the piece m removes, if any.
func (b *Board) capturedBy(m *nchess.Move) (game.Position, bool) {
	to := positionOf(m.S2())
	switch {
	case m.HasTag(nchess.EnPassant):
		return game.Pos(positionOf(m.S1()).Row, to.Col), true
	case m.HasTag(nchess.Capture):
		return to, true
	default:
		return game.Position{}, false
	}
}

func (b *Board) toGameMove(m *nchess.Move) game.Move {
	gm := game.Move{
		From:     positionOf(m.S1()),
		To:       positionOf(m.S2()),
		Notation: nchess.UCINotation{}.Encode(nil, m),
	}
	if sq, ok := b.capturedBy(m); ok {
		gm.Captured = []game.Position{sq}
		gm.Points = b.at(sq).Kind.Value()
	}
	if m.Promo() != nchess.NoPieceType {
		gm.Promotion = kindOf(m.Promo()).String()
	}
	return gm
}

// LegalMoves lists the legal moves of the side to move with UCI notation.
func (b *Board) LegalMoves() []game.Move {
	ms := b.legal(b.Turn())
	out := make([]game.Move, len(ms))
	for i := range ms {
		out[i] = b.toGameMove(&ms[i])
	}
	return out
}

// after returns the board once m is played.
func (b *Board) after(m *nchess.Move) *Board {
	return &Board{pos: b.pos.Update(m)}
}
