package checkers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/park285/cheese-arena/internal/game"
)

// Direction order is fixed so generated move lists are deterministic.
var diagonals = [4][2]int{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}

func forward(c game.Color) int {
	if c == game.Red {
		return -1
	}
	return 1
}

// Opponent returns the other checkers color.
func Opponent(c game.Color) game.Color {
	if c == game.Red {
		return game.Black
	}
	return game.Red
}

func promotionRow(c game.Color) int {
	if c == game.Red {
		return 0
	}
	return Size - 1
}

// LegalMoves returns every legal move for c. When any capture exists only
// capture moves are returned.
func (b *Board) LegalMoves(c game.Color, rules Rules) []game.Move {
	if caps := b.CaptureMoves(c, rules); len(caps) > 0 {
		return caps
	}
	return b.QuietMoves(c)
}

// HasLegalMoves reports whether c can move at all.
func (b *Board) HasLegalMoves(c game.Color) bool {
	return len(b.LegalMoves(c, DefaultRules())) > 0
}

// QuietMoves lists non-capturing moves for c in row-major source order.
func (b *Board) QuietMoves(c game.Color) []game.Move {
	var out []game.Move
	for i, pc := range b.cells {
		if pc.IsEmpty() || pc.Color != c {
			continue
		}
		from := game.Pos(i/Size, i%Size)
		for _, d := range diagonals {
			if pc.Type == Man && d[0] != forward(c) {
				continue
			}
			for to := from.Add(d[0], d[1]); b.empty(to); to = to.Add(d[0], d[1]) {
				out = append(out, game.Move{From: from, To: to, Notation: notation(from, []game.Position{to}, false)})
				if pc.Type == Man {
					break
				}
			}
		}
	}
	return out
}

// CaptureMoves lists every maximal capture chain for c.
func (b *Board) CaptureMoves(c game.Color, rules Rules) []game.Move {
	var out []game.Move
	for i, pc := range b.cells {
		if pc.IsEmpty() || pc.Color != c {
			continue
		}
		out = append(out, b.chainsFrom(game.Pos(i/Size, i%Size), rules)...)
	}
	return out
}

type jump struct {
	victim  game.Position
	landing []game.Position
}

// jumps returns the single captures available to pc standing at at on scratch.
// Squares in taken hold pieces already captured in this chain: they block but
// cannot be captured again.
func jumps(scratch *Board, pc Piece, at game.Position, taken map[game.Position]bool) []jump {
	var out []jump
	for _, d := range diagonals {
		victim := at.Add(d[0], d[1])
		if pc.Type == King {
			for scratch.empty(victim) {
				victim = victim.Add(d[0], d[1])
			}
		}
		if !victim.InBounds(Size) || taken[victim] {
			continue
		}
		v := scratch.at(victim)
		if v.IsEmpty() || v.Color == pc.Color {
			continue
		}
		var landing []game.Position
		for to := victim.Add(d[0], d[1]); scratch.empty(to); to = to.Add(d[0], d[1]) {
			landing = append(landing, to)
			if pc.Type == Man {
				break
			}
		}
		if len(landing) > 0 {
			out = append(out, jump{victim: victim, landing: landing})
		}
	}
	return out
}

// chainsFrom runs a depth-first search over a scratch board and emits one move
// per maximal chain starting at from.
func (b *Board) chainsFrom(from game.Position, rules Rules) []game.Move {
	pc := b.at(from)
	scratch := b.Clone()
	scratch.cells[index(from)] = Piece{}

	var (
		out      []game.Move
		captured []game.Position
		stops    []game.Position
		points   int
		taken    = map[game.Position]bool{}
		seen     = map[string]bool{}
	)
	var walk func(at game.Position)
	walk = func(at game.Position) {
		options := jumps(scratch, pc, at, taken)
		if len(options) == 0 {
			if len(captured) > 0 {
				// a flying king reaches the same end through different stops; keep the first
				key := fmt.Sprint(at, captured)
				if seen[key] {
					return
				}
				seen[key] = true
				out = append(out, game.Move{
					From:     from,
					To:       at,
					Captured: append([]game.Position(nil), captured...),
					Points:   points,
					Notation: notation(from, stops, true),
				})
			}
			return
		}
		for _, j := range options {
			value := rules.captureValue(scratch.at(j.victim))
			for _, to := range j.landing {
				taken[j.victim] = true
				captured = append(captured, j.victim)
				stops = append(stops, to)
				points += value

				walk(to)

				points -= value
				stops = stops[:len(stops)-1]
				captured = captured[:len(captured)-1]
				delete(taken, j.victim)
			}
		}
	}
	walk(from)
	return out
}

func notation(from game.Position, stops []game.Position, capture bool) string {
	sep := "-"
	if capture {
		sep = "x"
	}
	parts := make([]string, 0, len(stops)+1)
	parts = append(parts, strconv.Itoa(Square(from)))
	for _, s := range stops {
		parts = append(parts, strconv.Itoa(Square(s)))
	}
	return strings.Join(parts, sep)
}

// apply performs m for the piece at m.From and reports whether it promoted.
// m must come from LegalMoves on this board.
func (b *Board) apply(m game.Move) (promoted bool) {
	pc := b.at(m.From)
	for _, sq := range m.Captured {
		b.cells[index(sq)] = Piece{}
	}
	b.cells[index(m.From)] = Piece{}
	if pc.Type == Man && m.To.Row == promotionRow(pc.Color) {
		pc.Type = King
		promoted = true
	}
	b.cells[index(m.To)] = pc
	return promoted
}
