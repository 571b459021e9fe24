package chess

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/park285/cheese-arena/internal/game"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

const kiwipete = "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1"

func sq(t *testing.T, name string) game.Position {
	t.Helper()
	p, err := ParseSquare(name)
	if err != nil {
		t.Fatalf("ParseSquare(%q): %v", name, err)
	}
	return p
}

func play(t *testing.T, g *Game, uci string) game.MoveResult {
	t.Helper()
	req := game.MoveRequest{From: sq(t, uci[0:2]), To: sq(t, uci[2:4])}
	if len(uci) == 5 {
		req.Promotion = uci[4:]
	}
	res, err := g.MakeMove(req, t0)
	if err != nil {
		t.Fatalf("MakeMove(%s): %v", uci, err)
	}
	return res
}

func mustGame(t *testing.T, fen string) *Game {
	t.Helper()
	g, err := NewFromFEN(fen, DefaultRules(), game.ClockConfig{}, t0)
	if err != nil {
		t.Fatalf("NewFromFEN: %v", err)
	}
	return g
}

func perft(b *Board, depth int) int {
	ms := b.legal(b.Turn())
	if depth == 1 {
		return len(ms)
	}
	n := 0
	for i := range ms {
		n += perft(b.after(&ms[i]), depth-1)
	}
	return n
}

func TestStartPosition(t *testing.T) {
	g := New(DefaultRules(), game.ClockConfig{}, t0)
	if g.Outcome().Over || g.Turn() != game.White {
		t.Fatalf("fresh game: turn=%s outcome=%+v", g.Turn(), g.Outcome())
	}
	for _, c := range g.Sides() {
		if !g.board.HasLegalMoves(c) {
			t.Fatalf("%s has no legal moves at start", c)
		}
	}
	if g.FEN() != StartFEN {
		t.Fatalf("FEN = %q", g.FEN())
	}
}

func TestPerft(t *testing.T) {
	cases := []struct {
		fen   string
		depth int
		want  int
	}{
		{StartFEN, 1, 20},
		{StartFEN, 2, 400},
		{StartFEN, 3, 8902},
		{kiwipete, 1, 48},
		{kiwipete, 2, 2039},
		{"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1", 3, 2812},
	}
	for _, tc := range cases {
		b, err := ParseFEN(tc.fen)
		if err != nil {
			t.Fatalf("ParseFEN: %v", err)
		}
		if got := perft(b, tc.depth); got != tc.want {
			t.Fatalf("perft(%q, %d) = %d, want %d", tc.fen, tc.depth, got, tc.want)
		}
	}
}

func TestIsInCheck(t *testing.T) {
	cases := []struct {
		fen          string
		white, black bool
	}{
		{StartFEN, false, false},
		// the rook on e4 is pinned against its own king and still gives check
		{"8/8/8/8/k3r2R/8/8/4K3 w - - 0 1", true, false},
		{"4k3/8/8/8/8/8/3n4/4K3 w - - 0 1", false, false},
		{"4k3/8/8/8/8/8/5n2/4K3 w - - 0 1", false, false},
		{"4k3/8/8/8/8/5n2/8/4K3 w - - 0 1", true, false},
		{"4k3/3P4/8/8/8/8/8/4K3 b - - 0 1", false, true},
	}
	for _, tc := range cases {
		b, err := ParseFEN(tc.fen)
		if err != nil {
			t.Fatalf("ParseFEN(%q): %v", tc.fen, err)
		}
		if got := b.IsInCheck(game.White); got != tc.white {
			t.Fatalf("%q: white in check = %v", tc.fen, got)
		}
		if got := b.IsInCheck(game.Black); got != tc.black {
			t.Fatalf("%q: black in check = %v", tc.fen, got)
		}
	}
}

func TestLegalMovesAreRowMajor(t *testing.T) {
	g := New(DefaultRules(), game.ClockConfig{}, t0)
	moves := g.LegalMoves()
	if len(moves) != 20 {
		t.Fatalf("%d moves at start", len(moves))
	}
	for i := 1; i < len(moves); i++ {
		a, b := moves[i-1], moves[i]
		if index(a.From) > index(b.From) || (a.From == b.From && index(a.To) > index(b.To)) {
			t.Fatalf("moves out of order: %s before %s", a.Notation, b.Notation)
		}
	}
	if moves[0].Notation != "a2a4" {
		t.Fatalf("first move = %s", moves[0].Notation)
	}
}

func TestSetPiece(t *testing.T) {
	b := NewBoard()
	if err := b.SetPiece(sq(t, "e4"), Piece{Kind: Queen, Color: game.Black}); err != nil {
		t.Fatalf("SetPiece: %v", err)
	}
	if err := b.SetPiece(sq(t, "d8"), Piece{}); err != nil {
		t.Fatalf("SetPiece: %v", err)
	}
	if got := b.FEN(); got != "rnb1kbnr/pppppppp/8/8/4q3/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1" {
		t.Fatalf("FEN = %q", got)
	}
	if err := b.SetPiece(game.Pos(8, 0), Piece{Kind: Pawn, Color: game.White}); !errors.Is(err, game.ErrInvalidPosition) {
		t.Fatalf("out of bounds: %v", err)
	}
	if _, err := b.Piece(game.Pos(-1, 3)); !errors.Is(err, game.ErrInvalidPosition) {
		t.Fatalf("out of bounds read: %v", err)
	}
}

func TestFENRoundTrip(t *testing.T) {
	for _, fen := range []string{StartFEN, kiwipete, "4k3/8/8/3pP3/8/8/8/4K3 w - d6 0 1"} {
		b, err := ParseFEN(fen)
		if err != nil {
			t.Fatalf("ParseFEN: %v", err)
		}
		if got := b.FEN(); got != fen {
			t.Fatalf("FEN() = %q, want %q", got, fen)
		}
	}
	if _, err := ParseFEN("8/8/8/8/8/8/8/8 w - - 0 1"); err == nil {
		t.Fatalf("kingless position accepted")
	}
}

func TestSANNotationAndScoring(t *testing.T) {
	g := New(DefaultRules(), game.ClockConfig{}, t0)
	if res := play(t, g, "e2e4"); res.Move.Notation != "e4" {
		t.Fatalf("notation = %q", res.Move.Notation)
	}
	play(t, g, "d7d5")
	res := play(t, g, "e4d5")
	if res.Move.Notation != "exd5" || res.PointsGained != 1 {
		t.Fatalf("capture: %+v", res)
	}
	play(t, g, "d8d5")
	if g.Score().Of(game.Black) != 1 || g.Score().Of(game.White) != 1 {
		t.Fatalf("score = %v", g.Score().Map(game.White, game.Black))
	}
	if got := g.Transcript(); got != "1. e4 d5 2. exd5 Qxd5 *" {
		t.Fatalf("transcript = %q", got)
	}
}

func TestCheckmate(t *testing.T) {
	g := New(DefaultRules(), game.ClockConfig{}, t0)
	for _, mv := range []string{"f2f3", "e7e5", "g2g4"} {
		play(t, g, mv)
	}
	res := play(t, g, "d8h4")
	o := res.Outcome
	if o.Status != game.StatusCheckmate || o.Winner != game.Black {
		t.Fatalf("outcome = %+v", o)
	}
	if res.Move.Notation != "Qh4#" {
		t.Fatalf("notation = %q", res.Move.Notation)
	}
	if !g.board.IsCheckmate(game.White) || g.board.IsStalemate(game.White) {
		t.Fatalf("detector disagrees")
	}
	if _, err := g.MakeMove(game.MoveRequest{From: sq(t, "a2"), To: sq(t, "a3")}, t0); !errors.Is(err, game.ErrGameAlreadyOver) {
		t.Fatalf("move after mate: %v", err)
	}
}

func TestStalemate(t *testing.T) {
	g := mustGame(t, "7k/8/4Q1K1/8/8/8/8/8 w - - 0 1")
	res := play(t, g, "e6f7")
	if res.Outcome.Status != game.StatusStalemate || !res.Outcome.IsDraw() {
		t.Fatalf("outcome = %+v", res.Outcome)
	}
}

func TestEnPassant(t *testing.T) {
	g := mustGame(t, "4k3/8/8/3pP3/8/8/8/4K3 w - d6 0 1")
	res := play(t, g, "e5d6")
	if len(res.Move.Captured) != 1 || res.Move.Captured[0] != sq(t, "d5") || res.PointsGained != 1 {
		t.Fatalf("en passant: %+v", res.Move)
	}
	if pc, _ := g.board.Piece(sq(t, "d5")); !pc.IsEmpty() {
		t.Fatalf("captured pawn still on d5")
	}
}

func TestCastling(t *testing.T) {
	g := mustGame(t, "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")
	res := play(t, g, "e1g1")
	if res.Move.Notation != "O-O" {
		t.Fatalf("notation = %q", res.Move.Notation)
	}
	if pc, _ := g.board.Piece(sq(t, "f1")); pc != (Piece{Kind: Rook, Color: game.White}) {
		t.Fatalf("rook not on f1: %+v", pc)
	}
	if got := g.board.Castling(); got != "kq" {
		t.Fatalf("castling rights = %s", got)
	}

	g = mustGame(t, "4k3/8/8/8/8/8/5r2/R3K2R w KQ - 0 1")
	moves, _ := g.PossibleMoves(sq(t, "e1"))
	for _, m := range moves {
		if m.To == sq(t, "g1") {
			t.Fatalf("castled through an attacked square")
		}
	}
	if _, err := g.MakeMove(game.MoveRequest{From: sq(t, "e1"), To: sq(t, "c1")}, t0); err != nil {
		t.Fatalf("queenside castle: %v", err)
	}
}

func TestPromotionChoices(t *testing.T) {
	g := mustGame(t, "8/4P3/8/8/8/8/k7/4K3 w - - 0 1")
	moves, err := g.PossibleMoves(sq(t, "e7"))
	if err != nil || len(moves) != 4 {
		t.Fatalf("promotion moves = %d (%v)", len(moves), err)
	}
	res := play(t, g, "e7e8r")
	if res.Move.Promotion != "rook" || res.Move.Notation != "e8=R" {
		t.Fatalf("promotion: %+v", res.Move)
	}
	if pc, _ := g.board.Piece(sq(t, "e8")); pc.Kind != Rook {
		t.Fatalf("e8 = %+v", pc)
	}
}

func TestDrawRules(t *testing.T) {
	b, _ := ParseFEN("4k3/8/8/8/8/8/8/4K3 w - - 0 1")
	if o := CheckGameOver(b); o.Status != game.StatusInsufficientMaterial {
		t.Fatalf("K v K: %+v", o)
	}
	g := mustGame(t, "4k3/8/8/8/8/8/3p4/4K3 w - - 0 1")
	if res := play(t, g, "e1d2"); res.Outcome.Status != game.StatusInsufficientMaterial {
		t.Fatalf("after Kxd2: %+v", res.Outcome)
	}
	g = mustGame(t, "4k3/8/8/8/8/8/8/R3K3 w - - 99 80")
	if res := play(t, g, "a1a2"); res.Outcome.Status != game.StatusFiftyMoveRule {
		t.Fatalf("fifty-move: %+v", res.Outcome)
	}
}

func TestIllegalMoveLeavesStateUnchanged(t *testing.T) {
	g := New(DefaultRules(), game.ClockConfig{}, t0)
	before, _ := json.Marshal(g)
	if _, err := g.MakeMove(game.MoveRequest{From: sq(t, "e2"), To: sq(t, "e5")}, t0.Add(time.Second)); !errors.Is(err, game.ErrIllegalMove) {
		t.Fatalf("err = %v", err)
	}
	if _, err := g.MakeMove(game.MoveRequest{Color: game.Black, From: sq(t, "e7"), To: sq(t, "e5")}, t0); !errors.Is(err, game.ErrNotYourTurn) {
		t.Fatalf("err = %v", err)
	}
	after, _ := json.Marshal(g)
	if !bytes.Equal(before, after) {
		t.Fatalf("state changed")
	}
}

func TestPinnedPieceCannotMove(t *testing.T) {
	g := mustGame(t, "4k3/4r3/8/8/8/8/4B3/4K3 w - - 0 1")
	moves, _ := g.PossibleMoves(sq(t, "e2"))
	if len(moves) != 0 {
		t.Fatalf("pinned bishop has moves: %+v", moves)
	}
}

func TestTimeForfeit(t *testing.T) {
	g := New(DefaultRules(), game.ClockConfig{GlobalTimeLimit: 30 * time.Second}, t0)
	if _, err := g.MakeMove(game.MoveRequest{From: sq(t, "e2"), To: sq(t, "e4")}, t0.Add(10*time.Second)); err != nil {
		t.Fatalf("MakeMove: %v", err)
	}
	if r := g.Timer().Remaining(game.White, t0.Add(time.Hour)); r != 20*time.Second {
		t.Fatalf("white remaining = %v", r)
	}
	o, fired := g.CheckTimeout(t0.Add(41 * time.Second))
	if !fired || o.Status != game.StatusTimeForfeit || o.Winner != game.White {
		t.Fatalf("fired=%v outcome=%+v", fired, o)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	g := New(DefaultRules(), game.ClockConfig{MoveTimeLimit: time.Minute}, t0)
	for _, mv := range []string{"e2e4", "c7c5", "g1f3", "d7d6"} {
		play(t, g, mv)
	}
	first, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	back, err := Restore(first)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	second, _ := json.Marshal(back)
	if !bytes.Equal(first, second) {
		t.Fatalf("round trip mismatch:\n%s\n%s", first, second)
	}
}

func TestScoreLimit(t *testing.T) {
	g, err := NewFromFEN("4k3/8/8/3q4/8/8/8/3RK3 w - - 0 1", Rules{ScoreLimit: 9}, game.ClockConfig{}, t0)
	if err != nil {
		t.Fatalf("NewFromFEN: %v", err)
	}
	res := play(t, g, "d1d5")
	if res.Outcome.Status != game.StatusScoreLimit || res.Outcome.Winner != game.White {
		t.Fatalf("outcome = %+v", res.Outcome)
	}
}
