package checkers

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/park285/cheese-arena/internal/game"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

var (
	redMan    = Piece{Type: Man, Color: game.Red}
	redKing   = Piece{Type: King, Color: game.Red}
	blackMan  = Piece{Type: Man, Color: game.Black}
	blackKing = Piece{Type: King, Color: game.Black}
)

func setup(t *testing.T, turn game.Color, pieces map[game.Position]Piece) *Game {
	t.Helper()
	b := &Board{}
	for p, pc := range pieces {
		if !IsDark(p) {
			t.Fatalf("test setup: %v is a light square", p)
		}
		b.place(p, pc)
	}
	return &Game{
		board:   b,
		turn:    turn,
		timer:   game.NewTimer(turn, Opponent(turn), game.ClockConfig{}, t0),
		outcome: game.InProgress(),
		rules:   DefaultRules(),
	}
}

func TestOpeningPosition(t *testing.T) {
	g := New(DefaultRules(), game.ClockConfig{}, t0)
	if g.Turn() != game.Red {
		t.Fatalf("first player = %s, want red", g.Turn())
	}
	if g.Outcome().Over {
		t.Fatalf("fresh game is over: %+v", g.Outcome())
	}
	for _, c := range []game.Color{game.Red, game.Black} {
		men, kings := g.board.Count(c)
		if men != PiecesPerSide || kings != 0 {
			t.Fatalf("%s: men=%d kings=%d", c, men, kings)
		}
		moves := g.board.LegalMoves(c, g.rules)
		if len(moves) != 9 {
			t.Fatalf("%s opening moves = %d, want 9", c, len(moves))
		}
		for _, m := range moves {
			if m.IsCapture() {
				t.Fatalf("capture in opening: %+v", m)
			}
			if m.To.Row-m.From.Row != forward(c) {
				t.Fatalf("%s move %v->%v is not a forward step", c, m.From, m.To)
			}
		}
	}
}

func TestGeneratedDestinationsAreEmpty(t *testing.T) {
	g := New(DefaultRules(), game.ClockConfig{}, t0)
	now := t0
	for ply := 0; ply < 30 && !g.Outcome().Over; ply++ {
		moves := g.LegalMoves()
		for _, m := range moves {
			pc, err := g.board.Piece(m.To)
			if err != nil || !pc.IsEmpty() {
				t.Fatalf("ply %d: destination %v not empty (%v, %v)", ply, m.To, pc, err)
			}
		}
		now = now.Add(time.Second)
		if _, err := g.MakeMove(game.MoveRequest{From: moves[0].From, To: moves[0].To, Path: moves[0].Captured}, now); err != nil {
			t.Fatalf("ply %d: %v", ply, err)
		}
	}
}

func TestForcedCapture(t *testing.T) {
	g := setup(t, game.Red, map[game.Position]Piece{
		game.Pos(6, 1): redMan,
		game.Pos(6, 7): redMan,
		game.Pos(5, 2): blackMan,
		game.Pos(0, 9): blackMan,
	})
	moves := g.LegalMoves()
	if len(moves) != 1 {
		t.Fatalf("legal moves = %+v, want the single capture", moves)
	}
	if !moves[0].IsCapture() || moves[0].To != game.Pos(4, 3) {
		t.Fatalf("unexpected move %+v", moves[0])
	}
	before, _ := json.Marshal(g)
	_, err := g.MakeMove(game.MoveRequest{From: game.Pos(6, 7), To: game.Pos(5, 6)}, t0.Add(time.Second))
	if !errors.Is(err, game.ErrIllegalMove) {
		t.Fatalf("quiet move while capture pending: err=%v", err)
	}
	after, _ := json.Marshal(g)
	if !bytes.Equal(before, after) {
		t.Fatalf("rejected move changed state")
	}
}

func TestManCapturesBackward(t *testing.T) {
	g := setup(t, game.Red, map[game.Position]Piece{
		game.Pos(4, 3): redMan,
		game.Pos(5, 4): blackMan,
		game.Pos(0, 9): blackMan,
	})
	moves := g.LegalMoves()
	if len(moves) != 1 || moves[0].To != game.Pos(6, 5) {
		t.Fatalf("moves = %+v, want backward capture to (6,5)", moves)
	}
}

func TestMultiJumpAwardsCumulativePoints(t *testing.T) {
	g := setup(t, game.Red, map[game.Position]Piece{
		game.Pos(6, 1): redMan,
		game.Pos(5, 2): blackMan,
		game.Pos(3, 4): blackKing,
		game.Pos(0, 9): blackMan,
	})
	res, err := g.MakeMove(game.MoveRequest{Color: game.Red, From: game.Pos(6, 1), To: game.Pos(2, 5)}, t0.Add(time.Second))
	if err != nil {
		t.Fatalf("MakeMove: %v", err)
	}
	want := []game.Position{game.Pos(5, 2), game.Pos(3, 4)}
	if !res.Move.SamePath(want) {
		t.Fatalf("captured = %v, want %v", res.Move.Captured, want)
	}
	if res.PointsGained != 3 || g.Score().Of(game.Red) != 3 {
		t.Fatalf("points gained = %d score = %d, want 3", res.PointsGained, g.Score().Of(game.Red))
	}
	if res.Move.Notation != "31x22x13" {
		t.Fatalf("notation = %q", res.Move.Notation)
	}
	for _, p := range want {
		if pc, _ := g.board.Piece(p); !pc.IsEmpty() {
			t.Fatalf("captured piece at %v still on board", p)
		}
	}
	if g.Turn() != game.Black || g.Timer().CurrentPlayer != game.Black {
		t.Fatalf("turn not handed over")
	}
}

func TestFlyingKingCapture(t *testing.T) {
	g := setup(t, game.Red, map[game.Position]Piece{
		game.Pos(9, 0): redKing,
		game.Pos(6, 3): blackMan,
		game.Pos(0, 9): blackMan,
	})
	moves := g.LegalMoves()
	// landings (5,4) (4,5) (3,6) (2,7) (1,8); (0,9) is occupied
	if len(moves) != 5 {
		t.Fatalf("king capture landings = %d: %+v", len(moves), moves)
	}
	for _, m := range moves {
		if len(m.Captured) != 1 || m.Captured[0] != game.Pos(6, 3) {
			t.Fatalf("unexpected capture %+v", m)
		}
	}
}

func TestCapturedPiecesCannotBeJumpedTwice(t *testing.T) {
	g := setup(t, game.Red, map[game.Position]Piece{
		game.Pos(5, 4): redKing,
		game.Pos(4, 3): blackMan,
		game.Pos(4, 5): blackMan,
		game.Pos(6, 3): blackMan,
		game.Pos(6, 5): blackMan,
	})
	moves := g.LegalMoves()
	if len(moves) == 0 {
		t.Fatalf("expected captures")
	}
	for _, m := range moves {
		seen := map[game.Position]bool{}
		for _, p := range m.Captured {
			if seen[p] {
				t.Fatalf("piece %v captured twice in %+v", p, m)
			}
			seen[p] = true
		}
	}
}

func TestFlyingKingChainsAreDistinct(t *testing.T) {
	g := setup(t, game.Red, map[game.Position]Piece{
		game.Pos(0, 1): redKing,
		game.Pos(2, 3): blackMan,
		game.Pos(5, 6): blackMan,
	})
	moves, err := g.PossibleMoves(game.Pos(0, 1))
	if err != nil {
		t.Fatalf("PossibleMoves: %v", err)
	}
	// stops (3,4) and (4,5) both lead on to the second capture
	if len(moves) != 3 {
		t.Fatalf("moves = %+v, want one per landing square", moves)
	}
	seen := map[game.Position]bool{}
	for _, m := range moves {
		if seen[m.To] {
			t.Fatalf("duplicate move to %v: %+v", m.To, moves)
		}
		seen[m.To] = true
		if !m.SamePath([]game.Position{game.Pos(2, 3), game.Pos(5, 6)}) {
			t.Fatalf("captured = %v", m.Captured)
		}
	}
	if moves[0].To != game.Pos(6, 7) || moves[0].Notation != "1x18x34" {
		t.Fatalf("first move = %+v", moves[0])
	}
}

func chainChoiceGame(t *testing.T) *Game {
	t.Helper()
	return setup(t, game.Red, map[game.Position]Piece{
		game.Pos(6, 3): redMan,
		game.Pos(5, 2): blackMan,
		game.Pos(3, 2): blackMan,
		game.Pos(3, 4): blackMan,
		game.Pos(5, 4): blackMan,
		game.Pos(5, 6): blackMan,
	})
}

func TestCaptureFollowsChosenPath(t *testing.T) {
	short := []game.Position{game.Pos(5, 4), game.Pos(5, 6)}
	long := []game.Position{game.Pos(5, 2), game.Pos(3, 2), game.Pos(3, 4), game.Pos(5, 6)}
	cases := []struct {
		name   string
		path   []game.Position
		gone   []game.Position
		remain []game.Position
	}{
		{"short", short, short, []game.Position{game.Pos(5, 2), game.Pos(3, 2), game.Pos(3, 4)}},
		{"long", long, long, []game.Position{game.Pos(5, 4)}},
		{"default is longest", nil, long, []game.Position{game.Pos(5, 4)}},
	}
	for _, tc := range cases {
		g := chainChoiceGame(t)
		res, err := g.MakeMove(game.MoveRequest{From: game.Pos(6, 3), To: game.Pos(6, 7), Path: tc.path}, t0)
		if err != nil {
			t.Fatalf("%s: MakeMove: %v", tc.name, err)
		}
		if res.PointsGained != len(tc.gone) {
			t.Fatalf("%s: points = %d, want %d", tc.name, res.PointsGained, len(tc.gone))
		}
		for _, p := range tc.gone {
			if pc, _ := g.board.Piece(p); !pc.IsEmpty() {
				t.Fatalf("%s: %v still occupied", tc.name, p)
			}
		}
		for _, p := range tc.remain {
			if pc, _ := g.board.Piece(p); pc != blackMan {
				t.Fatalf("%s: %v = %+v, want black man", tc.name, p, pc)
			}
		}
		if pc, _ := g.board.Piece(game.Pos(6, 7)); pc != redMan {
			t.Fatalf("%s: landing square holds %+v", tc.name, pc)
		}
	}

	g := chainChoiceGame(t)
	before, _ := json.Marshal(g)
	bogus := []game.Position{game.Pos(5, 2), game.Pos(5, 6)}
	if _, err := g.MakeMove(game.MoveRequest{From: game.Pos(6, 3), To: game.Pos(6, 7), Path: bogus}, t0); !errors.Is(err, game.ErrIllegalMove) {
		t.Fatalf("unknown path: err = %v", err)
	}
	after, _ := json.Marshal(g)
	if !bytes.Equal(before, after) {
		t.Fatalf("rejected path changed state")
	}
}

func TestPromotion(t *testing.T) {
	g := setup(t, game.Red, map[game.Position]Piece{
		game.Pos(1, 2): redMan,
		game.Pos(0, 9): blackMan,
	})
	res, err := g.MakeMove(game.MoveRequest{From: game.Pos(1, 2), To: game.Pos(0, 1)}, t0)
	if err != nil {
		t.Fatalf("MakeMove: %v", err)
	}
	if res.Move.Promotion != "king" {
		t.Fatalf("promotion = %q", res.Move.Promotion)
	}
	if pc, _ := g.board.Piece(game.Pos(0, 1)); pc.Type != King {
		t.Fatalf("piece not promoted: %+v", pc)
	}
	if g.Outcome().Over {
		t.Fatalf("black still has a move")
	}
}

func TestNoLegalMovesLoses(t *testing.T) {
	g := setup(t, game.Red, map[game.Position]Piece{
		game.Pos(6, 1): redMan,
		game.Pos(5, 2): blackMan,
	})
	res, err := g.MakeMove(game.MoveRequest{From: game.Pos(6, 1), To: game.Pos(4, 3)}, t0)
	if err != nil {
		t.Fatalf("MakeMove: %v", err)
	}
	o := res.Outcome
	if !o.Over || o.Status != game.StatusNoLegalMoves || o.Winner != game.Red {
		t.Fatalf("outcome = %+v", o)
	}
	if _, err := g.MakeMove(game.MoveRequest{From: game.Pos(4, 3), To: game.Pos(3, 2)}, t0); !errors.Is(err, game.ErrGameAlreadyOver) {
		t.Fatalf("move after game over: %v", err)
	}
}

func TestNotYourTurnAndInvalidPosition(t *testing.T) {
	g := New(DefaultRules(), game.ClockConfig{}, t0)
	if _, err := g.MakeMove(game.MoveRequest{Color: game.Black, From: game.Pos(3, 0), To: game.Pos(4, 1)}, t0); !errors.Is(err, game.ErrNotYourTurn) {
		t.Fatalf("err = %v, want NotYourTurn", err)
	}
	if _, err := g.MakeMove(game.MoveRequest{From: game.Pos(6, 1), To: game.Pos(10, 0)}, t0); !errors.Is(err, game.ErrInvalidPosition) {
		t.Fatalf("err = %v, want InvalidPosition", err)
	}
	if _, err := g.PossibleMoves(game.Pos(-1, 0)); !errors.Is(err, game.ErrInvalidPosition) {
		t.Fatalf("PossibleMoves err = %v", err)
	}
}

func TestTimeForfeit(t *testing.T) {
	g := New(DefaultRules(), game.ClockConfig{MoveTimeLimit: 10 * time.Second}, t0)
	_, err := g.MakeMove(game.MoveRequest{From: game.Pos(6, 1), To: game.Pos(5, 0)}, t0.Add(11*time.Second))
	if !errors.Is(err, game.ErrGameAlreadyOver) {
		t.Fatalf("err = %v, want GameAlreadyOver", err)
	}
	o := g.Outcome()
	if o.Status != game.StatusTimeForfeit || o.Winner != game.Black {
		t.Fatalf("outcome = %+v", o)
	}
}

func TestCheckTimeoutWithGlobalClock(t *testing.T) {
	g := New(DefaultRules(), game.ClockConfig{GlobalTimeLimit: time.Minute}, t0)
	if _, fired := g.CheckTimeout(t0.Add(59 * time.Second)); fired {
		t.Fatalf("fired early")
	}
	o, fired := g.CheckTimeout(t0.Add(time.Minute))
	if !fired || o.Winner != game.Black {
		t.Fatalf("fired=%v outcome=%+v", fired, o)
	}
	if g.Timer().Stored(game.Red) != 0 {
		t.Fatalf("red remaining = %v", g.Timer().Stored(game.Red))
	}
}

func TestScoreLimit(t *testing.T) {
	g := setup(t, game.Red, map[game.Position]Piece{
		game.Pos(6, 1): redMan,
		game.Pos(5, 2): blackMan,
		game.Pos(0, 9): blackMan,
	})
	g.rules.ScoreLimit = 1
	res, err := g.MakeMove(game.MoveRequest{From: game.Pos(6, 1), To: game.Pos(4, 3)}, t0)
	if err != nil {
		t.Fatalf("MakeMove: %v", err)
	}
	if res.Outcome.Status != game.StatusScoreLimit || res.Outcome.Winner != game.Red {
		t.Fatalf("outcome = %+v", res.Outcome)
	}
}

func TestNoProgressDraw(t *testing.T) {
	g := setup(t, game.Red, map[game.Position]Piece{
		game.Pos(9, 2): redKing,
		game.Pos(0, 1): blackKing,
	})
	g.rules.NoProgressLimit = 4
	shuffle := []game.MoveRequest{
		{From: game.Pos(9, 2), To: game.Pos(8, 3)},
		{From: game.Pos(0, 1), To: game.Pos(1, 0)},
		{From: game.Pos(8, 3), To: game.Pos(9, 2)},
		{From: game.Pos(1, 0), To: game.Pos(0, 1)},
	}
	var res game.MoveResult
	for i, req := range shuffle {
		var err error
		if res, err = g.MakeMove(req, t0); err != nil {
			t.Fatalf("ply %d: %v", i, err)
		}
	}
	if res.Outcome.Status != game.StatusNoProgress || !res.Outcome.IsDraw() {
		t.Fatalf("outcome = %+v", res.Outcome)
	}
}

func TestResign(t *testing.T) {
	g := New(DefaultRules(), game.ClockConfig{}, t0)
	o, err := g.Resign(game.Black, t0)
	if err != nil || o.Winner != game.Red || o.Status != game.StatusResignation {
		t.Fatalf("resign: %+v %v", o, err)
	}
	if _, err := g.Resign(game.Red, t0); !errors.Is(err, game.ErrGameAlreadyOver) {
		t.Fatalf("second resign: %v", err)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	g := New(DefaultRules(), game.ClockConfig{MoveTimeLimit: time.Minute, GlobalTimeLimit: 10 * time.Minute}, t0)
	now := t0
	for i := 0; i < 6; i++ {
		m := g.LegalMoves()[i%len(g.LegalMoves())]
		now = now.Add(1500 * time.Millisecond)
		if _, err := g.MakeMove(game.MoveRequest{From: m.From, To: m.To, Path: m.Captured}, now); err != nil {
			t.Fatalf("move %d: %v", i, err)
		}
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
	if len(back.LegalMoves()) != len(g.LegalMoves()) {
		t.Fatalf("restored game has different legal moves")
	}
}

func TestRestoreRejectsBadBoard(t *testing.T) {
	g := New(DefaultRules(), game.ClockConfig{}, t0)
	raw, _ := json.Marshal(g)
	var m map[string]any
	_ = json.Unmarshal(raw, &m)
	rows := m["board"].([]any)
	rows[0].([]any)[0] = map[string]any{"type": "man", "color": "red"}
	bad, _ := json.Marshal(m)
	if _, err := Restore(bad); err == nil {
		t.Fatalf("piece on a light square accepted")
	}
}

func TestSquareNumbering(t *testing.T) {
	if Square(game.Pos(0, 1)) != 1 || Square(game.Pos(9, 8)) != 50 || Square(game.Pos(0, 0)) != 0 {
		t.Fatalf("corner squares misnumbered")
	}
	for n := 1; n <= 50; n++ {
		p, err := SquarePos(n)
		if err != nil || Square(p) != n {
			t.Fatalf("SquarePos(%d) = %v, %v", n, p, err)
		}
	}
}

func TestTranscript(t *testing.T) {
	g := New(DefaultRules(), game.ClockConfig{}, t0)
	if _, err := g.MakeMove(game.MoveRequest{From: game.Pos(6, 1), To: game.Pos(5, 2)}, t0); err != nil {
		t.Fatalf("MakeMove: %v", err)
	}
	if _, err := g.MakeMove(game.MoveRequest{From: game.Pos(3, 2), To: game.Pos(4, 3)}, t0); err != nil {
		t.Fatalf("MakeMove: %v", err)
	}
	if got := g.Transcript(); got != "1. 31-27 17-22 *" {
		t.Fatalf("transcript = %q", got)
	}
}
