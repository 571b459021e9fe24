package chess

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/cheese-arena/internal/game"
)

// Rules are the tunable parts of the rule set.
type Rules struct {
	// ScoreLimit ends the game once a side has captured this much material. Zero disables it.
	ScoreLimit int `json:"score_limit,omitempty"`
}

func DefaultRules() Rules { return Rules{} }

// Game is a chess match state. It is not safe for concurrent use.
type Game struct {
	board    *Board
	startFEN string
	timer    *game.Timer
	score    game.Score
	outcome  game.Outcome
	history  []game.Move
	rules    Rules
}

// New starts a game from the standard position.
func New(rules Rules, clock game.ClockConfig, now time.Time) *Game {
	g, _ := NewFromFEN(StartFEN, rules, clock, now)
	return g
}

// NewFromFEN starts a game from an arbitrary position.
func NewFromFEN(fen string, rules Rules, clock game.ClockConfig, now time.Time) (*Game, error) {
	b, err := ParseFEN(fen)
	if err != nil {
		return nil, err
	}
	g := &Game{
		board:    b,
		startFEN: b.FEN(),
		timer:    game.NewTimer(b.Turn(), Opponent(b.Turn()), clock, now),
		outcome:  game.InProgress(),
		rules:    rules,
	}
	if o := CheckGameOver(b); o.Over {
		return nil, fmt.Errorf("fen %q: position is already decided (%s)", fen, o.Status)
	}
	return g, nil
}

func (g *Game) Variant() game.Variant { return game.VariantChess }
func (g *Game) Turn() game.Color { return g.board.Turn() }
func (g *Game) Sides() [2]game.Color { return [2]game.Color{game.White, game.Black} }
func (g *Game) Outcome() game.Outcome { return g.outcome }
func (g *Game) Score() game.Score { return g.score }
func (g *Game) Timer() *game.Timer { return g.timer.Clone() }
func (g *Game) Board() *Board { return g.board.Clone() }
func (g *Game) FEN() string { return g.board.FEN() }
func (g *Game) History() []game.Move { return append([]game.Move(nil), g.history...) }

// LegalMoves lists the moves available to the side to move.
func (g *Game) LegalMoves() []game.Move {
	if g.outcome.Over {
		return nil
	}
	return g.board.LegalMoves()
}

// PossibleMoves lists the legal moves of the piece on from.
func (g *Game) PossibleMoves(from game.Position) ([]game.Move, error) {
	if !from.InBounds(Size) {
		return nil, fmt.Errorf("%v: %w", from, game.ErrInvalidPosition)
	}
	var out []game.Move
	for _, m := range g.LegalMoves() {
		if m.From == from {
			out = append(out, m)
		}
	}
	return out, nil
}

// MakeMove validates and applies req at now. Promotion defaults to queen.
func (g *Game) MakeMove(req game.MoveRequest, now time.Time) (game.MoveResult, error) {
	if g.outcome.Over {
		return game.MoveResult{}, game.ErrGameAlreadyOver
	}
	mover := g.board.Turn()
	if req.Color != game.NoColor && req.Color != mover {
		return game.MoveResult{}, fmt.Errorf("%s to move: %w", mover, game.ErrNotYourTurn)
	}
	if !req.From.InBounds(Size) || !req.To.InBounds(Size) {
		return game.MoveResult{}, fmt.Errorf("%v -> %v: %w", req.From, req.To, game.ErrInvalidPosition)
	}
	if g.forfeitIfExpired(now) {
		return game.MoveResult{}, fmt.Errorf("clock expired: %w", game.ErrGameAlreadyOver)
	}
	promo, err := parsePromotion(req.Promotion)
	if err != nil {
		return game.MoveResult{}, err
	}

	ng, err := libGame(g.board.FEN())
	if err != nil {
		return game.MoveResult{}, fmt.Errorf("reopen position: %w", err)
	}
	before := ng.Position()
	var mv *nchess.Move
	for _, m := range before.ValidMoves() {
		if m.S1() != square(req.From) || m.S2() != square(req.To) {
			continue
		}
		if m.Promo() != nchess.NoPieceType && m.Promo() != libKinds[promo] {
			continue
		}
		mv = &m
		break
	}
	if mv == nil {
		return game.MoveResult{}, fmt.Errorf("%s%s: %w", SquareName(req.From), SquareName(req.To), game.ErrIllegalMove)
	}
	if err := ng.Move(mv, nil); err != nil {
		return game.MoveResult{}, fmt.Errorf("%s: %w", mv, game.ErrIllegalMove)
	}

	gm := g.board.toGameMove(mv)
	gm.Notation = nchess.AlgebraicNotation{}.Encode(before, mv)
	g.timer.Charge(now)
	g.board = &Board{pos: ng.Position()}
	g.score.Add(mover, gm.Points)
	g.history = append(g.history, gm)
	g.timer.Handover(g.board.Turn(), now)
	g.outcome = g.detect(mover, ng.Method())

	return game.MoveResult{Move: gm, PointsGained: gm.Points, Outcome: g.outcome}, nil
}

func parsePromotion(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "q", "queen":
		return Queen, nil
	case "r", "rook":
		return Rook, nil
	case "b", "bishop":
		return Bishop, nil
	case "n", "knight":
		return Knight, nil
	default:
		return NoKind, fmt.Errorf("promotion %q: %w", s, game.ErrIllegalMove)
	}
}

func (g *Game) detect(mover game.Color, method nchess.Method) game.Outcome {
	if lim := g.rules.ScoreLimit; lim > 0 && g.score.Of(mover) >= lim {
		return game.Win(game.StatusScoreLimit, mover, fmt.Sprintf("%s reached %d points", mover, lim))
	}
	return outcomeOf(method, g.board.Turn(), g.board.Halfmove())
}

func (g *Game) forfeitIfExpired(now time.Time) bool {
	if !g.timer.Expired(now) {
		return false
	}
	loser := g.board.Turn()
	g.timer.Charge(now)
	g.outcome = game.Win(game.StatusTimeForfeit, Opponent(loser), fmt.Sprintf("%s ran out of time", loser))
	return true
}

// CheckTimeout forfeits the side to move if its clock ran out at now.
func (g *Game) CheckTimeout(now time.Time) (game.Outcome, bool) {
	if g.outcome.Over {
		return g.outcome, false
	}
	fired := g.forfeitIfExpired(now)
	return g.outcome, fired
}

// Resign ends the game in favour of c's opponent.
func (g *Game) Resign(c game.Color, now time.Time) (game.Outcome, error) {
	if g.outcome.Over {
		return g.outcome, game.ErrGameAlreadyOver
	}
	if c != game.White && c != game.Black {
		return g.outcome, fmt.Errorf("%s does not play chess: %w", c, game.ErrIllegalMove)
	}
	g.timer.Charge(now)
	g.outcome = game.Win(game.StatusResignation, Opponent(c), fmt.Sprintf("%s resigned", c))
	return g.outcome, nil
}

func (g *Game) Dim() int { return Size }

func (g *Game) Cell(row, col int) game.Cell {
	p := game.Pos(row, col)
	cell := game.Cell{Dark: (row+col)%2 == 1}
	if row == Size-1 || col == 0 {
		cell.Label = SquareName(p)
	}
	if pc := g.board.at(p); !pc.IsEmpty() {
		cell.Occupied = true
		cell.Color = pc.Color
		cell.Glyph = Glyph(pc)
	}
	return cell
}

// Transcript renders the SAN movetext with a PGN result token.
func (g *Game) Transcript() string {
	var b strings.Builder
	start, err := ParseFEN(g.startFEN)
	ply := 0
	if err == nil && start.Turn() == game.Black {
		fmt.Fprintf(&b, "%d...", start.Fullmove())
		ply = 1
	}
	number := 1
	if err == nil {
		number = start.Fullmove()
	}
	for _, m := range g.history {
		if ply%2 == 0 {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%d.", number)
		}
		b.WriteByte(' ')
		b.WriteString(m.Notation)
		if ply%2 == 1 {
			number++
		}
		ply++
	}
	if b.Len() > 0 {
		b.WriteByte(' ')
	}
	b.WriteString(ResultToken(g.outcome))
	return b.String()
}

// StartFEN returns the position the game started from.
func (g *Game) StartFEN() string { return g.startFEN }

// ResultToken is the PGN result: 1-0, 0-1, 1/2-1/2 or *.
func ResultToken(o game.Outcome) string {
	switch {
	case !o.Over:
		return "*"
	case o.Winner == game.White:
		return "1-0"
	case o.Winner == game.Black:
		return "0-1"
	default:
		return "1/2-1/2"
	}
}

type snapshot struct {
	Variant       game.Variant       `json:"variant"`
	Board         [][]*Piece         `json:"board"`
	FEN           string             `json:"fen"`
	StartFEN      string             `json:"start_fen"`
	CurrentPlayer game.Color         `json:"current_player"`
	Timer         *game.Timer        `json:"timer"`
	Scores        map[game.Color]int `json:"scores"`
	game.Outcome
	InCheck bool        `json:"in_check"`
	Moves   []game.Move `json:"moves"`
	Rules   Rules       `json:"rules"`
}

func (g *Game) MarshalJSON() ([]byte, error) {
	moves := g.history
	if moves == nil {
		moves = []game.Move{}
	}
	return json.Marshal(snapshot{
		Variant:       game.VariantChess,
		Board:         g.board.Rows(),
		FEN:           g.board.FEN(),
		StartFEN:      g.startFEN,
		CurrentPlayer: g.board.Turn(),
		Timer:         g.timer,
		Scores:        g.score.Map(game.White, game.Black),
		Outcome:       g.outcome,
		InCheck:       g.board.IsInCheck(g.board.Turn()),
		Moves:         moves,
		Rules:         g.rules,
	})
}

// Restore rebuilds a game from its MarshalJSON output. The FEN field is
// authoritative for the position; the board list is informational.
func Restore(data []byte) (*Game, error) {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode chess state: %w", err)
	}
	if s.Variant != "" && s.Variant != game.VariantChess {
		return nil, fmt.Errorf("decode chess state: variant %q", s.Variant)
	}
	b, err := ParseFEN(s.FEN)
	if err != nil {
		return nil, fmt.Errorf("decode chess state: %w", err)
	}
	if s.CurrentPlayer != b.Turn() {
		return nil, fmt.Errorf("decode chess state: current_player %s differs from fen", s.CurrentPlayer)
	}
	if s.Timer == nil || s.Timer.CurrentPlayer != b.Turn() {
		return nil, fmt.Errorf("decode chess state: timer out of sync")
	}
	if s.Status == "" {
		s.Outcome = game.InProgress()
	}
	start := s.StartFEN
	if start == "" {
		start = StartFEN
	}
	return &Game{
		board:    b,
		startFEN: start,
		timer:    s.Timer,
		score:    game.ScoreFromMap(s.Scores),
		outcome:  s.Outcome,
		history:  s.Moves,
		rules:    s.Rules,
	}, nil
}
