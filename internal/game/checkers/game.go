package checkers

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/park285/cheese-arena/internal/game"
)

// Rules are the tunable parts of the rule set.
type Rules struct {
	ManCapturePoints  int `json:"man_capture_points"`
	KingCapturePoints int `json:"king_capture_points"`
	// ScoreLimit ends the game as soon as a side reaches it. Zero disables it.
	ScoreLimit int `json:"score_limit,omitempty"`
	// NoProgressLimit is the number of consecutive king-only quiet plies that
	// draws the game. Zero disables it.
	NoProgressLimit int `json:"no_progress_limit,omitempty"`
}

func DefaultRules() Rules {
	return Rules{ManCapturePoints: 1, KingCapturePoints: 2, NoProgressLimit: 50}
}

func (r Rules) captureValue(pc Piece) int {
	if pc.Type == King {
		return r.KingCapturePoints
	}
	return r.ManCapturePoints
}

// Game is a checkers match state. It is not safe for concurrent use.
type Game struct {
	board   *Board
	turn    game.Color
	timer   *game.Timer
	score   game.Score
	outcome game.Outcome
	history []game.Move
	quiet   int
	rules   Rules
}

// New starts a game from the opening position with RED to move.
func New(rules Rules, clock game.ClockConfig, now time.Time) *Game {
	return &Game{
		board:   NewBoard(),
		turn:    game.Red,
		timer:   game.NewTimer(game.Red, game.Black, clock, now),
		outcome: game.InProgress(),
		rules:   rules,
	}
}

func (g *Game) Variant() game.Variant { return game.VariantCheckers }
func (g *Game) Turn() game.Color { return g.turn }
func (g *Game) Sides() [2]game.Color { return [2]game.Color{game.Red, game.Black} }
func (g *Game) Outcome() game.Outcome { return g.outcome }
func (g *Game) Score() game.Score { return g.score }
func (g *Game) Timer() *game.Timer { return g.timer.Clone() }
func (g *Game) Board() *Board { return g.board.Clone() }
func (g *Game) Rules() Rules { return g.rules }
func (g *Game) History() []game.Move { return append([]game.Move(nil), g.history...) }

// LegalMoves lists the moves available to the side to move.
func (g *Game) LegalMoves() []game.Move {
	if g.outcome.Over {
		return nil
	}
	return g.board.LegalMoves(g.turn, g.rules)
}

// PossibleMoves lists the legal moves starting at from.
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

// MakeMove validates and applies req at now.
func (g *Game) MakeMove(req game.MoveRequest, now time.Time) (game.MoveResult, error) {
	if g.outcome.Over {
		return game.MoveResult{}, game.ErrGameAlreadyOver
	}
	if req.Color != game.NoColor && req.Color != g.turn {
		return game.MoveResult{}, fmt.Errorf("%s to move: %w", g.turn, game.ErrNotYourTurn)
	}
	if !req.From.InBounds(Size) || !req.To.InBounds(Size) {
		return game.MoveResult{}, fmt.Errorf("%v -> %v: %w", req.From, req.To, game.ErrInvalidPosition)
	}
	if g.forfeitIfExpired(now) {
		return game.MoveResult{}, fmt.Errorf("clock expired: %w", game.ErrGameAlreadyOver)
	}

	m, ok := pick(g.LegalMoves(), req)
	if !ok {
		return game.MoveResult{}, fmt.Errorf("%v -> %v: %w", req.From, req.To, game.ErrIllegalMove)
	}

	mover := g.turn
	wasKing := g.board.at(m.From).Type == King
	g.timer.Charge(now)
	if g.board.apply(m) {
		m.Promotion = King.String()
	}
	g.score.Add(mover, m.Points)
	g.history = append(g.history, m)
	if wasKing && !m.IsCapture() {
		g.quiet++
	} else {
		g.quiet = 0
	}
	g.turn = Opponent(mover)
	g.timer.Handover(g.turn, now)
	g.outcome = g.detect(mover)

	return game.MoveResult{Move: m, PointsGained: m.Points, Outcome: g.outcome}, nil
}

// pick selects the legal move matching req. With several chains between the
// same squares the request path decides; otherwise the longest chain wins.
func pick(legal []game.Move, req game.MoveRequest) (game.Move, bool) {
	var best game.Move
	found := false
	for _, m := range legal {
		if m.From != req.From || m.To != req.To {
			continue
		}
		if len(req.Path) > 0 {
			if m.SamePath(req.Path) {
				return m, true
			}
			continue
		}
		if !found || len(m.Captured) > len(best.Captured) {
			best, found = m, true
		}
	}
	return best, found
}

// detect evaluates the position after mover's move.
func (g *Game) detect(mover game.Color) game.Outcome {
	if lim := g.rules.ScoreLimit; lim > 0 && g.score.Of(mover) >= lim {
		return game.Win(game.StatusScoreLimit, mover, fmt.Sprintf("%s reached %d points", mover, lim))
	}
	if o := CheckGameOver(g.board, g.turn); o.Over {
		return o
	}
	if lim := g.rules.NoProgressLimit; lim > 0 && g.quiet >= lim {
		return game.Draw(game.StatusNoProgress, fmt.Sprintf("%d king moves without a capture", g.quiet))
	}
	return game.InProgress()
}

// CheckGameOver reports a loss for turn when it has no legal move.
func CheckGameOver(b *Board, turn game.Color) game.Outcome {
	if b.HasLegalMoves(turn) {
		return game.InProgress()
	}
	men, kings := b.Count(turn)
	details := fmt.Sprintf("%s has no legal moves", turn)
	if men+kings == 0 {
		details = fmt.Sprintf("%s has no pieces left", turn)
	}
	return game.Win(game.StatusNoLegalMoves, Opponent(turn), details)
}

func (g *Game) forfeitIfExpired(now time.Time) bool {
	if !g.timer.Expired(now) {
		return false
	}
	loser := g.turn
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
	if c != game.Red && c != game.Black {
		return g.outcome, fmt.Errorf("%s does not play checkers: %w", c, game.ErrIllegalMove)
	}
	g.timer.Charge(now)
	g.outcome = game.Win(game.StatusResignation, Opponent(c), fmt.Sprintf("%s resigned", c))
	return g.outcome, nil
}

// Dim and Cell expose the board to renderers.
func (g *Game) Dim() int { return Size }

func (g *Game) Cell(row, col int) game.Cell {
	p := game.Pos(row, col)
	cell := game.Cell{Dark: IsDark(p)}
	if cell.Dark {
		cell.Label = strconv.Itoa(Square(p))
	}
	if pc := g.board.at(p); !pc.IsEmpty() {
		cell.Occupied = true
		cell.Color = pc.Color
		cell.Glyph = Glyph(pc)
	}
	return cell
}

// Transcript renders the move list in square-number notation with a result token.
func (g *Game) Transcript() string {
	var b strings.Builder
	for i, m := range g.history {
		if i%2 == 0 {
			if i > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%d.", i/2+1)
		}
		b.WriteByte(' ')
		b.WriteString(m.Notation)
	}
	if b.Len() > 0 {
		b.WriteByte(' ')
	}
	b.WriteString(ResultToken(g.outcome))
	return b.String()
}

// ResultToken is the draughts result notation: 2-0 red wins, 0-2 black wins, 1-1 draw.
func ResultToken(o game.Outcome) string {
	switch {
	case !o.Over:
		return "*"
	case o.Winner == game.Red:
		return "2-0"
	case o.Winner == game.Black:
		return "0-2"
	default:
		return "1-1"
	}
}

type snapshot struct {
	Variant       game.Variant       `json:"variant"`
	Board         *Board             `json:"board"`
	CurrentPlayer game.Color         `json:"current_player"`
	Timer         *game.Timer        `json:"timer"`
	Scores        map[game.Color]int `json:"scores"`
	game.Outcome
	Moves      []game.Move `json:"moves"`
	QuietPlies int         `json:"quiet_plies"`
	Rules      Rules       `json:"rules"`
}

func (g *Game) MarshalJSON() ([]byte, error) {
	moves := g.history
	if moves == nil {
		moves = []game.Move{}
	}
	return json.Marshal(snapshot{
		Variant:       game.VariantCheckers,
		Board:         g.board,
		CurrentPlayer: g.turn,
		Timer:         g.timer,
		Scores:        g.score.Map(game.Red, game.Black),
		Outcome:       g.outcome,
		Moves:         moves,
		QuietPlies:    g.quiet,
		Rules:         g.rules,
	})
}

// Restore rebuilds a game from its MarshalJSON output.
func Restore(data []byte) (*Game, error) {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode checkers state: %w", err)
	}
	if s.Variant != "" && s.Variant != game.VariantCheckers {
		return nil, fmt.Errorf("decode checkers state: variant %q", s.Variant)
	}
	if s.Board == nil {
		return nil, fmt.Errorf("decode checkers state: missing board")
	}
	if s.CurrentPlayer != game.Red && s.CurrentPlayer != game.Black {
		return nil, fmt.Errorf("decode checkers state: current_player %q", s.CurrentPlayer)
	}
	if s.Timer == nil {
		return nil, fmt.Errorf("decode checkers state: missing timer")
	}
	if s.Timer.CurrentPlayer != s.CurrentPlayer {
		return nil, fmt.Errorf("decode checkers state: timer player %s differs from %s", s.Timer.CurrentPlayer, s.CurrentPlayer)
	}
	if s.Status == "" {
		s.Outcome = game.InProgress()
	}
	return &Game{
		board:   s.Board,
		turn:    s.CurrentPlayer,
		timer:   s.Timer,
		score:   game.ScoreFromMap(s.Scores),
		outcome: s.Outcome,
		history: s.Moves,
		quiet:   s.QuietPlies,
		rules:   s.Rules,
	}, nil
}
