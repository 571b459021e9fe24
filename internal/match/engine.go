package match

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/park285/cheese-arena/internal/game"
	"github.com/park285/cheese-arena/internal/game/checkers"
	"github.com/park285/cheese-arena/internal/game/chess"
)

// Engine is the surface both rule sets expose to the match layer.
type Engine interface {
	json.Marshaler
	Variant() game.Variant
	Turn() game.Color
	Sides() [2]game.Color
	Outcome() game.Outcome
	Score() game.Score
	Timer() *game.Timer
	History() []game.Move
	LegalMoves() []game.Move
	PossibleMoves(from game.Position) ([]game.Move, error)
	MakeMove(req game.MoveRequest, now time.Time) (game.MoveResult, error)
	Resign(c game.Color, now time.Time) (game.Outcome, error)
	CheckTimeout(now time.Time) (game.Outcome, bool)
	Transcript() string
	Dim() int
	Cell(row, col int) game.Cell
}

// Settings configures new games per variant.
type Settings struct {
	Checkers      checkers.Rules
	CheckersClock game.ClockConfig
	Chess         chess.Rules
	ChessClock    game.ClockConfig
}

func DefaultSettings() Settings {
	return Settings{Checkers: checkers.DefaultRules(), Chess: chess.DefaultRules()}
}

// Sides returns the two colors of v, first mover first.
func Sides(v game.Variant) ([2]game.Color, error) {
	switch v {
	case game.VariantCheckers:
		return [2]game.Color{game.Red, game.Black}, nil
	case game.VariantChess:
		return [2]game.Color{game.White, game.Black}, nil
	default:
		return [2]game.Color{}, fmt.Errorf("%q: %w", v, ErrUnsupportedVariant)
	}
}

func newEngine(v game.Variant, s Settings, now time.Time) (Engine, error) {
	switch v {
	case game.VariantCheckers:
		return checkers.New(s.Checkers, s.CheckersClock, now), nil
	case game.VariantChess:
		return chess.New(s.Chess, s.ChessClock, now), nil
	default:
		return nil, fmt.Errorf("%q: %w", v, ErrUnsupportedVariant)
	}
}

func restoreEngine(v game.Variant, state json.RawMessage) (Engine, error) {
	switch v {
	case game.VariantCheckers:
		g, err := checkers.Restore(state)
		if err != nil {
			return nil, err
		}
		return g, nil
	case game.VariantChess:
		g, err := chess.Restore(state)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("%q: %w", v, ErrUnsupportedVariant)
	}
}

// ResultToken renders o in the result notation of v.
func ResultToken(v game.Variant, o game.Outcome) string {
	switch v {
	case game.VariantCheckers:
		return checkers.ResultToken(o)
	case game.VariantChess:
		return chess.ResultToken(o)
	default:
		return "*"
	}
}
