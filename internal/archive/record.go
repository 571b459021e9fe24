package archive

import (
	"fmt"
	"strings"
	"time"

	"github.com/park285/cheese-arena/internal/game"
	"github.com/park285/cheese-arena/internal/game/chess"
	"github.com/park285/cheese-arena/internal/match"
)

// FromMatch builds the archive row of a finished match.
func FromMatch(m *match.Match) (*Result, error) {
	eng, err := m.Engine()
	if err != nil {
		return nil, fmt.Errorf("restore %s: %w", m.ID, err)
	}
	res := &Result{
		MatchID:   m.ID,
		Variant:   m.Variant,
		Players:   m.Players,
		WinnerID:  m.Winner,
		Winner:    m.Outcome.Winner,
		Status:    m.Outcome.Status,
		Result:    match.ResultToken(m.Variant, m.Outcome),
		Details:   m.Outcome.Details,
		StartedAt: m.CreatedAt.UTC(),
		EndedAt:   m.UpdatedAt.UTC(),
	}
	res.DurationMS = res.EndedAt.Sub(res.StartedAt).Milliseconds()
	if res.DurationMS < 0 {
		res.DurationMS = 0
	}
	res.Moves = make([]string, 0, len(eng.History()))
	for _, mv := range eng.History() {
		res.Moves = append(res.Moves, mv.Notation)
	}
	score := eng.Score()
	res.Scores = [2]int{score.Of(m.Players[0].Color), score.Of(m.Players[1].Color)}
	res.Record = buildRecord(m, eng, res.Result)
	return res, nil
}

// buildRecord writes PGN for chess and PDN for checkers.
func buildRecord(m *match.Match, eng match.Engine, result string) string {
	var b strings.Builder
	date := m.UpdatedAt
	if date.IsZero() {
		date = time.Now()
	}
	first, second := m.Players[0], m.Players[1]
	header := func(k, v string) { fmt.Fprintf(&b, "[%s \"%s\"]\n", k, sanitize(v)) }

	header("Event", "Cheese Arena")
	header("Site", "cheese-arena")
	header("Date", fmt.Sprintf("%04d.%02d.%02d", date.Year(), int(date.Month()), date.Day()))
	switch m.Variant {
	case game.VariantChess:
		white, black := first, second
		if white.Color != game.White {
			white, black = second, first
		}
		header("White", displayName(white))
		header("Black", displayName(black))
		if s, ok := eng.(interface{ StartFEN() string }); ok {
			if fen := s.StartFEN(); fen != "" && fen != chess.StartFEN {
				header("SetUp", "1")
				header("FEN", fen)
			}
		}
	case game.VariantCheckers:
		header("GameType", "20")
		header("White", displayName(playerOf(m, game.Red)))
		header("Black", displayName(playerOf(m, game.Black)))
	}
	if tc := timeControl(eng.Timer()); tc != "" {
		header("TimeControl", tc)
	}
	if m.Outcome.Over {
		header("Termination", strings.ToLower(string(m.Outcome.Status)))
	}
	header("Result", result)
	b.WriteByte('\n')
	b.WriteString(eng.Transcript())
	return b.String()
}

func playerOf(m *match.Match, c game.Color) match.Player {
	p, _ := m.PlayerByColor(c)
	return p
}

func displayName(p match.Player) string {
	if strings.TrimSpace(p.Name) != "" {
		return p.Name
	}
	return p.ID
}

// timeControl renders the clock as "<game seconds> <move seconds>/move".
func timeControl(t *game.Timer) string {
	if t == nil || !t.Enabled() {
		return ""
	}
	var parts []string
	if t.GlobalTimeLimit > 0 {
		parts = append(parts, fmt.Sprintf("%d", int64(t.GlobalTimeLimit/time.Second)))
	}
	if t.MoveTimeLimit > 0 {
		parts = append(parts, fmt.Sprintf("%d/move", int64(t.MoveTimeLimit/time.Second)))
	}
	return strings.Join(parts, " ")
}

func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
