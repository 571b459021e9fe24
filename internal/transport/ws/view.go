package ws

import (
	"time"

	"github.com/park285/cheese-arena/internal/game"
	"github.com/park285/cheese-arena/internal/lobby"
	"github.com/park285/cheese-arena/internal/match"
	"github.com/park285/cheese-arena/internal/msgcat"
	"github.com/park285/cheese-arena/pkg/gamedto"
)

func toPosition(p gamedto.Position) game.Position { return game.Pos(p.Row, p.Col) }

func fromPosition(p game.Position) gamedto.Position { return gamedto.Position{Row: p.Row, Col: p.Col} }

func toMove(m game.Move) gamedto.Move {
	out := gamedto.Move{
		From:      fromPosition(m.From),
		To:        fromPosition(m.To),
		Points:    m.Points,
		Promotion: m.Promotion,
		Notation:  m.Notation,
	}
	for _, c := range m.Captured {
		out.Captured = append(out.Captured, fromPosition(c))
	}
	return out
}

func toMoves(ms []game.Move) []gamedto.Move {
	out := make([]gamedto.Move, 0, len(ms))
	for _, m := range ms {
		out = append(out, toMove(m))
	}
	return out
}

// stateView renders a match for clients. Clocks are recomputed from the stored
// timestamps at now.
func stateView(m *match.Match, cat *msgcat.Catalog, now time.Time) (*gamedto.State, error) {
	eng, err := m.Engine()
	if err != nil {
		return nil, err
	}
	st := &gamedto.State{
		MatchID:   m.ID,
		Variant:   string(m.Variant),
		Status:    string(m.Status),
		Version:   m.Version,
		Winner:    m.Winner,
		UpdatedAt: m.UpdatedAt,
		Game:      m.State,
	}
	for _, p := range m.Players {
		st.Players = append(st.Players, gamedto.Player{ID: p.ID, Name: p.Name, Color: p.Color.String()})
	}
	if t := eng.Timer(); t != nil && t.Enabled() {
		st.Clock = make(map[string]float64, 2)
		for _, c := range t.Sides() {
			remaining := t.Remaining(c, now)
			if m.Status != match.StatusActive {
				remaining = t.Stored(c)
			}
			st.Clock[c.String()] = remaining.Seconds()
		}
		if dl := t.MoveDeadline(); !dl.IsZero() && m.Status == match.StatusActive {
			st.Deadline = &dl
		}
	}
	if m.Outcome.Over {
		winner, loser := "", ""
		if p, ok := m.PlayerByColor(m.Outcome.Winner); ok && m.Outcome.Winner != game.NoColor {
			winner = displayName(p)
			for _, q := range m.Players {
				if q.ID != p.ID {
					loser = displayName(q)
				}
			}
		}
		st.Summary = cat.Outcome(string(m.Outcome.Status), winner, loser)
	}
	return st, nil
}

func displayName(p match.Player) string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}

func lobbyView(l *lobby.Lobby) gamedto.Lobby {
	return gamedto.Lobby{
		Code:      l.Code,
		Variant:   string(l.Variant),
		State:     string(l.State),
		CreatorID: l.CreatorID,
		MatchID:   l.MatchID,
		CreatedAt: l.CreatedAt,
	}
}
