package lobby

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-arena/internal/game"
	"github.com/park285/cheese-arena/internal/match"
	"github.com/park285/cheese-arena/internal/obslog"
)

// Matches is the part of match.Manager a lobby needs.
type Matches interface {
	Create(ctx context.Context, v game.Variant, a, b match.Player) (*match.Match, error)
	ActiveByPlayer(ctx context.Context, playerID string) (*match.Match, error)
}

type Manager struct {
	store   *Store
	matches Matches
	now     func() time.Time
}

func NewManager(store *Store, matches Matches) *Manager {
	return &Manager{store: store, matches: matches, now: time.Now}
}

// Make opens a lobby for variant v and returns it with its join code.
func (m *Manager) Make(ctx context.Context, v game.Variant, playerID, playerName string) (*Lobby, error) {
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return nil, ErrInvalidArgs
	}
	if _, err := match.Sides(v); err != nil {
		return nil, err
	}
	if busy, err := m.matches.ActiveByPlayer(ctx, playerID); err != nil {
		return nil, err
	} else if busy != nil {
		return nil, fmt.Errorf("%s in %s: %w", playerID, busy.ID, match.ErrPlayerBusy)
	}
	if code, err := m.store.OpenCodeOf(ctx, playerID); err != nil {
		return nil, err
	} else if code != "" {
		return nil, fmt.Errorf("%s owns %s: %w", playerID, code, ErrCreatorHasLobby)
	}
	for i := 0; i < 5; i++ {
		code, err := newCode()
		if err != nil {
			return nil, err
		}
		l := &Lobby{
			Code:        code,
			Variant:     v,
			State:       StateOpen,
			CreatedAt:   m.now().UTC(),
			CreatorID:   playerID,
			CreatorName: playerName,
		}
		ok, err := m.store.Reserve(ctx, l)
		if err != nil {
			return nil, err
		}
		if ok {
			obslog.L().Info("lobby_make", zap.String("code", code), zap.String("variant", string(v)), zap.String("creator_id", playerID))
			return l, nil
		}
	}
	return nil, fmt.Errorf("failed to allocate lobby code")
}

// Join takes the second seat of a lobby. The match starts immediately with
// colors assigned at random; preferences are not honoured.
func (m *Manager) Join(ctx context.Context, code, playerID, playerName string) (*JoinResult, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	playerID = strings.TrimSpace(playerID)
	if code == "" || playerID == "" {
		return nil, ErrInvalidArgs
	}
	l, err := m.store.Load(ctx, code)
	if err != nil {
		return nil, err
	}
	if l == nil || l.State == StateCanceled {
		return nil, ErrLobbyGone
	}
	if l.State != StateOpen {
		return nil, ErrLobbyStarted
	}
	if playerID == l.CreatorID {
		return &JoinResult{Lobby: l}, nil
	}
	if busy, err := m.matches.ActiveByPlayer(ctx, playerID); err != nil {
		return nil, err
	} else if busy != nil {
		return nil, fmt.Errorf("%s in %s: %w", playerID, busy.ID, match.ErrPlayerBusy)
	}

	n, err := m.store.AddParticipant(ctx, code, playerID)
	if err != nil {
		obslog.L().Warn("lobby_join_error", zap.String("code", code), zap.String("player_id", playerID), zap.Error(err))
		return nil, err
	}
	obslog.L().Info("lobby_join", zap.String("code", code), zap.String("player_id", playerID), zap.Int64("participants", n))
	if n < 2 {
		return &JoinResult{Lobby: l}, nil
	}

	a, b, err := match.AssignRandom(l.Variant,
		match.Player{ID: l.CreatorID, Name: l.CreatorName},
		match.Player{ID: playerID, Name: playerName},
	)
	if err != nil {
		return nil, err
	}
	g, err := m.matches.Create(ctx, l.Variant, a, b)
	if err != nil {
		_ = m.store.RemoveParticipant(ctx, code, playerID)
		return nil, err
	}

	l.State = StateStarted
	l.MatchID = g.ID
	if err := m.store.Save(ctx, l); err != nil {
		return nil, err
	}
	obslog.L().Info("lobby_start_match", zap.String("code", code), zap.String("match_id", g.ID))
	return &JoinResult{Started: true, MatchID: g.ID, Lobby: l}, nil
}

// Cancel closes an open lobby. Only its creator may do so.
func (m *Manager) Cancel(ctx context.Context, code, playerID string) error {
	l, err := m.store.Load(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return err
	}
	if l == nil {
		return ErrLobbyGone
	}
	if l.CreatorID != strings.TrimSpace(playerID) {
		return ErrNotCreator
	}
	if l.State != StateOpen {
		return ErrLobbyStarted
	}
	l.State = StateCanceled
	if err := m.store.Save(ctx, l); err != nil {
		return err
	}
	obslog.L().Info("lobby_cancel", zap.String("code", l.Code))
	return nil
}

// ListLobby returns open lobbies for listing.
func (m *Manager) ListLobby(ctx context.Context) ([]*Lobby, error) { return m.store.ListOpen(ctx) }
