package match

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/cheese-arena/internal/game"
	"github.com/park285/cheese-arena/internal/obslog"
)

// Archiver persists finished matches.
type Archiver interface {
	SaveResult(ctx context.Context, m *Match) error
}

// Notifier announces finished matches to an outside system.
type Notifier interface {
	MatchFinished(ctx context.Context, m *Match) error
}

type Manager struct {
	store    Store
	settings Settings
	archive  Archiver
	notifier Notifier
	now      func() time.Time
}

type Option func(*Manager)

func WithArchive(a Archiver) Option { return func(m *Manager) { m.archive = a } }
func WithNotifier(n Notifier) Option { return func(m *Manager) { m.notifier = n } }
func WithSettings(s Settings) Option { return func(m *Manager) { m.settings = s } }
func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{store: store, settings: DefaultSettings(), now: time.Now}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Create starts a match between a and b. Players without a color get the
// variant's sides in order; use AssignRandom to shuffle first.
func (m *Manager) Create(ctx context.Context, v game.Variant, a, b Player) (*Match, error) {
	sides, err := Sides(v)
	if err != nil {
		return nil, err
	}
	a.ID, b.ID = strings.TrimSpace(a.ID), strings.TrimSpace(b.ID)
	if a.ID == "" || b.ID == "" || a.ID == b.ID {
		return nil, fmt.Errorf("participants %q and %q: %w", a.ID, b.ID, ErrInvalidArgs)
	}
	if a.Color == game.NoColor && b.Color == game.NoColor {
		a.Color, b.Color = sides[0], sides[1]
	}
	if !validPair(sides, a.Color, b.Color) {
		return nil, fmt.Errorf("colors %s/%s for %s: %w", a.Color, b.Color, v, ErrInvalidArgs)
	}
	for _, p := range []Player{a, b} {
		busy, err := m.ActiveByPlayer(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if busy != nil {
			return nil, fmt.Errorf("%s in %s: %w", p.ID, busy.ID, ErrPlayerBusy)
		}
	}

	now := m.now()
	eng, err := newEngine(v, m.settings, now)
	if err != nil {
		return nil, err
	}
	state, err := eng.MarshalJSON()
	if err != nil {
		return nil, err
	}
	if a.Color != sides[0] {
		a, b = b, a
	}
	rec := &Match{
		ID:        uuid.NewString(),
		Variant:   v,
		Status:    StatusActive,
		Players:   [2]Player{a, b},
		State:     state,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
		Outcome:   eng.Outcome(),
	}
	if err := m.store.Create(ctx, rec); err != nil {
		return nil, err
	}
	obslog.L().Info("match_create",
		zap.String("match_id", rec.ID),
		zap.String("variant", string(v)),
		zap.String(a.Color.String()+"_id", a.ID),
		zap.String(b.Color.String()+"_id", b.ID),
	)
	return rec, nil
}

func validPair(sides [2]game.Color, a, b game.Color) bool {
	return (a == sides[0] && b == sides[1]) || (a == sides[1] && b == sides[0])
}

// AssignRandom gives a and b the sides of v in random order.
func AssignRandom(v game.Variant, a, b Player) (Player, Player, error) {
	sides, err := Sides(v)
	if err != nil {
		return a, b, err
	}
	a.Color, b.Color = sides[0], sides[1]
	if n, _ := rand.Int(rand.Reader, big.NewInt(2)); n != nil && n.Int64() == 0 {
		a.Color, b.Color = b.Color, a.Color
	}
	return a, b, nil
}

func (m *Manager) Get(ctx context.Context, id string) (*Match, error) {
	return m.store.Load(ctx, id)
}

// ActiveByPlayer returns the player's most recently updated active match, or nil.
func (m *Manager) ActiveByPlayer(ctx context.Context, playerID string) (*Match, error) {
	if strings.TrimSpace(playerID) == "" {
		return nil, nil
	}
	list, err := m.store.MatchesByPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	var active []*Match
	for _, g := range list {
		if g.Status == StatusActive {
			active = append(active, g)
		}
	}
	if len(active) == 0 {
		return nil, nil
	}
	sort.Slice(active, func(i, j int) bool { return active[i].UpdatedAt.After(active[j].UpdatedAt) })
	return active[0], nil
}

// LegalMoves lists every move available to the side to move.
func (m *Manager) LegalMoves(ctx context.Context, id string) ([]game.Move, error) {
	rec, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	eng, err := rec.Engine()
	if err != nil {
		return nil, err
	}
	return eng.LegalMoves(), nil
}

// PossibleMoves lists the legal moves of the piece on from.
func (m *Manager) PossibleMoves(ctx context.Context, id string, from game.Position) ([]game.Move, error) {
	rec, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	eng, err := rec.Engine()
	if err != nil {
		return nil, err
	}
	return eng.PossibleMoves(from)
}

// Play applies a move for playerID. The player's color is taken from the
// match record; a clock that ran out is committed as a forfeit before the
// error is returned.
func (m *Manager) Play(ctx context.Context, id, playerID string, req game.MoveRequest) (*Match, game.MoveResult, error) {
	now := m.now()
	var (
		result  game.MoveResult
		moveErr error
	)
	rec, err := m.store.Update(ctx, id, func(cur *Match) error {
		moveErr = nil
		p, ok := cur.Player(playerID)
		if !ok {
			return ErrNotParticipant
		}
		eng, err := cur.Engine()
		if err != nil {
			return err
		}
		wasOver := eng.Outcome().Over
		req.Color = p.Color
		res, err := eng.MakeMove(req, now)
		if err != nil {
			if wasOver || !eng.Outcome().Over {
				return err
			}
			moveErr = err
		}
		result = res
		return m.apply(cur, eng, now)
	})
	if err != nil {
		obslog.L().Info("match_move_rejected",
			zap.String("match_id", id),
			zap.String("player_id", playerID),
			zap.String("code", Code(err)),
			zap.Error(err),
		)
		return nil, game.MoveResult{}, err
	}
	obslog.L().Info("match_move",
		zap.String("match_id", rec.ID),
		zap.String("player_id", playerID),
		zap.String("move", result.Move.Notation),
		zap.Int("points", result.PointsGained),
		zap.String("status", string(rec.Outcome.Status)),
	)
	m.afterUpdate(ctx, rec)
	return rec, result, moveErr
}

// Resign ends the match in favour of the opponent of playerID.
func (m *Manager) Resign(ctx context.Context, id, playerID string) (*Match, error) {
	now := m.now()
	rec, err := m.store.Update(ctx, id, func(cur *Match) error {
		p, ok := cur.Player(playerID)
		if !ok {
			return ErrNotParticipant
		}
		if cur.Status != StatusActive {
			return ErrMatchFinished
		}
		eng, err := cur.Engine()
		if err != nil {
			return err
		}
		if _, err := eng.Resign(p.Color, now); err != nil {
			return err
		}
		return m.apply(cur, eng, now)
	})
	if err != nil {
		return nil, err
	}
	obslog.L().Info("match_resign",
		zap.String("match_id", rec.ID),
		zap.String("resigner", strings.TrimSpace(playerID)),
		zap.String("winner", rec.Winner),
	)
	m.afterUpdate(ctx, rec)
	return rec, nil
}

// SweepTimeouts forfeits every active match whose side to move ran out of time
// and returns how many matches it ended.
func (m *Manager) SweepTimeouts(ctx context.Context) (int, error) {
	ids, err := m.store.ActiveIDs(ctx)
	if err != nil {
		return 0, err
	}
	now := m.now()
	ended := 0
	for _, id := range ids {
		fired := false
		rec, err := m.store.Update(ctx, id, func(cur *Match) error {
			fired = false
			if cur.Status != StatusActive {
				return nil
			}
			eng, err := cur.Engine()
			if err != nil {
				return err
			}
			if _, fired = eng.CheckTimeout(now); !fired {
				return nil
			}
			return m.apply(cur, eng, now)
		})
		if errors.Is(err, ErrMatchNotFound) {
			continue
		}
		if err != nil {
			obslog.L().Warn("match_sweep_error", zap.String("match_id", id), zap.Error(err))
			continue
		}
		if fired {
			ended++
			m.afterUpdate(ctx, rec)
		}
	}
	return ended, nil
}

// RunSweeper calls SweepTimeouts every interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	obslog.L().Info("match_sweeper_start", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.SweepTimeouts(ctx)
			if err != nil {
				obslog.L().Warn("match_sweep_failed", zap.Error(err))
				continue
			}
			if n > 0 {
				obslog.L().Info("match_sweep", zap.Int("forfeits", n))
			}
		}
	}
}

// apply writes the engine state back into the record.
func (m *Manager) apply(cur *Match, eng Engine, now time.Time) error {
	state, err := eng.MarshalJSON()
	if err != nil {
		return err
	}
	cur.State = state
	cur.UpdatedAt = now.UTC()
	cur.Outcome = eng.Outcome()
	if cur.Outcome.Over {
		cur.Status = StatusFinished
		if p, ok := cur.PlayerByColor(cur.Outcome.Winner); ok && cur.Outcome.Winner != game.NoColor {
			cur.Winner = p.ID
		}
	}
	return nil
}

// afterUpdate archives and announces a match that just finished.
func (m *Manager) afterUpdate(ctx context.Context, rec *Match) {
	if rec == nil || rec.Status != StatusFinished {
		return
	}
	obslog.L().Info("match_finish",
		zap.String("match_id", rec.ID),
		zap.String("status", string(rec.Outcome.Status)),
		zap.String("winner", rec.Winner),
	)
	if m.archive != nil {
		if err := m.archive.SaveResult(ctx, rec); err != nil {
			obslog.L().Error("match_archive_error", zap.String("match_id", rec.ID), zap.Error(err))
		}
	}
	if m.notifier != nil {
		if err := m.notifier.MatchFinished(ctx, rec); err != nil {
			obslog.L().Warn("match_notify_error", zap.String("match_id", rec.ID), zap.Error(err))
		}
	}
}

type notifiers []Notifier

// Notifiers fans MatchFinished out to every non-nil n; it returns the first error.
func Notifiers(ns ...Notifier) Notifier {
	var out notifiers
	for _, n := range ns {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

func (ns notifiers) MatchFinished(ctx context.Context, m *Match) error {
	var first error
	for _, n := range ns {
		if err := n.MatchFinished(ctx, m); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// AddNotifier registers n next to the existing notifier. Call it before the
// manager is shared between goroutines.
func (m *Manager) AddNotifier(n Notifier) {
	m.notifier = Notifiers(m.notifier, n)
}
