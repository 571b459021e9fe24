package ws

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/cheese-arena/internal/game"
	"github.com/park285/cheese-arena/internal/lobby"
	"github.com/park285/cheese-arena/internal/match"
	"github.com/park285/cheese-arena/internal/obslog"
	"github.com/park285/cheese-arena/pkg/gamedto"
)

const writeTimeout = 5 * time.Second

type client struct {
	conn   *websocket.Conn
	player string
	name   string
	mu     sync.Mutex
}

func (c *client) send(ctx context.Context, env gamedto.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, c.conn, env)
}

// hub tracks open connections per player so both sides see every update.
type hub struct {
	mu      sync.RWMutex
	players map[string]map[*client]struct{}
}

func newHub() *hub { return &hub{players: make(map[string]map[*client]struct{})} }

func (h *hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.players[c.player]
	if set == nil {
		set = make(map[*client]struct{})
		h.players[c.player] = set
	}
	set[c] = struct{}{}
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set := h.players[c.player]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.players, c.player)
		}
	}
}

func (h *hub) clients(playerIDs ...string) []*client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []*client
	for _, id := range playerIDs {
		for c := range h.players[id] {
			out = append(out, c)
		}
	}
	return out
}

func (s *Server) readLoop(ctx context.Context, c *client) {
	defer c.conn.Close(websocket.StatusNormalClosure, "bye")
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				obslog.L().Debug("ws_read_error", zap.String("player_id", c.player), zap.Error(err))
			}
			return
		}
		var req gamedto.Request
		if err := json.Unmarshal(data, &req); err != nil {
			if err := c.send(ctx, s.fail(gamedto.TypeError, "", match.ErrInvalidArgs)); err != nil {
				return
			}
			continue
		}
		env, updated := s.handle(ctx, c, req)
		if err := c.send(ctx, env); err != nil {
			obslog.L().Debug("ws_write_error", zap.String("player_id", c.player), zap.Error(err))
			return
		}
		if updated != nil {
			s.broadcast(ctx, updated, c)
		}
	}
}

// broadcast pushes the new state to every connection of both players except origin.
func (s *Server) broadcast(ctx context.Context, m *match.Match, origin *client) {
	st, err := stateView(m, s.catalog, s.now())
	if err != nil {
		return
	}
	env := gamedto.Envelope{Type: gamedto.TypeUpdate, Success: true, State: st}
	for _, c := range s.hub.clients(m.Players[0].ID, m.Players[1].ID) {
		if c == origin {
			continue
		}
		if err := c.send(ctx, env); err != nil {
			obslog.L().Debug("ws_broadcast_error", zap.String("player_id", c.player), zap.Error(err))
		}
	}
}

// MatchFinished tells every connection of both players that m ended. It lets
// the server act as a match.Notifier so sweeper forfeits reach clients too.
func (s *Server) MatchFinished(ctx context.Context, m *match.Match) error {
	st, err := stateView(m, s.catalog, s.now())
	if err != nil {
		return err
	}
	env := gamedto.Envelope{Type: gamedto.TypeFinished, Success: true, State: st}
	for _, c := range s.hub.clients(m.Players[0].ID, m.Players[1].ID) {
		_ = c.send(ctx, env)
	}
	return nil
}

// handle runs one request. It returns the reply and, when a match changed,
// the match to broadcast.
func (s *Server) handle(ctx context.Context, c *client, req gamedto.Request) (gamedto.Envelope, *match.Match) {
	switch req.Type {
	case gamedto.TypeCreate:
		return s.handleCreate(ctx, c, req)
	case gamedto.TypeState:
		m, err := s.matches.Get(ctx, req.MatchID)
		if err != nil {
			return s.fail(req.Type, req.RequestID, err), nil
		}
		return s.ok(req, m, nil), nil
	case gamedto.TypeMoves:
		var (
			moves []game.Move
			err   error
		)
		if from, ok := req.Source(); ok {
			moves, err = s.matches.PossibleMoves(ctx, req.MatchID, toPosition(from))
		} else {
			moves, err = s.matches.LegalMoves(ctx, req.MatchID)
		}
		if err != nil {
			return s.fail(req.Type, req.RequestID, err), nil
		}
		return gamedto.Envelope{Type: req.Type, RequestID: req.RequestID, Success: true, Moves: toMoves(moves)}, nil
	case gamedto.TypeMove:
		return s.handleMove(ctx, c, req)
	case gamedto.TypeResign:
		m, err := s.matches.Resign(ctx, req.MatchID, c.player)
		if err != nil {
			return s.fail(req.Type, req.RequestID, err), nil
		}
		return s.ok(req, m, nil), m
	case gamedto.TypeLobbyMake, gamedto.TypeLobbyJoin, gamedto.TypeLobbyList, gamedto.TypeLobbyCancel:
		return s.handleLobby(ctx, c, req)
	default:
		return s.fail(gamedto.TypeError, req.RequestID, match.ErrInvalidArgs), nil
	}
}

func (s *Server) handleCreate(ctx context.Context, c *client, req gamedto.Request) (gamedto.Envelope, *match.Match) {
	v, err := game.ParseVariant(req.Variant)
	if err != nil {
		return s.fail(req.Type, req.RequestID, match.ErrUnsupportedVariant), nil
	}
	me := match.Player{ID: c.player, Name: firstNonEmpty(req.Name, c.name)}
	opp := match.Player{ID: strings.TrimSpace(req.Opponent)}
	switch strings.ToLower(strings.TrimSpace(req.Color)) {
	case "", "random":
		me, opp, err = match.AssignRandom(v, me, opp)
	default:
		me.Color, err = game.ParseColor(req.Color)
		if err == nil {
			sides, serr := match.Sides(v)
			err = serr
			if sides[0] == me.Color {
				opp.Color = sides[1]
			} else {
				opp.Color = sides[0]
			}
		}
	}
	if err != nil {
		return s.fail(req.Type, req.RequestID, match.ErrInvalidArgs), nil
	}
	m, err := s.matches.Create(ctx, v, me, opp)
	if err != nil {
		return s.fail(req.Type, req.RequestID, err), nil
	}
	return s.ok(req, m, nil), m
}

func (s *Server) handleMove(ctx context.Context, c *client, req gamedto.Request) (gamedto.Envelope, *match.Match) {
	from, okFrom := req.Source()
	to, okTo := req.Target()
	if !okFrom || !okTo {
		return s.fail(req.Type, req.RequestID, match.ErrInvalidArgs), nil
	}
	mv := game.MoveRequest{From: toPosition(from), To: toPosition(to), Promotion: req.Promotion}
	for _, p := range req.Path {
		mv.Path = append(mv.Path, toPosition(p))
	}
	m, res, err := s.matches.Play(ctx, req.MatchID, c.player, mv)
	if err != nil {
		env := s.fail(req.Type, req.RequestID, err)
		if m != nil {
			// the clock ran out; the forfeit was stored
			if st, verr := stateView(m, s.catalog, s.now()); verr == nil {
				env.State = st
			}
			return env, m
		}
		return env, nil
	}
	mvDTO := toMove(res.Move)
	env := s.ok(req, m, &mvDTO)
	env.PointsGained = res.PointsGained
	return env, m
}

func (s *Server) handleLobby(ctx context.Context, c *client, req gamedto.Request) (gamedto.Envelope, *match.Match) {
	if s.lobbies == nil {
		return s.fail(req.Type, req.RequestID, match.ErrInvalidArgs), nil
	}
	fail := func(err error) gamedto.Envelope {
		code := lobby.Code(err)
		return gamedto.Fail(req.Type, req.RequestID, gamedto.DomainError{Code: code, Message: s.catalog.Error(code, err.Error())})
	}
	switch req.Type {
	case gamedto.TypeLobbyMake:
		v, err := game.ParseVariant(req.Variant)
		if err != nil {
			return fail(match.ErrUnsupportedVariant), nil
		}
		l, err := s.lobbies.Make(ctx, v, c.player, firstNonEmpty(req.Name, c.name))
		if err != nil {
			return fail(err), nil
		}
		lv := lobbyView(l)
		return gamedto.Envelope{Type: req.Type, RequestID: req.RequestID, Success: true, Lobby: &lv}, nil
	case gamedto.TypeLobbyJoin:
		jr, err := s.lobbies.Join(ctx, req.Code, c.player, firstNonEmpty(req.Name, c.name))
		if err != nil {
			return fail(err), nil
		}
		lv := lobbyView(jr.Lobby)
		if !jr.Started {
			return gamedto.Envelope{Type: req.Type, RequestID: req.RequestID, Success: true, Lobby: &lv}, nil
		}
		m, err := s.matches.Get(ctx, jr.MatchID)
		if err != nil {
			return fail(err), nil
		}
		env := s.ok(req, m, nil)
		env.Lobby = &lv
		return env, m
	case gamedto.TypeLobbyCancel:
		if err := s.lobbies.Cancel(ctx, req.Code, c.player); err != nil {
			return fail(err), nil
		}
		return gamedto.Envelope{Type: req.Type, RequestID: req.RequestID, Success: true}, nil
	default:
		list, err := s.lobbies.ListLobby(ctx)
		if err != nil {
			return fail(err), nil
		}
		out := make([]gamedto.Lobby, 0, len(list))
		for _, l := range list {
			out = append(out, lobbyView(l))
		}
		return gamedto.Envelope{Type: req.Type, RequestID: req.RequestID, Success: true, Lobbies: out}, nil
	}
}

func (s *Server) ok(req gamedto.Request, m *match.Match, mv *gamedto.Move) gamedto.Envelope {
	st, err := stateView(m, s.catalog, s.now())
	if err != nil {
		return s.fail(req.Type, req.RequestID, err)
	}
	return gamedto.Envelope{Type: req.Type, RequestID: req.RequestID, Success: true, State: st, Move: mv}
}

func (s *Server) fail(typ, requestID string, err error) gamedto.Envelope {
	code := match.Code(err)
	return gamedto.Fail(typ, requestID, gamedto.DomainError{
		Code:      code,
		Message:   s.catalog.Error(code, err.Error()),
		Retryable: code == match.CodeConcurrentUpdate,
	})
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
