// Package ws serves the real-time game protocol over WebSocket plus a few
// plain HTTP endpoints for board snapshots and results.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/park285/cheese-arena/internal/archive"
	"github.com/park285/cheese-arena/internal/lobby"
	"github.com/park285/cheese-arena/internal/match"
	"github.com/park285/cheese-arena/internal/msgcat"
	"github.com/park285/cheese-arena/internal/obslog"
	"github.com/park285/cheese-arena/internal/render"
)

// Results is the read side of the archive.
type Results interface {
	Get(ctx context.Context, matchID string) (*archive.Result, error)
	Recent(ctx context.Context, playerID string, limit int) ([]*archive.Result, error)
}

type Server struct {
	matches *match.Manager
	lobbies *lobby.Manager
	results Results
	catalog *msgcat.Catalog
	hub     *hub
	origins []string
	now     func() time.Time
}

type Option func(*Server)

func WithLobby(l *lobby.Manager) Option { return func(s *Server) { s.lobbies = l } }
func WithResults(r Results) Option { return func(s *Server) { s.results = r } }
func WithOrigins(patterns []string) Option { return func(s *Server) { s.origins = patterns } }
func WithClock(now func() time.Time) Option { return func(s *Server) { s.now = now } }
func WithCatalog(c *msgcat.Catalog) Option { return func(s *Server) { s.catalog = c } }

func NewServer(matches *match.Manager, opts ...Option) *Server {
	s := &Server{matches: matches, hub: newHub(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	if s.catalog == nil {
		s.catalog = msgcat.MustDefault()
	}
	return s
}

// Handler routes:
//
//	GET /ws?player=<id>&name=<name>
//	GET /games/{id}
//	GET /games/{id}/board?format=png|text
//	GET /players/{id}/results?limit=n
//	GET /healthz
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.serveWS)
	mux.HandleFunc("GET /games/{id}", s.serveGame)
	mux.HandleFunc("GET /games/{id}/board", s.serveBoard)
	mux.HandleFunc("GET /players/{id}/results", s.serveResults)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	player := strings.TrimSpace(r.URL.Query().Get("player"))
	if player == "" {
		http.Error(w, "player is required", http.StatusBadRequest)
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  s.origins,
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		obslog.L().Warn("ws_accept_error", zap.String("player_id", player), zap.Error(err))
		return
	}
	c := &client{conn: conn, player: player, name: strings.TrimSpace(r.URL.Query().Get("name"))}
	s.hub.add(c)
	defer s.hub.remove(c)
	obslog.L().Info("ws_connect", zap.String("player_id", player))
	s.readLoop(r.Context(), c)
	obslog.L().Info("ws_disconnect", zap.String("player_id", player))
}

func (s *Server) serveGame(w http.ResponseWriter, r *http.Request) {
	m, err := s.matches.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.httpError(w, err)
		return
	}
	st, err := stateView(m, s.catalog, s.now())
	if err != nil {
		s.httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) serveBoard(w http.ResponseWriter, r *http.Request) {
	m, err := s.matches.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.httpError(w, err)
		return
	}
	eng, err := m.Engine()
	if err != nil {
		s.httpError(w, err)
		return
	}
	if strings.EqualFold(r.URL.Query().Get("format"), "text") {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(render.Text(eng)))
		return
	}
	opts := render.Options{Title: boardTitle(m, eng)}
	if h := eng.History(); len(h) > 0 {
		last := h[len(h)-1]
		opts.Highlight = &render.Highlight{From: last.From, To: last.To}
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	img, err := render.PNG(ctx, eng, opts)
	if err != nil {
		obslog.L().Error("board_render_error", zap.String("match_id", m.ID), zap.Error(err))
		s.httpError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(img)
}

func boardTitle(m *match.Match, eng match.Engine) string {
	if m.Outcome.Over {
		return strings.ToUpper(string(m.Variant)) + " " + match.ResultToken(m.Variant, m.Outcome)
	}
	return strings.ToUpper(string(m.Variant)) + " " + eng.Turn().String() + " to move"
}

func (s *Server) serveResults(w http.ResponseWriter, r *http.Request) {
	if s.results == nil {
		http.Error(w, "archive disabled", http.StatusNotFound)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := s.results.Recent(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		s.httpError(w, err)
		return
	}
	if list == nil {
		list = []*archive.Result{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) httpError(w http.ResponseWriter, err error) {
	code := match.Code(err)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, match.ErrMatchNotFound), errors.Is(err, archive.ErrNotFound):
		status = http.StatusNotFound
	case code == match.CodeInvalidRequest:
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error_code": code, "error_message": s.catalog.Error(code, err.Error())})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
