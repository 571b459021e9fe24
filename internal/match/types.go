// Package match runs live games: it stores serialized engine state, serializes
// moves per match and reports finished results to the archive and notifier.
package match

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/park285/cheese-arena/internal/game"
)

// Status is the lifecycle of a stored match.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusFinished Status = "FINISHED"
)

// Player is one participant and the side they play.
type Player struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Color game.Color `json:"color"`
}

// Match is the persisted record of a game. State holds the engine snapshot.
type Match struct {
	ID        string          `json:"id"`
	Variant   game.Variant    `json:"variant"`
	Status    Status          `json:"status"`
	Players   [2]Player       `json:"players"`
	State     json.RawMessage `json:"state"`
	Version   int64           `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Winner    string          `json:"winner,omitempty"`
	Outcome   game.Outcome    `json:"outcome"`
}

// Player returns the participant with the given ID.
func (m *Match) Player(id string) (Player, bool) {
	id = strings.TrimSpace(id)
	for _, p := range m.Players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}

// PlayerByColor returns the participant playing c.
func (m *Match) PlayerByColor(c game.Color) (Player, bool) {
	for _, p := range m.Players {
		if p.Color == c {
			return p, true
		}
	}
	return Player{}, false
}

// Engine decodes the stored state into a playable engine.
func (m *Match) Engine() (Engine, error) { return restoreEngine(m.Variant, m.State) }

func (m *Match) clone() *Match {
	c := *m
	c.State = append(json.RawMessage(nil), m.State...)
	return &c
}

// Errors
var (
	ErrMatchNotFound      = errors.New("match not found")
	ErrNotParticipant     = errors.New("player is not in this match")
	ErrConcurrentUpdate   = errors.New("match was updated concurrently")
	ErrPlayerBusy         = errors.New("player already has an active match")
	ErrInvalidArgs        = errors.New("invalid arguments")
	ErrMatchFinished      = errors.New("match already finished")
	ErrUnsupportedVariant = errors.New("unsupported variant")
)

// Service-level error codes.
const (
	CodeGameNotFound     = "GAME_NOT_FOUND"
	CodeNotAParticipant  = "NOT_A_PARTICIPANT"
	CodeConcurrentUpdate = "CONCURRENT_UPDATE"
	CodePlayerBusy       = "PLAYER_BUSY"
	CodeInvalidRequest   = "INVALID_REQUEST"
)

// Code maps service and rules errors to client-facing codes.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMatchNotFound):
		return CodeGameNotFound
	case errors.Is(err, ErrNotParticipant):
		return CodeNotAParticipant
	case errors.Is(err, ErrConcurrentUpdate):
		return CodeConcurrentUpdate
	case errors.Is(err, ErrPlayerBusy):
		return CodePlayerBusy
	case errors.Is(err, ErrInvalidArgs), errors.Is(err, ErrUnsupportedVariant):
		return CodeInvalidRequest
	case errors.Is(err, ErrMatchFinished):
		return game.CodeGameAlreadyOver
	default:
		return game.Code(err)
	}
}
