// Package lobby pairs players through short join codes and starts a match
// once the second participant arrives.
package lobby

import (
	"errors"
	"time"

	"github.com/park285/cheese-arena/internal/game"
	"github.com/park285/cheese-arena/internal/match"
)

// State is the lifecycle of a lobby.
type State string

const (
	StateOpen     State = "OPEN"
	StateStarted  State = "STARTED"
	StateCanceled State = "CANCELED"
)

// Lobby is stored as JSON under lobby:<code>.
type Lobby struct {
	Code      string       `json:"code"`
	Variant   game.Variant `json:"variant"`
	State     State        `json:"state"`
	CreatedAt time.Time    `json:"created_at"`

	CreatorID   string `json:"creator_id"`
	CreatorName string `json:"creator_name"`

	MatchID string `json:"match_id,omitempty"`
}

type JoinResult struct {
	Started bool
	MatchID string
	Lobby   *Lobby
}

// Errors
var (
	ErrInvalidArgs     = errors.New("invalid arguments")
	ErrLobbyGone       = errors.New("lobby not found or expired")
	ErrLobbyStarted    = errors.New("lobby already started")
	ErrFull            = errors.New("lobby already has two participants")
	ErrCreatorHasLobby = errors.New("player already has an open lobby")
	ErrNotCreator      = errors.New("only the creator can cancel a lobby")
)

// Code maps lobby errors to client-facing codes and defers to match.Code otherwise.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrLobbyGone):
		return "LOBBY_GONE"
	case errors.Is(err, ErrLobbyStarted), errors.Is(err, ErrFull):
		return "LOBBY_STARTED"
	case errors.Is(err, ErrCreatorHasLobby):
		return "LOBBY_EXISTS"
	case errors.Is(err, ErrInvalidArgs), errors.Is(err, ErrNotCreator):
		return match.CodeInvalidRequest
	default:
		return match.Code(err)
	}
}
