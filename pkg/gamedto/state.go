package gamedto

import (
	"encoding/json"
	"time"
)

type Player struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Color string `json:"color"`
}

type Move struct {
	From      Position   `json:"from"`
	To        Position   `json:"to"`
	Captured  []Position `json:"captured,omitempty"`
	Points    int        `json:"points_earned"`
	Promotion string     `json:"promotion,omitempty"`
	Notation  string     `json:"notation,omitempty"`
}

// State is a match as shown to clients. Game is the engine snapshot; Clock
// holds live remaining seconds per color when a clock is running.
type State struct {
	MatchID   string             `json:"match_id"`
	Variant   string             `json:"variant"`
	Status    string             `json:"status"`
	Version   int64              `json:"version"`
	Players   []Player           `json:"players"`
	Winner    string             `json:"winner_id,omitempty"`
	Summary   string             `json:"summary,omitempty"`
	Clock     map[string]float64 `json:"clock,omitempty"`
	Deadline  *time.Time         `json:"move_deadline,omitempty"`
	UpdatedAt time.Time          `json:"updated_at"`
	Game      json.RawMessage    `json:"game"`
}

type Lobby struct {
	Code      string    `json:"code"`
	Variant   string    `json:"variant"`
	State     string    `json:"state"`
	CreatorID string    `json:"creator_id"`
	MatchID   string    `json:"match_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Envelope wraps every server frame.
type Envelope struct {
	Type         string  `json:"type"`
	RequestID    string  `json:"request_id,omitempty"`
	Success      bool    `json:"success"`
	PointsGained int     `json:"points_gained"`
	ErrorCode    string  `json:"error_code,omitempty"`
	ErrorMessage string  `json:"error_message,omitempty"`
	State        *State  `json:"state,omitempty"`
	Move         *Move   `json:"move,omitempty"`
	Moves        []Move  `json:"moves,omitempty"`
	Lobby        *Lobby  `json:"lobby,omitempty"`
	Lobbies      []Lobby `json:"lobbies,omitempty"`
}

// Fail builds an error envelope.
func Fail(typ, requestID string, e DomainError) Envelope {
	return Envelope{Type: typ, RequestID: requestID, ErrorCode: e.Code, ErrorMessage: e.Message}
}
