// Package gamedto defines the JSON messages exchanged with game clients.
package gamedto

// Request types
const (
	TypeCreate      = "create"
	TypeState       = "state"
	TypeMoves       = "moves"
	TypeMove        = "move"
	TypeResign      = "resign"
	TypeLobbyMake   = "lobby_make"
	TypeLobbyJoin   = "lobby_join"
	TypeLobbyList   = "lobby_list"
	TypeLobbyCancel = "lobby_cancel"
	TypeUpdate      = "update"
	TypeFinished    = "finished"
	TypeError       = "error"
)

type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Request is one client frame. Fields unused by Type are ignored.
type Request struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
	MatchID   string `json:"match_id,omitempty"`

	// create / lobby_make
	Variant  string `json:"variant,omitempty"`
	Opponent string `json:"opponent,omitempty"`
	Color    string `json:"color,omitempty"`
	Name     string `json:"name,omitempty"`

	// lobby_join / lobby_cancel
	Code string `json:"code,omitempty"`

	MoveRequest
}

// MoveRequest accepts either flat coordinates or structured positions.
// Structured positions win when both are present.
type MoveRequest struct {
	FromRow   *int       `json:"from_row,omitempty"`
	FromCol   *int       `json:"from_col,omitempty"`
	ToRow     *int       `json:"to_row,omitempty"`
	ToCol     *int       `json:"to_col,omitempty"`
	From      *Position  `json:"from,omitempty"`
	To        *Position  `json:"to,omitempty"`
	Promotion string     `json:"promotion,omitempty"`
	Path      []Position `json:"path,omitempty"`
}

// Source returns the origin square, if one was given.
func (m MoveRequest) Source() (Position, bool) { return pick(m.From, m.FromRow, m.FromCol) }

// Target returns the destination square, if one was given.
func (m MoveRequest) Target() (Position, bool) { return pick(m.To, m.ToRow, m.ToCol) }

func pick(p *Position, row, col *int) (Position, bool) {
	if p != nil {
		return *p, true
	}
	if row != nil && col != nil {
		return Position{Row: *row, Col: *col}, true
	}
	return Position{}, false
}
