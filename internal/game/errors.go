package game

import "errors"

var (
	ErrInvalidPosition = errors.New("invalid position")
	ErrIllegalMove     = errors.New("illegal move")
	ErrNotYourTurn     = errors.New("not your turn")
	ErrGameAlreadyOver = errors.New("game already over")
)

// Error codes exposed to clients.
const (
	CodeInvalidPosition = "INVALID_POSITION"
	CodeIllegalMove     = "ILLEGAL_MOVE"
	CodeNotYourTurn     = "NOT_YOUR_TURN"
	CodeGameAlreadyOver = "GAME_ALREADY_OVER"
	CodeInternal        = "INTERNAL"
)

// Code maps a rules error to its client-facing code. Unknown errors are INTERNAL.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidPosition):
		return CodeInvalidPosition
	case errors.Is(err, ErrIllegalMove):
		return CodeIllegalMove
	case errors.Is(err, ErrNotYourTurn):
		return CodeNotYourTurn
	case errors.Is(err, ErrGameAlreadyOver):
		return CodeGameAlreadyOver
	default:
		return CodeInternal
	}
}
