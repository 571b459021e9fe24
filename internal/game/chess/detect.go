package chess

import (
	"fmt"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/cheese-arena/internal/game"
)

// FiftyMoveLimit is the halfmove clock value that draws the game.
const FiftyMoveLimit = 100

// IsInCheck reports whether c's king is attacked.
func (b *Board) IsInCheck(c game.Color) bool {
	squares := b.pos.Board().SquareMap()
	king := nchess.NoSquare
	for sq, p := range squares {
		if p.Type() != nchess.King {
			continue
		}
		if colorOf(p.Color()) == c {
			king = sq
		} else {
			delete(squares, sq)
		}
	}
	if king == nchess.NoSquare {
		return false
	}
	// with the attacker's king removed every capture it has is legal, pinned pieces included
	fen := nchess.NewBoard(squares).String() + " " + libColor(Opponent(c)).String() + " - - 0 1"
	pos, err := decodePosition(fen)
	if err != nil {
		return false
	}
	for _, m := range pos.ValidMoves() {
		if m.S2() == king {
			return true
		}
	}
	return false
}

// HasLegalMoves reports whether c has at least one legal move.
func (b *Board) HasLegalMoves(c game.Color) bool { return len(b.legal(c)) > 0 }

func (b *Board) IsCheckmate(c game.Color) bool { return b.IsInCheck(c) && !b.HasLegalMoves(c) }

func (b *Board) IsStalemate(c game.Color) bool { return !b.IsInCheck(c) && !b.HasLegalMoves(c) }

// InsufficientMaterial reports a dead position: K v K, K+minor v K, or
// bishops only, all on one square color.
func (b *Board) InsufficientMaterial() bool {
	ng, err := libGame(b.FEN())
	return err == nil && ng.Method() == nchess.InsufficientMaterial
}

// CheckGameOver evaluates the position for the side to move.
func CheckGameOver(b *Board) game.Outcome {
	ng, err := libGame(b.FEN())
	if err != nil {
		panic("chess: reopen position: " + err.Error())
	}
	return outcomeOf(ng.Method(), b.Turn(), b.Halfmove())
}

// outcomeOf maps the library's verdict for a position with turn to move.
// Repetition draws are not ruled on.
func outcomeOf(method nchess.Method, turn game.Color, halfmove int) game.Outcome {
	switch method {
	case nchess.Checkmate:
		return game.Win(game.StatusCheckmate, Opponent(turn), fmt.Sprintf("%s is checkmated", turn))
	case nchess.Stalemate:
		return game.Draw(game.StatusStalemate, fmt.Sprintf("%s has no legal moves", turn))
	case nchess.InsufficientMaterial:
		return game.Draw(game.StatusInsufficientMaterial, "insufficient material to mate")
	}
	if halfmove >= FiftyMoveLimit {
		return game.Draw(game.StatusFiftyMoveRule, "fifty moves without a capture or pawn move")
	}
	return game.InProgress()
}
