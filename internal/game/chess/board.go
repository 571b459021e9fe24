// Package chess implements 8x8 competitive chess on top of corentings/chess:
// the library owns the position and legal move set, this package adds scoring,
// clocks and the shared board model.
package chess

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/cheese-arena/internal/game"
)

// Size is the board edge length. Row 0 is rank 8, column 0 is file a.
const Size = 8

// Kind is a chess piece type. The zero value marks an empty square.
type Kind uint8

const (
	NoKind Kind = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

var kindNames = [...]string{"", "pawn", "knight", "bishop", "rook", "queen", "king"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return ""
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	s := strings.ToLower(string(b))
	for i, n := range kindNames {
		if i > 0 && n == s {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown chess piece %q", b)
}

// Value is the material value used for scoring captures.
func (k Kind) Value() int {
	switch k {
	case Pawn:
		return 1
	case Knight, Bishop:
		return 3
	case Rook:
		return 5
	case Queen:
		return 9
	default:
		return 0
	}
}

var libKinds = [...]nchess.PieceType{
	NoKind: nchess.NoPieceType,
	Pawn:   nchess.Pawn,
	Knight: nchess.Knight,
	Bishop: nchess.Bishop,
	Rook:   nchess.Rook,
	Queen:  nchess.Queen,
	King:   nchess.King,
}

func kindOf(t nchess.PieceType) Kind {
	for k, lt := range libKinds {
		if k > 0 && lt == t {
			return Kind(k)
		}
	}
	return NoKind
}

// Piece is a chess piece on the board.
type Piece struct {
	Kind  Kind       `json:"type"`
	Color game.Color `json:"color"`
}

func (p Piece) IsEmpty() bool { return p.Kind == NoKind }

func pieceOf(p nchess.Piece) Piece {
	if p == nchess.NoPiece {
		return Piece{}
	}
	return Piece{Kind: kindOf(p.Type()), Color: colorOf(p.Color())}
}

func (p Piece) lib() nchess.Piece {
	if p.IsEmpty() {
		return nchess.NoPiece
	}
	return nchess.NewPiece(libKinds[p.Kind], libColor(p.Color))
}

func colorOf(c nchess.Color) game.Color {
	switch c {
	case nchess.White:
		return game.White
	case nchess.Black:
		return game.Black
	default:
		return game.NoColor
	}
}

func libColor(c game.Color) nchess.Color {
	switch c {
	case game.White:
		return nchess.White
	case game.Black:
		return nchess.Black
	default:
		return nchess.NoColor
	}
}

func square(p game.Position) nchess.Square {
	return nchess.NewSquare(nchess.File(p.Col), nchess.Rank(Size-1-p.Row))
}

func positionOf(sq nchess.Square) game.Position {
	return game.Pos(Size-1-int(sq.Rank()), int(sq.File()))
}

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// fenMu serializes FEN decoding; the library decodes ranks into a package-level buffer.
var fenMu sync.Mutex

func decodePosition(fen string) (*nchess.Position, error) {
	fenMu.Lock()
	defer fenMu.Unlock()
	pos := &nchess.Position{}
	if err := pos.UnmarshalText([]byte(fen)); err != nil {
		return nil, err
	}
	return pos, nil
}

// libGame opens a library game at fen. Its outcome reflects the position only,
// since a game restored from FEN has no earlier positions to repeat.
func libGame(fen string) (*nchess.Game, error) {
	fenMu.Lock()
	defer fenMu.Unlock()
	opt, err := nchess.FEN(fen)
	if err != nil {
		return nil, err
	}
	return nchess.NewGame(opt), nil
}

// Board is a full chess position. The zero value is not usable; use NewBoard
// or ParseFEN.
type Board struct {
	pos *nchess.Position
}

// NewBoard returns the standard starting position.
func NewBoard() *Board {
	b, err := ParseFEN(StartFEN)
	if err != nil {
		panic(err)
	}
	return b
}

// ParseFEN decodes a FEN string. Clock fields are optional.
func ParseFEN(fen string) (*Board, error) {
	fields := strings.Fields(fen)
	switch len(fields) {
	case 4:
		fields = append(fields, "0", "1")
	case 6:
	default:
		return nil, fmt.Errorf("fen %q: want 4 or 6 fields", fen)
	}
	pos, err := decodePosition(strings.Join(fields, " "))
	if err != nil {
		return nil, fmt.Errorf("fen %q: %w", fen, err)
	}
	var kings, count [4]int
	for _, p := range pos.Board().SquareMap() {
		c := colorOf(p.Color())
		count[c]++
		if p.Type() == nchess.King {
			kings[c]++
		}
	}
	if kings[game.White] != 1 || kings[game.Black] != 1 {
		return nil, fmt.Errorf("fen %q: each side needs exactly one king", fen)
	}
	if count[game.White] > 16 || count[game.Black] > 16 {
		return nil, fmt.Errorf("fen %q: more than 16 pieces for a side", fen)
	}
	return &Board{pos: pos}, nil
}

// Piece returns the piece at p.
func (b *Board) Piece(p game.Position) (Piece, error) {
	if !p.InBounds(Size) {
		return Piece{}, fmt.Errorf("%v: %w", p, game.ErrInvalidPosition)
	}
	return b.at(p), nil
}

// SetPiece overwrites the square at p. The side to move, castling rights and
// clocks are kept; an en passant target is dropped.
func (b *Board) SetPiece(p game.Position, pc Piece) error {
	if !p.InBounds(Size) {
		return fmt.Errorf("%v: %w", p, game.ErrInvalidPosition)
	}
	squares := b.pos.Board().SquareMap()
	if pc.IsEmpty() {
		delete(squares, square(p))
	} else {
		squares[square(p)] = pc.lib()
	}
	fields := strings.Fields(b.pos.String())
	fields[0] = nchess.NewBoard(squares).String()
	fields[3] = "-"
	pos, err := decodePosition(strings.Join(fields, " "))
	if err != nil {
		return fmt.Errorf("set %s: %w", SquareName(p), err)
	}
	b.pos = pos
	return nil
}

func (b *Board) at(p game.Position) Piece { return pieceOf(b.pos.Board().Piece(square(p))) }

// Clone returns an independent board. Library positions are never mutated in
// place, so the copy may share one.
func (b *Board) Clone() *Board {
	c := *b
	return &c
}

func (b *Board) Turn() game.Color { return colorOf(b.pos.Turn()) }

// Castling returns the remaining rights in FEN form, "-" when none.
func (b *Board) Castling() string { return b.pos.CastleRights().String() }

// EnPassant returns the square a pawn skipped on the last move.
func (b *Board) EnPassant() (game.Position, bool) {
	sq := b.pos.EnPassantSquare()
	if sq == nchess.NoSquare {
		return game.Position{}, false
	}
	return positionOf(sq), true
}

// Halfmove is the number of plies since the last capture or pawn move.
func (b *Board) Halfmove() int { return b.pos.HalfMoveClock() }

// Fullmove is the FEN move number.
func (b *Board) Fullmove() int {
	fields := strings.Fields(b.pos.String())
	n, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil {
		return 1
	}
	return n
}

// FEN encodes the position in Forsyth-Edwards Notation.
func (b *Board) FEN() string { return b.pos.String() }

// Rows serializes the board as a row-major nested list, rank 8 first.
func (b *Board) Rows() [][]*Piece {
	out := make([][]*Piece, Size)
	for r := range out {
		out[r] = make([]*Piece, Size)
	}
	for sq, p := range b.pos.Board().SquareMap() {
		pos := positionOf(sq)
		pc := pieceOf(p)
		out[pos.Row][pos.Col] = &pc
	}
	return out
}

// SquareName returns the algebraic name of p, e.g. "e4".
func SquareName(p game.Position) string {
	if !p.InBounds(Size) {
		return "-"
	}
	return square(p).String()
}

// ParseSquare is the inverse of SquareName.
func ParseSquare(s string) (game.Position, error) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return game.Position{}, fmt.Errorf("square %q: %w", s, game.ErrInvalidPosition)
	}
	return game.Pos(Size-int(s[1]-'0'), int(s[0]-'a')), nil
}

var (
	whiteGlyphs = [...]rune{0, '♙', '♘', '♗', '♖', '♕', '♔'}
	blackGlyphs = [...]rune{0, '♟', '♞', '♝', '♜', '♛', '♚'}
)

// Glyph returns the Unicode chess symbol for pc.
func Glyph(pc Piece) rune {
	if pc.IsEmpty() {
		return 0
	}
	if pc.Color == game.White {
		return whiteGlyphs[pc.Kind]
	}
	return blackGlyphs[pc.Kind]
}
