package render

import (
	"bytes"
	"context"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/park285/cheese-arena/internal/game"
	"github.com/park285/cheese-arena/internal/game/checkers"
	"github.com/park285/cheese-arena/internal/game/chess"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestTextCheckers(t *testing.T) {
	g := checkers.New(checkers.DefaultRules(), game.ClockConfig{}, t0)
	lines := strings.Split(Text(g), "\n")
	if len(lines) != checkers.Size+1 {
		t.Fatalf("lines = %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "10 ") || strings.Count(lines[0], "⛂") != 5 {
		t.Fatalf("top row = %q", lines[0])
	}
	if strings.Count(lines[9], "⛀") != 5 {
		t.Fatalf("bottom row = %q", lines[9])
	}
	if strings.Contains(lines[4], "⛀") || strings.Contains(lines[4], "⛂") {
		t.Fatalf("middle row occupied: %q", lines[4])
	}
}

func TestTextChess(t *testing.T) {
	g := chess.New(chess.DefaultRules(), game.ClockConfig{}, t0)
	lines := strings.Split(Text(g), "\n")
	if lines[0] != " 8 ♜ ♞ ♝ ♛ ♚ ♝ ♞ ♜" {
		t.Fatalf("rank 8 = %q", lines[0])
	}
	if lines[7] != " 1 ♖ ♘ ♗ ♕ ♔ ♗ ♘ ♖" {
		t.Fatalf("rank 1 = %q", lines[7])
	}
	if lines[8] != "   a b c d e f g h" {
		t.Fatalf("files = %q", lines[8])
	}
}

func TestPNG(t *testing.T) {
	grids := []Grid{
		checkers.New(checkers.DefaultRules(), game.ClockConfig{}, t0),
		chess.New(chess.DefaultRules(), game.ClockConfig{}, t0),
	}
	for _, g := range grids {
		data, err := PNG(context.Background(), g, Options{Title: "red vs black", SquareSize: 20, Highlight: &Highlight{From: game.Pos(6, 1), To: game.Pos(5, 0)}})
		if err != nil {
			t.Fatalf("PNG: %v", err)
		}
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		want := g.Dim()*20 + 48
		if img.Bounds().Dx() != want {
			t.Fatalf("width = %d, want %d", img.Bounds().Dx(), want)
		}
	}
}

func TestPNGHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := chess.New(chess.DefaultRules(), game.ClockConfig{}, t0)
	if _, err := PNG(ctx, g, Options{}); err == nil {
		t.Fatalf("expected context error")
	}
}
