package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/cheese-arena/internal/game"
)

// Highlight marks the last move.
type Highlight struct {
	From game.Position
	To   game.Position
}

type Options struct {
	Title      string
	Highlight  *Highlight
	SquareSize int
}

var (
	lightSquare    = color.RGBA{233, 207, 163, 255}
	darkSquare     = color.RGBA{187, 136, 96, 255}
	highlightFill  = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	hudPanelColor  = color.NRGBA{R: 28, G: 31, B: 46, A: 250}
	hudTextPrimary = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	labelColor     = color.NRGBA{R: 40, G: 30, B: 20, A: 200}
	letterDark     = color.NRGBA{R: 20, G: 20, B: 20, A: 255}
	letterLight    = color.NRGBA{R: 240, G: 240, B: 240, A: 255}
)

// PNG rasterizes g with a title bar and square labels.
func PNG(ctx context.Context, g Grid, opts Options) ([]byte, error) {
	if g == nil {
		return nil, fmt.Errorf("grid is nil")
	}
	squareSize := opts.SquareSize
	if squareSize <= 0 {
		squareSize = 56
	}
	const (
		margin    = 24
		hudHeight = 32
		gapToHUD  = 12
	)
	n := g.Dim()
	boardSize := n * squareSize
	origin := image.Point{X: margin, Y: margin + hudHeight + gapToHUD}
	img := image.NewRGBA(image.Rect(0, 0, boardSize+margin*2, origin.Y+boardSize+margin))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, imagedraw.Src)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	drawTitle(img, opts.Title, image.Rect(margin, margin, margin+boardSize, margin+hudHeight))
	drawSquares(img, g, squareSize, origin)
	if h := opts.Highlight; h != nil {
		for _, p := range []game.Position{h.From, h.To} {
			if p.InBounds(n) {
				imagedraw.Draw(img, squareRect(p, squareSize, origin), image.NewUniform(highlightFill), image.Point{}, imagedraw.Over)
			}
		}
	}
	if err := drawPieces(img, g, squareSize, origin); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func squareRect(p game.Position, size int, origin image.Point) image.Rectangle {
	x := origin.X + p.Col*size
	y := origin.Y + p.Row*size
	return image.Rect(x, y, x+size, y+size)
}

func drawSquares(dst *image.RGBA, g Grid, size int, origin image.Point) {
	n := g.Dim()
	face := basicfont.Face7x13
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			cell := g.Cell(r, c)
			clr := lightSquare
			if cell.Dark {
				clr = darkSquare
			}
			rect := squareRect(game.Pos(r, c), size, origin)
			imagedraw.Draw(dst, rect, image.NewUniform(clr), image.Point{}, imagedraw.Src)
			if cell.Label != "" {
				d := font.Drawer{Dst: dst, Src: image.NewUniform(labelColor), Face: face}
				d.Dot = fixed.P(rect.Min.X+2, rect.Min.Y+face.Ascent+1)
				d.DrawString(cell.Label)
			}
		}
	}
}

func drawPieces(dst *image.RGBA, g Grid, size int, origin image.Point) error {
	n := g.Dim()
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			cell := g.Cell(r, c)
			if !cell.Occupied {
				continue
			}
			token, err := renderToken(cell.Color, isCrowned(cell.Glyph), size)
			if err != nil {
				return err
			}
			rect := squareRect(game.Pos(r, c), size, origin)
			imagedraw.Draw(dst, rect, token, image.Point{}, imagedraw.Over)
			if letter, ok := chessLetters[cell.Glyph]; ok {
				ink := letterLight
				if cell.Color == game.White {
					ink = letterDark
				}
				drawCentered(dst, letter, rect, ink)
			}
		}
	}
	return nil
}

func drawTitle(dst *image.RGBA, title string, rect image.Rectangle) {
	title = strings.TrimSpace(title)
	if title == "" {
		return
	}
	imagedraw.Draw(dst, rect, image.NewUniform(hudPanelColor), image.Point{}, imagedraw.Over)
	drawCentered(dst, truncate(title, rect.Dx()-16), rect, hudTextPrimary)
}

func drawCentered(dst *image.RGBA, text string, rect image.Rectangle, clr color.Color) {
	face := basicfont.Face7x13
	d := font.Drawer{Dst: dst, Src: image.NewUniform(clr), Face: face}
	w := d.MeasureString(text).Round()
	x := rect.Min.X + (rect.Dx()-w)/2
	y := rect.Min.Y + (rect.Dy()+face.Ascent-face.Descent)/2
	d.Dot = fixed.P(x, y)
	d.DrawString(text)
}

func truncate(text string, maxWidth int) string {
	d := font.Drawer{Face: basicfont.Face7x13}
	if d.MeasureString(text).Round() <= maxWidth {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		if candidate := string(runes) + "..."; d.MeasureString(candidate).Round() <= maxWidth {
			return candidate
		}
	}
	return ""
}
