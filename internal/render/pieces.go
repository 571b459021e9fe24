package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/park285/cheese-arena/internal/game"
)

type tokenKey struct {
	color   game.Color
	crowned bool
	size    int
}

var (
	tokenCache   = map[tokenKey]image.Image{}
	tokenCacheMu sync.RWMutex
)

var tokenFill = map[game.Color][2]string{
	game.Red:   {"#c0392b", "#7b1d14"},
	game.Black: {"#2b2b2b", "#0d0d0d"},
	game.White: {"#f4f1ea", "#6d6a63"},
}

// tokenSVG is a round piece; crowned pieces get an inner ring.
func tokenSVG(c game.Color, crowned bool) []byte {
	fill := tokenFill[c]
	var ring string
	if crowned {
		ring = `<circle cx="50" cy="50" r="24" fill="none" stroke="#f1c40f" stroke-width="7"/>`
	}
	return []byte(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100">`+
		`<circle cx="50" cy="53" r="40" fill="#000000" fill-opacity="0.25"/>`+
		`<circle cx="50" cy="50" r="40" fill="%s" stroke="%s" stroke-width="5"/>%s</svg>`, fill[0], fill[1], ring))
}

func renderToken(c game.Color, crowned bool, size int) (image.Image, error) {
	key := tokenKey{color: c, crowned: crowned, size: size}

	tokenCacheMu.RLock()
	if img, ok := tokenCache[key]; ok {
		tokenCacheMu.RUnlock()
		return img, nil
	}
	tokenCacheMu.RUnlock()

	icon, err := oksvg.ReadIconStream(bytes.NewReader(tokenSVG(c, crowned)))
	if err != nil {
		return nil, fmt.Errorf("parse token svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	tokenCacheMu.Lock()
	tokenCache[key] = img
	tokenCacheMu.Unlock()

	return img, nil
}

// crowned glyphs: checkers kings are drawn with a ring
func isCrowned(r rune) bool { return r == '⛁' || r == '⛃' }

// chessLetters maps chess glyphs to the letter stamped on the token.
var chessLetters = map[rune]string{
	'♔': "K", '♕': "Q", '♖': "R", '♗': "B", '♘': "N", '♙': "P",
	'♚': "K", '♛': "Q", '♜': "R", '♝': "B", '♞': "N", '♟': "P",
}
