//go:build sdl2

package sdl2

import "github.com/veandco/go-sdl2/sdl"

// glyphWidth and glyphHeight describe the blocky placeholder font used by
// DrawText: each character is a single filled cell rather than a traced
// glyph, which is enough to label panels in the debug window without
// shipping a bitmap font.
const (
	glyphWidth  = 6
	glyphHeight = 8
)

// DrawText renders text as a row of scaled monospace blocks starting at
// (x, y), one block per non-space character, in the given color.
func DrawText(renderer *sdl.Renderer, text string, x, y int32, scale int32, r, g, b uint8) {
	if renderer == nil {
		return
	}

	renderer.SetDrawColor(r, g, b, 255)

	for i, c := range text {
		if c == ' ' {
			continue
		}
		cellX := x + int32(i)*glyphWidth*scale
		renderer.FillRect(&sdl.Rect{
			X: cellX,
			Y: y,
			W: (glyphWidth - 1) * scale,
			H: glyphHeight * scale,
		})
	}
}
