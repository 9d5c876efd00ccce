package preview

import (
	"strings"

	"github.com/zsiec/bwrle/internal/codec"
)

// Half-block glyphs indexed by (top white)<<1 | (bottom white).
var blocks = [4]string{" ", "▄", "▀", "█"}

// scale returns the pixel step that fits a w x h frame into cols x rows
// terminal cells, two pixel rows per cell. Frames are never upscaled.
func scale(w, h, cols, rows int) int {
	if cols <= 0 || rows <= 0 {
		return 1
	}
	step := 1
	for w/step > cols || (h+step*2-1)/(step*2) > rows {
		step++
	}
	return step
}

// Render draws f as half-block characters fitting cols x rows cells.
func Render(f *codec.Frame, cols, rows int) string {
	if f == nil || f.Width == 0 || f.Height == 0 {
		return ""
	}

	step := scale(f.Width, f.Height, cols, rows)
	outW := f.Width / step
	if outW == 0 {
		outW = 1
	}

	var b strings.Builder
	for y := 0; y < f.Height; y += 2 * step {
		if y > 0 {
			b.WriteByte('\n')
		}
		for cx := 0; cx < outW; cx++ {
			x := cx * step
			idx := 0
			if white(f, x, y) {
				idx |= 2
			}
			if y+step < f.Height && white(f, x, y+step) {
				idx |= 1
			}
			b.WriteString(blocks[idx])
		}
	}
	return b.String()
}

func white(f *codec.Frame, x, y int) bool {
	r, _, _ := f.RGB(x, y)
	return r >= 128
}
