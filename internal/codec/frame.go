package codec

import (
	"image"
	"image/color"
)

// Frame is an RGB24 pixel grid stored row-major, three bytes per pixel.
type Frame struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewFrame allocates a black frame of the given size.
func NewFrame(width, height int) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, 3*width*height),
	}
}

// Stride returns the number of bytes per row.
func (f *Frame) Stride() int {
	return 3 * f.Width
}

// RGB returns the channels of the pixel at (x, y).
func (f *Frame) RGB(x, y int) (r, g, b uint8) {
	i := y*f.Stride() + 3*x
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// SetRGB sets the pixel at (x, y).
func (f *Frame) SetRGB(x, y int, r, g, b uint8) {
	i := y*f.Stride() + 3*x
	f.Pix[i], f.Pix[i+1], f.Pix[i+2] = r, g, b
}

// SetGray sets the pixel at (x, y) to v on all three channels.
func (f *Frame) SetGray(x, y int, v uint8) {
	f.SetRGB(x, y, v, v, v)
}

// fillGray sets n pixels of row y starting at column x to v.
func (f *Frame) fillGray(y, x, n int, v uint8) {
	start := y*f.Stride() + 3*x
	seg := f.Pix[start : start+3*n]
	for i := range seg {
		seg[i] = v
	}
}

// Clear resets every pixel to black.
func (f *Frame) Clear() {
	for i := range f.Pix {
		f.Pix[i] = 0
	}
}

// Bounds implements image.Image.
func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

// ColorModel implements image.Image.
func (f *Frame) ColorModel() color.Model {
	return color.RGBAModel
}

// At implements image.Image.
func (f *Frame) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return color.RGBA{}
	}
	r, g, b := f.RGB(x, y)
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// FrameFromImage copies any image into a new Frame with origin at (0, 0).
// Alpha is ignored.
func FrameFromImage(img image.Image) *Frame {
	bounds := img.Bounds()
	f := NewFrame(bounds.Dx(), bounds.Dy())
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			f.SetRGB(x, y, uint8(r>>8), uint8(g>>8), uint8(b>>8))
		}
	}
	return f
}
