package codec

// DefaultThreshold is the luminance above which a pixel is white.
const DefaultThreshold = 127

// IsWhite reports whether the average of the three channels exceeds
// DefaultThreshold. The average is compared exactly, without integer
// truncation, so (r+g+b)/3 > 127 is evaluated as r+g+b > 381.
func IsWhite(r, g, b uint8) bool {
	return int(r)+int(g)+int(b) > 3*DefaultThreshold
}

// Binarizer classifies pixels against a configurable luminance threshold.
// The zero value uses a threshold of 0; use NewBinarizer for the default.
type Binarizer struct {
	Threshold uint8
}

// NewBinarizer returns a Binarizer using DefaultThreshold.
func NewBinarizer() Binarizer {
	return Binarizer{Threshold: DefaultThreshold}
}

// White reports whether the pixel's average luminance is above the threshold.
func (b Binarizer) White(r, g, bl uint8) bool {
	return int(r)+int(g)+int(bl) > 3*int(b.Threshold)
}

// Row binarizes row y of f into dst, which must hold f.Width values.
func (b Binarizer) Row(f *Frame, y int, dst []bool) {
	p := f.Pix[y*f.Stride():]
	for x := range dst[:f.Width] {
		i := 3 * x
		dst[x] = b.White(p[i], p[i+1], p[i+2])
	}
}
