package codec

// PixelRunFunc receives one run of a frame: the row, the starting column,
// the run length and its colour.
type PixelRunFunc func(y, x, n int, white bool)

// ScanFrame walks height scanlines of the given width starting at
// stream[offset] and returns the number of bytes the frame occupies.
//
// If the stream ends before height rows are complete the result is 0 and no
// frame is available; callers treat this as the end of the stream. Runs of a
// frame that turns out to be incomplete have already been passed to fn.
// fn may be nil, which only locates the frame boundary.
func ScanFrame(stream []byte, offset, width, height int, fn PixelRunFunc) int {
	total := 0

	for y := 0; y < height; y++ {
		var rowFn RunFunc
		if fn != nil {
			row := y
			rowFn = func(x, n int, white bool) { fn(row, x, n, white) }
		}

		consumed, complete := ScanRow(stream, offset+total, width, rowFn)
		total += consumed
		if !complete {
			return 0
		}
	}
	return total
}

// FrameSize returns the encoded size of the frame starting at stream[offset],
// or 0 when no complete frame is available.
func FrameSize(stream []byte, offset, width, height int) int {
	return ScanFrame(stream, offset, width, height, nil)
}

// DecodeFrame reconstructs the frame starting at stream[offset] into dst,
// whose dimensions select the frame geometry. Pixels are written as 0 or 255
// on all channels. It returns the bytes consumed, or 0 when no complete frame
// is available, in which case dst holds a partial frame and must be ignored.
func DecodeFrame(stream []byte, offset int, dst *Frame) int {
	return ScanFrame(stream, offset, dst.Width, dst.Height, func(y, x, n int, white bool) {
		var v uint8
		if white {
			v = 255
		}
		dst.fillGray(y, x, n, v)
	})
}
