package codec

// MaxRun is the longest run a single byte can hold.
const MaxRun = 255

// RunFunc receives one run of a scanline: the column it starts at, the
// number of pixels it covers (possibly zero) and its colour.
type RunFunc func(x, n int, white bool)

// EncodeRow appends the run-length encoding of a binarized row to dst.
//
// The first byte always counts black pixels and is zero when the row starts
// white. A run reaching MaxRun is flushed and the expected colour flips, so a
// longer run continues after an empty run of the other colour. The emitted
// bytes always sum to len(row).
func EncodeRow(dst []byte, row []bool) []byte {
	expected := false
	counter := 0

	for _, white := range row {
		if white == expected {
			counter++
			if counter == MaxRun {
				dst = append(dst, MaxRun)
				counter = 0
				expected = !expected
			}
			continue
		}

		dst = append(dst, byte(counter))
		counter = 1
		expected = !expected
	}

	if counter > 0 {
		dst = append(dst, byte(counter))
	}
	return dst
}

// ScanRow walks the runs of one scanline of the given width starting at
// stream[offset]. It returns the number of bytes consumed and whether the row
// was completed; a false result means the stream ended first.
//
// Every byte flips the colour after it is applied, so an empty run resumes
// the colour that preceded it. A run that would run past the row end is
// clipped to the remaining width. fn may be nil.
func ScanRow(stream []byte, offset, width int, fn RunFunc) (consumed int, complete bool) {
	white := false
	x := 0

	for x < width {
		if offset+consumed >= len(stream) {
			return consumed, false
		}
		n := int(stream[offset+consumed])
		consumed++

		if n > width-x {
			n = width - x
		}
		if fn != nil {
			fn(x, n, white)
		}
		x += n
		white = !white
	}
	return consumed, true
}

// DecodeRow reconstructs one scanline into dst, whose length is the row
// width, and reports the bytes consumed and whether the row was completed.
func DecodeRow(stream []byte, offset int, dst []bool) (int, bool) {
	return ScanRow(stream, offset, len(dst), func(x, n int, white bool) {
		for i := x; i < x+n; i++ {
			dst[i] = white
		}
	})
}
