package codec

import (
	"fmt"
	"io"
)

// EncodeFrame appends the encoding of every row of f, top to bottom, to dst.
func EncodeFrame(dst []byte, f *Frame, bin Binarizer) []byte {
	row := make([]bool, f.Width)
	for y := 0; y < f.Height; y++ {
		bin.Row(f, y, row)
		dst = EncodeRow(dst, row)
	}
	return dst
}

// EncoderOptions configures an Encoder.
type EncoderOptions struct {
	// Header writes a stream header before the first frame.
	Header bool
	// FrameRate is recorded in the header.
	FrameRate uint8
	// Threshold is the binarization threshold; zero selects DefaultThreshold.
	Threshold uint8
}

// Encoder appends encoded frames to an output stream. It keeps one row of
// scratch state and is not safe for concurrent use.
type Encoder struct {
	w    io.Writer
	opts EncoderOptions
	bin  Binarizer

	row []bool
	buf []byte

	width, height int
	frames        int
	written       int64
}

// NewEncoder creates an encoder writing to w.
func NewEncoder(w io.Writer, opts EncoderOptions) *Encoder {
	threshold := opts.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	return &Encoder{
		w:    w,
		opts: opts,
		bin:  Binarizer{Threshold: threshold},
	}
}

// WriteFrame encodes f and writes it row by row. The first frame fixes the
// stream geometry and, if enabled, emits the header; later frames must have
// the same size.
func (e *Encoder) WriteFrame(f *Frame) error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("codec: invalid frame size %dx%d", f.Width, f.Height)
	}

	if e.frames == 0 {
		if err := e.start(f); err != nil {
			return err
		}
	} else if f.Width != e.width || f.Height != e.height {
		return fmt.Errorf("codec: frame size %dx%d does not match stream %dx%d",
			f.Width, f.Height, e.width, e.height)
	}

	for y := 0; y < f.Height; y++ {
		e.bin.Row(f, y, e.row)
		e.buf = EncodeRow(e.buf[:0], e.row)
		if err := e.write(e.buf); err != nil {
			return err
		}
	}

	e.frames++
	return nil
}

func (e *Encoder) start(f *Frame) error {
	e.width, e.height = f.Width, f.Height
	e.row = make([]bool, f.Width)
	e.buf = make([]byte, 0, f.Width)

	if !e.opts.Header {
		return nil
	}
	if f.Width > 0xFFFF || f.Height > 0xFFFF {
		return fmt.Errorf("codec: frame size %dx%d does not fit the stream header", f.Width, f.Height)
	}

	h := Header{Width: uint16(f.Width), Height: uint16(f.Height), FrameRate: e.opts.FrameRate}
	return e.write(h.AppendBinary(make([]byte, 0, HeaderSize)))
}

func (e *Encoder) write(p []byte) error {
	n, err := e.w.Write(p)
	e.written += int64(n)
	if err != nil {
		return fmt.Errorf("codec: write stream: %w", err)
	}
	return nil
}

// Frames returns the number of frames written.
func (e *Encoder) Frames() int {
	return e.frames
}

// BytesWritten returns the number of stream bytes written, header included.
func (e *Encoder) BytesWritten() int64 {
	return e.written
}
