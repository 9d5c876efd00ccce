package codec

import "fmt"

// Format describes how a stream is laid out.
type Format struct {
	Width     int
	Height    int
	FrameRate uint8
	// Header reports whether the stream starts with a Header.
	Header bool
}

// RawFormat is the header-less 320x240 variant at the default frame rate.
func RawFormat() Format {
	return Format{Width: DefaultWidth, Height: DefaultHeight, FrameRate: DefaultFrameRate}
}

// Validate checks that the geometry is usable.
func (f Format) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("codec: invalid frame size %dx%d", f.Width, f.Height)
	}
	return nil
}

// Reader walks an in-memory stream frame by frame. The offset cursor is the
// only state carried between frames.
type Reader struct {
	data   []byte
	format Format
	offset int
	index  int
}

// NewReader prepares data for sequential decoding. When f.Header is set the
// stream header is parsed and its geometry and frame rate replace those in f.
func NewReader(data []byte, f Format) (*Reader, error) {
	r := &Reader{data: data, format: f}

	if f.Header {
		h, err := ParseHeader(data)
		if err != nil {
			return nil, err
		}
		r.format.Width = int(h.Width)
		r.format.Height = int(h.Height)
		r.format.FrameRate = h.FrameRate
		r.offset = HeaderSize
	}

	if err := r.format.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Format returns the effective stream format.
func (r *Reader) Format() Format {
	return r.format
}

// Data returns the underlying stream.
func (r *Reader) Data() []byte {
	return r.data
}

// Offset returns the position where the next frame starts.
func (r *Reader) Offset() int {
	return r.offset
}

// Index returns the number of frames consumed so far.
func (r *Reader) Index() int {
	return r.index
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.offset
}

// NewFrame allocates a frame matching the stream geometry.
func (r *Reader) NewFrame() *Frame {
	return NewFrame(r.format.Width, r.format.Height)
}

// Next decodes the next frame into dst, which must match the stream
// geometry. It returns false once no complete frame remains.
func (r *Reader) Next(dst *Frame) bool {
	n := DecodeFrame(r.data, r.offset, dst)
	return r.advance(n)
}

// Peek returns the encoded size of the next frame without consuming it, or
// 0 when no complete frame remains.
func (r *Reader) Peek() int {
	return FrameSize(r.data, r.offset, r.format.Width, r.format.Height)
}

// Skip moves past the next frame without decoding pixels.
func (r *Reader) Skip() bool {
	return r.advance(r.Peek())
}

func (r *Reader) advance(n int) bool {
	if n == 0 {
		return false
	}
	r.offset += n
	r.index++
	return true
}
