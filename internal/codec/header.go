package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderSize is the size of the optional stream header in bytes.
const HeaderSize = 8

// Geometry of the header-less stream variant.
const (
	DefaultWidth     = 320
	DefaultHeight    = 240
	DefaultFrameRate = 24
)

var (
	// ErrShortHeader is returned when fewer than HeaderSize bytes are available.
	ErrShortHeader = errors.New("codec: stream shorter than header")
	// ErrInvalidHeader is returned when a header declares an empty frame.
	ErrInvalidHeader = errors.New("codec: invalid stream header")
)

// Header is the stream metadata written before the first frame of a
// full-file stream.
//
//	offset 0  uint16 width  (little-endian)
//	offset 2  uint16 height (little-endian)
//	offset 4  uint8  frame rate
//	offset 5  3 reserved bytes, written as zero
type Header struct {
	Width     uint16
	Height    uint16
	FrameRate uint8
}

// MarshalBinary encodes the header.
func (h Header) MarshalBinary() ([]byte, error) {
	return h.AppendBinary(make([]byte, 0, HeaderSize)), nil
}

// AppendBinary appends the encoded header to dst.
func (h Header) AppendBinary(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint16(dst, h.Width)
	dst = binary.LittleEndian.AppendUint16(dst, h.Height)
	return append(dst, h.FrameRate, 0, 0, 0)
}

// ParseHeader decodes a header from the start of data. Reserved bytes are
// not checked.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, ErrShortHeader
	}

	h := Header{
		Width:     binary.LittleEndian.Uint16(data[0:2]),
		Height:    binary.LittleEndian.Uint16(data[2:4]),
		FrameRate: data[4],
	}
	if h.Width == 0 || h.Height == 0 {
		return Header{}, fmt.Errorf("%w: %dx%d", ErrInvalidHeader, h.Width, h.Height)
	}
	return h, nil
}
