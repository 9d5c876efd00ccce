// Package video moves frames between the codec and the outside world:
// ffmpeg-readable media files, still images and in-memory frame lists.
package video

import (
	"context"
	"fmt"
	"io"

	"github.com/zsiec/bwrle/internal/codec"
)

// StreamInfo describes the frames a Source produces.
type StreamInfo struct {
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	FrameRate float64 `json:"frame_rate"`
	// Frames is the frame count when known up front, otherwise 0.
	Frames int `json:"frames,omitempty"`
}

// Source yields RGB24 frames in presentation order. Next returns io.EOF
// after the last frame. The returned frame may be reused by the next call.
type Source interface {
	Info() StreamInfo
	Next(ctx context.Context) (*codec.Frame, error)
	Close() error
}

// Sink consumes decoded frames in order.
type Sink interface {
	WriteFrame(f *codec.Frame) error
	Close() error
}

// SliceSource serves frames from memory.
type SliceSource struct {
	frames []*codec.Frame
	rate   float64
	pos    int
}

// NewSliceSource returns a source over frames, which must share one size.
func NewSliceSource(frames []*codec.Frame, frameRate float64) *SliceSource {
	return &SliceSource{frames: frames, rate: frameRate}
}

func (s *SliceSource) Info() StreamInfo {
	info := StreamInfo{FrameRate: s.rate, Frames: len(s.frames)}
	if len(s.frames) > 0 {
		info.Width, info.Height = s.frames[0].Width, s.frames[0].Height
	}
	return info
}

func (s *SliceSource) Next(ctx context.Context) (*codec.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.frames) {
		return nil, io.EOF
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

func (s *SliceSource) Close() error { return nil }

// MemorySink keeps copies of every frame written to it.
type MemorySink struct {
	Frames []*codec.Frame
}

func (m *MemorySink) WriteFrame(f *codec.Frame) error {
	c := codec.NewFrame(f.Width, f.Height)
	copy(c.Pix, f.Pix)
	m.Frames = append(m.Frames, c)
	return nil
}

func (m *MemorySink) Close() error { return nil }

func checkSize(f *codec.Frame, width, height int) error {
	if f.Width != width || f.Height != height {
		return fmt.Errorf("video: frame size %dx%d does not match %dx%d", f.Width, f.Height, width, height)
	}
	return nil
}
