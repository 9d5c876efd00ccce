package video

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/zsiec/bwrle/internal/codec"
)

// ImageSource turns a list of still images into frames, one per file. All
// images must have the size of the first.
type ImageSource struct {
	paths []string
	rate  float64
	info  StreamInfo
	pos   int
	first *codec.Frame
}

// NewImageSource decodes the first image eagerly to learn the geometry.
func NewImageSource(paths []string, frameRate float64) (*ImageSource, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("video: no images")
	}

	first, err := decodeImage(paths[0])
	if err != nil {
		return nil, err
	}

	return &ImageSource{
		paths: paths,
		rate:  frameRate,
		first: first,
		info: StreamInfo{
			Width:     first.Width,
			Height:    first.Height,
			FrameRate: frameRate,
			Frames:    len(paths),
		},
	}, nil
}

func (s *ImageSource) Info() StreamInfo {
	return s.info
}

func (s *ImageSource) Next(ctx context.Context) (*codec.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.paths) {
		return nil, io.EOF
	}

	var f *codec.Frame
	if s.pos == 0 {
		f = s.first
		s.first = nil
	} else {
		var err error
		if f, err = decodeImage(s.paths[s.pos]); err != nil {
			return nil, err
		}
		if err := checkSize(f, s.info.Width, s.info.Height); err != nil {
			return nil, fmt.Errorf("%s: %w", s.paths[s.pos], err)
		}
	}

	s.pos++
	return f, nil
}

func (s *ImageSource) Close() error { return nil }

func decodeImage(path string) (*codec.Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("video: open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("video: decode %s: %w", path, err)
	}
	return codec.FrameFromImage(img), nil
}

// PNGSink writes each frame to its own numbered PNG file in a directory.
type PNGSink struct {
	dir     string
	pattern string
	n       int
	enc     png.Encoder
}

// NewPNGSink creates dir if needed. pattern is a fmt verb for the frame
// number such as "frame_%05d.png"; empty selects that default.
func NewPNGSink(dir, pattern string) (*PNGSink, error) {
	if pattern == "" {
		pattern = "frame_%05d.png"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("video: create output directory: %w", err)
	}
	return &PNGSink{
		dir:     dir,
		pattern: pattern,
		// Frames are pure black and white; speed matters more than size.
		enc: png.Encoder{CompressionLevel: png.BestSpeed},
	}, nil
}

func (p *PNGSink) WriteFrame(f *codec.Frame) error {
	path := filepath.Join(p.dir, fmt.Sprintf(p.pattern, p.n))
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("video: create %s: %w", path, err)
	}

	if err := p.enc.Encode(file, f); err != nil {
		file.Close()
		return fmt.Errorf("video: encode %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return err
	}

	p.n++
	return nil
}

// Written returns the number of files produced.
func (p *PNGSink) Written() int {
	return p.n
}

func (p *PNGSink) Close() error { return nil }
