package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/zsiec/bwrle/internal/codec"
	"github.com/zsiec/bwrle/internal/metrics"
	"github.com/zsiec/bwrle/internal/video"
)

// EncodeOptions controls the stream produced by Encode.
type EncodeOptions struct {
	// Header writes the 8-byte stream header.
	Header bool
	// FrameRate recorded in the header; zero takes the source rate,
	// truncated to an integer.
	FrameRate uint8
	// Threshold for binarization; zero selects codec.DefaultThreshold.
	Threshold uint8
	Window    Window
}

// EncodeResult summarizes an encode job.
type EncodeResult struct {
	Width        int           `json:"width"`
	Height       int           `json:"height"`
	FrameRate    uint8         `json:"frame_rate"`
	Frames       int           `json:"frames"`
	Bytes        int64         `json:"bytes"`         // everything written
	PayloadBytes int64         `json:"payload_bytes"` // frame data only
	Duration     time.Duration `json:"duration"`
}

// Ratio is the overall ratio of 1-bit frame data to payload bytes.
func (r EncodeResult) Ratio() float64 {
	if r.PayloadBytes == 0 {
		return 0
	}
	return float64(r.Width*r.Height*r.Frames) / 8 / float64(r.PayloadBytes)
}

// Encode reads every frame of src and writes the encoded stream to w.
func Encode(ctx context.Context, src video.Source, w io.Writer, opts EncodeOptions, options ...Option) (res EncodeResult, err error) {
	s, frames := newSettings(options)
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		metrics.ObserveOperation(metrics.OpEncode, res.Duration.Seconds(), err != nil)
	}()

	info := src.Info()
	res.Width, res.Height = info.Width, info.Height
	res.FrameRate = opts.FrameRate
	if res.FrameRate == 0 {
		res.FrameRate = sourceRate(info.FrameRate)
	}

	log := s.log.WithFields(map[string]interface{}{
		"width":      info.Width,
		"height":     info.Height,
		"frame_rate": res.FrameRate,
		"header":     opts.Header,
	})
	log.Info("Encoding stream")

	enc := codec.NewEncoder(w, codec.EncoderOptions{
		Header:    opts.Header,
		FrameRate: res.FrameRate,
		Threshold: opts.Threshold,
	})

	for index := 0; !opts.Window.done(enc.Frames()); index++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		f, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("read frame %d: %w", index, err)
		}
		if opts.Window.skip(index) {
			continue
		}

		before := enc.BytesWritten()
		if err := enc.WriteFrame(f); err != nil {
			return res, fmt.Errorf("encode frame %d: %w", index, err)
		}
		size := int(enc.BytesWritten() - before)
		if enc.Frames() == 1 && opts.Header {
			size -= codec.HeaderSize
		}

		res.PayloadBytes += int64(size)
		res.Width, res.Height = f.Width, f.Height
		metrics.RecordFrame(metrics.OpEncode, size)

		traceFrame(frames, map[string]interface{}{
			"frame": index,
			"bytes": size,
		})
	}

	res.Frames = enc.Frames()
	res.Bytes = enc.BytesWritten()
	log.WithFields(map[string]interface{}{
		"frames": res.Frames,
		"bytes":  res.Bytes,
	}).Info("Encoding complete")
	return res, nil
}

// sourceRate converts a probed rate to the header's integer field.
func sourceRate(rate float64) uint8 {
	switch {
	case rate < 1 || math.IsNaN(rate):
		return codec.DefaultFrameRate
	case rate > math.MaxUint8:
		return math.MaxUint8
	default:
		return uint8(rate)
	}
}
