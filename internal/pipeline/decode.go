package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/zsiec/bwrle/internal/codec"
	"github.com/zsiec/bwrle/internal/metrics"
	"github.com/zsiec/bwrle/internal/video"
)

// DecodeResult summarizes a decode job.
type DecodeResult struct {
	Format codec.Format `json:"format"`
	// Frames counts frames written to the sink; Skipped those before the
	// window start.
	Frames   int           `json:"frames"`
	Skipped  int           `json:"skipped"`
	Trailing int           `json:"trailing_bytes"`
	Duration time.Duration `json:"duration"`
}

// Decode writes the frames of data to sink in order. Decoding stops
// silently at the first incomplete frame; the leftover byte count is
// reported as Trailing. The sink is not closed.
func Decode(ctx context.Context, data []byte, sink video.Sink, format codec.Format, window Window, options ...Option) (res DecodeResult, err error) {
	s, frames := newSettings(options)
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		metrics.ObserveOperation(metrics.OpDecode, res.Duration.Seconds(), err != nil)
	}()

	r, err := codec.NewReader(data, format)
	if err != nil {
		return res, err
	}
	res.Format = r.Format()

	log := s.log.WithFields(map[string]interface{}{
		"width":      res.Format.Width,
		"height":     res.Format.Height,
		"frame_rate": res.Format.FrameRate,
		"bytes":      len(data),
	})
	if format.Header && (format.Width != res.Format.Width || format.Height != res.Format.Height) {
		log.WithFields(map[string]interface{}{
			"configured_width":  format.Width,
			"configured_height": format.Height,
		}).Warn("Stream header overrides configured frame size")
	}
	log.Info("Decoding stream")

	// The frame buffer is allocated once a complete frame is known to
	// exist, so a header declaring a huge geometry costs nothing.
	var frame *codec.Frame
	for !window.done(res.Frames) {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		offset := r.Offset()
		if window.skip(r.Index()) {
			if !r.Skip() {
				break
			}
			res.Skipped++
			continue
		}

		if frame == nil {
			if r.Peek() == 0 {
				break
			}
			frame = r.NewFrame()
		}
		if !r.Next(frame) {
			break
		}
		size := r.Offset() - offset

		if err := sink.WriteFrame(frame); err != nil {
			return res, fmt.Errorf("write frame %d: %w", r.Index()-1, err)
		}
		res.Frames++
		metrics.RecordFrame(metrics.OpDecode, size)

		traceFrame(frames, map[string]interface{}{
			"frame":  r.Index() - 1,
			"offset": offset,
			"bytes":  size,
		})
	}

	// Only a scan that ran out of data leaves a truncated tail.
	if !window.done(res.Frames) {
		res.Trailing = r.Remaining()
	}
	if res.Trailing > 0 {
		metrics.RecordTruncation(metrics.OpDecode, res.Trailing)
		log.WithField("trailing_bytes", res.Trailing).Warn("Stream ends with an incomplete frame")
	}

	log.WithFields(map[string]interface{}{
		"frames":  res.Frames,
		"skipped": res.Skipped,
	}).Info("Decoding complete")
	return res, nil
}
