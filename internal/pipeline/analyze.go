package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/zsiec/bwrle/internal/analyzer"
	"github.com/zsiec/bwrle/internal/codec"
	"github.com/zsiec/bwrle/internal/metrics"
)

// Analyze computes per-frame statistics of data, calling fn for each frame
// in order, and records them in the codec metrics.
func Analyze(ctx context.Context, data []byte, format codec.Format, fn func(analyzer.FrameStats) error, options ...Option) (summary analyzer.Summary, err error) {
	s, frames := newSettings(options)
	start := time.Now()
	defer func() {
		metrics.ObserveOperation(metrics.OpAnalyze, time.Since(start).Seconds(), err != nil)
	}()

	log := s.log.WithField("bytes", len(data))
	log.Info("Analyzing stream")

	summary, err = analyzer.Analyze(ctx, data, format, func(fs analyzer.FrameStats) error {
		metrics.RecordFrame(metrics.OpAnalyze, fs.Bytes)
		metrics.ObserveCompressionRatio(fs.Ratio)
		traceFrame(frames, map[string]interface{}{
			"frame": fs.Index,
			"bytes": fs.Bytes,
			"ratio": fs.Ratio,
		})
		if fn != nil {
			return fn(fs)
		}
		return nil
	})
	if err != nil {
		return summary, err
	}

	if summary.Trailing > 0 {
		metrics.RecordTruncation(metrics.OpAnalyze, summary.Trailing)
		log.WithField("trailing_bytes", summary.Trailing).Warn("Stream ends with an incomplete frame")
	}

	log.WithFields(map[string]interface{}{
		"frames":        summary.Frames,
		"overall_ratio": summary.OverallRatio,
	}).Info("Analysis complete")
	return summary, nil
}

// AnalyzeCSV writes the CSV report of data to w: a header line and one
// record per complete frame.
func AnalyzeCSV(ctx context.Context, data []byte, format codec.Format, w io.Writer, options ...Option) (analyzer.Summary, error) {
	cw := analyzer.NewCSVWriter(w)
	summary, err := Analyze(ctx, data, format, cw.Write, options...)
	if err != nil {
		return summary, err
	}
	if err := cw.Flush(); err != nil {
		return summary, fmt.Errorf("write csv: %w", err)
	}
	return summary, nil
}
