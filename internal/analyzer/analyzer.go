// Package analyzer derives per-frame compression statistics directly from
// an encoded stream, without reconstructing pixels.
package analyzer

import (
	"context"
	"math"

	"github.com/zsiec/bwrle/internal/codec"
)

// FrameStats describes the encoding of a single frame.
type FrameStats struct {
	Index int `json:"frame"`
	// Ratio is the 1-bit-per-pixel size of the frame divided by its encoded size.
	Ratio float64 `json:"ratio"`
	// High is the fraction of bytes holding a maximal (255) run.
	High float64 `json:"high"`
	// Low is the fraction of bytes holding an empty run.
	Low float64 `json:"low"`
	// Min and Max bound the run lengths other than 0 and 255. They are only
	// meaningful when HasRange is set.
	Min      int  `json:"min"`
	Max      int  `json:"max"`
	HasRange bool `json:"has_range"`
	// Avg is the sum of the runs other than 0 and 255 divided by the byte count.
	Avg   float64 `json:"avg"`
	Bytes int     `json:"bytes"`
}

// CompressionRatio returns (width*height/8) / encodedBytes.
func CompressionRatio(width, height, encodedBytes int) float64 {
	if encodedBytes == 0 {
		return 0
	}
	return float64(width*height) / 8 / float64(encodedBytes)
}

// AnalyzeFrame tallies the frame starting at stream[offset]. It returns the
// statistics and the bytes consumed; zero bytes means no complete frame is
// available and the statistics are empty.
func AnalyzeFrame(stream []byte, offset, width, height int) (FrameStats, int) {
	var (
		high, low int
		sum       int
		lo, hi    = math.MaxInt, 0
	)

	n := codec.ScanFrame(stream, offset, width, height, nil)
	if n == 0 {
		return FrameStats{}, 0
	}

	// The boundary is known, so the frame's bytes can be tallied directly.
	for _, v := range stream[offset : offset+n] {
		switch v {
		case codec.MaxRun:
			high++
		case 0:
			low++
		default:
			run := int(v)
			sum += run
			if run < lo {
				lo = run
			}
			if run > hi {
				hi = run
			}
		}
	}

	stats := FrameStats{
		Ratio: CompressionRatio(width, height, n),
		High:  float64(high) / float64(n),
		Low:   float64(low) / float64(n),
		Avg:   float64(sum) / float64(n),
		Bytes: n,
	}
	if hi > 0 {
		stats.Min, stats.Max, stats.HasRange = lo, hi, true
	}
	return stats, n
}

// Summary aggregates the statistics of a whole stream.
type Summary struct {
	Frames     int `json:"frames"`
	TotalBytes int `json:"total_bytes"`
	// OverallRatio is the ratio of the whole stream: raw 1-bit size of all
	// frames over TotalBytes. It weights frames by their encoded size and is
	// not the mean of the per-frame ratios.
	OverallRatio float64 `json:"overall_ratio"`
	MinRatio     float64 `json:"min_ratio"`
	MaxRatio     float64 `json:"max_ratio"`
	// Trailing counts the bytes after the last complete frame.
	Trailing int `json:"trailing_bytes"`
}

func (s *Summary) add(fs FrameStats) {
	if s.Frames == 0 || fs.Ratio < s.MinRatio {
		s.MinRatio = fs.Ratio
	}
	if fs.Ratio > s.MaxRatio {
		s.MaxRatio = fs.Ratio
	}
	s.Frames++
	s.TotalBytes += fs.Bytes
}

// Analyze walks every complete frame of data and calls fn with its
// statistics, in frame order. It stops at the first incomplete frame, when
// fn returns an error, or when ctx is cancelled between frames.
func Analyze(ctx context.Context, data []byte, format codec.Format, fn func(FrameStats) error) (Summary, error) {
	var summary Summary

	r, err := codec.NewReader(data, format)
	if err != nil {
		return summary, err
	}
	f := r.Format()
	offset := r.Offset()

	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		stats, n := AnalyzeFrame(data, offset, f.Width, f.Height)
		if n == 0 {
			break
		}
		stats.Index = summary.Frames
		summary.add(stats)
		offset += n

		if fn != nil {
			if err := fn(stats); err != nil {
				return summary, err
			}
		}
	}

	summary.Trailing = len(data) - offset
	if summary.TotalBytes > 0 {
		summary.OverallRatio = CompressionRatio(f.Width, f.Height*summary.Frames, summary.TotalBytes)
	}
	return summary, nil
}
