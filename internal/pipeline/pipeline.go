// Package pipeline runs whole-stream codec jobs: encoding a video source,
// decoding a stream into a sink and analyzing a stream to CSV. Jobs are
// sequential and check for cancellation between frames.
package pipeline

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zsiec/bwrle/internal/logger"
)

const (
	frameLogInterval = time.Second
	frameLogBurst    = 5
)

// Window selects a run of frames: the first Start frames are skipped and
// at most Count frames are processed after that. A zero Count means all.
type Window struct {
	Start int
	Count int
}

func (w Window) skip(index int) bool {
	return index < w.Start
}

func (w Window) done(processed int) bool {
	return w.Count > 0 && processed >= w.Count
}

type settings struct {
	log   logger.Logger
	trace bool
}

// Option configures logging for a job.
type Option func(*settings)

// WithLogger sets the job logger. Jobs log nothing by default.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

// WithTrace logs every frame at debug level instead of a sample.
func WithTrace(trace bool) Option {
	return func(s *settings) {
		s.trace = trace
	}
}

func newSettings(opts []Option) (settings, *logger.SampledLogger) {
	s := settings{log: logger.NewNullLogger()}
	for _, opt := range opts {
		opt(&s)
	}
	return s, logger.NewFrameLogger(s.log, s.trace, frameLogInterval, frameLogBurst)
}

func traceFrame(frames *logger.SampledLogger, fields map[string]interface{}) {
	frames.Sample(logrus.DebugLevel, logger.CategoryFrame, "frame", fields)
}
