package logger

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Log categories emitted once per frame or per request. Per-frame messages
// can reach thousands per second on large streams.
const (
	CategoryFrame     = "frame"
	CategoryTruncated = "truncated"
	CategoryRequest   = "request"
)

// SampledLogger rate-limits high-frequency messages per category. Messages
// in a category without a limiter are always written.
type SampledLogger struct {
	base Logger

	mu       sync.RWMutex
	limiters map[string]*categoryLimiter
}

type categoryLimiter struct {
	limiter *rate.Limiter
	seen    atomic.Int64
	dropped atomic.Int64
}

// SamplerStats reports how many messages a category saw and dropped.
type SamplerStats struct {
	Category string `json:"category"`
	Seen     int64  `json:"seen"`
	Dropped  int64  `json:"dropped"`
}

// NewSampledLogger wraps base with no categories limited.
func NewSampledLogger(base Logger) *SampledLogger {
	return &SampledLogger{
		base:     base,
		limiters: make(map[string]*categoryLimiter),
	}
}

// NewFrameLogger returns the sampler used by codec pipelines: per-frame
// messages are limited to every interval with the given burst, unless
// trace is set in which case nothing is dropped.
func NewFrameLogger(base Logger, trace bool, interval time.Duration, burst int) *SampledLogger {
	s := NewSampledLogger(base)
	if !trace {
		s.Limit(CategoryFrame, interval, burst)
	}
	return s
}

// Limit allows one message per interval in category, after an initial burst.
func (s *SampledLogger) Limit(category string, interval time.Duration, burst int) *SampledLogger {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.limiters[category] = &categoryLimiter{
		limiter: rate.NewLimiter(rate.Every(interval), burst),
	}
	return s
}

func (s *SampledLogger) allow(category string) bool {
	s.mu.RLock()
	l, ok := s.limiters[category]
	s.mu.RUnlock()

	if !ok {
		return true
	}

	l.seen.Add(1)
	if l.limiter.Allow() {
		return true
	}
	l.dropped.Add(1)
	return false
}

// Sample writes msg at level if category has budget left.
func (s *SampledLogger) Sample(level logrus.Level, category, msg string, fields map[string]interface{}) {
	if !s.allow(category) {
		return
	}

	f := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		f[k] = v
	}
	f["category"] = category
	s.base.WithFields(f).Log(level, msg)
}

// Logger returns the unsampled logger.
func (s *SampledLogger) Logger() Logger {
	return s.base
}

// Stats returns counters for every limited category.
func (s *SampledLogger) Stats() []SamplerStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make([]SamplerStats, 0, len(s.limiters))
	for name, l := range s.limiters {
		stats = append(stats, SamplerStats{
			Category: name,
			Seen:     l.seen.Load(),
			Dropped:  l.dropped.Load(),
		})
	}
	return stats
}
