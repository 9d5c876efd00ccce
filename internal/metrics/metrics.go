package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation labels.
const (
	OpEncode  = "encode"
	OpDecode  = "decode"
	OpAnalyze = "analyze"
)

var (
	// Codec metrics
	framesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bwrle_frames_total",
		Help: "Total frames processed per operation",
	}, []string{"operation"})

	streamBytesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bwrle_stream_bytes_total",
		Help: "Total RLE payload bytes produced or consumed per operation",
	}, []string{"operation"})

	compressionRatio = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bwrle_frame_compression_ratio",
		Help:    "Per-frame ratio of the 1-bit frame size to its RLE size",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 12), // 0.25 to 512
	})

	truncatedStreamsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bwrle_truncated_streams_total",
		Help: "Streams that ended with bytes not forming a complete frame",
	}, []string{"operation"})

	trailingBytesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bwrle_trailing_bytes_total",
		Help: "Bytes left undecoded at the end of truncated streams",
	}, []string{"operation"})

	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bwrle_operation_duration_seconds",
		Help:    "Wall time of complete encode, decode and analyze runs",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4.4min
	}, []string{"operation", "result"})

	// Catalog metrics
	catalogOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bwrle_catalog_operations_total",
		Help: "Report catalog operations by backend and result",
	}, []string{"backend", "operation", "result"})

	// HTTP metrics
	rateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bwrle_http_rate_limited_total",
		Help: "Requests rejected by the per-client rate limiter",
	})
)

// RecordFrame accounts one frame of size bytes for operation.
func RecordFrame(operation string, size int) {
	framesTotal.WithLabelValues(operation).Inc()
	streamBytesTotal.WithLabelValues(operation).Add(float64(size))
}

// ObserveCompressionRatio records the ratio of one analyzed frame.
func ObserveCompressionRatio(ratio float64) {
	compressionRatio.Observe(ratio)
}

// RecordTruncation accounts a stream whose tail did not form a frame.
func RecordTruncation(operation string, trailing int) {
	truncatedStreamsTotal.WithLabelValues(operation).Inc()
	trailingBytesTotal.WithLabelValues(operation).Add(float64(trailing))
}

// ObserveOperation records the duration of a complete run; failed is true
// when the run returned an error.
func ObserveOperation(operation string, seconds float64, failed bool) {
	result := "success"
	if failed {
		result = "error"
	}
	operationDuration.WithLabelValues(operation, result).Observe(seconds)
}

// RecordCatalogOperation counts a catalog call against backend.
func RecordCatalogOperation(backend, operation string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	catalogOperationsTotal.WithLabelValues(backend, operation, result).Inc()
}

// IncrementRateLimited counts a rejected request.
func IncrementRateLimited() {
	rateLimitedTotal.Inc()
}
