package server

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/zsiec/bwrle/internal/analyzer"
	"github.com/zsiec/bwrle/internal/catalog"
	"github.com/zsiec/bwrle/internal/codec"
	"github.com/zsiec/bwrle/internal/errors"
	"github.com/zsiec/bwrle/internal/logger"
	"github.com/zsiec/bwrle/internal/pipeline"
	"github.com/zsiec/bwrle/internal/streamfile"
	"github.com/zsiec/bwrle/pkg/version"
)

// AnalyzeResponse is the JSON body of /api/v1/analyze.
type AnalyzeResponse struct {
	Width     int                   `json:"width"`
	Height    int                   `json:"height"`
	FrameRate uint8                 `json:"frame_rate"`
	Summary   analyzer.Summary      `json:"summary"`
	Frames    []analyzer.FrameStats `json:"frames"`
}

// ListResponse is the JSON body of GET /api/v1/streams.
type ListResponse struct {
	Reports []*catalog.Report `json:"reports"`
	Count   int               `json:"count"`
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	s.writeJSON(w, r, http.StatusOK, version.GetInfo())
}

// handleAnalyze returns per-frame statistics of the uploaded stream, as CSV
// when asked for with ?format=csv or an Accept of text/csv.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	data, format, err := s.readStream(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	opts := s.pipelineOptions(r)

	if wantsCSV(r) {
		var buf bytes.Buffer
		if _, err := pipeline.AnalyzeCSV(r.Context(), data, format, &buf, opts...); err != nil {
			s.writeError(w, r, errors.WrapInternalError(err, "analysis failed"))
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
		return
	}

	resp := AnalyzeResponse{
		Width:     format.Width,
		Height:    format.Height,
		FrameRate: format.FrameRate,
		Frames:    []analyzer.FrameStats{},
	}
	summary, err := pipeline.Analyze(r.Context(), data, format, func(fs analyzer.FrameStats) error {
		resp.Frames = append(resp.Frames, fs)
		return nil
	}, opts...)
	if err != nil {
		s.writeError(w, r, errors.WrapInternalError(err, "analysis failed"))
		return
	}
	resp.Summary = summary

	s.writeJSON(w, r, http.StatusOK, resp)
}

// handleFrame decodes one frame of the uploaded stream to PNG.
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		s.writeError(w, r, errors.NewValidationError("invalid frame index"))
		return
	}

	data, format, err := s.readStream(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	reader, err := codec.NewReader(data, format)
	if err != nil {
		s.writeError(w, r, errors.WrapCorruptStream(err))
		return
	}
	for reader.Index() < index {
		if !reader.Skip() {
			s.writeError(w, r, errors.NewNotFoundError(fmt.Sprintf("frame %d", index)))
			return
		}
	}

	// Allocate only once a complete frame is known to follow.
	if reader.Peek() == 0 {
		s.writeError(w, r, errors.NewNotFoundError(fmt.Sprintf("frame %d", index)))
		return
	}
	frame := reader.NewFrame()
	reader.Next(frame)

	var buf bytes.Buffer
	if err := png.Encode(&buf, frame); err != nil {
		s.writeError(w, r, errors.WrapInternalError(err, "failed to encode frame"))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleCreateStream analyzes the uploaded stream and stores the report.
func (s *Server) handleCreateStream(w http.ResponseWriter, r *http.Request) {
	data, format, err := s.readStream(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	summary, err := pipeline.Analyze(r.Context(), data, format, nil, s.pipelineOptions(r)...)
	if err != nil {
		s.writeError(w, r, errors.WrapInternalError(err, "analysis failed"))
		return
	}

	report := &catalog.Report{
		ID:        uuid.New().String(),
		Name:      r.URL.Query().Get("name"),
		Width:     format.Width,
		Height:    format.Height,
		FrameRate: format.FrameRate,
		Header:    format.Header,
		Bytes:     len(data),
		Summary:   summary,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.catalog.Put(r.Context(), report); err != nil {
		s.writeError(w, r, catalogError(err))
		return
	}

	logger.FromContext(r.Context()).WithFields(logger.Fields{
		"report_id": report.ID,
		"frames":    summary.Frames,
	}).Info("Stored stream report")

	w.Header().Set("Location", "/api/v1/streams/"+report.ID)
	s.writeJSON(w, r, http.StatusCreated, report)
}

func (s *Server) handleListStreams(w http.ResponseWriter, r *http.Request) {
	reports, err := s.catalog.List(r.Context())
	if err != nil {
		s.writeError(w, r, catalogError(err))
		return
	}
	if reports == nil {
		reports = []*catalog.Report{}
	}
	s.writeJSON(w, r, http.StatusOK, ListResponse{Reports: reports, Count: len(reports)})
}

func (s *Server) handleGetStream(w http.ResponseWriter, r *http.Request) {
	report, err := s.catalog.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, catalogError(err))
		return
	}
	s.writeJSON(w, r, http.StatusOK, report)
}

func (s *Server) handleDeleteStream(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, catalogError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// readStream reads the request body, strips an optional zstd container and
// resolves the stream format from the query and the codec configuration.
func (s *Server) readStream(w http.ResponseWriter, r *http.Request) ([]byte, codec.Format, error) {
	format, err := s.requestFormat(r)
	if err != nil {
		return nil, format, err
	}

	limit := s.config.Server.MaxUploadSize
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return nil, format, errors.NewPayloadTooLargeError(limit)
		}
		return nil, format, errors.NewValidationError("failed to read request body")
	}

	data, compressed, err := streamfile.UnwrapLimit(body, limit)
	if err != nil {
		if stderrors.Is(err, streamfile.ErrTooLarge) {
			return nil, format, errors.NewPayloadTooLargeError(limit)
		}
		return nil, format, errors.WrapInternalError(err, "failed to decompress stream")
	}
	if compressed {
		logger.FromContext(r.Context()).WithFields(logger.Fields{
			"compressed_bytes": len(body),
			"bytes":            len(data),
		}).Debug("Unwrapped zstd upload")
	}

	// The header, when present, decides the geometry.
	if format.Header {
		h, err := codec.ParseHeader(data)
		if err != nil {
			return nil, format, errors.WrapCorruptStream(err)
		}
		format.Width, format.Height, format.FrameRate = int(h.Width), int(h.Height), h.FrameRate
	}

	if px := s.config.Server.MaxFramePixels; px > 0 && int64(format.Width)*int64(format.Height) > px {
		return nil, format, errors.NewFrameTooLargeError(format.Width, format.Height, px)
	}
	return data, format, nil
}

// requestFormat reads ?header, ?width, ?height and ?fps, falling back to the
// codec configuration.
func (s *Server) requestFormat(r *http.Request) (codec.Format, error) {
	cc := s.config.Codec
	format := codec.Format{
		Width:     orDefault(cc.Width, codec.DefaultWidth),
		Height:    orDefault(cc.Height, codec.DefaultHeight),
		FrameRate: uint8(orDefault(cc.FrameRate, codec.DefaultFrameRate)),
		Header:    cc.Header,
	}

	q := r.URL.Query()
	if v := q.Get("header"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return format, errors.NewValidationError("header must be a boolean")
		}
		format.Header = b
	}

	for _, p := range []struct {
		name string
		dst  *int
		max  int
	}{
		{"width", &format.Width, 65535},
		{"height", &format.Height, 65535},
	} {
		if v := q.Get(p.name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > p.max {
				return format, errors.NewValidationError(fmt.Sprintf("%s must be between 1 and %d", p.name, p.max))
			}
			*p.dst = n
		}
	}

	if v := q.Get("fps"); v != "" {
		n, err := strconv.ParseUint(v, 10, 8)
		if err != nil || n == 0 {
			return format, errors.NewValidationError("fps must be between 1 and 255")
		}
		format.FrameRate = uint8(n)
	}

	return format, nil
}

func (s *Server) pipelineOptions(r *http.Request) []pipeline.Option {
	return []pipeline.Option{
		pipeline.WithLogger(logger.NewLogrusAdapter(logger.FromContext(r.Context()))),
	}
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func wantsCSV(r *http.Request) bool {
	if f := r.URL.Query().Get("format"); f != "" {
		return f == "csv"
	}
	return strings.Contains(r.Header.Get("Accept"), "text/csv")
}

func catalogError(err error) error {
	switch {
	case stderrors.Is(err, catalog.ErrReportNotFound):
		return errors.NewNotFoundError("report")
	case stderrors.Is(err, catalog.ErrReportExists):
		return errors.NewConflictError("report already exists")
	default:
		return errors.Wrap(err, errors.ErrorTypeServiceDown, "report catalog unavailable", http.StatusServiceUnavailable)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.FromContext(r.Context()).WithError(err).Error("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	s.errorHandler.HandleError(w, r, err)
}
