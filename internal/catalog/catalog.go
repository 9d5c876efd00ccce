// Package catalog stores analysis reports of uploaded streams.
package catalog

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/zsiec/bwrle/internal/analyzer"
)

var (
	// ErrReportNotFound is returned for unknown or expired report IDs.
	ErrReportNotFound = errors.New("report not found")
	// ErrReportExists is returned by Put when the ID is taken.
	ErrReportExists = errors.New("report already exists")
)

// Report is the stored result of analyzing one stream.
type Report struct {
	ID        string           `json:"id"`
	Name      string           `json:"name,omitempty"`
	Width     int              `json:"width"`
	Height    int              `json:"height"`
	FrameRate uint8            `json:"frame_rate"`
	Header    bool             `json:"header"`
	Bytes     int              `json:"bytes"`
	Summary   analyzer.Summary `json:"summary"`
	CreatedAt time.Time        `json:"created_at"`
}

// Catalog persists reports.
type Catalog interface {
	// Put stores a new report. CreatedAt is set when zero.
	Put(ctx context.Context, r *Report) error
	Get(ctx context.Context, id string) (*Report, error)
	// List returns live reports, newest first.
	List(ctx context.Context) ([]*Report, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

func sortNewestFirst(reports []*Report) {
	sort.Slice(reports, func(i, j int) bool {
		if reports[i].CreatedAt.Equal(reports[j].CreatedAt) {
			return reports[i].ID < reports[j].ID
		}
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})
}
