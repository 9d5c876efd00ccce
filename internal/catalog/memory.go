package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/zsiec/bwrle/internal/metrics"
)

// MemoryCatalog keeps reports in process memory. Expired reports are
// dropped lazily.
type MemoryCatalog struct {
	mu      sync.RWMutex
	reports map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

type memoryEntry struct {
	report  Report
	expires time.Time // zero means never
}

// NewMemoryCatalog creates an empty catalog; ttl <= 0 keeps reports forever.
func NewMemoryCatalog(ttl time.Duration) *MemoryCatalog {
	return &MemoryCatalog{
		reports: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *MemoryCatalog) live(e memoryEntry) bool {
	return e.expires.IsZero() || m.now().Before(e.expires)
}

func (m *MemoryCatalog) Put(ctx context.Context, r *Report) (err error) {
	defer func() { metrics.RecordCatalogOperation("memory", "put", err) }()

	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.reports[r.ID]; ok && m.live(e) {
		return ErrReportExists
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = m.now()
	}

	e := memoryEntry{report: *r}
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}
	m.reports[r.ID] = e
	return nil
}

func (m *MemoryCatalog) Get(ctx context.Context, id string) (r *Report, err error) {
	defer func() { metrics.RecordCatalogOperation("memory", "get", err) }()

	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.reports[id]
	if !ok || !m.live(e) {
		return nil, ErrReportNotFound
	}
	report := e.report
	return &report, nil
}

func (m *MemoryCatalog) List(ctx context.Context) ([]*Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	reports := make([]*Report, 0, len(m.reports))
	for id, e := range m.reports {
		if !m.live(e) {
			delete(m.reports, id)
			continue
		}
		report := e.report
		reports = append(reports, &report)
	}
	sortNewestFirst(reports)

	metrics.RecordCatalogOperation("memory", "list", nil)
	return reports, nil
}

func (m *MemoryCatalog) Delete(ctx context.Context, id string) (err error) {
	defer func() { metrics.RecordCatalogOperation("memory", "delete", err) }()

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.reports[id]
	delete(m.reports, id)
	if !ok || !m.live(e) {
		return ErrReportNotFound
	}
	return nil
}

func (m *MemoryCatalog) Close() error {
	return nil
}
