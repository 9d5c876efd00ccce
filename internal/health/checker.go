package health

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Status represents the health status of a component.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// Check is the latest result of one checker.
type Check struct {
	Name        string        `json:"name"`
	Status      Status        `json:"status"`
	Message     string        `json:"message,omitempty"`
	Optional    bool          `json:"optional,omitempty"`
	LastChecked time.Time     `json:"last_checked"`
	Duration    time.Duration `json:"-"`
	DurationMS  float64       `json:"duration_ms"`
}

// Checker is the interface that health checkers must implement.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

type registration struct {
	checker  Checker
	optional bool
}

// Manager runs checkers and keeps their latest results. A failing required
// checker takes the service down; a failing optional one only degrades it.
type Manager struct {
	checkers     []registration
	results      map[string]*Check
	mu           sync.RWMutex
	logger       *logrus.Logger
	checkTimeout time.Duration
}

func NewManager(logger *logrus.Logger) *Manager {
	return &Manager{
		results:      make(map[string]*Check),
		logger:       logger,
		checkTimeout: 5 * time.Second,
	}
}

// Register adds a required checker.
func (m *Manager) Register(checker Checker) {
	m.register(checker, false)
}

// RegisterOptional adds a checker whose failure only degrades the service.
func (m *Manager) RegisterOptional(checker Checker) {
	m.register(checker, true)
}

func (m *Manager) register(checker Checker, optional bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers = append(m.checkers, registration{checker: checker, optional: optional})
	m.logger.WithFields(logrus.Fields{
		"checker":  checker.Name(),
		"optional": optional,
	}).Debug("Registered health checker")
}

// RunChecks executes all registered checkers concurrently.
func (m *Manager) RunChecks(ctx context.Context) map[string]*Check {
	m.mu.RLock()
	regs := append([]registration(nil), m.checkers...)
	m.mu.RUnlock()

	var wg sync.WaitGroup
	checks := make([]*Check, len(regs))

	for i, reg := range regs {
		wg.Add(1)
		go func(i int, reg registration) {
			defer wg.Done()
			checks[i] = m.run(ctx, reg)
		}(i, reg)
	}
	wg.Wait()

	results := make(map[string]*Check, len(checks))
	m.mu.Lock()
	for _, check := range checks {
		results[check.Name] = check
		m.results[check.Name] = check
	}
	m.mu.Unlock()

	return results
}

func (m *Manager) run(ctx context.Context, reg registration) *Check {
	checkCtx, cancel := context.WithTimeout(ctx, m.checkTimeout)
	defer cancel()

	start := time.Now()
	err := reg.checker.Check(checkCtx)
	duration := time.Since(start)

	check := &Check{
		Name:        reg.checker.Name(),
		Status:      StatusOK,
		Optional:    reg.optional,
		LastChecked: time.Now(),
		Duration:    duration,
		DurationMS:  float64(duration.Microseconds()) / 1000,
	}

	entry := m.logger.WithFields(logrus.Fields{
		"checker":  check.Name,
		"duration": duration,
	})

	if err == nil {
		entry.Debug("Health check passed")
		return check
	}

	check.Status = StatusDown
	if reg.optional {
		check.Status = StatusDegraded
	}
	check.Message = err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		check.Message = "Health check timed out"
	}

	if reg.optional {
		entry.WithError(err).Warn("Optional health check failed")
	} else {
		entry.WithError(err).Error("Health check failed")
	}
	return check
}

// GetResults returns copies of the latest results.
func (m *Manager) GetResults() map[string]*Check {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make(map[string]*Check, len(m.results))
	for k, v := range m.results {
		c := *v
		results[k] = &c
	}
	return results
}

// GetOverallStatus folds the latest results into one status. With no
// checker registered the service is considered healthy; with checkers but
// no results yet it is down.
func (m *Manager) GetOverallStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.checkers) == 0 {
		return StatusOK
	}
	if len(m.results) == 0 {
		return StatusDown
	}

	status := StatusOK
	for _, check := range m.results {
		switch check.Status {
		case StatusDown:
			return StatusDown
		case StatusDegraded:
			status = StatusDegraded
		}
	}
	return status
}

// StartPeriodicChecks runs the checkers every interval until ctx is done.
func (m *Manager) StartPeriodicChecks(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.RunChecks(ctx)

	for {
		select {
		case <-ticker.C:
			m.RunChecks(ctx)
		case <-ctx.Done():
			m.logger.Debug("Stopping periodic health checks")
			return
		}
	}
}
