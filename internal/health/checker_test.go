package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockChecker struct {
	name  string
	err   error
	delay time.Duration
}

func (m *mockChecker) Name() string {
	return m.name
}

func (m *mockChecker) Check(ctx context.Context) error {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.err
}

func TestManager(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	t.Run("Register and RunChecks", func(t *testing.T) {
		manager := NewManager(logger)
		manager.Register(&mockChecker{name: "checker1"})
		manager.Register(&mockChecker{name: "checker2", err: errors.New("checker2 failed")})

		results := manager.RunChecks(context.Background())
		require.Len(t, results, 2)

		assert.Equal(t, StatusOK, results["checker1"].Status)
		assert.Empty(t, results["checker1"].Message)
		assert.Equal(t, StatusDown, results["checker2"].Status)
		assert.Contains(t, results["checker2"].Message, "checker2 failed")
		assert.Equal(t, StatusDown, manager.GetOverallStatus())
	})

	t.Run("optional failure degrades", func(t *testing.T) {
		manager := NewManager(logger)
		manager.Register(&mockChecker{name: "redis"})
		manager.RegisterOptional(&mockChecker{name: "ffmpeg", err: errors.New("not installed")})

		results := manager.RunChecks(context.Background())
		assert.Equal(t, StatusDegraded, results["ffmpeg"].Status)
		assert.True(t, results["ffmpeg"].Optional)
		assert.Equal(t, StatusDegraded, manager.GetOverallStatus())
	})

	t.Run("timeout", func(t *testing.T) {
		manager := NewManager(logger)
		manager.checkTimeout = 20 * time.Millisecond
		manager.Register(&mockChecker{name: "slow", delay: time.Second})

		results := manager.RunChecks(context.Background())
		assert.Equal(t, StatusDown, results["slow"].Status)
		assert.Equal(t, "Health check timed out", results["slow"].Message)
	})

	t.Run("GetResults returns copies", func(t *testing.T) {
		manager := NewManager(logger)
		manager.Register(&mockChecker{name: "test"})
		manager.RunChecks(context.Background())

		results := manager.GetResults()
		results["test"].Status = StatusDown

		assert.Equal(t, StatusOK, manager.GetResults()["test"].Status)
	})

	t.Run("overall status before and without checks", func(t *testing.T) {
		manager := NewManager(logger)
		assert.Equal(t, StatusOK, manager.GetOverallStatus())

		manager.Register(&mockChecker{name: "test"})
		assert.Equal(t, StatusDown, manager.GetOverallStatus())

		manager.RunChecks(context.Background())
		assert.Equal(t, StatusOK, manager.GetOverallStatus())
	})

	t.Run("StartPeriodicChecks stops with context", func(t *testing.T) {
		manager := NewManager(logger)
		manager.Register(&mockChecker{name: "test"})

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			manager.StartPeriodicChecks(ctx, 10*time.Millisecond)
			close(done)
		}()

		assert.Eventually(t, func() bool {
			return len(manager.GetResults()) == 1
		}, time.Second, 5*time.Millisecond)

		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("periodic checks did not stop")
		}
	})
}
