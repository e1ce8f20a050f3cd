package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookexchange/internal/config"
)

type fakeQueue struct {
	mu     sync.Mutex
	limits []int
	err    error
}

func (f *fakeQueue) EnqueueReportSnapshot(limit int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.limits = append(f.limits, limit)
	return "task-1", nil
}

func TestValidateCronSchedule(t *testing.T) {
	tests := []struct {
		schedule string
		valid    bool
	}{
		{"0 * * * *", true},
		{"*/15 * * * *", true},
		{"0 0 * * 0", true},
		{"", false},
		{"every hour", false},
		{"0 0 * * * *", false}, // seconds field is not accepted
	}

	for _, tt := range tests {
		err := ValidateCronSchedule(tt.schedule)
		if tt.valid {
			assert.NoError(t, err, tt.schedule)
		} else {
			assert.Error(t, err, tt.schedule)
		}
	}
}

func TestReportSnapshotScheduler(t *testing.T) {
	t.Run("disabled scheduler does not start", func(t *testing.T) {
		s := NewReportSnapshotScheduler(&fakeQueue{}, config.Reports{SnapshotEnabled: false, SnapshotSchedule: "0 * * * *"})

		require.NoError(t, s.Start(context.Background()))
		assert.False(t, s.IsRunning())
		assert.Nil(t, s.GetNextRunTime())
	})

	t.Run("invalid schedule is rejected", func(t *testing.T) {
		s := NewReportSnapshotScheduler(&fakeQueue{}, config.Reports{SnapshotEnabled: true, SnapshotSchedule: "bogus"})

		assert.Error(t, s.Start(context.Background()))
		assert.False(t, s.IsRunning())
	})

	t.Run("start and stop", func(t *testing.T) {
		s := NewReportSnapshotScheduler(&fakeQueue{}, config.Reports{SnapshotEnabled: true, SnapshotSchedule: "0 * * * *"})

		require.NoError(t, s.Start(context.Background()))
		assert.True(t, s.IsRunning())
		require.NotNil(t, s.GetNextRunTime())
		assert.Zero(t, s.GetNextRunTime().Minute())

		// Second start is a no-op
		require.NoError(t, s.Start(context.Background()))

		s.Stop()
		assert.False(t, s.IsRunning())
		assert.Nil(t, s.GetNextRunTime())
	})

	t.Run("context cancellation stops the scheduler", func(t *testing.T) {
		s := NewReportSnapshotScheduler(&fakeQueue{}, config.Reports{SnapshotEnabled: true, SnapshotSchedule: "0 * * * *"})
		ctx, cancel := context.WithCancel(context.Background())

		require.NoError(t, s.Start(ctx))
		cancel()

		assert.Eventually(t, func() bool { return !s.IsRunning() }, time.Second, 10*time.Millisecond)
	})

	t.Run("run now enqueues with the configured limit", func(t *testing.T) {
		q := &fakeQueue{}
		s := NewReportSnapshotScheduler(q, config.Reports{Limit: 7})

		s.RunNow()

		assert.Equal(t, []int{7}, q.limits)
	})

	t.Run("enqueue failures are swallowed", func(t *testing.T) {
		q := &fakeQueue{err: errors.New("queue down")}
		s := NewReportSnapshotScheduler(q, config.Reports{Limit: 7})

		assert.NotPanics(t, s.RunNow)
		assert.Empty(t, q.limits)
	})
}
