package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookexchange/internal/entities"
	"github.com/mrlokans/bookexchange/internal/services"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(filepath.Join(t.TempDir(), "tasks.db"), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestNewClient(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "tasks.db")

	client, err := NewClient(dbPath, DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, client)

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "tasks database should be created")

	err = client.Close()
	assert.NoError(t, err)
}

func TestClientStartStop(t *testing.T) {
	client := newTestClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go client.Start(ctx)

	// Give it time to start
	time.Sleep(50 * time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()

	success := client.Stop(stopCtx)
	assert.True(t, success, "stop should succeed gracefully")
	assert.True(t, client.Stop(stopCtx), "second stop is a no-op")
}

func TestStopWithoutStart(t *testing.T) {
	client := newTestClient(t)
	assert.True(t, client.Stop(context.Background()))
}

type fakeReports struct {
	limits chan int
	err    error
}

func (f *fakeReports) Summary(_ context.Context, limit int) (*services.Report, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.limits <- limit
	return &services.Report{
		TotalUsers:         2,
		TotalBooks:         1,
		TotalExchanges:     1,
		MostExchangedBooks: []entities.Book{{Title: "Dune", Author: "Frank Herbert", ExchangeCount: 1}},
		MostActiveUsers:    []entities.User{{Username: "bob", ExchangeCount: 1}},
	}, nil
}

func TestEnqueueReportSnapshot(t *testing.T) {
	client := newTestClient(t)

	reports := &fakeReports{limits: make(chan int, 1)}
	client.Register(NewReportSnapshotQueue(reports))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)

	id, err := client.EnqueueReportSnapshot(5)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	select {
	case limit := <-reports.limits:
		assert.Equal(t, 5, limit)
	case <-time.After(5 * time.Second):
		t.Fatal("snapshot task was not executed within timeout")
	}

	require.Eventually(t, func() bool {
		status, err := client.Status(context.Background(), id)
		return err == nil && status == backlite.TaskStatusSuccess
	}, 5*time.Second, 50*time.Millisecond)
}

func TestReportSnapshotProcessor(t *testing.T) {
	t.Run("passes the limit through", func(t *testing.T) {
		reports := &fakeReports{limits: make(chan int, 1)}
		process := ReportSnapshotProcessor(reports)

		require.NoError(t, process(context.Background(), ReportSnapshotTask{Limit: 3}))
		assert.Equal(t, 3, <-reports.limits)
	})

	t.Run("propagates report errors", func(t *testing.T) {
		boom := errors.New("boom")
		process := ReportSnapshotProcessor(&fakeReports{err: boom})

		err := process(context.Background(), ReportSnapshotTask{})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("fails without a builder", func(t *testing.T) {
		process := ReportSnapshotProcessor(nil)
		assert.Error(t, process(context.Background(), ReportSnapshotTask{}))
	})
}

func TestReportSnapshotTaskConfig(t *testing.T) {
	cfg := ReportSnapshotTask{Limit: 10}.Config()

	assert.Equal(t, "report_snapshot", cfg.Name)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Backoff)
	assert.Equal(t, 2*time.Minute, cfg.Timeout)
	assert.NotNil(t, cfg.Retention)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 15*time.Minute, cfg.ReleaseAfter)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)
}
