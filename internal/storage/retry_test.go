package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyManager fails Connect a fixed number of times before succeeding.
type flakyManager struct {
	Manager
	failures int
	err      error
	calls    int
}

func (m *flakyManager) Connect(context.Context) error {
	m.calls++
	if m.calls <= m.failures {
		return m.err
	}
	return nil
}

func (m *flakyManager) Kind() string { return "fake" }

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{Attempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestConnectWithRetry_SucceedsAfterFailures(t *testing.T) {
	m := &flakyManager{
		failures: 2,
		err:      &ConnectionError{Backend: "fake", Op: "connect", Err: errors.New("refused")},
	}

	err := ConnectWithRetry(context.Background(), m, fastRetry(5))

	require.NoError(t, err)
	assert.Equal(t, 3, m.calls)
}

func TestConnectWithRetry_GivesUp(t *testing.T) {
	m := &flakyManager{
		failures: 10,
		err:      &ConnectionError{Backend: "fake", Op: "connect", Err: errors.New("refused")},
	}

	err := ConnectWithRetry(context.Background(), m, fastRetry(3))

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnection))
	assert.Equal(t, 3, m.calls)
}

func TestConnectWithRetry_ConfigErrorIsFatal(t *testing.T) {
	m := &flakyManager{failures: 10, err: &ConfigError{Reason: "cannot create database"}}

	err := ConnectWithRetry(context.Background(), m, fastRetry(5))

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfig))
	assert.Equal(t, 1, m.calls)
}

func TestConnectWithRetry_ZeroAttemptsTriesOnce(t *testing.T) {
	m := &flakyManager{}

	require.NoError(t, ConnectWithRetry(context.Background(), m, RetryConfig{}))
	assert.Equal(t, 1, m.calls)
}

func TestConnectWithRetry_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := &flakyManager{}
	err := ConnectWithRetry(ctx, m, fastRetry(3))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, m.calls)
}
