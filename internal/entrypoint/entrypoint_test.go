package entrypoint

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookexchange/internal/config"
	"github.com/mrlokans/bookexchange/internal/storage"
)

func TestDecodeCSRFSecret(t *testing.T) {
	t.Run("empty disables protection", func(t *testing.T) {
		key, err := DecodeCSRFSecret("")
		require.NoError(t, err)
		assert.Nil(t, key)
	})

	t.Run("hex encoded", func(t *testing.T) {
		key, err := DecodeCSRFSecret(strings.Repeat("ab", 32))
		require.NoError(t, err)
		assert.Len(t, key, 32)
		assert.Equal(t, byte(0xab), key[0])
	})

	t.Run("raw bytes", func(t *testing.T) {
		key, err := DecodeCSRFSecret(strings.Repeat("k", 32))
		require.NoError(t, err)
		assert.Equal(t, []byte(strings.Repeat("k", 32)), key)
	})

	t.Run("wrong length", func(t *testing.T) {
		_, err := DecodeCSRFSecret("short")
		assert.Error(t, err)
	})
}

func TestConnectBudget(t *testing.T) {
	maxDelay := storage.DefaultRetryConfig().MaxDelay

	assert.Equal(t, 3*(5*time.Second+maxDelay), connectBudget(config.Database{ConnectAttempts: 3, Timeout: 5 * time.Second}))
	assert.Equal(t, 10*time.Second+maxDelay, connectBudget(config.Database{}))
}

func TestOpenStoreRejectsMissingKind(t *testing.T) {
	cfg := &config.Config{Database: config.Database{Name: "bookexchange"}}

	_, err := OpenStore(context.Background(), cfg)

	assert.ErrorIs(t, err, storage.ErrConfig)
}
