package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookexchange/internal/config"
	"github.com/mrlokans/bookexchange/internal/storage"
	"github.com/mrlokans/bookexchange/internal/storage/document"
	"github.com/mrlokans/bookexchange/internal/storage/relational"
)

func TestNew_SelectsAdapter(t *testing.T) {
	tests := []struct {
		kind string
		want string
	}{
		{"mysql", config.KindMySQL},
		{"MySQL", config.KindMySQL},
		{" mongodb ", config.KindMongoDB},
		{"MONGODB", config.KindMongoDB},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			m, err := New(config.Database{Type: tt.kind, Host: "localhost", Name: "bookexchange"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Kind())
			assert.False(t, m.IsConnected(), "adapters are returned unconnected")
		})
	}
}

func TestNew_ConcreteTypes(t *testing.T) {
	m, err := New(config.Database{Type: "mysql"})
	require.NoError(t, err)
	assert.IsType(t, &relational.Manager{}, m)

	m, err = New(config.Database{Type: "mongodb"})
	require.NoError(t, err)
	assert.IsType(t, &document.Manager{}, m)
}

func TestNew_RejectsMissingOrUnknownKind(t *testing.T) {
	for _, kind := range []string{"", "   ", "oracle", "postgres"} {
		t.Run(kind, func(t *testing.T) {
			m, err := New(config.Database{Type: kind})
			assert.Nil(t, m)

			var ce *storage.ConfigError
			require.ErrorAs(t, err, &ce)
			assert.ErrorIs(t, err, storage.ErrConfig)
		})
	}
}

func TestOpen_ConfigErrorIsNotRetried(t *testing.T) {
	m, err := Open(context.Background(), config.Database{Type: "sqlserver", ConnectAttempts: 3})
	assert.Nil(t, m)
	assert.ErrorIs(t, err, storage.ErrConfig)
}
