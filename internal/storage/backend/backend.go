// Package backend picks the storage adapter named by the configuration.
package backend

import (
	"context"
	"fmt"

	"github.com/mrlokans/bookexchange/internal/config"
	"github.com/mrlokans/bookexchange/internal/crypto"
	"github.com/mrlokans/bookexchange/internal/storage"
	"github.com/mrlokans/bookexchange/internal/storage/document"
	"github.com/mrlokans/bookexchange/internal/storage/relational"
)

type options struct {
	hasher *crypto.Hasher
}

// Option customizes New.
type Option func(*options)

// WithHasher sets the password hasher handed to the adapter.
func WithHasher(h *crypto.Hasher) Option {
	return func(o *options) { o.hasher = h }
}

// New returns an unconnected adapter for cfg.Type. An empty or unknown kind
// is a *storage.ConfigError; there is no fallback backend.
func New(cfg config.Database, opts ...Option) (storage.Manager, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.hasher == nil {
		o.hasher = crypto.NewHasher(0)
	}

	kind := config.NormalizeKind(cfg.Type)
	if cfg.Port == 0 {
		cfg.Port = config.DefaultPort(kind)
	}

	switch kind {
	case config.KindMySQL:
		return relational.NewMySQL(cfg, o.hasher), nil
	case config.KindMongoDB:
		return document.New(cfg, o.hasher), nil
	case "":
		return nil, &storage.ConfigError{Reason: "database type is not set (DB_TYPE must be mysql or mongodb)"}
	default:
		return nil, &storage.ConfigError{Reason: fmt.Sprintf("unsupported database type %q", cfg.Type)}
	}
}

// Open builds the adapter with New and connects it with retries.
func Open(ctx context.Context, cfg config.Database, opts ...Option) (storage.Manager, error) {
	m, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}

	retry := storage.DefaultRetryConfig()
	if cfg.ConnectAttempts > 0 {
		retry.Attempts = cfg.ConnectAttempts
	}
	if cfg.ConnectBackoff > 0 {
		retry.BaseDelay = cfg.ConnectBackoff
	}

	if err := storage.ConnectWithRetry(ctx, m, retry); err != nil {
		return nil, err
	}
	return m, nil
}
