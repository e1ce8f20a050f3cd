// Package document implements storage.Manager on MongoDB.
//
// Users, books and exchanges live in three collections and reference each
// other by ObjectID. Joins are done in adapter code and the reports use
// aggregation pipelines. Multi-document writes are not wrapped in
// transactions, which would require a replica set; instead the first write
// is undone when the second one fails.
package document

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/mrlokans/bookexchange/internal/config"
	"github.com/mrlokans/bookexchange/internal/crypto"
	"github.com/mrlokans/bookexchange/internal/storage"
)

const defaultTimeout = 10 * time.Second

// Manager is the MongoDB storage adapter.
type Manager struct {
	mu      sync.RWMutex
	client  *mongo.Client
	db      *mongo.Database
	uri     string
	dbName  string
	timeout time.Duration
	hasher  *crypto.Hasher
}

// New returns an unconnected manager for the server described by cfg.
func New(cfg config.Database, hasher *crypto.Hasher) *Manager {
	return NewWithURI(BuildURI(cfg), cfg.Name, hasher).WithTimeout(cfg.Timeout)
}

// NewWithURI returns an unconnected manager using a full connection string.
func NewWithURI(uri, dbName string, hasher *crypto.Hasher) *Manager {
	return &Manager{
		uri:     uri,
		dbName:  dbName,
		timeout: defaultTimeout,
		hasher:  hasher,
	}
}

// WithTimeout sets the connect and server selection timeout. Zero keeps
// the default.
func (m *Manager) WithTimeout(d time.Duration) *Manager {
	if d > 0 {
		m.timeout = d
	}
	return m
}

// BuildURI renders a mongodb:// connection string. Credentials are only
// included when a password is set.
func BuildURI(cfg config.Database) string {
	u := url.URL{
		Scheme: "mongodb",
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   "/",
	}
	if cfg.User != "" && cfg.Password != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
		u.RawQuery = "authSource=admin"
	}
	return u.String()
}

func (m *Manager) Kind() string { return config.KindMongoDB }

func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client != nil {
		return nil
	}
	if m.dbName == "" {
		return &storage.ConfigError{Reason: "database name is empty"}
	}

	opts := options.Client().
		ApplyURI(m.uri).
		SetConnectTimeout(m.timeout).
		SetServerSelectionTimeout(m.timeout)
	if err := opts.Validate(); err != nil {
		return &storage.ConfigError{Reason: "invalid MongoDB connection string", Err: err}
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		log.Printf("Failed to connect to MongoDB: %v", err)
		return &storage.ConnectionError{Backend: config.KindMongoDB, Op: "connect", Err: err}
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.WithoutCancel(ctx))
		log.Printf("Failed to reach MongoDB: %v", err)
		return &storage.ConnectionError{Backend: config.KindMongoDB, Op: "ping", Err: err}
	}

	db := client.Database(m.dbName)
	if err := ensureIndexes(ctx, db); err != nil {
		client.Disconnect(context.WithoutCancel(ctx))
		return &storage.ConfigError{Reason: "failed to create indexes", Err: err}
	}

	m.client = client
	m.db = db
	log.Printf("Connected to MongoDB database: %s", m.dbName)
	return nil
}

func (m *Manager) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client == nil {
		return nil
	}
	err := m.client.Disconnect(ctx)
	m.client = nil
	m.db = nil
	if err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	log.Printf("Disconnected from MongoDB")
	return nil
}

func (m *Manager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client != nil
}

func (m *Manager) database() (*mongo.Database, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.db == nil {
		return nil, storage.ErrNotConnected
	}
	return m.db, nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		booksCollection: {
			{Keys: bson.D{{Key: "owner_id", Value: 1}}},
			{Keys: bson.D{{Key: "available", Value: 1}}},
		},
		exchangesCollection: {
			{Keys: bson.D{{Key: "book_id", Value: 1}}},
			{Keys: bson.D{{Key: "requester_id", Value: 1}}},
			{Keys: bson.D{{Key: "provider_id", Value: 1}}},
		},
	}

	for coll, models := range indexes {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("%s: %w", coll, err)
		}
	}
	return nil
}
