// Package relational implements storage.Manager on top of GORM.
//
// Production runs on MySQL: Connect creates the database when it is missing
// and migrates the users, books and exchanges tables. SQLite is supported
// for tests and single-file development setups.
//
// # Usage
//
//	m := relational.NewMySQL(cfg.Database, crypto.NewHasher(cfg.Auth.BcryptCost))
//	if err := m.Connect(ctx); err != nil {
//		return err
//	}
//	defer m.Disconnect(ctx)
package relational

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookexchange/internal/config"
	"github.com/mrlokans/bookexchange/internal/crypto"
	"github.com/mrlokans/bookexchange/internal/storage"
)

// KindSQLite is reported by managers built with NewSQLite.
const KindSQLite = "sqlite"

type opener func(ctx context.Context) (*gorm.DB, error)

// Manager is the relational storage adapter.
type Manager struct {
	mu     sync.RWMutex
	db     *gorm.DB
	kind   string
	open   opener
	hasher *crypto.Hasher
}

// NewMySQL returns an unconnected manager for the MySQL server described by cfg.
func NewMySQL(cfg config.Database, hasher *crypto.Hasher) *Manager {
	return &Manager{
		kind:   config.KindMySQL,
		open:   mysqlOpener(cfg),
		hasher: hasher,
	}
}

// NewSQLite returns an unconnected manager backed by the SQLite file at path.
// Use ":memory:" for a throwaway database.
func NewSQLite(path string, hasher *crypto.Hasher) *Manager {
	return &Manager{
		kind:   KindSQLite,
		open:   sqliteOpener(path),
		hasher: hasher,
	}
}

func (m *Manager) Kind() string { return m.kind }

func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db != nil {
		return nil
	}

	db, err := m.open(ctx)
	if err != nil {
		log.Printf("Failed to connect to %s database: %v", m.kind, err)
		return err
	}

	if err := db.WithContext(ctx).AutoMigrate(&userRow{}, &bookRow{}, &exchangeRow{}); err != nil {
		closeDB(db)
		return &storage.ConfigError{Reason: "failed to migrate schema", Err: err}
	}

	m.db = db
	log.Printf("Connected to %s database", m.kind)
	return nil
}

func (m *Manager) Disconnect(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db == nil {
		return nil
	}
	err := closeDB(m.db)
	m.db = nil
	if err != nil {
		return fmt.Errorf("failed to close %s connection: %w", m.kind, err)
	}
	log.Printf("Disconnected from %s database", m.kind)
	return nil
}

func (m *Manager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.db != nil
}

// conn returns a context-bound session or storage.ErrNotConnected.
func (m *Manager) conn(ctx context.Context) (*gorm.DB, error) {
	m.mu.RLock()
	db := m.db
	m.mu.RUnlock()

	if db == nil {
		return nil, storage.ErrNotConnected
	}
	return db.WithContext(ctx), nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				SlowThreshold:             200 * time.Millisecond,
				LogLevel:                  logger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		),
	}
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func mysqlDSN(cfg config.Database, withDatabase bool) string {
	c := mysqldriver.NewConfig()
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	c.ParseTime = true
	c.Loc = time.UTC
	c.ClientFoundRows = true
	c.Params = map[string]string{"charset": "utf8mb4"}
	if cfg.Timeout > 0 {
		c.Timeout = cfg.Timeout
	}
	if withDatabase {
		c.DBName = cfg.Name
	}
	return c.FormatDSN()
}

// mysqlOpener creates the configured database on the server if needed and
// then opens a pool bound to it.
func mysqlOpener(cfg config.Database) opener {
	return func(ctx context.Context) (*gorm.DB, error) {
		if cfg.Name == "" || strings.ContainsAny(cfg.Name, "`/\\.") {
			return nil, &storage.ConfigError{Reason: fmt.Sprintf("invalid database name %q", cfg.Name)}
		}

		server, err := gorm.Open(mysql.Open(mysqlDSN(cfg, false)), gormConfig())
		if err != nil {
			return nil, &storage.ConnectionError{Backend: config.KindMySQL, Op: "connect", Err: err}
		}

		createErr := server.WithContext(ctx).
			Exec(fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s` CHARACTER SET utf8mb4", cfg.Name)).Error
		closeDB(server)
		if createErr != nil {
			if isConnectionFailure(createErr) {
				return nil, &storage.ConnectionError{Backend: config.KindMySQL, Op: "create database", Err: createErr}
			}
			return nil, &storage.ConfigError{Reason: fmt.Sprintf("failed to create database %s", cfg.Name), Err: createErr}
		}

		db, err := gorm.Open(mysql.Open(mysqlDSN(cfg, true)), gormConfig())
		if err != nil {
			return nil, &storage.ConnectionError{Backend: config.KindMySQL, Op: "connect", Err: err}
		}
		log.Printf("Using MySQL database %s at %s:%d", cfg.Name, cfg.Host, cfg.Port)
		return db, nil
	}
}

func sqliteOpener(path string) opener {
	return func(ctx context.Context) (*gorm.DB, error) {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		db, err := gorm.Open(sqlite.Open(path+sep+"_foreign_keys=on"), gormConfig())
		if err != nil {
			return nil, &storage.ConnectionError{Backend: KindSQLite, Op: "connect", Err: err}
		}

		// A single connection keeps ":memory:" databases shared across calls
		// and serializes writers the way SQLite expects.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, &storage.ConnectionError{Backend: KindSQLite, Op: "connect", Err: err}
		}
		sqlDB.SetMaxOpenConns(1)

		if err := sqlDB.PingContext(ctx); err != nil {
			closeDB(db)
			return nil, &storage.ConnectionError{Backend: KindSQLite, Op: "ping", Err: err}
		}
		return db, nil
	}
}
