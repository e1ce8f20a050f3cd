package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Backend kinds accepted in DB_TYPE.
const (
	KindMySQL   = "mysql"
	KindMongoDB = "mongodb"
)

const (
	DefaultMySQLPort   = 3306
	DefaultMongoDBPort = 27017

	DefaultSessionDBPath = "./bookexchange-sessions.db"
	DefaultTasksDBPath   = "./bookexchange-tasks.db"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Auth
		Tasks
		Reports
	}

	HTTP struct {
		Port int32
		Host string
	}

	Global struct {
		ShutdownTimeoutInSeconds int
	}

	Database struct {
		Type     string // "mysql" or "mongodb"; no default
		Host     string
		Port     int
		Name     string
		User     string
		Password string

		ConnectAttempts int
		ConnectBackoff  time.Duration
		Timeout         time.Duration // per connect attempt
	}

	Auth struct {
		SessionLifetime time.Duration
		SessionDBPath   string
		BcryptCost      int
		SecureCookies   bool   // Set to false for local dev without HTTPS
		CSRFSecret      string // 32 bytes; empty disables CSRF protection
	}

	Tasks struct {
		Enabled         bool
		DBPath          string
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}

	Reports struct {
		SnapshotEnabled  bool
		SnapshotSchedule string // Cron format: "0 * * * *" = hourly
		Limit            int
	}
)

// DefaultPort returns the conventional port for a backend kind, or 0 for
// unknown kinds.
func DefaultPort(kind string) int {
	switch NormalizeKind(kind) {
	case KindMySQL:
		return DefaultMySQLPort
	case KindMongoDB:
		return DefaultMongoDBPort
	}
	return 0
}

// NormalizeKind trims and lower-cases a backend kind.
func NormalizeKind(kind string) string {
	return strings.ToLower(strings.TrimSpace(kind))
}

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)

	// Database defaults. db_type is deliberately left unset.
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", 0) // resolved from db_type below
	v.SetDefault("db_name", "bookexchange")
	v.SetDefault("db_user", "root")
	v.SetDefault("db_password", "")
	v.SetDefault("db_connect_attempts", 5)
	v.SetDefault("db_connect_backoff", "1s")
	v.SetDefault("db_timeout", "10s")

	// Auth defaults
	v.SetDefault("auth_session_lifetime", "24h")
	v.SetDefault("auth_session_db_path", DefaultSessionDBPath)
	v.SetDefault("auth_bcrypt_cost", 12)
	v.SetDefault("auth_secure_cookies", true)
	v.SetDefault("auth_csrf_secret", "")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("tasks_db_path", DefaultTasksDBPath)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	// Report snapshot defaults
	v.SetDefault("report_snapshot_enabled", false)
	v.SetDefault("report_snapshot_schedule", "0 * * * *") // Hourly at :00
	v.SetDefault("report_snapshot_limit", 10)

	kind := NormalizeKind(v.GetString("DB_TYPE"))
	port := v.GetInt("DB_PORT")
	if port == 0 {
		port = DefaultPort(kind)
	}

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Type:            kind,
			Host:            v.GetString("DB_HOST"),
			Port:            port,
			Name:            v.GetString("DB_NAME"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			ConnectAttempts: v.GetInt("DB_CONNECT_ATTEMPTS"),
			ConnectBackoff:  v.GetDuration("DB_CONNECT_BACKOFF"),
			Timeout:         v.GetDuration("DB_TIMEOUT"),
		},
		Auth: Auth{
			SessionLifetime: v.GetDuration("AUTH_SESSION_LIFETIME"),
			SessionDBPath:   v.GetString("AUTH_SESSION_DB_PATH"),
			BcryptCost:      v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:   v.GetBool("AUTH_SECURE_COOKIES"),
			CSRFSecret:      v.GetString("AUTH_CSRF_SECRET"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			DBPath:          v.GetString("TASKS_DB_PATH"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Reports: Reports{
			SnapshotEnabled:  v.GetBool("REPORT_SNAPSHOT_ENABLED"),
			SnapshotSchedule: v.GetString("REPORT_SNAPSHOT_SCHEDULE"),
			Limit:            v.GetInt("REPORT_SNAPSHOT_LIMIT"),
		},
	}
}
