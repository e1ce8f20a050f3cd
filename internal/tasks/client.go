package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikestefanello/backlite"
)

// Pool sizing for the queue database. Every worker holds a connection while
// it runs a task; the spare ones serve enqueues and status lookups.
const (
	spareConns    = 5
	spareIdle     = 2
	connLifetime  = time.Hour
	queueDSNFlags = "?_journal=WAL&_timeout=5000&_busy_timeout=5000"
)

// Client runs the background queues (report snapshots) on a SQLite file of
// its own, so it works the same with either storage backend.
type Client struct {
	client  *backlite.Client
	db      *sql.DB
	workers int

	mu      sync.Mutex
	running bool
}

// NewClient opens (or creates) the queue database at dbPath and installs the
// backlite schema. cfg.Workers below one is raised to one.
func NewClient(dbPath string, cfg Config) (*Client, error) {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	db, err := openQueueDB(dbPath, cfg.Workers)
	if err != nil {
		return nil, err
	}

	client, err := backlite.NewClient(backlite.ClientConfig{
		DB:              db,
		NumWorkers:      cfg.Workers,
		ReleaseAfter:    cfg.ReleaseAfter,
		CleanupInterval: cfg.CleanupInterval,
		Logger:          queueLogger{},
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create task queue: %w", err)
	}
	if err := client.Install(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to install task queue schema: %w", err)
	}

	return &Client{client: client, db: db, workers: cfg.Workers}, nil
}

func openQueueDB(path string, workers int) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+queueDSNFlags)
	if err != nil {
		return nil, fmt.Errorf("failed to open tasks database %s: %w", path, err)
	}
	db.SetMaxOpenConns(workers + spareConns)
	db.SetMaxIdleConns(workers + spareIdle)
	db.SetConnMaxLifetime(connLifetime)
	return db, nil
}

// Register adds queues. Call it before Start.
func (c *Client) Register(queues ...backlite.Queue) {
	for _, q := range queues {
		c.client.Register(q)
	}
}

// Start runs the workers until ctx is cancelled or Stop is called. Callers
// run it in a goroutine; a second call while running is ignored.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.mu.Unlock()

	log.Printf("Task queue started with %d workers", c.workers)
	c.client.Start(ctx)
}

// Stop waits for in-flight tasks until ctx expires. It reports whether every
// worker finished in time.
func (c *Client) Stop(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return true
	}
	c.running = false

	finished := c.client.Stop(ctx)
	if finished {
		log.Println("Task queue stopped")
	} else {
		log.Println("Task queue stopped before in-flight tasks finished")
	}
	return finished
}

func (c *Client) Close() error {
	return c.db.Close()
}

// EnqueueReportSnapshot schedules a report snapshot with the given top-list
// size and returns the task ID.
func (c *Client) EnqueueReportSnapshot(limit int) (string, error) {
	return c.enqueue("report snapshot", ReportSnapshotTask{Limit: limit})
}

func (c *Client) enqueue(what string, task backlite.Task) (string, error) {
	ids, err := c.client.Add(task).Save()
	if err != nil {
		return "", fmt.Errorf("failed to enqueue %s: %w", what, err)
	}
	if len(ids) == 0 {
		return "", fmt.Errorf("failed to enqueue %s: no task id returned", what)
	}
	return ids[0], nil
}

// Status looks up a task enqueued through this client. Unknown IDs yield
// backlite.TaskStatusNotFound with a nil error.
func (c *Client) Status(ctx context.Context, taskID string) (backlite.TaskStatus, error) {
	return c.client.Status(ctx, taskID)
}

type queueLogger struct{}

func (queueLogger) Info(message string, params ...any) {
	log.Printf("[TASK] "+message, params...)
}

func (queueLogger) Error(message string, params ...any) {
	log.Printf("[TASK ERROR] "+message, params...)
}
