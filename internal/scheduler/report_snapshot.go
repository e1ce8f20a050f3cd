package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/bookexchange/internal/config"
)

// SnapshotEnqueuer hands a report snapshot to the task queue.
type SnapshotEnqueuer interface {
	EnqueueReportSnapshot(limit int) (string, error)
}

// ReportSnapshotScheduler enqueues report snapshots on a cron schedule.
type ReportSnapshotScheduler struct {
	queue SnapshotEnqueuer
	cfg   config.Reports

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewReportSnapshotScheduler creates a new scheduler instance
func NewReportSnapshotScheduler(queue SnapshotEnqueuer, cfg config.Reports) *ReportSnapshotScheduler {
	return &ReportSnapshotScheduler{
		queue: queue,
		cfg:   cfg,
		cron:  cron.New(cron.WithParser(newParser())),
	}
}

func newParser() cron.Parser {
	return cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
}

// ValidateCronSchedule validates a five-field cron schedule string
func ValidateCronSchedule(schedule string) error {
	_, err := newParser().Parse(schedule)
	return err
}

// Start begins the scheduler if snapshots are enabled
func (s *ReportSnapshotScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.cfg.SnapshotEnabled {
		log.Printf("Report snapshot scheduler: disabled")
		return nil
	}

	if err := ValidateCronSchedule(s.cfg.SnapshotSchedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.cfg.SnapshotSchedule, err)
	}

	entryID, err := s.cron.AddFunc(s.cfg.SnapshotSchedule, s.runSnapshot)
	if err != nil {
		return fmt.Errorf("failed to schedule snapshot job: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Printf("Report snapshot scheduler: started with schedule '%s'. Next run: %v",
		s.cfg.SnapshotSchedule, s.cron.Entry(entryID).Next)

	// Monitor for context cancellation
	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler
func (s *ReportSnapshotScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	// Stop accepting new jobs and wait for running jobs to complete
	ctx := s.cron.Stop()
	<-ctx.Done()

	s.cron.Remove(s.entryID)
	s.isRunning = false
	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}

	log.Printf("Report snapshot scheduler: stopped")
}

// IsRunning returns whether the scheduler is active
func (s *ReportSnapshotScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRunTime returns when the next snapshot will be enqueued
func (s *ReportSnapshotScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	entry := s.cron.Entry(s.entryID)
	if !entry.Valid() {
		return nil
	}
	t := entry.Next
	return &t
}

// RunNow enqueues a snapshot immediately
func (s *ReportSnapshotScheduler) RunNow() {
	s.runSnapshot()
}

func (s *ReportSnapshotScheduler) runSnapshot() {
	id, err := s.queue.EnqueueReportSnapshot(s.cfg.Limit)
	if err != nil {
		log.Printf("Report snapshot: failed to enqueue: %v", err)
		return
	}
	log.Printf("Report snapshot: enqueued task %s", id)
}
