package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookexchange/internal/services"
)

// ReportBuilder produces the exchange activity report.
type ReportBuilder interface {
	Summary(ctx context.Context, limit int) (*services.Report, error)
}

// ReportSnapshotTask builds a report and writes it to the log.
type ReportSnapshotTask struct {
	// Limit is the size of the top lists (0 = service default)
	Limit int `json:"limit,omitempty"`
}

// Config returns the queue configuration for report snapshot tasks.
func (t ReportSnapshotTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "report_snapshot",
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// ReportSnapshotProcessor creates a processor function for ReportSnapshotTask.
func ReportSnapshotProcessor(reports ReportBuilder) backlite.QueueProcessor[ReportSnapshotTask] {
	return func(ctx context.Context, task ReportSnapshotTask) error {
		if reports == nil {
			return fmt.Errorf("report builder not configured")
		}

		report, err := reports.Summary(ctx, task.Limit)
		if err != nil {
			return fmt.Errorf("report snapshot: %w", err)
		}

		log.Printf("[TASK] Report snapshot: %d users, %d books, %d exchanges",
			report.TotalUsers, report.TotalBooks, report.TotalExchanges)
		for i, b := range report.MostExchangedBooks {
			log.Printf("[TASK]   book #%d: %q by %s (%d exchanges)", i+1, b.Title, b.Author, b.ExchangeCount)
		}
		for i, u := range report.MostActiveUsers {
			log.Printf("[TASK]   user #%d: %s (%d exchanges)", i+1, u.Username, u.ExchangeCount)
		}
		return nil
	}
}

// NewReportSnapshotQueue creates a backlite queue for report snapshot tasks.
func NewReportSnapshotQueue(reports ReportBuilder) backlite.Queue {
	return backlite.NewQueue(ReportSnapshotProcessor(reports))
}
