package services

import (
	"context"
	"fmt"
	"time"

	"github.com/mrlokans/bookexchange/internal/entities"
	"github.com/mrlokans/bookexchange/internal/storage"
)

// DefaultReportLimit is the size of the top lists.
const DefaultReportLimit = 10

// Report is a point-in-time summary of exchange activity.
type Report struct {
	GeneratedAt        time.Time       `json:"generated_at"`
	TotalUsers         int64           `json:"total_users"`
	TotalBooks         int64           `json:"total_books"`
	TotalExchanges     int64           `json:"total_exchanges"`
	MostExchangedBooks []entities.Book `json:"most_exchanged_books"`
	MostActiveUsers    []entities.User `json:"most_active_users"`
}

type ReportService struct {
	reports storage.ReportStore
}

func NewReportService(reports storage.ReportStore) *ReportService {
	return &ReportService{reports: reports}
}

// Summary builds a Report with top lists of size limit. A non-positive
// limit uses DefaultReportLimit.
func (s *ReportService) Summary(ctx context.Context, limit int) (*Report, error) {
	if limit <= 0 {
		limit = DefaultReportLimit
	}

	var (
		r   = &Report{GeneratedAt: time.Now().UTC()}
		err error
	)

	if r.TotalUsers, err = s.reports.GetTotalUsers(ctx); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if r.TotalBooks, err = s.reports.GetTotalBooks(ctx); err != nil {
		return nil, fmt.Errorf("failed to count books: %w", err)
	}
	if r.TotalExchanges, err = s.reports.GetTotalExchanges(ctx); err != nil {
		return nil, fmt.Errorf("failed to count exchanges: %w", err)
	}
	if r.MostExchangedBooks, err = s.reports.GetMostExchangedBooks(ctx, limit); err != nil {
		return nil, fmt.Errorf("failed to rank books: %w", err)
	}
	if r.MostActiveUsers, err = s.reports.GetMostActiveUsers(ctx, limit); err != nil {
		return nil, fmt.Errorf("failed to rank users: %w", err)
	}
	return r, nil
}
