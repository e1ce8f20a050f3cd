package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/bookexchange/internal/auth"
	"github.com/mrlokans/bookexchange/internal/http"
	"github.com/mrlokans/bookexchange/internal/scheduler"
	"github.com/mrlokans/bookexchange/internal/services"
	"github.com/mrlokans/bookexchange/internal/storage"
	"github.com/mrlokans/bookexchange/internal/storage/document"
	"github.com/mrlokans/bookexchange/internal/storage/relational"
	"github.com/mrlokans/bookexchange/internal/tasks"
)

// =============================================================================
// Storage Adapters
// =============================================================================

// Manager implementations
var _ storage.Manager = (*relational.Manager)(nil)
var _ storage.Manager = (*document.Manager)(nil)

// Session user lookup
var _ auth.UserLookup = (storage.UserStore)(nil)

// =============================================================================
// Background Work
// =============================================================================

// SnapshotEnqueuer implementations
var _ http.SnapshotEnqueuer = (*tasks.Client)(nil)
var _ scheduler.SnapshotEnqueuer = (*tasks.Client)(nil)

// TaskStatusReader implementations
var _ http.TaskStatusReader = (*tasks.Client)(nil)

// ReportBuilder implementations
var _ tasks.ReportBuilder = (*services.ReportService)(nil)

// =============================================================================
// HTTP
// =============================================================================

// StorageStatus implementations
var _ http.StorageStatus = (storage.Manager)(nil)
