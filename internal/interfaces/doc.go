// Package interfaces documents the core abstractions used throughout the application.
//
// # Interface Categories
//
// ## Storage Port
//
//   - storage.Manager: connection lifecycle plus the four stores below
//     (internal/storage/storage.go)
//   - storage.UserStore, storage.BookStore, storage.ExchangeStore,
//     storage.ReportStore: narrow views used by the services
//
// Implementations: relational.Manager (GORM on MySQL, or SQLite for tests and
// local runs) and document.Manager (MongoDB). backend.New picks one from
// config.Database.Type.
//
// ## Background Work
//
//   - http.SnapshotEnqueuer / scheduler.SnapshotEnqueuer: enqueue a report
//     snapshot (tasks.Client)
//   - http.TaskStatusReader: task status lookups (tasks.Client)
//   - tasks.ReportBuilder: builds the report a snapshot logs
//     (services.ReportService)
//
// ## HTTP
//
//   - http.StorageStatus: what the health check reads from storage
//   - auth.UserLookup: resolves the session's username to a user
//
// Compile-time checks for all of the above live in checks.go.
package interfaces
