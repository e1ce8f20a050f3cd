package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookexchange/internal/services"
)

// maxReportLimit caps the size of top lists requested over HTTP.
const maxReportLimit = 100

// SnapshotEnqueuer schedules a background report snapshot and returns the
// task ID.
type SnapshotEnqueuer interface {
	EnqueueReportSnapshot(limit int) (string, error)
}

type ReportsController struct {
	reports   *services.ReportService
	snapshots SnapshotEnqueuer
}

// NewReportsController creates a ReportsController. snapshots may be nil when
// the task queue is disabled.
func NewReportsController(reports *services.ReportService, snapshots SnapshotEnqueuer) *ReportsController {
	return &ReportsController{reports: reports, snapshots: snapshots}
}

// GetReport handles GET /api/reports?limit=N
func (rc *ReportsController) GetReport(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	report, err := rc.reports.Summary(c.Request.Context(), limit)
	if err != nil {
		respondServiceError(c, err, "report", "build report")
		return
	}
	c.JSON(http.StatusOK, report)
}

// EnqueueSnapshot handles POST /api/reports/snapshot?limit=N
func (rc *ReportsController) EnqueueSnapshot(c *gin.Context) {
	if rc.snapshots == nil {
		respondError(c, http.StatusServiceUnavailable, "task queue is disabled", "tasks_disabled")
		return
	}

	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	taskID, err := rc.snapshots.EnqueueReportSnapshot(limit)
	if err != nil {
		respondInternalError(c, err, "enqueue report snapshot")
		return
	}
	respondAccepted(c, "task enqueued", gin.H{"task_id": taskID, "limit": limit})
}

// parseLimit reads the optional limit query parameter. Zero means the
// service default.
func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > maxReportLimit {
		respondBadRequest(c, "limit must be between 1 and "+strconv.Itoa(maxReportLimit))
		return 0, false
	}
	return limit, true
}
