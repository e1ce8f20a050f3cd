package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

// StorageStatus is the part of storage.Manager the health check reads.
type StorageStatus interface {
	IsConnected() bool
	Kind() string
}

type HealthController struct {
	store   StorageStatus
	version string
}

func NewHealthController(store StorageStatus, version string) *HealthController {
	return &HealthController{
		store:   store,
		version: version,
	}
}

func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	if h.store != nil {
		checks["backend"] = h.store.Kind()
		if h.store.IsConnected() {
			checks["storage"] = "ok"
		} else {
			checks["storage"] = "error: not connected"
			status = "unhealthy"
		}
	} else {
		checks["storage"] = "not configured"
		status = "unhealthy"
	}

	health := HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, health)
}
