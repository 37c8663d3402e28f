package http

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/elibrary/internal/blobstore"
	"github.com/mrlokans/elibrary/internal/database"
)

const healthCheckTimeout = 3 * time.Second

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

// HealthCheck probes one dependency. A nil func reports "not configured".
type HealthCheck func(ctx context.Context) error

// HealthController reports whether the database and the blob store answer.
type HealthController struct {
	checks  map[string]HealthCheck
	version string
}

// NewHealthController checks db and, when it can be pinged, blobs.
func NewHealthController(db *database.Database, blobs blobstore.Store, version string) *HealthController {
	checks := map[string]HealthCheck{"database": nil}
	if db != nil {
		checks["database"] = func(context.Context) error { return db.Ping() }
	}
	if p, ok := blobs.(blobstore.Pinger); ok {
		checks["storage"] = p.Ping
	}
	return &HealthController{checks: checks, version: version}
}

func (h *HealthController) Status(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := "healthy"
	results := make(map[string]string, len(names))
	for _, name := range names {
		check := h.checks[name]
		if check == nil {
			results[name] = "not configured"
			continue
		}
		if err := check(ctx); err != nil {
			results[name] = "error: " + err.Error()
			status = "unhealthy"
		} else {
			results[name] = "ok"
		}
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  results,
	})
}

func (h *HealthController) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}
