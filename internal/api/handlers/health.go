package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ratewatch/ratewatch/internal/services"
)

// HealthChecker is satisfied by the database and Redis wrappers.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// StatsSource reports the latest resource snapshot.
type StatsSource interface {
	Latest() services.SystemStats
}

type HealthHandler struct {
	db      HealthChecker
	redis   HealthChecker
	stats   StatsSource
	version string
}

func NewHealthHandler(db, redis HealthChecker, stats StatsSource, version string) *HealthHandler {
	return &HealthHandler{db: db, redis: redis, stats: stats, version: version}
}

type HealthResponse struct {
	Status    string                `json:"status"`
	Timestamp time.Time             `json:"timestamp"`
	Version   string                `json:"version"`
	Services  HealthServices        `json:"services"`
	System    *services.SystemStats `json:"system,omitempty"`
}

type HealthServices struct {
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

// Health handles GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   h.version,
		Services: HealthServices{
			Database: "ok",
			Redis:    "ok",
		},
	}

	ctx := c.Request.Context()
	if h.db == nil {
		response.Services.Database = "disabled"
	} else if err := h.db.HealthCheck(ctx); err != nil {
		response.Services.Database = "error"
		response.Status = "degraded"
	}
	if h.redis == nil {
		response.Services.Redis = "disabled"
	} else if err := h.redis.HealthCheck(ctx); err != nil {
		response.Services.Redis = "error"
		response.Status = "degraded"
	}

	if h.stats != nil {
		stats := h.stats.Latest()
		if !stats.CollectedAt.IsZero() {
			response.System = &stats
		}
	}

	statusCode := http.StatusOK
	if response.Status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, response)
}
