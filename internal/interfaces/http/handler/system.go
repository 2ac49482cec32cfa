package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/communal/backend/internal/infrastructure/logger"
	"github.com/communal/backend/internal/interfaces/http/dto"
)

// DatabasePinger is satisfied by persistence.Database
type DatabasePinger interface {
	Ping() error
}

// CachePinger is satisfied by cache.Backend
type CachePinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler serves health and build information
type SystemHandler struct {
	BaseHandler
	db        DatabasePinger
	cache     CachePinger
	version   string
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler. cache may be nil.
func NewSystemHandler(db DatabasePinger, cache CachePinger, version string) *SystemHandler {
	return &SystemHandler{
		db:        db,
		cache:     cache,
		version:   version,
		startTime: time.Now(),
	}
}

// HealthResponse is the /health body
type HealthResponse struct {
	Status   string `json:"status" example:"healthy"`
	Time     string `json:"time"`
	Database string `json:"database" example:"ok"`
	Cache    string `json:"cache,omitempty" example:"ok"`
}

// Health godoc
// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200 {object} HealthResponse
// @Failure      503 {object} HealthResponse
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	reqLog := logger.GetGinLogger(c)
	resp := HealthResponse{
		Status:   "healthy",
		Time:     time.Now().UTC().Format(time.RFC3339),
		Database: "ok",
	}
	status := http.StatusOK

	if err := h.db.Ping(); err != nil {
		reqLog.Warn("Health check failed", zap.String("component", "database"), zap.Error(err))
		resp.Database = "error"
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	if h.cache != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		resp.Cache = "ok"
		if err := h.cache.Ping(ctx); err != nil {
			reqLog.Warn("Health check failed", zap.String("component", "cache"), zap.Error(err))
			resp.Cache = "error"
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, resp)
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name" example:"Communal Billing API"`
	Version   string `json:"version" example:"1.0.0"`
	GoVersion string `json:"go_version" example:"go1.25.5"`
	Uptime    string `json:"uptime" example:"1h30m45s"`
}

// Info returns version and uptime
func (h *SystemHandler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(SystemInfoResponse{
		Name:      "Communal Billing API",
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}))
}
