package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/erp/personportal/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// SystemHandler serves the liveness probe
type SystemHandler struct {
	BaseHandler
	serviceName string
	startTime   time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(serviceName string) *SystemHandler {
	return &SystemHandler{
		serviceName: serviceName,
		startTime:   time.Now(),
	}
}

// Health reports that the process is up. It does not probe the Person API,
// so an upstream outage never restarts the portal.
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.HealthResponse{
		Status:    "ok",
		Service:   h.serviceName,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Time:      time.Now().UTC(),
	}))
}
