package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/health"
)

// HealthResponse represents the health check response structure
type HealthResponse struct {
	Status          string                       `json:"status"`
	Timestamp       time.Time                    `json:"timestamp"`
	Version         string                       `json:"version,omitempty"`
	AgentConfigured bool                         `json:"agent_configured"`
	AgentMode       string                       `json:"agent_mode"`
	Components      map[string]*health.Component `json:"components"`
}

// HealthHandler reports service health
type HealthHandler struct {
	checker         *health.Checker
	version         string
	agentConfigured bool
	agentMode       string
	now             func() time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(checker *health.Checker, version string, agentConfigured bool, agentMode string) *HealthHandler {
	return &HealthHandler{
		checker:         checker,
		version:         version,
		agentConfigured: agentConfigured,
		agentMode:       agentMode,
		now:             time.Now,
	}
}

// Health runs every check and renders the report, 503 when a critical
// component is down
func (h *HealthHandler) Health(c *gin.Context) {
	report := h.checker.Run(c.Request.Context())

	resp := HealthResponse{
		Status:          "healthy",
		Timestamp:       h.now(),
		Version:         h.version,
		AgentConfigured: h.agentConfigured,
		AgentMode:       h.agentMode,
		Components:      report.Components,
	}

	status := http.StatusOK
	if !report.Healthy {
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}
