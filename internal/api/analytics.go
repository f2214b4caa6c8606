package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wissam-databricks/sncf-travel-assistant-databricks/internal/service"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/errors"
)

// AnalyticsHandler serves dashboard data
type AnalyticsHandler struct {
	service *service.AnalyticsService
}

func NewAnalyticsHandler(service *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

func (h *AnalyticsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/analytics", h.Analytics)

	admin := rg.Group("/admin")
	{
		admin.GET("/kpis", h.AdminKPIs)
		admin.GET("/charts", h.AdminCharts)
	}
}

// Analytics returns the snapshot for the period query parameter
func (h *AnalyticsHandler) Analytics(c *gin.Context) {
	data, err := h.service.Analytics(c.Request.Context(), c.DefaultQuery("period", service.DefaultPeriod))
	if err != nil {
		c.Error(errors.Internal(err))
		return
	}
	c.JSON(http.StatusOK, data)
}

func (h *AnalyticsHandler) AdminKPIs(c *gin.Context) {
	kpis, err := h.service.AdminKPIs(c.Request.Context())
	if err != nil {
		c.Error(errors.Internal(err))
		return
	}
	c.JSON(http.StatusOK, kpis)
}

func (h *AnalyticsHandler) AdminCharts(c *gin.Context) {
	charts, err := h.service.AdminCharts(c.Request.Context())
	if err != nil {
		c.Error(errors.Internal(err))
		return
	}
	c.JSON(http.StatusOK, charts)
}
