package api

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wissam-databricks/sncf-travel-assistant-databricks/internal/models"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/internal/service"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/errors"
)

type TripHandler struct {
	service *service.TripService
}

func NewTripHandler(service *service.TripService) *TripHandler {
	return &TripHandler{service: service}
}

func (h *TripHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/trips", h.ListTrips)
}

// ListTrips returns the trips of the userId query parameter
func (h *TripHandler) ListTrips(c *gin.Context) {
	trips, err := h.service.ListTrips(c.Request.Context(), c.Query("userId"))
	if err != nil {
		if stderrors.Is(err, service.ErrUserIDRequired) {
			c.Error(errUserIDRequired)
			return
		}
		c.Error(errors.Internal(err))
		return
	}

	c.JSON(http.StatusOK, models.TripsResponse{Trips: trips})
}
