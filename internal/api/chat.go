package api

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wissam-databricks/sncf-travel-assistant-databricks/internal/models"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/internal/service"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/errors"
)

// ChatHandler serves the chat gateway
type ChatHandler struct {
	service *service.ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(service *service.ChatService) *ChatHandler {
	return &ChatHandler{service: service}
}

// RegisterRoutes registers the chat routes on rg
func (h *ChatHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/chat", h.Chat)
	rg.POST("/v1/chat", h.Chat)
}

// Chat answers one traveller message
func (h *ChatHandler) Chat(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errInvalidRequest.Wrap(err))
		return
	}

	reply, err := h.service.Reply(c.Request.Context(), req)
	if err != nil {
		if stderrors.Is(err, service.ErrMessageRequired) {
			c.Error(errMessageRequired)
			return
		}
		c.Error(errors.Internal(err))
		return
	}

	c.JSON(http.StatusOK, models.ChatResponse{Response: reply})
}
