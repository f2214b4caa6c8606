package service

import (
	"context"
	"errors"

	"github.com/wissam-databricks/sncf-travel-assistant-databricks/internal/agent"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/internal/models"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/logger"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/observability"
)

// ErrMessageRequired is returned for an absent or empty message
var ErrMessageRequired = errors.New("message is required")

// Chat outcomes recorded in metrics
const (
	outcomeOK          = "ok"
	outcomeRejected    = "rejected"
	outcomeError       = "error"
	outcomeCircuitOpen = "circuit_open"
	outcomeCanceled    = "canceled"
)

// ChatService validates chat requests and delegates to a Responder
type ChatService struct {
	responder agent.Responder
	mode      string
	metrics   *observability.Metrics
	log       *logger.Logger
}

// NewChatService creates a new chat service
func NewChatService(responder agent.Responder, mode string, metrics *observability.Metrics, log *logger.Logger) *ChatService {
	if log == nil {
		log = logger.Global()
	}
	return &ChatService{
		responder: responder,
		mode:      mode,
		metrics:   metrics,
		log:       log.WithComponent("chat"),
	}
}

// Mode reports which responder backs the service
func (s *ChatService) Mode() string {
	return s.mode
}

// Reply returns the assistant answer to req
func (s *ChatService) Reply(ctx context.Context, req models.ChatRequest) (string, error) {
	// whitespace is a message: it falls through to the capabilities menu
	if req.Message == "" {
		s.metrics.RecordChat(ctx, s.mode, outcomeRejected)
		return "", ErrMessageRequired
	}

	reply, err := s.responder.Reply(ctx, req.Message, req.Context)
	if err != nil {
		outcome := outcomeError
		switch {
		case errors.Is(err, agent.ErrCircuitOpen):
			outcome = outcomeCircuitOpen
		case errors.Is(err, context.Canceled):
			outcome = outcomeCanceled
		}
		s.metrics.RecordChat(ctx, s.mode, outcome)
		s.log.WithContext(ctx).Error("Failed to generate reply", "mode", s.mode, "error", err.Error())
		return "", err
	}

	s.metrics.RecordChat(ctx, s.mode, outcomeOK)
	return reply, nil
}
