package grpcserver

import (
	"context"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/logger"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/resilience"
)

// ChatService is the health service name reported for the chat gateway
const ChatService = "travel.assistant.Chat"

// Server exposes grpc.health.v1 for the gateway
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	log    *logger.Logger
}

// New creates a gRPC server with the standard health service registered.
// Both the overall status ("") and ChatService start as SERVING.
func New(log *logger.Logger) *Server {
	if log == nil {
		log = logger.Global()
	}
	s := &Server{
		grpc:   grpc.NewServer(),
		health: health.NewServer(),
		log:    log.WithComponent("grpc"),
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(ChatService, healthpb.HealthCheckResponse_SERVING)
	return s
}

// SetChatServing flips the chat service status
func (s *Server) SetChatServing(serving bool) {
	status := healthpb.HealthCheckResponse_SERVING
	if !serving {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus(ChatService, status)
}

// TrackBreaker keeps ChatService NOT_SERVING while cb is open
func (s *Server) TrackBreaker(cb *resilience.CircuitBreaker) {
	cb.OnStateChange(func(_, to resilience.State) {
		s.SetChatServing(to != resilience.StateOpen)
	})
	s.SetChatServing(cb.State() != resilience.StateOpen)
}

// Serve accepts connections on lis until Stop is called
func (s *Server) Serve(lis net.Listener) error {
	s.log.Info("gRPC server starting", "addr", lis.Addr().String())
	if err := s.grpc.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// ListenAndServe listens on port and serves
func (s *Server) ListenAndServe(port string) error {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", port, err)
	}
	return s.Serve(lis)
}

// Shutdown marks everything NOT_SERVING and stops gracefully, forcing a
// stop when ctx expires first
func (s *Server) Shutdown(ctx context.Context) {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.grpc.Stop()
	}
}
