package grpcserver

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/logger"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/resilience"
)

func startServer(t *testing.T, s *Server) healthpb.HealthClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Shutdown(ctx)
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return healthpb.NewHealthClient(conn)
}

func check(t *testing.T, client healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestServer_ReportsServing(t *testing.T) {
	client := startServer(t, New(logger.Discard()))

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, ChatService))
}

func TestServer_TracksBreaker(t *testing.T) {
	s := New(logger.Discard())
	cb := resilience.NewCircuitBreaker(resilience.Config{
		Name:             "agent",
		FailureThreshold: 1,
		Cooldown:         time.Hour,
	}, logger.Discard())
	s.TrackBreaker(cb)
	client := startServer(t, s)

	_ = cb.Execute(func() error { return errors.New("upstream down") })

	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, client, ChatService))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, ""))
}
