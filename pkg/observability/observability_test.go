package observability

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupMetrics_ExposesInstruments(t *testing.T) {
	p, err := SetupMetrics("travel-assistant-test")
	require.NoError(t, err)
	defer p.Shutdown(context.Background())

	ctx := context.Background()
	p.Metrics.RecordChat(ctx, "mock", "ok")
	p.Metrics.RecordUpstream(ctx, "200", 120*time.Millisecond)
	p.Metrics.RecordBreakerTransition(ctx, "agent", "open")

	w := httptest.NewRecorder()
	p.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "chat_requests_total")
	assert.Contains(t, body, "agent_upstream_duration_seconds")
	assert.Contains(t, body, "agent_breaker_transitions_total")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordChat(context.Background(), "mock", "ok")
		m.RecordUpstream(context.Background(), "error", time.Second)
		m.AddWSConnections(context.Background(), 1)
	})
}

func TestSetupTracing_StdoutExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := setupTracing("stdout", "travel-assistant-test", &buf)
	require.NoError(t, err)

	_, span := Tracer().Start(context.Background(), "agent.invoke")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "agent.invoke")
}

func TestSetupTracing_DisabledIsNoop(t *testing.T) {
	shutdown, err := SetupTracing("", "travel-assistant-test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
