package di

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wissam-databricks/sncf-travel-assistant-databricks/internal/repository"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/cache"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/config"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/logger"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/secrets"
)

func baseConfig() *config.Config {
	cfg := config.Load()
	cfg.Agent.Mode = ""
	cfg.Agent.EndpointURL = ""
	cfg.Redis.URL = ""
	cfg.Trips.Store = config.TripsStoreMemory
	cfg.Vault.Enabled = false
	cfg.Observability.Metrics = false
	cfg.Observability.Tracing = ""
	return cfg
}

func TestNew_MockDefaults(t *testing.T) {
	c, err := New(context.Background(), baseConfig(), logger.Discard())
	require.NoError(t, err)
	defer c.Close(context.Background())

	assert.Equal(t, config.AgentModeMock, c.AgentMode)
	assert.Nil(t, c.Breaker)
	assert.False(t, c.AgentConfigured())
	assert.Nil(t, c.MetricsInstruments())
	assert.IsType(t, &cache.MemoryStore{}, c.Cache)
	assert.IsType(t, &repository.StaticTripRepository{}, c.TripRepo)
	assert.IsType(t, secrets.EnvManager{}, c.Secrets)
	assert.ElementsMatch(t, []string{"agent", "websocket"}, c.Health.Names())
	assert.Equal(t, config.AgentModeMock, c.ChatService.Mode())
}

func TestNew_ServingWiresBreakerAndMetrics(t *testing.T) {
	cfg := baseConfig()
	cfg.Agent.EndpointURL = "http://agent.invalid/serving-endpoints/travel/invocations"
	cfg.Observability.Metrics = true

	c, err := New(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)
	defer c.Close(context.Background())

	assert.Equal(t, config.AgentModeServing, c.AgentMode)
	require.NotNil(t, c.Breaker)
	assert.True(t, c.AgentConfigured())
	assert.NotNil(t, c.MetricsInstruments())

	report := c.Health.Run(context.Background())
	assert.True(t, report.Healthy)
	assert.True(t, report.Components["agent"].Critical)
}

func TestNew_UnreachableVaultFallsBackToEnv(t *testing.T) {
	cfg := baseConfig()
	cfg.Vault.Enabled = true
	cfg.Vault.Address = ""

	c, err := New(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)
	defer c.Close(context.Background())

	assert.IsType(t, secrets.EnvManager{}, c.Secrets)
}

func TestClose_IsIdempotent(t *testing.T) {
	c, err := New(context.Background(), baseConfig(), logger.Discard())
	require.NoError(t, err)

	assert.NoError(t, c.Close(context.Background()))
	assert.NoError(t, c.Close(context.Background()))
}
