package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/logger"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/resilience"
)

func TestChecker_CriticalDownIsUnhealthy(t *testing.T) {
	c := NewChecker(logger.Discard(), time.Second)
	c.Register("database", true, PingCheck("Database", func(context.Context) error {
		return errors.New("connection refused")
	}))
	c.Register("redis", false, PingCheck("Redis", func(context.Context) error { return nil }))

	report := c.Run(context.Background())

	assert.False(t, report.Healthy)
	require.Contains(t, report.Components, "database")
	assert.Equal(t, StatusDown, report.Components["database"].Status)
	assert.Equal(t, "connection refused", report.Components["database"].Error)
	assert.Equal(t, StatusUp, report.Components["redis"].Status)
	assert.Equal(t, []string{"database", "redis"}, c.Names())
}

func TestChecker_NonCriticalDownStaysHealthy(t *testing.T) {
	c := NewChecker(logger.Discard(), time.Second)
	c.Register("cache", false, StaticCheck(StatusDown, "unreachable"))

	assert.True(t, c.Run(context.Background()).Healthy)
}

func TestChecker_ChecksAreBoundedByTimeout(t *testing.T) {
	c := NewChecker(logger.Discard(), 20*time.Millisecond)
	c.Register("slow", true, PingCheck("Slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	report := c.Run(context.Background())
	assert.False(t, report.Healthy)
	assert.Contains(t, report.Components["slow"].Error, "deadline exceeded")
}

func TestBreakerCheck(t *testing.T) {
	cb := resilience.NewCircuitBreaker(resilience.Config{
		Name:             "agent",
		FailureThreshold: 1,
		Cooldown:         time.Hour,
	}, logger.Discard())
	check := BreakerCheck(cb)

	status, _, _ := check(context.Background())
	assert.Equal(t, StatusUp, status)

	_ = cb.Execute(func() error { return errors.New("boom") })
	status, _, _ = check(context.Background())
	assert.Equal(t, StatusDown, status)
}
