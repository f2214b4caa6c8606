package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/wissam-databricks/sncf-travel-assistant-databricks/internal/agent"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/internal/repository"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/internal/service"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/internal/ws"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/cache"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/config"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/health"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/logger"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/observability"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/resilience"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/secrets"
)

const cacheKeyPrefix = "travel-assistant:"

// Container holds all the dependencies for the application
type Container struct {
	Config  *config.Config
	Logger  *logger.Logger
	Metrics *observability.MetricsProvider

	Secrets   secrets.Manager
	AgentMode string
	// Breaker guards the serving endpoint; nil in mock mode
	Breaker *resilience.CircuitBreaker

	Cache    cache.Store
	DB       *gorm.DB
	TripRepo repository.TripRepository

	ChatService      *service.ChatService
	TripService      *service.TripService
	AnalyticsService *service.AnalyticsService

	Health *health.Checker
	Hub    *ws.Hub

	closers []func(ctx context.Context) error
}

// New wires every dependency described by cfg. On error, whatever was
// already opened is closed.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	if cfg == nil {
		cfg = config.Get()
	}
	if log == nil {
		log = logger.Global()
	}

	c := &Container{
		Config: cfg,
		Logger: log,
		Health: health.NewChecker(log, 2*time.Second),
		Hub:    ws.NewHub(),
	}
	ready := false
	defer func() {
		if !ready {
			_ = c.Close(context.Background())
		}
	}()

	if err := c.initObservability(); err != nil {
		return nil, err
	}
	c.initSecrets()
	if err := c.initAgent(); err != nil {
		return nil, err
	}
	if err := c.initCache(ctx); err != nil {
		return nil, err
	}
	if err := c.initTrips(ctx); err != nil {
		return nil, err
	}

	c.TripService = service.NewTripService(c.TripRepo)
	c.AnalyticsService = service.NewAnalyticsService(c.Cache, cfg.Cache.TTL, log)

	c.Health.Register("websocket", false, func(context.Context) (health.Status, string, error) {
		return health.StatusUp, fmt.Sprintf("%d active connections", c.Hub.Count()), nil
	})
	c.closers = append(c.closers, func(context.Context) error {
		c.Hub.CloseAll()
		return nil
	})

	ready = true
	return c, nil
}

// MetricsInstruments returns the gateway instruments, nil when metrics are off
func (c *Container) MetricsInstruments() *observability.Metrics {
	if c.Metrics == nil {
		return nil
	}
	return c.Metrics.Metrics
}

func (c *Container) initObservability() error {
	cfg := c.Config.Observability

	if cfg.Metrics {
		mp, err := observability.SetupMetrics(cfg.ServiceName)
		if err != nil {
			return err
		}
		c.Metrics = mp
		c.closers = append(c.closers, mp.Shutdown)
	}

	shutdown, err := observability.SetupTracing(cfg.Tracing, cfg.ServiceName)
	if err != nil {
		return err
	}
	c.closers = append(c.closers, shutdown)
	return nil
}

// initSecrets prefers Vault when enabled and reachable, falling back to
// the environment
func (c *Container) initSecrets() {
	c.Secrets = secrets.EnvManager{}

	vc := c.Config.Vault
	if !vc.Enabled {
		return
	}
	vm, err := secrets.NewVaultManager(secrets.VaultConfig{
		Address:     vc.Address,
		Token:       vc.Token,
		Namespace:   vc.Namespace,
		Mount:       vc.Mount,
		SecretsPath: vc.SecretsPath,
		Timeout:     vc.Timeout,
	}, secrets.EnvManager{}, c.Logger)
	if err != nil {
		c.Logger.Warn("Vault unavailable, reading secrets from environment", "error", err.Error())
		return
	}
	c.Secrets = vm
}

func (c *Container) initAgent() error {
	cfg := c.Config
	c.AgentMode = cfg.AgentMode()

	var responder agent.Responder
	switch c.AgentMode {
	case config.AgentModeServing:
		bc := resilience.DefaultConfig("agent")
		bc.FailureThreshold = uint(max(cfg.Agent.BreakerFailures, 1))
		bc.Cooldown = cfg.Agent.BreakerCooldown
		bc.IsFailure = agent.BreakerFailure
		c.Breaker = resilience.NewCircuitBreaker(bc, c.Logger)
		c.Breaker.OnStateChange(func(_, to resilience.State) {
			c.MetricsInstruments().RecordBreakerTransition(context.Background(), "agent", string(to))
		})

		staticToken := cfg.Agent.APIToken
		client, err := agent.NewServingClient(agent.ServingConfig{
			EndpointURL: cfg.Agent.EndpointURL,
			TokenFunc: func(ctx context.Context) (string, error) {
				return secrets.GetSecretWithDefault(ctx, c.Secrets, secrets.KeyAgentAPIToken, staticToken), nil
			},
			Timeout:      cfg.Agent.Timeout,
			TotalTimeout: cfg.Agent.TotalTimeout,
			Retry: resilience.RetryPolicy{
				MaxRetries:      uint64(max(cfg.Agent.MaxRetries, 0)),
				InitialInterval: cfg.Agent.RetryInitialInterval,
				MaxInterval:     cfg.Agent.RetryMaxInterval,
			},
			Breaker: c.Breaker,
			Metrics: c.MetricsInstruments(),
			Logger:  c.Logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create agent client: %w", err)
		}
		responder = client
		c.Health.Register("agent", true, health.BreakerCheck(c.Breaker))
	default:
		responder = agent.NewMockResponder(cfg.Agent.MockDelay)
		c.Health.Register("agent", false, health.StaticCheck(health.StatusUp, "Mock responder"))
	}

	c.Logger.Info("Chat responder selected", "mode", c.AgentMode)
	c.ChatService = service.NewChatService(responder, c.AgentMode, c.MetricsInstruments(), c.Logger)
	return nil
}

// initCache uses Redis when configured and the in-memory store otherwise
func (c *Container) initCache(ctx context.Context) error {
	cfg := c.Config

	if cfg.Redis.URL == "" {
		mem := cache.NewMemoryStore(cfg.Cache.MaxSize, time.Minute)
		c.Cache = mem
		c.closers = append(c.closers, func(context.Context) error { return mem.Close() })
		return nil
	}

	client, err := cache.NewRedisClient(cache.RedisConfig{
		URL:      cfg.Redis.URL,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	store := cache.NewRedisStore(client, cacheKeyPrefix)
	c.Cache = store
	c.closers = append(c.closers, func(context.Context) error { return store.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		// the analytics service falls through on cache errors
		c.Logger.Warn("Redis not reachable at startup", "error", err.Error())
	}
	c.Health.Register("redis", false, health.PingCheck("Redis", store.Ping))
	return nil
}

func (c *Container) initTrips(ctx context.Context) error {
	cfg := c.Config

	if cfg.Trips.Store != config.TripsStorePostgres {
		c.TripRepo = repository.NewStaticTripRepository(nil)
		return nil
	}

	db, err := config.NewDB(ctx, cfg)
	if err != nil {
		return err
	}
	c.DB = db
	c.closers = append(c.closers, func(context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	repo := repository.NewGormTripRepository(db)
	if err := repo.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate trips: %w", err)
	}
	c.TripRepo = repo
	c.Health.Register("database", true, health.PingCheck("Database", repo.Ping))
	return nil
}

// AgentConfigured reports whether a serving endpoint URL is set
func (c *Container) AgentConfigured() bool {
	return c.Config.Agent.EndpointURL != ""
}

// Close releases resources in reverse order of creation
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
