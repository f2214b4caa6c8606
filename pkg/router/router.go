package router

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/wissam-databricks/sncf-travel-assistant-databricks/internal/api"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/internal/ws"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/config"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/di"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/errors"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/logger"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/middleware"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/validator"
)

// Track server start time for uptime calculations
var startTime = time.Now()

// Router is the main router for the application
type Router struct {
	Engine      *gin.Engine
	Container   *di.Container
	Logger      *logger.Logger
	Config      *config.Config
	rateLimiter *middleware.RateLimiter
}

// New creates a router with every route registered
func New(ctx context.Context, container *di.Container) (*Router, error) {
	cfg := container.Config

	// Configure Gin mode based on environment
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Use the logger middleware first to capture all requests
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.Recovery())
	engine.Use(middleware.CORS(cfg.Security.AllowedOrigins))
	engine.Use(middleware.BodyLimit(cfg.Security.MaxBodySize))

	opts := middleware.DefaultRateLimiterOptions()
	opts.Limit = rate.Limit(cfg.Security.RateLimit)
	opts.Burst = cfg.Security.RateLimitBurst

	r := &Router{
		Engine:      engine,
		Container:   container,
		Logger:      container.Logger,
		Config:      cfg,
		rateLimiter: middleware.NewRateLimiter(container.Logger, opts),
	}

	if err := r.setupRoutes(ctx); err != nil {
		r.Stop()
		return nil, err
	}
	return r, nil
}

// Stop releases background resources held by middleware
func (r *Router) Stop() {
	r.rateLimiter.Stop()
}

func (r *Router) setupRoutes(ctx context.Context) error {
	c := r.Container

	healthHandler := api.NewHealthHandler(c.Health, r.Config.Server.Version, c.AgentConfigured(), c.AgentMode)
	r.Engine.GET("/health", healthHandler.Health)
	r.Engine.GET("/api/health", healthHandler.Health)

	if c.Metrics != nil {
		r.Engine.GET("/metrics", gin.WrapH(c.Metrics.Handler))
	}

	r.Engine.GET("/api/docs/openapi.yaml", func(gc *gin.Context) {
		gc.Data(http.StatusOK, "application/yaml", api.OpenAPISpec)
	})

	wsHandler := ws.NewHandler(c.ChatService, c.Hub, c.MetricsInstruments(), r.Logger, r.Config.Security.AllowedOrigins)
	r.Engine.GET("/ws/chat", wsHandler.ServeChat)

	apiGroup := r.Engine.Group("/api")
	apiGroup.Use(r.rateLimiter.Middleware())

	if r.Config.OpenAPI.Validate {
		v, err := validator.NewOpenAPIValidator(ctx, api.OpenAPISpec)
		if err != nil {
			return fmt.Errorf("failed to set up request validation: %w", err)
		}
		apiGroup.Use(v.Middleware())
	}

	api.NewChatHandler(c.ChatService).RegisterRoutes(apiGroup)
	api.NewTripHandler(c.TripService).RegisterRoutes(apiGroup)
	api.NewAnalyticsHandler(c.AnalyticsService).RegisterRoutes(apiGroup)

	r.Engine.NoRoute(r.notFound(r.Config.Frontend.Dir))
	return nil
}
