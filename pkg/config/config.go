package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Agent modes
const (
	AgentModeServing = "serving"
	AgentModeMock    = "mock"
)

// Trip store backends
const (
	TripsStoreMemory   = "memory"
	TripsStorePostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server struct {
		Port            string
		Env             string
		Version         string
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
		GRPCPort        string
	}

	// Agent-serving endpoint integration
	Agent struct {
		EndpointURL          string
		APIToken             string
		Mode                 string
		Timeout              time.Duration
		TotalTimeout         time.Duration
		MaxRetries           int
		RetryInitialInterval time.Duration
		RetryMaxInterval     time.Duration
		BreakerFailures      int
		BreakerCooldown      time.Duration
		MockDelay            time.Duration
	}

	// Security configuration
	Security struct {
		RateLimit      float64
		RateLimitBurst int
		AllowedOrigins []string
		MaxBodySize    int64
	}

	// Logging configuration
	Logging struct {
		Level  string
		Format string
	}

	// Redis backs the analytics cache when URL is set
	Redis struct {
		URL      string
		Password string
		DB       int
	}

	// Database configuration, used when the trip store is postgres
	Database struct {
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
		MaxConns int
	}

	Trips struct {
		Store string
	}

	// Vault holds the agent token when enabled
	Vault struct {
		Enabled     bool
		Address     string
		Token       string
		Namespace   string
		Mount       string
		SecretsPath string
		Timeout     time.Duration
	}

	Observability struct {
		ServiceName string
		Metrics     bool
		Tracing     string
	}

	Cache struct {
		TTL     time.Duration
		MaxSize int
	}

	Frontend struct {
		Dir string
	}

	OpenAPI struct {
		Validate bool
	}
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the process-wide configuration, loading it on first use
func Get() *Config {
	once.Do(func() {
		// Load .env file if exists
		godotenv.Load()
		instance = Load()
	})
	return instance
}

// Load builds a Config from the current environment
func Load() *Config {
	cfg := &Config{}

	cfg.Server.Port = getEnvString("PORT", "8081")
	cfg.Server.Env = getEnvString("APP_ENV", "development")
	cfg.Server.Version = getEnvString("APP_VERSION", "dev")
	cfg.Server.ReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	cfg.Server.WriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 90*time.Second)
	cfg.Server.ShutdownTimeout = getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second)
	cfg.Server.GRPCPort = getEnvString("GRPC_PORT", "")

	cfg.Agent.EndpointURL = getEnvString("AGENT_ENDPOINT_URL", getEnvString("DATABRICKS_AGENT_ENDPOINT", ""))
	cfg.Agent.APIToken = getEnvString("AGENT_API_TOKEN", getEnvString("DATABRICKS_TOKEN", ""))
	cfg.Agent.Mode = strings.ToLower(getEnvString("AGENT_MODE", ""))
	cfg.Agent.Timeout = getEnvDuration("AGENT_TIMEOUT", 30*time.Second)
	cfg.Agent.TotalTimeout = getEnvDuration("AGENT_TOTAL_TIMEOUT", 75*time.Second)
	cfg.Agent.MaxRetries = getEnvInt("AGENT_MAX_RETRIES", 2)
	cfg.Agent.RetryInitialInterval = getEnvDuration("AGENT_RETRY_INITIAL_INTERVAL", 250*time.Millisecond)
	cfg.Agent.RetryMaxInterval = getEnvDuration("AGENT_RETRY_MAX_INTERVAL", 2*time.Second)
	cfg.Agent.BreakerFailures = getEnvInt("AGENT_BREAKER_FAILURES", 5)
	cfg.Agent.BreakerCooldown = getEnvDuration("AGENT_BREAKER_COOLDOWN", 30*time.Second)
	cfg.Agent.MockDelay = getEnvDuration("AGENT_MOCK_DELAY", 500*time.Millisecond)
	// the agent must give up early enough for the error body to be written
	if w := cfg.Server.WriteTimeout; w > 0 && (cfg.Agent.TotalTimeout <= 0 || cfg.Agent.TotalTimeout >= w) {
		cfg.Agent.TotalTimeout = w - w/6
	}

	cfg.Security.RateLimit = getEnvFloat("RATE_LIMIT", 5)
	cfg.Security.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", 10)
	cfg.Security.AllowedOrigins = getEnvStringSlice("ALLOWED_ORIGINS", []string{"*"})
	cfg.Security.MaxBodySize = getEnvInt64("MAX_BODY_SIZE", 1<<20) // 1MB

	cfg.Logging.Level = getEnvString("LOG_LEVEL", "info")
	cfg.Logging.Format = getEnvString("LOG_FORMAT", "json")

	cfg.Redis.URL = getEnvString("REDIS_URL", "")
	cfg.Redis.Password = getEnvString("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.Database.Host = getEnvString("DB_HOST", "localhost")
	cfg.Database.Port = getEnvString("DB_PORT", "5432")
	cfg.Database.User = getEnvString("DB_USER", "postgres")
	cfg.Database.Password = getEnvString("DB_PASSWORD", "postgres")
	cfg.Database.Name = getEnvString("DB_NAME", "travel_assistant")
	cfg.Database.SSLMode = getEnvString("DB_SSL_MODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)

	cfg.Trips.Store = strings.ToLower(getEnvString("TRIPS_STORE", TripsStoreMemory))

	cfg.Vault.Enabled = getEnvBool("VAULT_ENABLED", false)
	cfg.Vault.Address = getEnvString("VAULT_ADDR", "")
	cfg.Vault.Token = getEnvString("VAULT_TOKEN", "")
	cfg.Vault.Namespace = getEnvString("VAULT_NAMESPACE", "")
	cfg.Vault.Mount = getEnvString("VAULT_MOUNT", "secret")
	cfg.Vault.SecretsPath = getEnvString("VAULT_SECRETS_PATH", "travel-assistant")
	cfg.Vault.Timeout = getEnvDuration("VAULT_TIMEOUT", 10*time.Second)

	cfg.Observability.ServiceName = getEnvString("OTEL_SERVICE_NAME", "travel-assistant-gateway")
	cfg.Observability.Metrics = getEnvBool("METRICS_ENABLED", true)
	cfg.Observability.Tracing = strings.ToLower(getEnvString("OTEL_TRACING", ""))

	cfg.Cache.TTL = getEnvDuration("CACHE_TTL", 5*time.Minute)
	cfg.Cache.MaxSize = getEnvInt("CACHE_MAX_SIZE", 256)

	cfg.Frontend.Dir = getEnvString("FRONTEND_DIR", "")

	cfg.OpenAPI.Validate = getEnvBool("OPENAPI_VALIDATE", true)

	return cfg
}

// AgentMode resolves which responder backs the chat gateway. An explicit
// AGENT_MODE wins; otherwise a configured endpoint selects the serving client.
func (c *Config) AgentMode() string {
	switch c.Agent.Mode {
	case AgentModeServing, AgentModeMock:
		return c.Agent.Mode
	}
	if c.Agent.EndpointURL != "" {
		return AgentModeServing
	}
	return AgentModeMock
}

// Helper functions to read environment variables with default values

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}
