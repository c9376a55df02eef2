package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	App           AppConfig
	Auth          AuthConfig
	Share         ShareConfig
	Observability ObservabilityConfig
}

// Store drivers.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"SERVER_PORT" required:"true"`
	Host            string        `envconfig:"SERVER_HOST" required:"true"`
	BaseURL         string        `envconfig:"SERVER_BASE_URL" required:"true"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" required:"true"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" required:"true"`
	IdleTimeout     time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" required:"true"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" required:"true"`
	// TrustProxy takes the viewer address from the first X-Forwarded-For hop.
	TrustProxy  bool     `envconfig:"SERVER_TRUST_PROXY" default:"false"`
	CORSOrigins []string `envconfig:"SERVER_CORS_ORIGINS"` // comma-separated; empty allows any origin
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}
	if c.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("idle timeout must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	return nil
}

// DatabaseConfig holds database connection configuration. It is only
// loaded when the share store is postgres.
type DatabaseConfig struct {
	Host        string `envconfig:"DB_HOST" required:"true"`
	Port        string `envconfig:"DB_PORT" required:"true"`
	User        string `envconfig:"DB_USER" required:"true"`
	Password    string `envconfig:"DB_PASSWORD" required:"true"`
	Name        string `envconfig:"DB_NAME" required:"true"`
	SSLMode     string `envconfig:"DB_SSLMODE" required:"true"`
	MaxConns    int32  `envconfig:"DB_MAX_CONNS" required:"true"`
	MinConns    int32  `envconfig:"DB_MIN_CONNS" required:"true"`
	AutoMigrate bool   `envconfig:"DB_AUTO_MIGRATE" default:"true"`
}

// Validate validates the database configuration.
func (c *DatabaseConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	if c.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}
	if c.User == "" {
		return fmt.Errorf("user cannot be empty")
	}
	if c.Password == "" {
		return fmt.Errorf("password cannot be empty")
	}
	if c.Name == "" {
		return fmt.Errorf("database name cannot be empty")
	}
	if c.MaxConns <= 0 {
		return fmt.Errorf("max connections must be positive")
	}
	if c.MinConns <= 0 {
		return fmt.Errorf("min connections must be positive")
	}
	if c.MinConns > c.MaxConns {
		return fmt.Errorf("min connections (%d) cannot be greater than max connections (%d)", c.MinConns, c.MaxConns)
	}

	validSSLModes := map[string]bool{
		"disable":     true,
		"require":     true,
		"verify-ca":   true,
		"verify-full": true,
	}
	if !validSSLModes[c.SSLMode] {
		return fmt.Errorf("invalid SSL mode: %s (must be one of: disable, require, verify-ca, verify-full)", c.SSLMode)
	}
	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// AppConfig holds application-specific configuration.
type AppConfig struct {
	Environment string `envconfig:"APP_ENV" required:"true"`   // development, staging, production, test
	LogLevel    string `envconfig:"LOG_LEVEL" required:"true"` // debug, info, warn, error
}

// Validate validates the app configuration.
func (c *AppConfig) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
		"test":        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s (must be one of: development, staging, production, test)", c.Environment)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}
	return nil
}

// AuthConfig holds owner token verification settings.
type AuthConfig struct {
	JWTSecret string        `envconfig:"AUTH_JWT_SECRET" required:"true"`
	JWTIssuer string        `envconfig:"AUTH_JWT_ISSUER"`
	TokenTTL  time.Duration `envconfig:"AUTH_TOKEN_TTL" default:"1h"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("jwt secret must be at least 32 bytes")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}
	return nil
}

// ShareConfig holds settings for the shareable link gateway.
type ShareConfig struct {
	Store           string `envconfig:"SHARE_STORE" default:"postgres"` // postgres, memory
	ViewerHashKey   string `envconfig:"SHARE_VIEWER_HASH_KEY" required:"true"`
	PasswordCost    int    `envconfig:"SHARE_PASSWORD_COST" default:"10"`
	TokenMaxRetries int    `envconfig:"SHARE_TOKEN_MAX_RETRIES" default:"3"`

	// Zero PasswordAttemptsPerMinute disables throttling.
	PasswordAttemptsPerMinute int `envconfig:"SHARE_PASSWORD_ATTEMPTS_PER_MINUTE" default:"10"`
	PasswordAttemptBurst      int `envconfig:"SHARE_PASSWORD_ATTEMPT_BURST" default:"5"`

	AnalyticsQueueSize    int           `envconfig:"SHARE_ANALYTICS_QUEUE_SIZE" default:"1024"`
	AnalyticsWorkers      int           `envconfig:"SHARE_ANALYTICS_WORKERS" default:"2"`
	AnalyticsWriteTimeout time.Duration `envconfig:"SHARE_ANALYTICS_WRITE_TIMEOUT" default:"2s"`
	AnalyticsMaxAttempts  int           `envconfig:"SHARE_ANALYTICS_MAX_ATTEMPTS" default:"3"`
}

// Validate validates the share configuration.
func (c *ShareConfig) Validate() error {
	if c.Store != StorePostgres && c.Store != StoreMemory {
		return fmt.Errorf("invalid store: %s (must be one of: postgres, memory)", c.Store)
	}
	if len(c.ViewerHashKey) < 16 {
		return fmt.Errorf("viewer hash key must be at least 16 bytes")
	}
	// bcrypt accepts costs 4 through 31.
	if c.PasswordCost < 4 || c.PasswordCost > 31 {
		return fmt.Errorf("password cost must be between 4 and 31, got %d", c.PasswordCost)
	}
	if c.TokenMaxRetries <= 0 {
		return fmt.Errorf("token max retries must be positive")
	}
	if c.PasswordAttemptsPerMinute < 0 {
		return fmt.Errorf("password attempts per minute cannot be negative")
	}
	if c.PasswordAttemptsPerMinute > 0 && c.PasswordAttemptBurst <= 0 {
		return fmt.Errorf("password attempt burst must be positive when throttling is enabled")
	}
	if c.AnalyticsQueueSize <= 0 {
		return fmt.Errorf("analytics queue size must be positive")
	}
	if c.AnalyticsWorkers <= 0 {
		return fmt.Errorf("analytics workers must be positive")
	}
	if c.AnalyticsWriteTimeout <= 0 {
		return fmt.Errorf("analytics write timeout must be positive")
	}
	if c.AnalyticsMaxAttempts <= 0 {
		return fmt.Errorf("analytics max attempts must be positive")
	}
	return nil
}

// ObservabilityConfig names the running build in the health check and
// startup log.
type ObservabilityConfig struct {
	ServiceName    string `envconfig:"OTEL_SERVICE_NAME" default:"linkgate"`
	ServiceVersion string `envconfig:"OTEL_SERVICE_VERSION" default:"dev"`
}

// Validate validates the observability configuration.
func (c *ObservabilityConfig) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("service name must not be blank")
	}
	if strings.TrimSpace(c.ServiceVersion) == "" {
		return fmt.Errorf("service version must not be blank")
	}
	return nil
}

// Load loads configuration from environment variables only.
// (.env loading happens in internal/app for dev, not here.)
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process("", &cfg.Server); err != nil {
		return nil, fmt.Errorf("failed to load Server config: %w", err)
	}
	if err := cfg.Server.Validate(); err != nil {
		return nil, fmt.Errorf("invalid Server config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Share); err != nil {
		return nil, fmt.Errorf("failed to load Share config: %w", err)
	}
	if err := cfg.Share.Validate(); err != nil {
		return nil, fmt.Errorf("invalid Share config: %w", err)
	}

	if cfg.Share.Store == StorePostgres {
		if err := envconfig.Process("", &cfg.Database); err != nil {
			return nil, fmt.Errorf("failed to load Database config: %w", err)
		}
		if err := cfg.Database.Validate(); err != nil {
			return nil, fmt.Errorf("invalid Database config: %w", err)
		}
	}

	if err := envconfig.Process("", &cfg.Auth); err != nil {
		return nil, fmt.Errorf("failed to load Auth config: %w", err)
	}
	if err := cfg.Auth.Validate(); err != nil {
		return nil, fmt.Errorf("invalid Auth config: %w", err)
	}

	if err := envconfig.Process("", &cfg.App); err != nil {
		return nil, fmt.Errorf("failed to load App config: %w", err)
	}
	if err := cfg.App.Validate(); err != nil {
		return nil, fmt.Errorf("invalid App config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Observability); err != nil {
		return nil, fmt.Errorf("failed to load Observability config: %w", err)
	}
	if err := cfg.Observability.Validate(); err != nil {
		return nil, fmt.Errorf("invalid Observability config: %w", err)
	}

	return cfg, nil
}
