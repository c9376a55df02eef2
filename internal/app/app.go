package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/sundayezeilo/linkgate/internal/auth"
	"github.com/sundayezeilo/linkgate/internal/config"
	"github.com/sundayezeilo/linkgate/internal/db/migrations"
	db "github.com/sundayezeilo/linkgate/internal/db/sqlc"
	"github.com/sundayezeilo/linkgate/internal/fingerprint"
	"github.com/sundayezeilo/linkgate/internal/passwd"
	"github.com/sundayezeilo/linkgate/internal/server"
	"github.com/sundayezeilo/linkgate/internal/share"
)

// App holds the application dependencies and configuration.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	DBPool   *pgxpool.Pool // nil with the memory store
	Server   *server.Server
	Handler  *share.Handler
	Recorder *share.Recorder
}

// New initializes and returns a new App instance with all dependencies wired up.
func New(ctx context.Context) (*App, error) {
	if err := loadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := setupLogger(cfg.App.LogLevel)

	logger.Info("starting application",
		"service", cfg.Observability.ServiceName,
		"env", cfg.App.Environment,
		"version", cfg.Observability.ServiceVersion,
	)

	authn, err := auth.New(auth.Config{
		Secret:   cfg.Auth.JWTSecret,
		Issuer:   cfg.Auth.JWTIssuer,
		TokenTTL: cfg.Auth.TokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticator: %w", err)
	}

	fingerprints, err := fingerprint.New(cfg.Share.ViewerHashKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create viewer hasher: %w", err)
	}

	repo, dbPool, err := openRepository(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	recorder := share.NewRecorder(share.RecorderConfig{
		Store:        repo,
		Logger:       logger,
		QueueSize:    cfg.Share.AnalyticsQueueSize,
		Workers:      cfg.Share.AnalyticsWorkers,
		WriteTimeout: cfg.Share.AnalyticsWriteTimeout,
		MaxAttempts:  cfg.Share.AnalyticsMaxAttempts,
	})

	passwords := passwd.NewBcrypt(cfg.Share.PasswordCost)

	gate := share.NewGate(share.GateConfig{
		Links:        repo,
		Counter:      repo,
		Verifier:     passwords,
		Recorder:     recorder,
		Fingerprints: fingerprints,
		Attempts:     share.NewAttemptLimiter(cfg.Share.PasswordAttemptsPerMinute, cfg.Share.PasswordAttemptBurst),
	})
	svc := share.NewService(repo, &share.ServiceConfig{
		TokenMaxRetries: cfg.Share.TokenMaxRetries,
		Passwords:       passwords,
	})
	handler := share.NewHandler(share.HandlerConfig{
		Service:    svc,
		Gate:       gate,
		Logger:     logger,
		BaseURL:    cfg.Server.BaseURL,
		TrustProxy: cfg.Server.TrustProxy,
	})

	// Create server
	srv := server.New(cfg, logger, handler, authn.Middleware(logger))

	logger.Info("application initialized",
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
		"store", cfg.Share.Store,
	)

	return &App{
		Config:   cfg,
		Logger:   logger,
		DBPool:   dbPool,
		Server:   srv,
		Handler:  handler,
		Recorder: recorder,
	}, nil
}

// openRepository selects the link store. The memory store keeps nothing
// across restarts and is meant for development and tests.
func openRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (share.Repository, *pgxpool.Pool, error) {
	if cfg.Share.Store == config.StoreMemory {
		if cfg.App.Environment == "production" {
			logger.Warn("using in-memory link store in production")
		}
		return share.NewMemoryRepository(), nil, nil
	}

	dbPool, err := connectDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Database.AutoMigrate {
		applied, err := migrations.Apply(ctx, dbPool)
		if err != nil {
			dbPool.Close()
			return nil, nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
		logger.Info("database migrations applied", "versions", applied)
	}

	return share.NewRepository(db.New(dbPool), nil), dbPool, nil
}

// Start starts the application server.
func (a *App) Start(ctx context.Context) error {
	a.Logger.Info("server starting",
		"port", a.Config.Server.Port,
		"base_url", a.Config.Server.BaseURL,
	)

	if err := a.Server.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown drains queued access records, then closes the database pool.
func (a *App) Shutdown() error {
	a.Logger.Info("shutting down application")

	var drainErr error
	if a.Recorder != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		drainErr = a.Recorder.Close(ctx)
		cancel()
		a.Logger.Info("analytics recorder stopped",
			"written", a.Recorder.Written(),
			"dropped", a.Recorder.Dropped(),
		)
	}

	if a.DBPool != nil {
		a.DBPool.Close()
		a.Logger.Info("database connection closed")
	}

	if drainErr != nil {
		return fmt.Errorf("analytics drain incomplete: %w", drainErr)
	}
	return nil
}

// loadEnv loads .env file only in non-production environments.
func loadEnv() error {
	env := os.Getenv("APP_ENV")
	if env == "development" || env == "test" {
		if err := godotenv.Load("../.env"); err != nil {
			log.Println("no .env file found.")
		}
	}
	return nil
}

// setupLogger creates a structured logger based on the log level.
func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}

// connectDatabase establishes a connection to the PostgreSQL database.
func connectDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// Set pool configuration
	poolConfig.MaxConns = cfg.Database.MaxConns
	poolConfig.MinConns = cfg.Database.MinConns

	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established")

	return pool, nil
}
