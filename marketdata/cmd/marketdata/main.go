package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quoteline-systems/quoteline-stack/common/config"
	"github.com/quoteline-systems/quoteline-stack/common/logging"
	"github.com/quoteline-systems/quoteline-stack/common/messaging"
	natsclient "github.com/quoteline-systems/quoteline-stack/common/messaging/nats"
	"github.com/quoteline-systems/quoteline-stack/common/middleware"
	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/audit"
	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/handlers"
	authmw "github.com/quoteline-systems/quoteline-stack/marketdata/internal/middleware"
	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/params"
	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/provider"
	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/ratelimit"
	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/repository"
	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/revocation"
	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/server"
	"github.com/quoteline-systems/quoteline-stack/marketdata/internal/service"
	"github.com/quoteline-systems/quoteline-stack/marketdata/pkg/tokens"
)

const serviceName = "marketdata"

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize structured logging
	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service(serviceName))
	logging.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", logging.Error(err))
		os.Exit(1)
	}

	slog.Info("Starting marketdata service",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Logging.Level),
		slog.String("users", cfg.Users.Type),
		slog.String("provider", cfg.Provider.Type),
	)

	// Query defaults are validated before anything starts listening
	registry, err := params.NewRegistry(params.Defaults{
		Timeframe: cfg.Market.Defaults.Timeframe,
		DateFrom:  cfg.Market.Defaults.DateFrom,
		DateTo:    cfg.Market.Defaults.DateTo,
		Flags:     cfg.Market.Defaults.Flags,
		StartPos:  cfg.Market.Defaults.StartPos,
		Count:     cfg.Market.Defaults.Count,
	})
	if err != nil {
		slog.Error("Invalid market defaults", logging.Error(err))
		os.Exit(1)
	}

	repo, closeRepo, err := openRepository(cfg)
	if err != nil {
		slog.Error("Failed to open identity store", logging.Error(err))
		os.Exit(1)
	}
	defer closeRepo()

	// Redis backs token revocation and login throttling
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = connectRedis(cfg.Redis.URL)
		if err != nil {
			slog.Error("Failed to connect to Redis", logging.Error(err))
			os.Exit(1)
		}
		defer redisClient.Close()
		slog.Info("Connected to Redis")
	}

	var revoked revocation.Store = revocation.NoopStore{}
	if cfg.Auth.RevocationEnabled {
		revoked = revocation.NewRedisStore(redisClient)
		slog.Info("Token revocation enabled")
	}

	var limiter ratelimit.RateLimiter = ratelimit.NoOpRateLimiter{}
	if cfg.Auth.LoginRateLimit.Enabled {
		limiter = ratelimit.NewRedisRateLimiter(redisClient, "marketdata:login:",
			cfg.Auth.LoginRateLimit.Requests, cfg.Auth.LoginRateLimit.Window)
		slog.Info("Login rate limiting enabled",
			slog.Int("requests", cfg.Auth.LoginRateLimit.Requests),
			slog.Duration("window", cfg.Auth.LoginRateLimit.Window),
		)
	}

	// Auth events go to NATS when a broker is configured
	var bus messaging.Client
	if cfg.NATS.Enabled {
		natsCfg := natsclient.DefaultConfig()
		natsCfg.URL = cfg.NATS.URL
		natsCfg.MaxReconnects = cfg.NATS.MaxReconnects
		natsCfg.ReconnectWait = cfg.NATS.ReconnectWait
		client, err := natsclient.NewClient(natsCfg)
		if err != nil {
			slog.Error("Failed to connect to NATS", logging.Error(err))
			os.Exit(1)
		}
		defer func() { _ = client.Drain() }()
		bus = client
		slog.Info("Publishing auth events to NATS", slog.String("subject", messaging.SubjectAuthEvents))
	}

	var publisher messaging.Publisher
	if bus != nil {
		publisher = bus
	}
	auditLog := audit.NewLogger(cfg.Auth.AuditSecret, publisher)

	tokenMgr := tokens.NewManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, tokens.WithIssuer(cfg.Auth.Issuer))
	authService := service.NewAuthService(repo, tokenMgr, auditLog, revoked, limiter)

	marketProvider := openProvider(cfg.Provider)
	marketService := service.NewMarketService(marketProvider)
	slog.Info("Market data provider ready", slog.String("provider", marketProvider.Name()))

	router := server.NewRouter(server.Handlers{
		Auth:   handlers.NewAuthHandler(authService),
		Market: handlers.NewMarketHandler(marketService, params.NewNormalizer(registry)),
		Health: handlers.NewHealthHandler(serviceName, marketProvider.Name(), bus),
	}, authmw.NewAuthMiddleware(authService), server.Options{
		CORS: middleware.CORSConfig{
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", middleware.HeaderRequestID},
			ExposedHeaders: []string{middleware.HeaderRequestID},
		},
		AccessLog: slog.Default(),
	})

	// Create server with config values
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		slog.Info("Marketdata service listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", logging.Error(err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", logging.Error(err))
	}

	slog.Info("Server stopped")
}

// openRepository builds the identity store selected by users.type. The
// returned func releases it.
func openRepository(cfg *config.Config) (repository.Repository, func(), error) {
	switch cfg.Users.Type {
	case "postgres":
		connString := cfg.Database.Postgres.ConnString()
		slog.Info("Connecting to PostgreSQL",
			slog.String("host", cfg.Database.Postgres.Host),
			slog.Int("port", cfg.Database.Postgres.Port),
			slog.String("database", cfg.Database.Postgres.Database),
		)

		pgRepo, err := repository.NewPostgresRepository(context.Background(), connString)
		if err != nil {
			return nil, nil, err
		}

		slog.Info("Running database migrations")
		version, dirty, err := repository.Migrate(cfg.Database.MigrationsPath, connString)
		if err != nil {
			pgRepo.Close()
			return nil, nil, err
		}
		slog.Info("Database migration complete",
			slog.Uint64("version", uint64(version)),
			slog.Bool("dirty", dirty),
		)
		return pgRepo, pgRepo.Close, nil

	case "memory":
		slog.Warn("Using in-memory identity store (development only)")
		return repository.NewInMemoryRepository(), func() {}, nil

	default:
		path := cfg.Users.RecordsPath()
		jsonRepo, err := repository.NewJSONFileRepository(path)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("Loaded identity records", slog.String("path", jsonRepo.Path()))
		return jsonRepo, func() {}, nil
	}
}

func connectRedis(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func openProvider(cfg config.ProviderConfig) provider.Provider {
	if cfg.Type == "memory" {
		slog.Warn("Using in-memory market data (development only)")
		return provider.NewMemoryProvider(time.Now, provider.DefaultTickers...)
	}
	return provider.NewBridgeProvider(provider.BridgeConfig{
		URL:     cfg.URL,
		APIKey:  cfg.APIKey,
		Timeout: cfg.Timeout,
		Retries: cfg.Retries,
	})
}
