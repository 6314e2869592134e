package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/cloudrep/voicedesk/internal/auth"
	"github.com/cloudrep/voicedesk/internal/config"
	"github.com/cloudrep/voicedesk/internal/event"
	handler "github.com/cloudrep/voicedesk/internal/handler/http"
	"github.com/cloudrep/voicedesk/internal/repository/postgres"
	"github.com/cloudrep/voicedesk/internal/service"
	"github.com/cloudrep/voicedesk/internal/vapi"
	"github.com/cloudrep/voicedesk/migrations"
	"github.com/cloudrep/voicedesk/pkg/database"
	"github.com/cloudrep/voicedesk/pkg/health"
	pkgkafka "github.com/cloudrep/voicedesk/pkg/kafka"
	"github.com/cloudrep/voicedesk/pkg/middleware"
	"github.com/cloudrep/voicedesk/pkg/tracing"
)

// App wires together all dependencies and runs the API server.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redisClient    *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "voicedesk",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	pgCfg := database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}

	pool, err := database.NewPostgresPool(ctx, &pgCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, "voicedesk")
	database.SetSlowQueryLogging(200*time.Millisecond, logger)

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Initialize Redis. The webhook rate limiter degrades to allow-all when
	// Redis is down, so a failed connection is not fatal.
	redisClient, err := database.NewRedisClient(ctx, database.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logger.Warn("redis unavailable, webhook rate limiting disabled",
			slog.String("error", err.Error()),
		)
		redisClient = nil
	}

	// Initialize event publishing.
	var (
		producer *pkgkafka.Producer
		events   event.Publisher = event.NopPublisher{}
	)
	if cfg.KafkaEnabled {
		producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		events = event.NewKafkaPublisher(producer, logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Provider client.
	vapiClient := vapi.NewClient(vapi.Config{
		BaseURL: cfg.VapiBaseURL,
		APIKey:  cfg.VapiAPIKey,
	}, logger)

	// Build the dependency graph.
	tokenManager := auth.NewManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTExpiry)

	userRepo := postgres.NewUserRepository(pool)
	agentRepo := postgres.NewAgentRepository(pool)
	phoneRepo := postgres.NewPhoneNumberRepository(pool)
	callRepo := postgres.NewCallRepository(pool)

	reconciler := service.NewReconciler(vapiClient, agentRepo, phoneRepo, callRepo, logger)

	userService := service.NewUserService(userRepo, tokenManager, logger)
	agentService := service.NewAgentService(agentRepo, vapiClient, logger)
	phoneService := service.NewPhoneNumberService(phoneRepo, agentRepo, vapiClient, logger)
	callService := service.NewCallService(callRepo, agentRepo, phoneRepo, vapiClient, reconciler, events, logger)
	webhookService := service.NewWebhookService(agentRepo, phoneRepo, callRepo, events, logger)
	analyticsService := service.NewAnalyticsService(agentRepo, phoneRepo, reconciler)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	// Redis and Kafka degrade the service but do not make it unready: the
	// rate limiter allows on Redis failure and events are best-effort.
	if redisClient != nil {
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	if producer != nil {
		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return producer.Ping(ctx)
		})
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins
	corsCfg.Environment = cfg.Environment

	router := handler.NewRouter(handler.RouterConfig{
		Users:          userService,
		Agents:         agentService,
		Phones:         phoneService,
		Calls:          callService,
		Webhooks:       webhookService,
		Analytics:      analyticsService,
		Reconciler:     reconciler,
		TokenValidator: tokenManager.Validate,
		WebhookSecret:  cfg.VapiWebhookSecret,
		Health:         healthHandler,
		Redis:          redisClient,
		RateLimit: middleware.RateLimitConfig{
			Limit:     cfg.WebhookRateLimit,
			Window:    cfg.WebhookRateWindow,
			KeyPrefix: "webhook",
		},
		CORS:       corsCfg,
		PprofCIDRs: cfg.PprofCIDRs,
		Logger:     logger,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redisClient:    redisClient,
		producer:       producer,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}

	a.pool.Close()

	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(shutdownCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		}
	}

	a.logger.Info("application shutdown complete")
	return nil
}
