package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/port"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/infra/config"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/infra/database"
	kafkainfra "github.com/Brand-Beacon/Sepulki-sub002/internal/infra/kafka"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/infra/logger"
	redisinfra "github.com/Brand-Beacon/Sepulki-sub002/internal/infra/redis"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/infra/security"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/infra/telemetry"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/pubsub"
	postgresrepo "github.com/Brand-Beacon/Sepulki-sub002/internal/repository/postgres"
	redisrepo "github.com/Brand-Beacon/Sepulki-sub002/internal/repository/redis"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/transport/http/handlers"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/transport/http/middleware"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/transport/http/routes"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/transport/ws"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/usecase"
)

// Application owns the wired gateway and its infrastructure handles.
type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	broker   *pubsub.Broker
	producer *kafkainfra.Producer
	tracer   *telemetry.TracerProvider
}

// New wires every component from configuration.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	var tracer *telemetry.TracerProvider
	if cfg.Telemetry.Enabled {
		tracer, err = telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
	}

	metrics := telemetry.NewMetrics("sepulki")

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	sessions := redisrepo.NewSessionRepository(redisClient.Client(), cfg.Redis.SessionPrefix)
	cache := redisrepo.NewCacheRepository(redisClient.Client(), cfg.Redis.CachePrefix)
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), cfg.Redis.LimitPrefix)

	identities := postgresrepo.NewIdentityRepository(pool)
	robots := postgresrepo.NewRobotRepository(pool)

	var audit port.AuditPublisher
	var producer *kafkainfra.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			audit = kafkainfra.NewStubPublisher(log)
		} else {
			audit = kafkainfra.NewAuditPublisher(producer, cfg.App, log)
			log.Info("kafka audit publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		audit = kafkainfra.NewStubPublisher(log)
	}

	broker := pubsub.NewBroker(redisClient.Client(), cfg.Redis.EventPrefix, log)
	if err := broker.Start(ctx); err != nil {
		redisClient.Close()
		pool.Close()
		return nil, fmt.Errorf("start event broker: %w", err)
	}
	debouncer := pubsub.NewDebouncer()

	codec := security.NewCodec(security.CodecOptions{
		Secret: cfg.Token.Secret,
		Issuer: cfg.Token.Issuer,
		TTL:    cfg.Token.TTL,
	})

	contextBuilder := usecase.NewContextBuilder(codec, sessions, identities, log)
	if cfg.Session.SlidingExtend {
		contextBuilder.WithSlidingExtension(cfg.Session.TTL, cfg.Session.ExtendThreshold)
	}
	authService := usecase.NewAuthService(identities, sessions, codec, audit, cfg.Session.TTL, log)

	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log).
		WithAudit(audit).
		WithMetrics(metrics)

	engine := routes.Register(routes.Dependencies{
		Config:         cfg,
		Logger:         log,
		Metrics:        metrics,
		RateLimiter:    rateLimiter,
		ContextBuilder: contextBuilder,
		Auth:           handlers.NewAuthHandler(authService),
		Fleet:          handlers.NewFleetHandler(robots, cache, broker, debouncer, log),
		WS:             ws.NewServer(contextBuilder, sessions, broker, metrics, log),
		Database:       pool,
		Cache:          redisClient,
	})

	return &Application{
		cfg:      cfg,
		engine:   engine,
		logger:   log,
		pool:     pool,
		redis:    redisClient,
		broker:   broker,
		producer: producer,
		tracer:   tracer,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts everything down.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.broker != nil {
			_ = a.broker.Close()
		}
	}()
	defer func() {
		if a.producer != nil {
			_ = a.producer.Close()
		}
	}()
	defer func() {
		if a.tracer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = a.tracer.Shutdown(shutdownCtx)
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting hammer gate",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
