package routes

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/domain"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/infra/config"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/infra/telemetry"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/transport/http/handlers"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/transport/http/middleware"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/transport/ws"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/usecase"
)

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config         *config.AppConfig
	Logger         *zap.Logger
	Metrics        *telemetry.Metrics
	RateLimiter    *middleware.RateLimiter
	ContextBuilder *usecase.ContextBuilder
	Auth           *handlers.AuthHandler
	Fleet          *handlers.FleetHandler
	WS             *ws.Server
	Database       DatabaseChecker
	Cache          CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(middleware.CORS([]string{"*"}))

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}
	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authenticate := middleware.Authenticate(deps.ContextBuilder)

	api := r.Group("/api/v1")
	api.Use(generalRateLimit(deps)...)
	api.Use(authenticate)
	{
		authGroup := api.Group("/auth")
		deps.Auth.RegisterRoutes(authGroup, loginRateLimit(deps)...)
		mountDelegatedFlows(authGroup, deps)

		fleetGroup := api.Group("/fleet")
		fleetGroup.Use(middleware.RequireAuth())
		deps.Fleet.RegisterRoutes(fleetGroup)
	}

	if deps.WS != nil {
		r.GET("/ws/:operation", deps.WS.Subscribe)
	}

	return r
}

func generalRateLimit(deps Dependencies) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil {
		return nil
	}

	rl := deps.Config.RateLimit
	if rl.GeneralMaxAttempts <= 0 {
		return nil
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(middleware.RateLimitRule{
		Name:          "general",
		Limit:         rl.GeneralMaxAttempts,
		Window:        rl.GeneralWindow,
		Identifier:    middleware.ClientIPIdentifier(),
		SlowDownAfter: rl.SlowDownAfter,
		SlowDownStep:  rl.SlowDownStep,
		SlowDownMax:   rl.SlowDownMax,
	})}
}

func loginRateLimit(deps Dependencies) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil {
		return nil
	}

	rl := deps.Config.RateLimit
	if rl.LoginMaxAttempts <= 0 {
		return nil
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(middleware.RateLimitRule{
		Name:       "login",
		Limit:      rl.LoginMaxAttempts,
		Window:     rl.LoginWindow,
		Identifier: middleware.ClientIPIdentifier(),
	})}
}

func registerRateLimit(deps Dependencies) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil {
		return nil
	}

	rl := deps.Config.RateLimit
	if rl.RegisterMaxAttempts <= 0 {
		return nil
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(middleware.RateLimitRule{
		Name:       "register",
		Limit:      rl.RegisterMaxAttempts,
		Window:     rl.RegisterWindow,
		Identifier: middleware.ClientIPIdentifier(),
	})}
}

func passwordResetRateLimit(deps Dependencies) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil {
		return nil
	}

	rl := deps.Config.RateLimit
	if rl.ResetMaxAttempts <= 0 {
		return nil
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(middleware.RateLimitRule{
		Name:       "password_reset",
		Limit:      rl.ResetMaxAttempts,
		Window:     rl.ResetWindow,
		Identifier: middleware.ClientIPIdentifier(),
	})}
}

// Registration and password-reset are served by the identity provider, not by
// this gateway. Their paths stay mounted here so the strict throttling policies
// apply at the edge before anything reaches that service.
func mountDelegatedFlows(authGroup *gin.RouterGroup, deps Dependencies) {
	delegated := func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "not handled by this gateway",
			"code":  domain.CodeNotFound,
		})
	}

	registerChain := append(registerRateLimit(deps), delegated)
	authGroup.POST("/register", registerChain...)

	resetChain := append(passwordResetRateLimit(deps), delegated)
	authGroup.POST("/password-reset", resetChain...)
}
