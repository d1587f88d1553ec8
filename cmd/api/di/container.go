package di

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"user-directory-service/cmd/api/infrastructure"
	"user-directory-service/internal/adapter/cache"
	"user-directory-service/internal/adapter/db/gormrepo"
	ginhandler "user-directory-service/internal/adapter/gin/handler"
	ginrouter "user-directory-service/internal/adapter/gin/router"
	"user-directory-service/internal/adapter/repository/cached"
	"user-directory-service/internal/config"
	"user-directory-service/internal/usecase/user"
	"user-directory-service/pkg/metrics"
	redisclient "user-directory-service/pkg/redis"
	"user-directory-service/pkg/security"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	DB          *gorm.DB
	RedisClient *redisclient.Client
	Registry    *prometheus.Registry
	HTTPMetrics *metrics.HTTPMetrics
	UserUC      user.Directory
	GinHandler  *ginhandler.UserHandler
}

// NewContainer creates and initializes all application dependencies
func NewContainer(ctx context.Context, cfg *config.Config, l *zap.Logger) (*Container, error) {
	// Validate configuration before initializing any dependencies
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	db, err := infrastructure.NewDatabase(ctx, cfg, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	rdb, err := infrastructure.NewRedisClient(ctx, cfg, l)
	if err != nil {
		_ = infrastructure.CloseDatabase(db)
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}

	// Repository: GORM store, fronted by the Redis cache when enabled
	var userCache cache.UserCache
	if rdb != nil {
		userCache = cache.NewRedisUserCache(rdb.Client, cfg.Redis.CacheTTL, l)
	}
	dbRepo := gormrepo.NewUserRepo(db, l)
	repo := cached.NewCachedUserRepository(dbRepo, userCache, l).
		WithMetrics(metrics.NewCacheMetrics(registry))

	hasher, err := security.NewBcryptHasher(cfg.Security.BcryptCost)
	if err != nil {
		_ = infrastructure.CloseDatabase(db)
		if rdb != nil {
			_ = rdb.Close()
		}
		return nil, fmt.Errorf("failed to initialize password hasher: %w", err)
	}

	userUC := user.New(repo, hasher, l,
		user.WithListLimits(cfg.List.DefaultLimit, cfg.List.MaxLimit),
	)

	return &Container{
		Config:      cfg,
		Logger:      l,
		DB:          db,
		RedisClient: rdb,
		Registry:    registry,
		HTTPMetrics: metrics.NewHTTPMetrics(registry),
		UserUC:      userUC,
		GinHandler:  ginhandler.NewUserHandler(userUC, l),
	}, nil
}

// HealthChecks returns a probe per backing service.
func (c *Container) HealthChecks() map[string]ginrouter.HealthCheck {
	checks := map[string]ginrouter.HealthCheck{
		"database": func(ctx context.Context) error {
			return infrastructure.PingDatabase(ctx, c.DB)
		},
	}
	if c.RedisClient != nil {
		checks["redis"] = c.RedisClient.Ping
	}
	return checks
}

// RouterOptions returns the router settings derived from the container.
func (c *Container) RouterOptions() ginrouter.Options {
	return ginrouter.Options{
		ServiceName: c.Config.Logger.ServiceName,
		Release:     c.Config.App.IsProduction(),
		Metrics:     c.HTTPMetrics,
		Gatherer:    c.Registry,
		Checks:      c.HealthChecks(),
	}
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	var errs []error

	// Close Redis connection
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	// Close database connection
	if c.DB != nil {
		if err := infrastructure.CloseDatabase(c.DB); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("container close errors: %v", errs)
	}

	return nil
}
