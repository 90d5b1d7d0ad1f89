package di

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"consultant-dashboard/cmd/api/infrastructure"
	"consultant-dashboard/internal/adapter/cache"
	"consultant-dashboard/internal/adapter/db/postgres"
	ginhandler "consultant-dashboard/internal/adapter/gin/handler"
	"consultant-dashboard/internal/adapter/gin/middleware"
	"consultant-dashboard/internal/adapter/repository/cached"
	"consultant-dashboard/internal/adapter/viacep"
	"consultant-dashboard/internal/config"
	"consultant-dashboard/internal/dashboard"
	"consultant-dashboard/internal/usecase/user"
	redisclient "consultant-dashboard/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	DB          *gorm.DB
	RedisClient *redisclient.Client
	UserUC      user.Usecase
	RateLimiter *middleware.RateLimiter
	Users       *ginhandler.UserHandler
	Dashboard   *ginhandler.DashboardHandler
	Health      *ginhandler.HealthHandler
}

// NewContainer creates and initializes all application dependencies
func NewContainer(ctx context.Context, cfg *config.Config, l *zap.Logger) (*Container, error) {
	// Validate configuration before initializing any dependencies
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	db, err := infrastructure.NewDatabase(ctx, cfg, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	rdb, err := infrastructure.NewRedisClient(cfg, l)
	if err != nil {
		_ = infrastructure.CloseDatabase(db)
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}

	return Build(cfg, l, db, rdb), nil
}

// Build wires the object graph over already opened stores. rdb may be nil.
func Build(cfg *config.Config, l *zap.Logger, db *gorm.DB, rdb *redisclient.Client) *Container {
	var (
		userCache cache.UserCache
		raw       *redis.Client
	)
	if rdb != nil {
		raw = rdb.Client
		userCache = cache.NewRedisUserCache(raw, time.Duration(cfg.Redis.CacheTTL)*time.Second, l)
	}

	dbRepo := postgres.NewUserRepoPG(db, l)
	repo := cached.NewCachedUserRepository(dbRepo, userCache, l)
	userUC := user.New(repo, l)

	rateLimiter := middleware.NewRateLimiter(
		raw,
		middleware.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstCapacity:     cfg.RateLimit.BurstCapacity,
			Enabled:           cfg.RateLimit.Enabled,
		},
		l,
	)

	lookup := viacep.NewClient(cfg.CEP.BaseURL, time.Duration(cfg.CEP.TimeoutSeconds)*time.Second, l)

	return &Container{
		Config:      cfg,
		Logger:      l,
		DB:          db,
		RedisClient: rdb,
		UserUC:      userUC,
		RateLimiter: rateLimiter,
		Users:       ginhandler.NewUserHandler(userUC, lookup, l),
		Dashboard:   ginhandler.NewDashboardHandler(userUC, lookup, dashboard.NewLookupTracker(), l),
		Health:      ginhandler.NewHealthHandler(db, rdb, cfg.Logger.ServiceName),
	}
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	var errs []error

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

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
