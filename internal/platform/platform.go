// Package platform 构建 HTTP 服务与命令行共用的进程级依赖（日志、数据库、Redis、看板服务）
package platform

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/zoutigo/smc-kpi/internal/config"
	"github.com/zoutigo/smc-kpi/internal/kpi/cache"
	"github.com/zoutigo/smc-kpi/internal/kpi/repository"
	"github.com/zoutigo/smc-kpi/internal/kpi/service"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func InitDatabase(cfg config.DatabaseConfig, debug bool) (*gorm.DB, error) {
	level := logger.Warn
	if debug {
		level = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func InitRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// NewCaches 按 kpi.cache_backend 创建看板缓存；rdb 仅在 redis 后端时使用
func NewCaches(cfg config.KPIConfig, rdb *redis.Client, log *zap.Logger) (*service.Caches, error) {
	opts := cache.Options{TTL: cfg.CacheTTL, Logger: log}
	switch cfg.CacheBackend {
	case config.CacheBackendRedis:
		if rdb == nil {
			return nil, fmt.Errorf("kpi.cache_backend is redis but no redis client is configured")
		}
		return service.NewRedisCaches(rdb, cfg.CachePrefix, opts), nil
	case config.CacheBackendMemory, "":
		return service.NewMemoryCaches(opts), nil
	default:
		return nil, fmt.Errorf("unknown kpi.cache_backend %q", cfg.CacheBackend)
	}
}

// NewDashboardService 组装看板服务（数据库仓库 + 缓存）
func NewDashboardService(cfg config.KPIConfig, db *gorm.DB, caches *service.Caches, log *zap.Logger) *service.DashboardService {
	return service.NewDashboardService(
		service.SourcesFromRepositories(repository.NewRepositories(db)),
		caches,
		service.Options{
			MaxItems:   cfg.MaxItems,
			TableLimit: cfg.TableLimit,
			Logger:     log,
		},
	)
}
