package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zoutigo/smc-kpi/internal/kpi/cache"
	"github.com/zoutigo/smc-kpi/internal/kpi/entity"
	"github.com/zoutigo/smc-kpi/internal/kpi/repository"
	"github.com/zoutigo/smc-kpi/internal/kpi/rollup"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrCategoryNotFound 分类不存在
var ErrCategoryNotFound = fmt.Errorf("category %w", repository.ErrNotFound)

// CategoryResolver 根据slug解析分类
type CategoryResolver interface {
	FindBySlug(ctx context.Context, slug string) (*entity.Category, error)
}

// PackagingLoader 包装实体加载器
type PackagingLoader interface {
	LoadPackagings(ctx context.Context, categoryID string, f repository.Filters, limit int) ([]rollup.Packaging, bool, error)
}

// StorageLoader 仓储实体加载器
type StorageLoader interface {
	LoadStorages(ctx context.Context, f repository.Filters, limit int) ([]rollup.Storage, bool, error)
}

// StorageAggregator 数据库聚合查询
type StorageAggregator interface {
	StockByPlant(ctx context.Context, f repository.Filters) ([]rollup.PlantRollup, error)
	WorkforceByPlant(ctx context.Context, f repository.Filters) ([]rollup.ValueRollup, error)
}

// Sources 看板数据来源。Aggregates 为 nil 时只走内存路径。
type Sources struct {
	Categories CategoryResolver
	Packagings PackagingLoader
	Storages   StorageLoader
	Aggregates StorageAggregator
}

// SourcesFromRepositories 使用数据库仓库作为数据来源
func SourcesFromRepositories(repos *repository.Repositories) Sources {
	return Sources{
		Categories: repos.Category,
		Packagings: repos.Packaging,
		Storages:   repos.Storage,
		Aggregates: repos.Aggregate,
	}
}

// Caches 看板缓存：组装后的看板 + 原始数据快照
type Caches struct {
	Global     *cache.PayloadCache[*GlobalPayload]
	Category   *cache.PayloadCache[*CategoryPayload]
	Packagings *cache.PayloadCache[*PackagingSnapshot]
}

// NewMemoryCaches 进程内缓存
func NewMemoryCaches(opts cache.Options) *Caches {
	return newCaches(
		cache.NewMemoryStore[*GlobalPayload](),
		cache.NewMemoryStore[*CategoryPayload](),
		cache.NewMemoryStore[*PackagingSnapshot](),
		opts,
	)
}

// NewRedisCaches Redis 共享缓存（多实例部署）
func NewRedisCaches(rdb *redis.Client, prefix string, opts cache.Options) *Caches {
	return newCaches(
		cache.NewRedisStore[*GlobalPayload](rdb, prefix+"payload:"),
		cache.NewRedisStore[*CategoryPayload](rdb, prefix+"payload:"),
		cache.NewRedisStore[*PackagingSnapshot](rdb, prefix+"raw:"),
		opts,
	)
}

func newCaches(global cache.Store[*GlobalPayload], category cache.Store[*CategoryPayload], raw cache.Store[*PackagingSnapshot], opts cache.Options) *Caches {
	c := &Caches{
		Global:     cache.New("global", global, opts),
		Category:   cache.New("category", category, opts),
		Packagings: cache.New("packagings", raw, opts),
	}
	c.Global.KeepIf(func(p *GlobalPayload) bool { return !p.Degraded })
	c.Category.KeepIf(func(p *CategoryPayload) bool { return !p.Degraded })
	return c
}

// Invalidate 清除一个 scope 在全部缓存中的条目；scope 为空时全部清除
func (c *Caches) Invalidate(ctx context.Context, scope string) error {
	err := errors.Join(
		c.Global.Invalidate(ctx, scope),
		c.Category.Invalidate(ctx, scope),
		c.Packagings.Invalidate(ctx, scope),
	)
	if err != nil {
		return fmt.Errorf("invalidate %q: %w", scope, err)
	}
	return nil
}

// Options 看板服务参数
type Options struct {
	MaxItems   int
	TableLimit int
	Clock      cache.Clock
	Logger     *zap.Logger
}

// DashboardService KPI看板服务
type DashboardService struct {
	sources Sources
	caches  *Caches
	opts    Options
	logger  *zap.Logger
}

func NewDashboardService(sources Sources, caches *Caches, opts Options) *DashboardService {
	if opts.MaxItems <= 0 {
		opts.MaxItems = repository.DefaultMaxItems
	}
	if opts.TableLimit <= 0 {
		opts.TableLimit = 15
	}
	if opts.Clock == nil {
		opts.Clock = cache.SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &DashboardService{
		sources: sources,
		caches:  caches,
		opts:    opts,
		logger:  opts.Logger,
	}
}

// ScopeKey 缓存键：默认筛选时即为 scope，否则追加筛选后缀
func ScopeKey(scope string, f repository.Filters) string {
	if f.IsDefault() {
		return scope
	}
	return strings.Join([]string{
		scope,
		"plant=" + f.PlantID,
		"flow=" + f.FlowID,
		"status=" + f.EffectiveStatus(),
	}, cache.KeySeparator)
}

// Global 全局（仓储）看板
func (s *DashboardService) Global(ctx context.Context, f repository.Filters) (*GlobalPayload, error) {
	key := ScopeKey(cache.GlobalScope, f)
	return s.caches.Global.GetOrCompute(ctx, key, func(ctx context.Context) (*GlobalPayload, error) {
		return s.computeGlobal(ctx, key, f), nil
	})
}

// Category 分类（包装）看板
func (s *DashboardService) Category(ctx context.Context, slug string, f repository.Filters) (*CategoryPayload, error) {
	if err := checkSlug(slug); err != nil {
		return nil, err
	}
	key := ScopeKey(cache.CategoryScope(slug), f)
	return s.caches.Category.GetOrCompute(ctx, key, func(ctx context.Context) (*CategoryPayload, error) {
		start := time.Now()
		defer func() { computeDuration.WithLabelValues("category").Observe(time.Since(start).Seconds()) }()

		snap, err := s.packagingSnapshot(ctx, slug, f, key)
		if err != nil {
			if errors.Is(err, ErrCategoryNotFound) {
				return nil, err
			}
			loaderFailures.WithLabelValues("packaging").Inc()
			s.logger.Error("Packaging load failed, serving empty payload",
				zap.String("scope", key), zap.Error(err))
			return emptyCategory(key, CategoryRef{Slug: slug}, s.opts.Clock.Now()), nil
		}

		aggregatePath.WithLabelValues("packaging", PathMemory).Inc()
		return assembleCategory(snap, key, s.opts.TableLimit, s.opts.Clock.Now()), nil
	})
}

// checkSlug 含键分隔符的 slug 会与其他分类的筛选键冲突，按不存在处理
func checkSlug(slug string) error {
	if slug == "" || strings.Contains(slug, cache.KeySeparator) {
		return fmt.Errorf("%w: %q", ErrCategoryNotFound, slug)
	}
	return nil
}

// Invalidate 清除一个 scope（含所有筛选变体）的看板与原始数据缓存；scope 为空时全部清除
func (s *DashboardService) Invalidate(ctx context.Context, scope string) error {
	if err := s.caches.Invalidate(ctx, scope); err != nil {
		return err
	}
	s.logger.Info("KPI cache invalidated", zap.String("scope", scope))
	return nil
}

// packagingSnapshot 解析分类并加载包装，结果进入原始数据缓存
func (s *DashboardService) packagingSnapshot(ctx context.Context, slug string, f repository.Filters, key string) (*PackagingSnapshot, error) {
	return s.caches.Packagings.GetOrCompute(ctx, key, func(ctx context.Context) (*PackagingSnapshot, error) {
		category, err := s.sources.Categories.FindBySlug(ctx, slug)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrCategoryNotFound, slug)
			}
			return nil, fmt.Errorf("resolve category %s: %w", slug, err)
		}

		items, truncated, err := s.sources.Packagings.LoadPackagings(ctx, category.ID, f, s.opts.MaxItems)
		if err != nil {
			return nil, fmt.Errorf("load packagings: %w", err)
		}
		if truncated {
			s.logger.Info("Packaging load capped", zap.String("scope", key), zap.Int("max_items", s.opts.MaxItems))
		}

		return &PackagingSnapshot{
			Category:  CategoryRef{ID: category.ID, Name: category.Name, Slug: category.Slug},
			Items:     items,
			Truncated: truncated,
		}, nil
	})
}

// computeGlobal 并发执行实体加载与数据库聚合，聚合失败时回退到内存计算
func (s *DashboardService) computeGlobal(ctx context.Context, scope string, f repository.Filters) *GlobalPayload {
	start := time.Now()
	defer func() { computeDuration.WithLabelValues("global").Observe(time.Since(start).Seconds()) }()

	var (
		storages  []rollup.Storage
		truncated bool
		loadErr   error
		dbAgg     rollup.StorageAggregates
		aggErr    error
	)

	// 两个分支各自记录错误，互不取消
	var g errgroup.Group
	g.Go(func() error {
		storages, truncated, loadErr = s.sources.Storages.LoadStorages(ctx, f, s.opts.MaxItems)
		return nil
	})
	if s.sources.Aggregates != nil {
		g.Go(func() error {
			dbAgg, aggErr = aggregateFromDB(ctx, s.sources.Aggregates, f)
			return nil
		})
	}
	_ = g.Wait()

	aggOK := s.sources.Aggregates != nil && aggErr == nil
	path := PathMemory
	if aggOK {
		path = PathDB
	} else if aggErr != nil {
		aggregatePath.WithLabelValues("storage", "fallback").Inc()
		s.logger.Warn("Storage aggregate query failed, falling back to in-memory",
			zap.String("scope", scope), zap.Error(aggErr))
	}

	if loadErr != nil {
		loaderFailures.WithLabelValues("storage").Inc()
		s.logger.Error("Storage load failed, serving empty payload",
			zap.String("scope", scope), zap.Error(loadErr))
		return emptyGlobal(scope, s.opts.Clock.Now())
	}
	if truncated {
		s.logger.Info("Storage load capped", zap.String("scope", scope), zap.Int("max_items", s.opts.MaxItems))
	}

	items := make([]rollup.ComputedStorage, 0, len(storages))
	for _, raw := range storages {
		items = append(items, rollup.DeriveStorage(raw))
	}
	// 数据库路径已给出总量时不再在内存中累加
	agg := dbAgg
	if !aggOK {
		agg = rollup.AggregateStorages(items)
	}

	aggregatePath.WithLabelValues("storage", path).Inc()
	return assembleGlobal(items, agg, path, truncated, scope, s.opts.Clock.Now())
}

// aggregateFromDB 数据库聚合路径，两条查询都成功才算成功
func aggregateFromDB(ctx context.Context, agg StorageAggregator, f repository.Filters) (rollup.StorageAggregates, error) {
	var (
		stock     []rollup.PlantRollup
		workforce []rollup.ValueRollup
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stock, err = agg.StockByPlant(gctx, f)
		if err != nil {
			return fmt.Errorf("stock by plant: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		workforce, err = agg.WorkforceByPlant(gctx, f)
		if err != nil {
			return fmt.Errorf("workforce by plant: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return rollup.StorageAggregates{}, err
	}

	return rollup.StorageAggregates{
		Totals:           rollup.TotalsFromPlants(stock, workforce),
		OccupancyByPlant: stock,
		WorkforceByPlant: workforce,
	}, nil
}
