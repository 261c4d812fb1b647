// Package cache 按 scope 键缓存组装好的 KPI 看板，固定 TTL，访问时惰性判断过期，无后台任务。
package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultTTL 默认缓存时长
const DefaultTTL = 5 * time.Minute

// GlobalScope 全局看板的 scope 键
const GlobalScope = "global"

// CategoryScope 分类看板的 scope 键
func CategoryScope(slug string) string {
	return "category:" + slug
}

// ComputeFunc 未命中时组装看板
type ComputeFunc[T any] func(ctx context.Context) (T, error)

// Options 缓存参数
type Options struct {
	TTL    time.Duration
	Clock  Clock
	Logger *zap.Logger
}

// PayloadCache 整体看板的 TTL 缓存。同一键并发未命中时可能重复计算，后写入者生效
type PayloadCache[T any] struct {
	name   string
	store  Store[T]
	ttl    time.Duration
	clock  Clock
	logger *zap.Logger
	keep   func(T) bool
}

// New 创建缓存，name 用于指标与日志
func New[T any](name string, store Store[T], opts Options) *PayloadCache[T] {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &PayloadCache[T]{
		name:   name,
		store:  store,
		ttl:    opts.TTL,
		clock:  opts.Clock,
		logger: opts.Logger.With(zap.String("cache", name)),
	}
}

// KeepIf 设置是否写入缓存的判断；不写入的结果仍返回给调用方
func (c *PayloadCache[T]) KeepIf(fn func(T) bool) *PayloadCache[T] {
	c.keep = fn
	return c
}

// TTL 缓存时长
func (c *PayloadCache[T]) TTL() time.Duration { return c.ttl }

// GetOrCompute 未过期时返回缓存，否则计算并写入；计算失败不写入
func (c *PayloadCache[T]) GetOrCompute(ctx context.Context, key string, compute ComputeFunc[T]) (T, error) {
	now := c.clock.Now()

	e, ok, err := c.store.Get(ctx, key)
	switch {
	case err != nil:
		cacheRequests.WithLabelValues(c.name, "error").Inc()
		c.logger.Warn("Cache read failed, recomputing", zap.String("key", key), zap.Error(err))
	case ok && now.Before(e.ExpiresAt):
		cacheRequests.WithLabelValues(c.name, "hit").Inc()
		return e.Data, nil
	case ok:
		cacheRequests.WithLabelValues(c.name, "expired").Inc()
	default:
		cacheRequests.WithLabelValues(c.name, "miss").Inc()
	}

	data, err := compute(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	if c.keep != nil && !c.keep(data) {
		c.logger.Debug("Payload not cached", zap.String("key", key))
		return data, nil
	}

	entry := Entry[T]{Data: data, ExpiresAt: c.clock.Now().Add(c.ttl)}
	if err := c.store.Set(ctx, key, entry); err != nil {
		c.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	} else {
		c.logger.Debug("Payload cached", zap.String("key", key), zap.Time("expires_at", entry.ExpiresAt))
	}
	return data, nil
}

// Invalidate 清除一个 scope（含全部筛选变体），scope 为空时全部清除
func (c *PayloadCache[T]) Invalidate(ctx context.Context, scope string) error {
	cacheInvalidations.WithLabelValues(c.name).Inc()
	return c.store.Delete(ctx, scope)
}
