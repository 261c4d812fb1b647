package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Entry 缓存值及过期时间
type Entry[T any] struct {
	Data      T         `json:"data"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store 缓存存储。Delete 的 scope 为空时全部清除，否则清除该 scope 及其筛选变体
type Store[T any] interface {
	Get(ctx context.Context, key string) (Entry[T], bool, error)
	Set(ctx context.Context, key string, e Entry[T]) error
	Delete(ctx context.Context, scope string) error
}

// KeySeparator 缓存键中 scope 与筛选后缀的分隔符
const KeySeparator = "|"

// InScope 判断 key 是否属于 scope，空 scope 匹配全部
func InScope(key, scope string) bool {
	if scope == "" {
		return true
	}
	return key == scope || strings.HasPrefix(key, scope+KeySeparator)
}

// MemoryStore 进程内存储
type MemoryStore[T any] struct {
	mu      sync.RWMutex
	entries map[string]Entry[T]
}

func NewMemoryStore[T any]() *MemoryStore[T] {
	return &MemoryStore[T]{entries: make(map[string]Entry[T])}
}

func (s *MemoryStore[T]) Get(_ context.Context, key string) (Entry[T], bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok, nil
}

func (s *MemoryStore[T]) Set(_ context.Context, key string, e Entry[T]) error {
	s.mu.Lock()
	s.entries[key] = e
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore[T]) Delete(_ context.Context, scope string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.entries {
		if InScope(key, scope) {
			delete(s.entries, key)
		}
	}
	return nil
}

// Len 条目数（含已过期）
func (s *MemoryStore[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// RedisStore Redis 存储（JSON 编码），多实例共享
type RedisStore[T any] struct {
	rdb       *redis.Client
	namespace string
}

// NewRedisStore 键为 namespace+key，如 "kpi:payload:global"
func NewRedisStore[T any](rdb *redis.Client, namespace string) *RedisStore[T] {
	return &RedisStore[T]{rdb: rdb, namespace: namespace}
}

func (s *RedisStore[T]) Get(ctx context.Context, key string) (Entry[T], bool, error) {
	var e Entry[T]
	raw, err := s.rdb.Get(ctx, s.namespace+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return e, false, nil
	}
	if err != nil {
		return e, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, &e); err != nil {
		return e, false, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	return e, true, nil
}

func (s *RedisStore[T]) Set(ctx context.Context, key string, e Entry[T]) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key, err)
	}
	// redis 过期只用于回收内存，是否新鲜由 ExpiresAt 判断
	ttl := time.Until(e.ExpiresAt)
	if ttl < time.Second {
		ttl = time.Second
	}
	return s.rdb.Set(ctx, s.namespace+key, raw, ttl).Err()
}

func (s *RedisStore[T]) Delete(ctx context.Context, scope string) error {
	iter := s.rdb.Scan(ctx, 0, escapeGlob(s.namespace+scope)+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		if InScope(strings.TrimPrefix(iter.Val(), s.namespace), scope) {
			keys = append(keys, iter.Val())
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan %s: %w", scope, err)
	}
	if len(keys) == 0 {
		return nil
	}
	return s.rdb.Del(ctx, keys...).Err()
}

var globEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`, "[", `\[`, "]", `\]`)

// escapeGlob 转义 SCAN MATCH 通配符
func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}
