package cache

import (
	"sync"
	"time"
)

// Clock 过期判断使用的时钟
type Clock interface {
	Now() time.Time
}

// SystemClock 系统时钟
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ManualClock 手动推进的时钟，并发安全
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock 从 t 开始的手动时钟
func NewManualClock(t time.Time) *ManualClock {
	return &ManualClock{now: t}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance 前进 d
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
