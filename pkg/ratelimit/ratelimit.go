package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// 端点分组
const (
	KeyAuth         = "clob:auth"
	KeyOrderPost    = "clob:order:post"
	KeyOrderDelete  = "clob:order:delete"
	KeyOrdersPost   = "clob:orders:post"
	KeyOrdersDelete = "clob:orders:delete"
	KeyMetaGet      = "clob:meta:get"
	KeyDataGet      = "clob:data:get"
	KeyBalance      = "clob:balance"
	KeyGeneral      = "clob:general"
	KeySignerd      = "signerd:sign"
)

// Limit 窗口内最多 Count 次请求
type Limit struct {
	Count  int
	Window time.Duration
}

func (l Limit) limiter() *rate.Limiter {
	if l.Count <= 0 || l.Window <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Every(l.Window/time.Duration(l.Count)), l.Count)
}

// DefaultLimits CLOB 公布的限额
var DefaultLimits = map[string]Limit{
	KeyAuth:         {Count: 100, Window: 10 * time.Second},
	KeyOrderPost:    {Count: 2400, Window: 10 * time.Second},
	KeyOrderDelete:  {Count: 2400, Window: 10 * time.Second},
	KeyOrdersPost:   {Count: 800, Window: 10 * time.Second},
	KeyOrdersDelete: {Count: 800, Window: 10 * time.Second},
	KeyMetaGet:      {Count: 200, Window: 10 * time.Second},
	KeyDataGet:      {Count: 500, Window: 10 * time.Second},
	KeyBalance:      {Count: 125, Window: 10 * time.Second},
	KeyGeneral:      {Count: 5000, Window: 10 * time.Second},
	KeySignerd:      {Count: 1000, Window: time.Second},
}

// RateLimitManager 按端点分组的限流器
type RateLimitManager struct {
	limiters map[string]*rate.Limiter
	fallback *rate.Limiter
	mu       sync.RWMutex
}

// NewRateLimitManager 使用 DefaultLimits 创建限流器
func NewRateLimitManager() *RateLimitManager {
	return NewRateLimitManagerWithLimits(DefaultLimits)
}

// NewRateLimitManagerWithLimits 使用自定义限额创建限流器，未列出的分组走 KeyGeneral
func NewRateLimitManagerWithLimits(limits map[string]Limit) *RateLimitManager {
	m := &RateLimitManager{limiters: make(map[string]*rate.Limiter, len(limits))}
	for k, l := range limits {
		m.limiters[k] = l.limiter()
	}
	if l, ok := m.limiters[KeyGeneral]; ok {
		m.fallback = l
	} else {
		m.fallback = DefaultLimits[KeyGeneral].limiter()
	}
	return m
}

// Set 覆盖某个分组的限额
func (m *RateLimitManager) Set(key string, l Limit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limiters[key] = l.limiter()
}

func (m *RateLimitManager) get(key string) *rate.Limiter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if l, ok := m.limiters[key]; ok {
		return l
	}
	return m.fallback
}

// Wait 阻塞直到允许请求或 ctx 结束
func (m *RateLimitManager) Wait(ctx context.Context, key string) error {
	return m.get(key).Wait(ctx)
}

// Allow 不阻塞地检查是否允许请求
func (m *RateLimitManager) Allow(key string) bool {
	return m.get(key).Allow()
}
