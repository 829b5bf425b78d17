package ratelimiter

import (
	"AIBoss/backend/go/internal/config"
	"fmt"
	"sync"
	"time"
)

// RateLimiter 是单个限流桶，Allow 返回本次请求是否放行。
type RateLimiter interface {
	Allow() bool
}

// Limiter 按 key（通常是客户端地址）分别限流。
type Limiter interface {
	Allow(key string) bool
}

// Clock 返回当前时间，测试中可以替换。
type Clock func() time.Time

// Factory 为新出现的 key 创建限流桶。
type Factory func(now Clock) RateLimiter

// FixedWindow 返回固定窗口计数器的 Factory。
func FixedWindow(limit int, window time.Duration) Factory {
	return func(now Clock) RateLimiter {
		return NewFixedWindowCounter(limit, window, now)
	}
}

// TokenBucketFactory 返回令牌桶的 Factory。
func TokenBucketFactory(rate float64, capacity int) Factory {
	return func(now Clock) RateLimiter {
		return NewTokenBucket(rate, capacity, now)
	}
}

type entry struct {
	limiter  RateLimiter
	lastSeen time.Time
}

// KeyedLimiter 为每个 key 维护一个独立的限流桶。
// 空闲超过 idleTTL 的桶会在后续调用中被清理。
type KeyedLimiter struct {
	factory   Factory
	now       Clock
	idleTTL   time.Duration
	entries   map[string]*entry
	lastPrune time.Time
	mutex     sync.Mutex
}

// NewKeyed 创建按 key 限流的 Limiter。now 为 nil 时使用 time.Now。
func NewKeyed(factory Factory, idleTTL time.Duration, now Clock) *KeyedLimiter {
	if now == nil {
		now = time.Now
	}
	return &KeyedLimiter{
		factory:   factory,
		now:       now,
		idleTTL:   idleTTL,
		entries:   make(map[string]*entry),
		lastPrune: now(),
	}
}

// Allow 判断 key 的本次请求是否放行。
func (k *KeyedLimiter) Allow(key string) bool {
	k.mutex.Lock()
	now := k.now()
	k.prune(now)
	e, ok := k.entries[key]
	if !ok {
		e = &entry{limiter: k.factory(k.now)}
		k.entries[key] = e
	}
	e.lastSeen = now
	k.mutex.Unlock()

	return e.limiter.Allow()
}

// Len 返回当前跟踪的 key 数量。
func (k *KeyedLimiter) Len() int {
	k.mutex.Lock()
	defer k.mutex.Unlock()
	return len(k.entries)
}

func (k *KeyedLimiter) prune(now time.Time) {
	if k.idleTTL <= 0 || now.Sub(k.lastPrune) < k.idleTTL {
		return
	}
	for key, e := range k.entries {
		if now.Sub(e.lastSeen) >= k.idleTTL {
			delete(k.entries, key)
		}
	}
	k.lastPrune = now
}

// New 根据配置创建按客户端限流的 Limiter。
func New(cfg config.RateLimiterConfig) (Limiter, error) {
	switch cfg.Algorithm {
	case "fixedWindow", "":
		window := cfg.FixedWindow.Window
		if window <= 0 {
			return nil, fmt.Errorf("invalid fixedWindow duration: %s", window)
		}
		return NewKeyed(FixedWindow(cfg.FixedWindow.Limit, window), window, nil), nil
	case "tokenBucket":
		if cfg.TokenBucket.Rate <= 0 {
			return nil, fmt.Errorf("invalid tokenBucket rate: %v", cfg.TokenBucket.Rate)
		}
		// 令牌桶回满所需时间之后，空闲桶与新建桶没有区别，可以回收。
		refill := time.Duration(float64(cfg.TokenBucket.Capacity) / cfg.TokenBucket.Rate * float64(time.Second))
		return NewKeyed(TokenBucketFactory(cfg.TokenBucket.Rate, cfg.TokenBucket.Capacity), refill, nil), nil
	default:
		return nil, fmt.Errorf("unknown rate limiter algorithm: %s", cfg.Algorithm)
	}
}
