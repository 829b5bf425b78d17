package ratelimiter

import (
	"sync"
	"time"
)

// FixedWindowCounter implements the RateLimiter interface using a fixed window counter algorithm.
// It allows a certain number of requests in a fixed time window.
type FixedWindowCounter struct {
	limit       int           // Maximum number of requests allowed in the window.
	window      time.Duration // The duration of the time window.
	count       int           // Current number of requests in the window.
	windowStart time.Time     // The start time of the current window.
	now         Clock
	mutex       sync.Mutex
}

// NewFixedWindowCounter creates a new FixedWindowCounter.
// 窗口从第一次创建时开始计时，now 为 nil 时使用 time.Now。
func NewFixedWindowCounter(limit int, window time.Duration, now Clock) *FixedWindowCounter {
	if now == nil {
		now = time.Now
	}
	return &FixedWindowCounter{
		limit:       limit,
		window:      window,
		now:         now,
		windowStart: now(),
	}
}

// Allow checks if a request is allowed.
// 当前窗口结束后计数清零并开启新窗口。
func (fwc *FixedWindowCounter) Allow() bool {
	fwc.mutex.Lock()
	defer fwc.mutex.Unlock()

	now := fwc.now()
	if !now.Before(fwc.windowStart.Add(fwc.window)) {
		fwc.windowStart = now
		fwc.count = 0
	}

	if fwc.count < fwc.limit {
		fwc.count++
		return true
	}
	return false
}
