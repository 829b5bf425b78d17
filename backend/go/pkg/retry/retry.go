package retry

import (
	"context"
	"time"
)

// Backoff 返回第 attempt 次尝试失败后、下一次尝试之前的等待时间，attempt 从 1 开始。
type Backoff func(attempt int) time.Duration

// Linear 返回线性退避：第 k 次失败后等待 base*k。
func Linear(base time.Duration) Backoff {
	return func(attempt int) time.Duration {
		return base * time.Duration(attempt)
	}
}

// Constant 返回固定间隔的退避。
func Constant(d time.Duration) Backoff {
	return func(int) time.Duration {
		return d
	}
}

// Sleeper 负责两次尝试之间的等待，ctx 结束时应立即返回 ctx 的错误。
// 测试中可以替换为不真正休眠的实现。
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep 是默认的 Sleeper，基于 time.Timer。
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Policy 定义了一次调用的重试策略。
type Policy struct {
	MaxAttempts int     // 总尝试次数，小于 1 时按 1 处理
	Backoff     Backoff // 为 nil 时不等待
	Sleep       Sleeper // 为 nil 时使用 Sleep

	// OnRetry 在一次失败之后、等待之前被调用，可用于记录日志。
	OnRetry func(attempt int, err error, wait time.Duration)
}

// Do 按策略执行 fn，直到成功或尝试次数用尽。
// 返回实际执行的次数，以及最后一次失败的错误（成功时为 nil）。
// 等待期间 ctx 结束会提前返回最后一次失败的错误。
func Do(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) error) (int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return attempt, nil
		}
		if attempt == maxAttempts {
			return attempt, lastErr
		}

		var wait time.Duration
		if p.Backoff != nil {
			wait = p.Backoff(attempt)
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, lastErr, wait)
		}
		if err := sleep(ctx, wait); err != nil {
			return attempt, lastErr
		}
	}
	return maxAttempts, lastErr
}
