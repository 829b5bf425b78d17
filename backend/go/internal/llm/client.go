package llm

import (
	"AIBoss/backend/go/internal/config"
	"AIBoss/backend/go/internal/models"
	"AIBoss/backend/go/pkg/circuitbreaker"
	"AIBoss/backend/go/pkg/logger"
	"AIBoss/backend/go/pkg/retry"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrEmptyResponse 表示模型调用成功但没有返回任何内容，按失败处理并参与重试。
var ErrEmptyResponse = errors.New("LLM returned empty response")

// ProviderError 表示所有尝试都失败了。
type ProviderError struct {
	Attempts int
	Last     error
}

func (e *ProviderError) Error() string {
	msg := "unknown error"
	if e.Last != nil {
		msg = e.Last.Error()
	}
	return fmt.Sprintf("LLM call failed after %d attempts: %s", e.Attempts, msg)
}

func (e *ProviderError) Unwrap() error {
	return e.Last
}

// InvokeOptions 是单次调用的参数。
type InvokeOptions struct {
	Temperature float32
	MaxRetries  int // 总尝试次数为 MaxRetries+1
}

// AttemptObserver 接收每一次调用尝试的耗时与结果。
type AttemptObserver func(provider string, d time.Duration, err error)

// ClientConfig 是客户端的有效配置，启动时输出到日志。
type ClientConfig struct {
	Provider   string        `json:"provider"`
	Model      string        `json:"model"`
	MaxTokens  int           `json:"maxTokens"`
	Timeout    time.Duration `json:"timeout"`
	MaxRetries int           `json:"maxRetries"`
}

// Client 在 LLM 之上提供超时、线性退避重试和熔断保护。
type Client struct {
	provider LLM
	cfg      config.LLMConfig
	breaker  circuitbreaker.CircuitBreaker
	sleep    retry.Sleeper
	observe  AttemptObserver
	logger   *logger.Logger
}

// ClientOption 用于定制 Client。
type ClientOption func(*Client)

// WithBreaker 使用指定的熔断器，覆盖配置中的熔断设置。传入 nil 表示关闭熔断。
func WithBreaker(b circuitbreaker.CircuitBreaker) ClientOption {
	return func(c *Client) {
		c.breaker = b
	}
}

// WithSleeper 替换重试之间的等待实现。
func WithSleeper(s retry.Sleeper) ClientOption {
	return func(c *Client) {
		c.sleep = s
	}
}

// WithObserver 注册调用尝试的观察者，通常用于上报指标。
func WithObserver(o AttemptObserver) ClientOption {
	return func(c *Client) {
		c.observe = o
	}
}

// NewClient 创建一个带重试的大模型客户端。
func NewClient(provider LLM, cfg config.LLMConfig, log *logger.Logger, opts ...ClientOption) *Client {
	c := &Client{
		provider: provider,
		cfg:      cfg,
		sleep:    retry.Sleep,
		logger:   log,
	}
	if cfg.CircuitBreaker.Enabled {
		cb := cfg.CircuitBreaker
		c.breaker = circuitbreaker.New(cb.FailureThreshold, cb.SuccessThreshold, cb.Timeout)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config 返回当前的有效配置。
func (c *Client) Config() ClientConfig {
	return ClientConfig{
		Provider:   c.provider.Name(),
		Model:      c.cfg.Model,
		MaxTokens:  c.cfg.MaxTokens,
		Timeout:    c.cfg.Timeout,
		MaxRetries: c.cfg.MaxRetries,
	}
}

// DefaultOptions 返回配置中的默认调用参数。
func (c *Client) DefaultOptions() InvokeOptions {
	return InvokeOptions{
		Temperature: c.cfg.Temperature,
		MaxRetries:  c.cfg.MaxRetries,
	}
}

// Invoke 调用大模型并返回文本，最多尝试 MaxRetries+1 次。
// 网络错误、服务端错误、超时和空内容都按失败处理，第 k 次失败后等待 k 个退避单位。
// 全部失败时返回 *ProviderError，其中包含尝试次数和最后一次失败的原因。
func (c *Client) Invoke(ctx context.Context, prompt string, opts InvokeOptions) (string, error) {
	maxAttempts := opts.MaxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var content string
	attempts, err := retry.Do(ctx, retry.Policy{
		MaxAttempts: maxAttempts,
		Backoff:     retry.Linear(c.cfg.RetryBackoff),
		Sleep:       c.sleep,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			c.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: models.ErrorTypeProvider}).
				WithPayload(map[string]interface{}{"attempt": attempt, "max_attempts": maxAttempts, "wait_ms": wait.Milliseconds()}).
				Warn("LLM call failed, retrying")
		},
	}, func(ctx context.Context, attempt int) error {
		c.logger.WithPayload(map[string]interface{}{"attempt": attempt, "max_attempts": maxAttempts}).Debug("Calling LLM")

		start := time.Now()
		text, err := c.attempt(ctx, CompletionRequest{
			Prompt:      prompt,
			Temperature: opts.Temperature,
			MaxTokens:   c.cfg.MaxTokens,
		})
		if c.observe != nil {
			c.observe(c.provider.Name(), time.Since(start), err)
		}
		if err != nil {
			return err
		}
		content = text
		return nil
	})
	if err != nil {
		c.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: models.ErrorTypeProvider}).
			WithField("attempts", attempts).
			Error("LLM call exhausted all attempts")
		return "", &ProviderError{Attempts: attempts, Last: err}
	}
	return content, nil
}

// attempt 执行一次带超时的调用。
func (c *Client) attempt(ctx context.Context, req CompletionRequest) (string, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	call := func() (interface{}, error) {
		resp, err := c.provider.Complete(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp == nil || strings.TrimSpace(resp.Content) == "" {
			return nil, ErrEmptyResponse
		}
		return resp.Content, nil
	}

	var (
		res interface{}
		err error
	)
	if c.breaker != nil {
		res, err = c.breaker.Execute(call)
	} else {
		res, err = call()
	}
	if err != nil {
		return "", err
	}
	return res.(string), nil
}
