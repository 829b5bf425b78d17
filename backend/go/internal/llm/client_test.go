package llm

import (
	"AIBoss/backend/go/internal/config"
	"AIBoss/backend/go/pkg/circuitbreaker"
	"AIBoss/backend/go/pkg/logger"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// scriptedLLM 按顺序返回预设的结果，超出脚本后一直返回最后一项。
type scriptedLLM struct {
	mu      sync.Mutex
	results []scriptedResult
	calls   int
	reqs    []CompletionRequest
}

type scriptedResult struct {
	content string
	err     error
	block   bool // 阻塞直到 ctx 结束
}

func (s *scriptedLLM) Name() string { return "fake" }

func (s *scriptedLLM) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	s.mu.Lock()
	idx := s.calls
	if idx >= len(s.results) {
		idx = len(s.results) - 1
	}
	r := s.results[idx]
	s.calls++
	s.reqs = append(s.reqs, req)
	s.mu.Unlock()

	if r.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if r.err != nil {
		return nil, r.err
	}
	return &CompletionResponse{Content: r.content}, nil
}

type recordingSleeper struct {
	waits []time.Duration
}

func (r *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

func testLLMConfig() config.LLMConfig {
	return config.LLMConfig{
		Provider:     "openai",
		Model:        "gpt-4o-mini",
		MaxTokens:    4000,
		Temperature:  0.7,
		Timeout:      time.Second,
		MaxRetries:   1,
		RetryBackoff: time.Second,
	}
}

func TestInvokeReturnsContent(t *testing.T) {
	fake := &scriptedLLM{results: []scriptedResult{{content: "hello"}}}
	client := NewClient(fake, testLLMConfig(), logger.Discard())

	out, err := client.Invoke(context.Background(), "prompt", client.DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, "hello", out)
	require.Equal(t, 1, fake.calls)
	require.Equal(t, CompletionRequest{Prompt: "prompt", Temperature: 0.7, MaxTokens: 4000}, fake.reqs[0])
}

func TestInvokeStopsAfterMaxRetries(t *testing.T) {
	fake := &scriptedLLM{results: []scriptedResult{
		{err: errors.New("first")},
		{err: errors.New("second")},
		{content: "never reached"},
	}}
	sleeper := &recordingSleeper{}
	client := NewClient(fake, testLLMConfig(), logger.Discard(), WithSleeper(sleeper.Sleep))

	_, err := client.Invoke(context.Background(), "prompt", InvokeOptions{Temperature: 0.7, MaxRetries: 1})

	var providerErr *ProviderError
	require.True(t, errors.As(err, &providerErr))
	require.Equal(t, 2, providerErr.Attempts)
	require.EqualError(t, err, "LLM call failed after 2 attempts: second")
	require.Equal(t, 2, fake.calls)
	require.Equal(t, []time.Duration{time.Second}, sleeper.waits)
}

func TestInvokeLinearBackoff(t *testing.T) {
	fake := &scriptedLLM{results: []scriptedResult{{err: errors.New("down")}}}
	sleeper := &recordingSleeper{}
	client := NewClient(fake, testLLMConfig(), logger.Discard(), WithSleeper(sleeper.Sleep))

	_, err := client.Invoke(context.Background(), "prompt", InvokeOptions{MaxRetries: 3})
	require.EqualError(t, err, "LLM call failed after 4 attempts: down")
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}, sleeper.waits)
}

func TestInvokeRetriesEmptyContent(t *testing.T) {
	fake := &scriptedLLM{results: []scriptedResult{{content: ""}, {content: "  "}, {content: "ok"}}}
	client := NewClient(fake, testLLMConfig(), logger.Discard(), WithSleeper((&recordingSleeper{}).Sleep))

	out, err := client.Invoke(context.Background(), "prompt", InvokeOptions{MaxRetries: 2})
	require.NoError(t, err)
	require.Equal(t, "ok", out)
	require.Equal(t, 3, fake.calls)

	fake = &scriptedLLM{results: []scriptedResult{{content: ""}}}
	client = NewClient(fake, testLLMConfig(), logger.Discard(), WithSleeper((&recordingSleeper{}).Sleep))
	_, err = client.Invoke(context.Background(), "prompt", InvokeOptions{MaxRetries: 1})
	require.ErrorIs(t, err, ErrEmptyResponse)
	require.EqualError(t, err, "LLM call failed after 2 attempts: LLM returned empty response")
}

func TestInvokeTimeoutCountsAsFailure(t *testing.T) {
	cfg := testLLMConfig()
	cfg.Timeout = 20 * time.Millisecond
	fake := &scriptedLLM{results: []scriptedResult{{block: true}, {content: "late but fine"}}}
	client := NewClient(fake, cfg, logger.Discard(), WithSleeper((&recordingSleeper{}).Sleep))

	out, err := client.Invoke(context.Background(), "prompt", InvokeOptions{MaxRetries: 1})
	require.NoError(t, err)
	require.Equal(t, "late but fine", out)
	require.Equal(t, 2, fake.calls)
}

func TestInvokeOpenBreakerFailsFast(t *testing.T) {
	fake := &scriptedLLM{results: []scriptedResult{{err: errors.New("down")}}}
	breaker := circuitbreaker.New(1, 1, time.Hour)
	client := NewClient(fake, testLLMConfig(), logger.Discard(),
		WithBreaker(breaker), WithSleeper((&recordingSleeper{}).Sleep))

	_, err := client.Invoke(context.Background(), "prompt", InvokeOptions{MaxRetries: 1})
	require.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	require.Equal(t, 1, fake.calls)
}

func TestInvokeObservesAttempts(t *testing.T) {
	fake := &scriptedLLM{results: []scriptedResult{{err: errors.New("down")}, {content: "ok"}}}
	var results []error
	client := NewClient(fake, testLLMConfig(), logger.Discard(),
		WithSleeper((&recordingSleeper{}).Sleep),
		WithObserver(func(provider string, d time.Duration, err error) {
			require.Equal(t, "fake", provider)
			results = append(results, err)
		}))

	_, err := client.Invoke(context.Background(), "prompt", InvokeOptions{MaxRetries: 1})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Error(t, results[0])
	require.NoError(t, results[1])
}

func TestClientConfig(t *testing.T) {
	client := NewClient(&scriptedLLM{results: []scriptedResult{{content: "x"}}}, testLLMConfig(), logger.Discard())
	require.Equal(t, ClientConfig{
		Provider:   "fake",
		Model:      "gpt-4o-mini",
		MaxTokens:  4000,
		Timeout:    time.Second,
		MaxRetries: 1,
	}, client.Config())
}

func TestNewProviderRejectsUnknown(t *testing.T) {
	_, err := NewProvider(context.Background(), config.LLMConfig{Provider: "huggingface"})
	require.Error(t, err)

	_, err = NewProvider(context.Background(), config.LLMConfig{Provider: "openai"})
	require.Error(t, err)

	p, err := NewProvider(context.Background(), config.LLMConfig{Provider: "ollama", Model: "qwen2.5"})
	require.NoError(t, err)
	require.Equal(t, "ollama", p.Name())
}
