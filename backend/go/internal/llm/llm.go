package llm

import (
	"AIBoss/backend/go/internal/config"
	"context"
	"fmt"
)

// CompletionRequest 是一次单轮文本生成请求。
type CompletionRequest struct {
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// CompletionResponse 是模型返回的文本及其元数据。
type CompletionResponse struct {
	Content      string
	Model        string
	FinishReason string
}

// LLM 定义了所有大模型提供商必须实现的接口：同步地完成一段文本。
type LLM interface {
	// Name 返回提供商名称，用于日志和指标。
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// NewProvider 是一个工厂函数，根据配置创建对应提供商的客户端。
func NewProvider(ctx context.Context, cfg config.LLMConfig) (LLM, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAI(cfg.Model, cfg.APIKey, cfg.BaseURL)
	case "ollama":
		return NewOllama(cfg.Model, cfg.BaseURL, cfg.Timeout)
	case "gemini":
		return NewGemini(ctx, cfg.Model, cfg.APIKey)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
