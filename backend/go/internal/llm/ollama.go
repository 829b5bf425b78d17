package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	olla "github.com/ollama/ollama/api"
)

// Ollama 是一个用于 Ollama API 的 LLM 客户端。
type Ollama struct {
	client *olla.Client
	model  string
}

// NewOllama 创建一个新的 Ollama 客户端。
//
// 参数:
//
//	model: 要使用的模型名称。
//	baseURL: Ollama 服务的基准 URL。如果为空，则默认为 "http://localhost:11434"。
//	timeout: HTTP 客户端超时，单次调用的超时仍由调用方的 ctx 控制。
func NewOllama(model, baseURL string, timeout time.Duration) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	client := olla.NewClient(parsedURL, &http.Client{Timeout: timeout})
	return &Ollama{client: client, model: model}, nil
}

// Name 返回提供商名称。
func (o *Ollama) Name() string { return "ollama" }

// Complete 使用非流式的 Generate 接口生成内容。
func (o *Ollama) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	stream := false
	var result *olla.GenerateResponse

	err := o.client.Generate(ctx, &olla.GenerateRequest{
		Model:  o.model,
		Prompt: req.Prompt,
		Stream: &stream,
		Options: map[string]interface{}{
			"temperature": req.Temperature,
			"num_predict": req.MaxTokens,
		},
	}, func(resp olla.GenerateResponse) error {
		result = &resp
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with ollama: %w", err)
	}
	if result == nil {
		return &CompletionResponse{Model: o.model}, nil
	}

	return &CompletionResponse{
		Content:      result.Response,
		Model:        result.Model,
		FinishReason: result.DoneReason,
	}, nil
}
