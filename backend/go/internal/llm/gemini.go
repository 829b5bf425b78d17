package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini 是一个实现了 LLM 接口的结构体，用于与 Gemini API 交互。
type Gemini struct {
	client    *genai.Client
	modelName string
}

// NewGemini 使用 API 密钥创建 Gemini 客户端。
func NewGemini(ctx context.Context, model, apiKey string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &Gemini{client: client, modelName: model}, nil
}

// Name 返回提供商名称。
func (g *Gemini) Name() string { return "gemini" }

// Complete 发送单轮请求，拼接第一个候选中的所有文本片段。
// 每次调用单独配置模型参数，不保留对话历史。
func (g *Gemini) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := g.client.GenerativeModel(g.modelName)
	model.SetTemperature(req.Temperature)
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with gemini: %w", err)
	}

	out := &CompletionResponse{Model: g.modelName}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return out, nil
	}
	candidate := resp.Candidates[0]

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	out.Content = sb.String()
	out.FinishReason = candidate.FinishReason.String()
	return out, nil
}

// Close 关闭底层的 genai 客户端。
func (g *Gemini) Close() error {
	return g.client.Close()
}
