package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/fachebot/doc-summary/internal/config"
	"github.com/fachebot/doc-summary/internal/logger"
)

// modelsAPI genai.Models 的子集，便于测试注入 mock
type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiClient 通过 Google GenAI SDK 调用 Gemini
type GeminiClient struct {
	config    *config.LLM
	newModels func(ctx context.Context) (modelsAPI, error)
}

// NewGeminiClient httpClient 为 nil 时使用 SDK 默认的 HTTP 客户端
func NewGeminiClient(cfg *config.LLM, httpClient *http.Client) *GeminiClient {
	c := &GeminiClient{config: cfg}
	c.newModels = func(ctx context.Context) (modelsAPI, error) {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:     cfg.APIKey,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: httpClient,
		})
		if err != nil {
			return nil, err
		}
		return client.Models, nil
	}
	return c
}

// buildContents 内容部分在前，固定指令在后
func buildContents(req Request) []*genai.Content {
	var content *genai.Part
	if req.IsBinary() {
		content = genai.NewPartFromBytes(req.Data, req.MIMEType)
	} else {
		content = genai.NewPartFromText(req.Text)
	}

	parts := []*genai.Part{content, genai.NewPartFromText(SummaryPrompt)}
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}

func (c *GeminiClient) generationConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(c.config.Temperature),
		TopP:             genai.Ptr(c.config.TopP),
		ResponseMIMEType: ResponseMIMEType,
	}
}

// Generate 执行一次 generateContent 请求，返回模型输出文本
func (c *GeminiClient) Generate(ctx context.Context, req Request) (string, error) {
	ctx, cancel := withTimeout(ctx, c.config.TimeoutSeconds)
	defer cancel()

	models, err := c.newModels(ctx)
	if err != nil {
		return "", fmt.Errorf("创建 GenAI 客户端失败: %w", err)
	}

	logger.Debugf("[LLM] 调用 Gemini, model=%s, binary=%v, mime=%s", req.Model, req.IsBinary(), req.MIMEType)

	resp, err := models.GenerateContent(ctx, req.Model, buildContents(req), c.generationConfig())
	if err != nil {
		return "", fmt.Errorf("调用 Gemini API 失败: %w", err)
	}
	if resp == nil {
		return "", ErrEmptyResponse
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
