package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/fachebot/doc-summary/internal/config"
	"github.com/fachebot/doc-summary/internal/logger"
)

// openAIClientInterface 定义 OpenAI 客户端接口，便于测试
type openAIClientInterface interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClient 通过 OpenAI 兼容接口调用模型（默认指向 Gemini 的兼容端点）
type OpenAIClient struct {
	config       *config.LLM
	openaiClient openAIClientInterface
}

func NewOpenAIClient(cfg *config.LLM, httpClient *http.Client) *OpenAIClient {
	openaiConfig := openai.DefaultConfig(cfg.APIKey)
	openaiConfig.BaseURL = cfg.BaseURL
	if httpClient != nil {
		openaiConfig.HTTPClient = httpClient
	}

	return &OpenAIClient{
		config:       cfg,
		openaiClient: openai.NewClientWithConfig(openaiConfig),
	}
}

// contentPart 兼容接口只接受图片形式的二进制内容
func contentPart(req Request) (openai.ChatMessagePart, error) {
	if !req.IsBinary() {
		return openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: req.Text}, nil
	}
	if !strings.HasPrefix(req.MIMEType, "image/") {
		return openai.ChatMessagePart{}, fmt.Errorf("%w: %s", ErrUnsupportedMedia, req.MIMEType)
	}

	dataURL := "data:" + req.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(req.Data)
	return openai.ChatMessagePart{
		Type:     openai.ChatMessagePartTypeImageURL,
		ImageURL: &openai.ChatMessageImageURL{URL: dataURL, Detail: openai.ImageURLDetailAuto},
	}, nil
}

// Generate 执行一次 chat completion 请求，返回模型输出文本
func (c *OpenAIClient) Generate(ctx context.Context, req Request) (string, error) {
	part, err := contentPart(req)
	if err != nil {
		return "", err
	}

	ctx, cancel := withTimeout(ctx, c.config.TimeoutSeconds)
	defer cancel()

	chatReq := openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					part,
					{Type: openai.ChatMessagePartTypeText, Text: SummaryPrompt},
				},
			},
		},
		Temperature: c.config.Temperature,
		TopP:        c.config.TopP,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	logger.Debugf("[LLM] 调用 OpenAI 兼容接口, model=%s, binary=%v, mime=%s", req.Model, req.IsBinary(), req.MIMEType)

	resp, err := c.openaiClient.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", fmt.Errorf("调用 LLM API 失败: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}
