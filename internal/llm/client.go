package llm

import (
	"context"
	"errors"
	"strings"
	"time"
)

// SummaryPrompt 固定的总结指令，要求模型只返回 JSON 对象
const SummaryPrompt = `You are an AI assistant that summarizes documents concisely and in a structured way.

Instructions:
- Read the provided content and produce EXACTLY 5 summary bullets.
- Each bullet must be at most 20 words, written in the language of the document.
- Respond ONLY with valid JSON: no extra text, no code, no comments, no explanations.
- Do not use Markdown or any text outside the JSON.

Required output format:
{"summary_bullets": ["bullet1", "bullet2", "bullet3", "bullet4", "bullet5"]}`

// ResponseMIMEType 要求远端返回的内容类型
const ResponseMIMEType = "application/json"

var (
	// ErrEmptyResponse 远端返回了空内容
	ErrEmptyResponse = errors.New("LLM API 返回空结果")

	// ErrUnsupportedMedia 当前后端无法处理该媒体类型
	ErrUnsupportedMedia = errors.New("当前模型后端不支持该文件类型")
)

// Request 一次总结请求，Data 与 Text 二选一
type Request struct {
	Model    string
	Data     []byte
	MIMEType string
	Text     string
}

// IsBinary 是否为二进制内容（文件）
func (r *Request) IsBinary() bool {
	return r.Data != nil
}

// Generator 把内容和固定指令发给远端模型，返回模型输出的原始文本
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// withTimeout seconds 为 0 时不附加超时
func withTimeout(ctx context.Context, seconds int) (context.Context, context.CancelFunc) {
	if seconds <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(seconds)*time.Second)
}

// StripCodeFence 去掉模型偶尔包裹在 JSON 外面的 ``` 代码块
func StripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
