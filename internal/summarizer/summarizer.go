package summarizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/fachebot/doc-summary/internal/config"
	"github.com/fachebot/doc-summary/internal/llm"
	"github.com/fachebot/doc-summary/internal/logger"
	"github.com/fachebot/doc-summary/internal/upload"
)

type Summarizer struct {
	config    *config.LLM
	generator llm.Generator
}

func NewSummarizer(cfg *config.LLM, generator llm.Generator) *Summarizer {
	return &Summarizer{
		config:    cfg,
		generator: generator,
	}
}

func failure(kind FailureKind, err error, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// Summarize 生成五条要点的总结，所有错误都以 *Failure 返回
// modelHint 为空时依次使用 GENAI_MODEL/配置 和默认模型
func (s *Summarizer) Summarize(ctx context.Context, input Input, modelHint string) Result {
	req, fail := s.buildRequest(input)
	if fail != nil {
		logger.Warnf("[Summarizer] 请求未发送: %s", fail.Message)
		return fail
	}

	req.Model = s.config.ResolveModel(strings.TrimSpace(modelHint))
	logger.Infof("[Summarizer] 开始总结, model=%s, binary=%v", req.Model, req.IsBinary())

	raw, err := s.generator.Generate(ctx, req)
	if err != nil {
		if errors.Is(err, llm.ErrUnsupportedMedia) {
			return failure(FailureValidation, err, "%v", err)
		}
		logger.Errorf("[Summarizer] 调用模型失败: %v", err)
		return failure(FailureRemote, err, "%v", err)
	}

	data, fail := parseObject(raw)
	if fail != nil {
		logger.Debugf("[Summarizer] 解析模型返回失败: %s", raw)
		return fail
	}

	logger.Infof("[Summarizer] 完成总结, model=%s", req.Model)
	return &Success{Data: data, Model: req.Model}
}

// buildRequest 校验输入和凭据，失败时不会产生任何网络请求
func (s *Summarizer) buildRequest(input Input) (llm.Request, *Failure) {
	switch in := input.(type) {
	case TextInput:
		text := strings.TrimSpace(in.Text)
		if text == "" {
			return llm.Request{}, failure(FailureValidation, nil, "未提供需要总结的文本")
		}
		if fail := s.checkCredential(); fail != nil {
			return llm.Request{}, fail
		}
		return llm.Request{Text: text}, nil

	case FileInput:
		if _, err := os.Stat(in.Path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return llm.Request{}, failure(FailureValidation, err, "文件不存在: %s", in.Path)
			}
			return llm.Request{}, failure(FailureValidation, err, "无法读取文件 %s: %v", in.Path, err)
		}
		if fail := s.checkCredential(); fail != nil {
			return llm.Request{}, fail
		}

		data, err := os.ReadFile(in.Path)
		if err != nil {
			return llm.Request{}, failure(FailureValidation, err, "无法读取文件 %s: %v", in.Path, err)
		}
		mimeType := in.MIMEType
		if mimeType == "" {
			mimeType = upload.GuessMIME(in.Path, data)
		}
		return llm.Request{Data: data, MIMEType: mimeType}, nil

	default:
		return llm.Request{}, failure(FailureValidation, nil, "不支持的输入类型 %T", input)
	}
}

func (s *Summarizer) checkCredential() *Failure {
	if s.config.APIKey == "" {
		return failure(FailureConfig, nil, "未配置 GOOGLE_API_KEY 环境变量")
	}
	return nil
}

// parseObject 解析模型返回的文本，只接受 JSON 对象
func parseObject(raw string) (map[string]any, *Failure) {
	var parsed any
	if err := json.Unmarshal([]byte(llm.StripCodeFence(raw)), &parsed); err != nil {
		return nil, failure(FailureParse, err, "解析模型返回的 JSON 失败: %v", err)
	}

	data, ok := parsed.(map[string]any)
	if !ok {
		return nil, failure(FailureParse, nil, "模型返回的不是 JSON 对象")
	}
	return data, nil
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
