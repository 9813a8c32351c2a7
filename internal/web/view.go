package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/fachebot/doc-summary/internal/summarizer"
	"github.com/fachebot/doc-summary/internal/upload"
)

const (
	tabFile = "file"
	tabText = "text"
)

// pageData index.html 的渲染数据
type pageData struct {
	Subpath      string
	Tab          string
	Text         string
	Model        string
	DefaultModel string
	MaxUploadMB  int64
	Accept       string
	Error        string
	Result       *resultView
}

// resultView 成功结果的展示形式
type resultView struct {
	Model      string
	JSON       string
	Bullets    []string
	HasBullets bool
}

func (h *handler) newPage(tab string) pageData {
	return pageData{
		Subpath:      h.config.Server.Subpath,
		Tab:          tab,
		DefaultModel: h.config.LLM.ResolveModel(""),
		MaxUploadMB:  h.config.Server.MaxUploadMB,
		Accept:       strings.Join(upload.AllowedExtensions, ","),
	}
}

// prettyJSON 缩进输出，不转义非 ASCII 和 HTML 字符（由模板负责转义）
func prettyJSON(data map[string]any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return ""
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func newResultView(res *summarizer.Success) *resultView {
	bullets, ok := res.Bullets()
	return &resultView{
		Model:      res.Model,
		JSON:       prettyJSON(res.Data),
		Bullets:    bullets,
		HasBullets: ok,
	}
}

// statusForFailure 失败分类对应的 HTTP 状态码
func statusForFailure(kind summarizer.FailureKind) int {
	switch kind {
	case summarizer.FailureValidation:
		return http.StatusBadRequest
	case summarizer.FailureConfig:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

// outcome 用于指标的结果标签
func outcome(res summarizer.Result) string {
	if fail, ok := res.(*summarizer.Failure); ok {
		return string(fail.Kind)
	}
	return "ok"
}
