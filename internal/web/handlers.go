package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fachebot/doc-summary/internal/config"
	"github.com/fachebot/doc-summary/internal/metrics"
	"github.com/fachebot/doc-summary/internal/summarizer"
	"github.com/fachebot/doc-summary/internal/upload"
)

// summarizerService 便于测试注入 stub
type summarizerService interface {
	Summarize(ctx context.Context, input summarizer.Input, modelHint string) summarizer.Result
}

type handler struct {
	config     *config.Config
	summarizer summarizerService
	uploads    *upload.Store
	metrics    *metrics.Metrics
}

// apiRequest POST /api/summarize 的参数，file 字段单独从 multipart 读取
type apiRequest struct {
	Text  string `json:"text" form:"text"`
	Model string `json:"model" form:"model"`
}

func validationFailure(format string, args ...any) *summarizer.Failure {
	return &summarizer.Failure{Kind: summarizer.FailureValidation, Message: fmt.Sprintf(format, args...)}
}

// GET /health
func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// GET /
func (h *handler) index(c *gin.Context) {
	tab := tabFile
	if c.Query("tab") == tabText {
		tab = tabText
	}
	c.HTML(http.StatusOK, "index.html", h.newPage(tab))
}

// POST /summarize/file
func (h *handler) summarizeFilePage(c *gin.Context) {
	page := h.newPage(tabFile)
	page.Model = strings.TrimSpace(c.PostForm("model"))
	h.renderPage(c, page, h.summarizeUpload(c, page.Model))
}

// POST /summarize/text
func (h *handler) summarizeTextPage(c *gin.Context) {
	page := h.newPage(tabText)
	page.Text = c.PostForm("text")
	page.Model = strings.TrimSpace(c.PostForm("model"))
	h.renderPage(c, page, h.summarizeText(c, page.Text, page.Model))
}

// POST /api/summarize
// multipart 请求带 file 时总结文件，否则总结 text
func (h *handler) apiSummarize(c *gin.Context) {
	var req apiRequest
	var res summarizer.Result
	if err := c.ShouldBind(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			res = h.tooLarge()
		} else {
			res = validationFailure("请求格式错误: %v", err)
		}
	} else if _, err := c.FormFile("file"); err == nil {
		res = h.summarizeUpload(c, strings.TrimSpace(req.Model))
	} else {
		res = h.summarizeText(c, req.Text, strings.TrimSpace(req.Model))
	}

	switch r := res.(type) {
	case *summarizer.Success:
		c.JSON(http.StatusOK, gin.H{"ok": true, "model": r.Model, "data": r.Data})
	case *summarizer.Failure:
		c.JSON(statusForFailure(r.Kind), gin.H{"ok": false, "kind": r.Kind, "error": r.Message})
	}
}

// summarizeUpload 校验上传文件，写入临时副本后调用总结，返回前删除副本
func (h *handler) summarizeUpload(c *gin.Context, model string) summarizer.Result {
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return h.tooLarge()
		}
		return validationFailure("请选择一个文件")
	}

	ext, err := upload.CheckExtension(fh.Filename)
	if err != nil {
		return validationFailure("%v", err)
	}
	if fh.Size > h.config.Server.MaxUploadMB<<20 {
		return h.tooLarge()
	}

	f, err := fh.Open()
	if err != nil {
		return validationFailure("无法读取上传文件: %v", err)
	}
	defer f.Close()

	done := h.metrics.Track(tabFile)
	var res summarizer.Result
	err = h.uploads.WithTempCopy(ext, f, func(path string) {
		res = h.summarizer.Summarize(c.Request.Context(), summarizer.FileInput{Path: path}, model)
	})
	if err != nil {
		res = validationFailure("保存上传文件失败: %v", err)
	}
	done(outcome(res))
	return res
}

func (h *handler) tooLarge() summarizer.Result {
	return validationFailure("文件超过 %d MB 上限", h.config.Server.MaxUploadMB)
}

// summarizeText 空白文本直接返回校验失败，不调用模型
func (h *handler) summarizeText(c *gin.Context, text, model string) summarizer.Result {
	if strings.TrimSpace(text) == "" {
		return validationFailure("请输入需要总结的文本")
	}

	done := h.metrics.Track(tabText)
	res := h.summarizer.Summarize(c.Request.Context(), summarizer.TextInput{Text: text}, model)
	done(outcome(res))
	return res
}

func (h *handler) renderPage(c *gin.Context, page pageData, res summarizer.Result) {
	status := http.StatusOK
	switch r := res.(type) {
	case *summarizer.Success:
		page.Result = newResultView(r)
	case *summarizer.Failure:
		page.Error = r.Message
		status = statusForFailure(r.Kind)
	}
	c.HTML(status, "index.html", page)
}
