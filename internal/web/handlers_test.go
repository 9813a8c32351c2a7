package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fachebot/doc-summary/internal/config"
	"github.com/fachebot/doc-summary/internal/metrics"
	"github.com/fachebot/doc-summary/internal/summarizer"
	"github.com/fachebot/doc-summary/internal/upload"
)

// stubSummarizer 记录调用并返回预设结果
type stubSummarizer struct {
	result    summarizer.Result
	calls     int
	inputs    []summarizer.Input
	hints     []string
	fileSeen  []byte
	pathSeen  string
	pathAlive bool
}

func (s *stubSummarizer) Summarize(ctx context.Context, input summarizer.Input, modelHint string) summarizer.Result {
	s.calls++
	s.inputs = append(s.inputs, input)
	s.hints = append(s.hints, modelHint)
	if in, ok := input.(summarizer.FileInput); ok {
		s.pathSeen = in.Path
		data, err := os.ReadFile(in.Path)
		s.pathAlive = err == nil
		s.fileSeen = data
	}
	return s.result
}

func fiveBulletsSuccess() *summarizer.Success {
	return &summarizer.Success{
		Data:  map[string]any{"summary_bullets": []any{"a", "b", "c", "d", "e"}},
		Model: "gemini-2.5-flash",
	}
}

func newTestRouter(t *testing.T, stub *stubSummarizer) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Log.Dir = ""
	cfg.Server.MaxUploadMB = 1
	return newRouter(&handler{
		config:     cfg,
		summarizer: stub,
		uploads:    upload.NewStore(dir),
		metrics:    metrics.New(),
	}), dir
}

func multipartBody(t *testing.T, filename string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func postForm(r http.Handler, path string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSummarizeTextPage_Success(t *testing.T) {
	stub := &stubSummarizer{result: fiveBulletsSuccess()}
	r, _ := newTestRouter(t, stub)

	w := postForm(r, "/summarize/text", url.Values{"text": {"The quick brown fox..."}, "model": {" gemini-2.5-pro "}})
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "模型：gemini-2.5-flash")
	assert.Contains(t, body, `&#34;summary_bullets&#34;`)
	for _, b := range []string{"a", "b", "c", "d", "e"} {
		assert.Contains(t, body, "<li>"+b+"</li>")
	}

	require.Equal(t, 1, stub.calls)
	assert.Equal(t, summarizer.TextInput{Text: "The quick brown fox..."}, stub.inputs[0])
	assert.Equal(t, "gemini-2.5-pro", stub.hints[0])
}

func TestSummarizeTextPage_EmptyTextSkipsClient(t *testing.T) {
	stub := &stubSummarizer{result: fiveBulletsSuccess()}
	r, _ := newTestRouter(t, stub)

	w := postForm(r, "/summarize/text", url.Values{"text": {"   "}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "请输入需要总结的文本")
	assert.Zero(t, stub.calls)
}

func TestSummarizeTextPage_Failure(t *testing.T) {
	stub := &stubSummarizer{result: &summarizer.Failure{
		Kind:    summarizer.FailureRemote,
		Message: "调用 Gemini API 失败: 429 RESOURCE_EXHAUSTED",
		Err:     errors.New("429"),
	}}
	r, _ := newTestRouter(t, stub)

	w := postForm(r, "/summarize/text", url.Values{"text": {"hello"}})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `class="banner error"`)
	assert.Contains(t, body, "429 RESOURCE_EXHAUSTED")
	assert.NotContains(t, body, "<h2>JSON</h2>")
}

func TestSummarizeTextPage_NoBulletsList(t *testing.T) {
	stub := &stubSummarizer{result: &summarizer.Success{
		Data:  map[string]any{"summary_bullets": "not a list"},
		Model: "gemini-2.5-flash",
	}}
	r, _ := newTestRouter(t, stub)

	w := postForm(r, "/summarize/text", url.Values{"text": {"hello"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<h2>JSON</h2>")
	assert.NotContains(t, w.Body.String(), "<h2>要点</h2>")
}

func TestSummarizeFilePage_Success(t *testing.T) {
	stub := &stubSummarizer{result: fiveBulletsSuccess()}
	r, dir := newTestRouter(t, stub)

	content := []byte("%PDF-1.4 test document")
	body, contentType := multipartBody(t, "Report.PDF", content, nil)
	req := httptest.NewRequest(http.MethodPost, "/summarize/file", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, stub.calls)
	assert.True(t, stub.pathAlive, "调用期间临时文件应存在")
	assert.Equal(t, content, stub.fileSeen)
	assert.True(t, strings.HasSuffix(stub.pathSeen, ".pdf"))
	assert.NoFileExists(t, stub.pathSeen)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "调用结束后临时目录应为空")
}

func TestSummarizeFilePage_TempFileRemovedOnFailure(t *testing.T) {
	stub := &stubSummarizer{result: &summarizer.Failure{Kind: summarizer.FailureRemote, Message: "network down"}}
	r, dir := newTestRouter(t, stub)

	body, contentType := multipartBody(t, "scan.png", []byte("\x89PNG\r\n\x1a\n"), nil)
	req := httptest.NewRequest(http.MethodPost, "/summarize/file", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "network down")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSummarizeFilePage_Validation(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  []byte
		wantMsg  string
	}{
		{"未选择文件", "", nil, "请选择一个文件"},
		{"不支持的类型", "notes.docx", []byte("x"), "仅支持 PDF/PNG/JPG/JPEG"},
		{"文件过大", "big.pdf", bytes.Repeat([]byte("x"), 1<<20+512<<10), "上限"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubSummarizer{result: fiveBulletsSuccess()}
			r, _ := newTestRouter(t, stub)

			body, contentType := multipartBody(t, tt.filename, tt.content, nil)
			req := httptest.NewRequest(http.MethodPost, "/summarize/file", body)
			req.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantMsg)
			assert.Zero(t, stub.calls)
		})
	}
}

func TestAPISummarize_JSONText(t *testing.T) {
	stub := &stubSummarizer{result: fiveBulletsSuccess()}
	r, _ := newTestRouter(t, stub)

	req := httptest.NewRequest(http.MethodPost, "/api/summarize", strings.NewReader(`{"text":"hello","model":"gemini-2.5-pro"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		OK    bool           `json:"ok"`
		Model string         `json:"model"`
		Data  map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, "gemini-2.5-flash", resp.Model)
	assert.Equal(t, []any{"a", "b", "c", "d", "e"}, resp.Data["summary_bullets"])
	assert.Equal(t, "gemini-2.5-pro", stub.hints[0])
}

func TestAPISummarize_MultipartFile(t *testing.T) {
	stub := &stubSummarizer{result: fiveBulletsSuccess()}
	r, _ := newTestRouter(t, stub)

	body, contentType := multipartBody(t, "photo.jpg", []byte{0xFF, 0xD8, 0xFF}, map[string]string{"model": "gemini-2.0-flash"})
	req := httptest.NewRequest(http.MethodPost, "/api/summarize", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, stub.calls)
	_, isFile := stub.inputs[0].(summarizer.FileInput)
	assert.True(t, isFile)
	assert.Equal(t, "gemini-2.0-flash", stub.hints[0])
}

func TestAPISummarize_Failures(t *testing.T) {
	tests := []struct {
		name       string
		result     summarizer.Result
		body       string
		wantStatus int
		wantKind   string
		wantCalls  int
	}{
		{"空文本", fiveBulletsSuccess(), `{"text":"  "}`, http.StatusBadRequest, "validation", 0},
		{"非法 JSON", fiveBulletsSuccess(), `{"text":`, http.StatusBadRequest, "validation", 0},
		{"缺少凭据", &summarizer.Failure{Kind: summarizer.FailureConfig, Message: "未配置 GOOGLE_API_KEY 环境变量"}, `{"text":"hi"}`, http.StatusInternalServerError, "config", 1},
		{"返回非对象", &summarizer.Failure{Kind: summarizer.FailureParse, Message: "模型返回的不是 JSON 对象"}, `{"text":"hi"}`, http.StatusBadGateway, "parse", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubSummarizer{result: tt.result}
			r, _ := newTestRouter(t, stub)

			req := httptest.NewRequest(http.MethodPost, "/api/summarize", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp struct {
				OK    bool   `json:"ok"`
				Kind  string `json:"kind"`
				Error string `json:"error"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.OK)
			assert.Equal(t, tt.wantKind, resp.Kind)
			assert.NotEmpty(t, resp.Error)
			assert.Equal(t, tt.wantCalls, stub.calls)
		})
	}
}

func TestAPISummarize_FileTooLarge(t *testing.T) {
	stub := &stubSummarizer{result: fiveBulletsSuccess()}
	r, _ := newTestRouter(t, stub)

	// 超过请求体上限，在绑定阶段就会失败
	body, contentType := multipartBody(t, "big.pdf", bytes.Repeat([]byte("x"), 3<<20), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/summarize", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp struct {
		OK    bool   `json:"ok"`
		Kind  string `json:"kind"`
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.OK)
	assert.Equal(t, "validation", resp.Kind)
	assert.Equal(t, "文件超过 1 MB 上限", resp.Error)
	assert.Zero(t, stub.calls)
}
