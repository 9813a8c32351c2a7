package web

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fachebot/doc-summary/internal/svc"
)

//go:embed templates/*.html
var templateFS embed.FS

// multipartOverhead 表单字段和 multipart 边界的额外空间
const multipartOverhead = 1 << 20

func SetupRouter(svcCtx *svc.ServiceContext) *gin.Engine {
	return newRouter(&handler{
		config:     svcCtx.Config,
		summarizer: svcCtx.Summarizer,
		uploads:    svcCtx.Uploads,
		metrics:    svcCtx.Metrics,
	})
}

func newRouter(h *handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog())

	maxUpload := h.config.Server.MaxUploadMB << 20
	r.MaxMultipartMemory = maxUpload
	r.SetHTMLTemplate(template.Must(template.ParseFS(templateFS, "templates/*.html")))

	subpath := h.config.Server.Subpath // 为空或以 '/' 开头，如 "/summary"
	if subpath == "" {
		r.GET("/", h.index)
	} else {
		r.GET(subpath, h.index)
		r.GET(subpath+"/", func(c *gin.Context) {
			c.Redirect(http.StatusMovedPermanently, subpath)
		})
	}

	group := r.Group(subpath)
	{
		group.GET("/health", healthHandler)
		group.GET("/metrics", gin.WrapH(h.metrics.Handler()))

		limited := group.Group("", limitBody(maxUpload+multipartOverhead))
		limited.POST("/summarize/file", h.summarizeFilePage)
		limited.POST("/summarize/text", h.summarizeTextPage)
		limited.POST("/api/summarize", h.apiSummarize)
	}
	return r
}
