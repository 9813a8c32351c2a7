package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fachebot/doc-summary/internal/logger"
)

const requestIDHeader = "X-Request-ID"

// requestID 沿用客户端传入的请求 ID，没有时生成一个
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDHeader, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// accessLog 记录每个请求的方法、路径、状态码和耗时
func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		format := "[Web] %s %s %d %s rid=%s"
		args := []any{c.Request.Method, c.Request.URL.Path, status, time.Since(start).Round(time.Millisecond), c.GetString(requestIDHeader)}
		if status >= http.StatusInternalServerError {
			logger.Errorf(format, args...)
			return
		}
		logger.Infof(format, args...)
	}
}

// limitBody 限制请求体大小，超出时读取会返回 *http.MaxBytesError
func limitBody(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
