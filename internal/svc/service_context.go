package svc

import (
	"fmt"
	"net/http"

	"golang.org/x/net/proxy"

	"github.com/fachebot/doc-summary/internal/config"
	"github.com/fachebot/doc-summary/internal/llm"
	"github.com/fachebot/doc-summary/internal/metrics"
	"github.com/fachebot/doc-summary/internal/summarizer"
	"github.com/fachebot/doc-summary/internal/upload"
)

type ServiceContext struct {
	Config     *config.Config
	HTTPClient *http.Client
	Generator  llm.Generator
	Summarizer *summarizer.Summarizer
	Uploads    *upload.Store
	Metrics    *metrics.Metrics
}

func NewServiceContext(c *config.Config) (*ServiceContext, error) {
	// 创建SOCKS5代理
	var httpClient *http.Client
	if c.Sock5Proxy.Enable {
		socks5Proxy := fmt.Sprintf("%s:%d", c.Sock5Proxy.Host, c.Sock5Proxy.Port)
		dialer, err := proxy.SOCKS5("tcp", socks5Proxy, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("创建SOCKS5代理失败: %w", err)
		}

		httpClient = &http.Client{
			Transport: &http.Transport{
				Dial: dialer.Dial,
			},
		}
	}

	var generator llm.Generator
	switch c.LLM.Provider {
	case config.ProviderOpenAI:
		generator = llm.NewOpenAIClient(&c.LLM, httpClient)
	default:
		generator = llm.NewGeminiClient(&c.LLM, httpClient)
	}

	svcCtx := &ServiceContext{
		Config:     c,
		HTTPClient: httpClient,
		Generator:  generator,
		Summarizer: summarizer.NewSummarizer(&c.LLM, generator),
		Uploads:    upload.NewStore(c.Upload.Dir),
		Metrics:    metrics.New(),
	}
	return svcCtx, nil
}
