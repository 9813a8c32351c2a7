package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	// DefaultModel 未配置模型时使用的模型
	DefaultModel = "gemini-2.5-flash"

	// DefaultOpenAIBaseURL Gemini 的 OpenAI 兼容端点
	DefaultOpenAIBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
)

type Server struct {
	Host        string `yaml:"Host"`
	Port        int    `yaml:"Port"`
	Subpath     string `yaml:"Subpath"`     // 反向代理下的路径前缀，如 "/summary"
	MaxUploadMB int64  `yaml:"MaxUploadMB"` // 上传文件大小上限（MB）
}

type Sock5Proxy struct {
	Host   string `yaml:"Host"`
	Port   int32  `yaml:"Port"`
	Enable bool   `yaml:"Enable"`
}

type LLM struct {
	Provider       string  `yaml:"Provider"`                    // "gemini" / "openai"
	BaseURL        string  `yaml:"BaseURL"`                     // 仅 openai 兼容端点使用
	APIKey         string  `yaml:"APIKey" env:"GOOGLE_API_KEY"` // 调用时校验，不在加载时校验
	Model          string  `yaml:"Model" env:"GENAI_MODEL"`
	Temperature    float32 `yaml:"Temperature"`
	TopP           float32 `yaml:"TopP"`
	TimeoutSeconds int     `yaml:"TimeoutSeconds"` // 0 表示不设置超时
}

type Upload struct {
	Dir           string `yaml:"Dir" env:"UPLOAD_DIR"` // 为空时使用系统临时目录
	JanitorCron   string `yaml:"JanitorCron"`          // 清理残留临时文件的 cron 表达式
	MaxAgeMinutes int    `yaml:"MaxAgeMinutes"`        // 临时文件存活上限
}

type Log struct {
	Dir   string `yaml:"Dir" env:"LOG_DIR"`
	Level string `yaml:"Level" env:"LOG_LEVEL"`
}

type Config struct {
	Server     Server     `yaml:"Server"`
	Sock5Proxy Sock5Proxy `yaml:"Sock5Proxy"`
	LLM        LLM        `yaml:"LLM"`
	Upload     Upload     `yaml:"Upload"`
	Log        Log        `yaml:"Log"`
}

// Default 返回带默认值的配置
func Default() *Config {
	return &Config{
		Server: Server{
			Host:        "0.0.0.0",
			Port:        8501,
			MaxUploadMB: 20,
		},
		LLM: LLM{
			Provider:       ProviderGemini,
			Temperature:    0.2,
			TopP:           0.9,
			TimeoutSeconds: 0,
		},
		Upload: Upload{
			JanitorCron:   "@every 10m",
			MaxAgeMinutes: 30,
		},
		Log: Log{
			Dir:   "logs",
			Level: "debug",
		},
	}
}

// LoadFromFile 读取配置文件并叠加环境变量
// 配置文件不存在时只使用默认值和环境变量
func LoadFromFile(filename string) (*Config, error) {
	c := Default()

	if filename != "" {
		data, err := os.ReadFile(filename)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, c); err != nil {
				return nil, fmt.Errorf("解析配置文件失败: %w", err)
			}
		}
	}

	if err := c.ApplyEnv(); err != nil {
		return nil, err
	}

	if c.LLM.Provider == ProviderOpenAI && c.LLM.BaseURL == "" {
		c.LLM.BaseURL = DefaultOpenAIBaseURL
	}

	// 验证配置
	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// ApplyEnv 用环境变量覆盖配置，未设置的变量保持原值
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("解析环境变量失败: %w", err)
	}
	return nil
}

// Validate 验证配置的有效性
// LLM.APIKey 不在这里校验，缺失时由调用方返回失败结果
func (c *Config) Validate() error {
	// 验证 Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("Server.Port 必须在 1~65535 之间")
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("Server.MaxUploadMB 必须大于 0")
	}

	if c.Server.Subpath != "" && (!strings.HasPrefix(c.Server.Subpath, "/") || strings.HasSuffix(c.Server.Subpath, "/")) {
		return fmt.Errorf("Server.Subpath 必须以 '/' 开头且不能以 '/' 结尾")
	}

	// 验证 LLM
	if c.LLM.Provider != ProviderGemini && c.LLM.Provider != ProviderOpenAI {
		return fmt.Errorf("LLM.Provider 必须是 'gemini' 或 'openai'")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("LLM.Temperature 必须在 0~2 之间")
	}
	if c.LLM.TopP < 0 || c.LLM.TopP > 1 {
		return fmt.Errorf("LLM.TopP 必须在 0~1 之间")
	}
	if c.LLM.TimeoutSeconds < 0 {
		return fmt.Errorf("LLM.TimeoutSeconds 必须 >= 0")
	}

	// 验证 Upload
	if c.Upload.MaxAgeMinutes < 0 {
		return fmt.Errorf("Upload.MaxAgeMinutes 必须 >= 0")
	}

	// 验证 Sock5Proxy
	if c.Sock5Proxy.Enable && c.Sock5Proxy.Host == "" {
		return fmt.Errorf("Sock5Proxy.Host 不能为空（当 Enable 为 true 时）")
	}

	return nil
}

// ResolveModel 按 调用方指定 → 配置/GENAI_MODEL → 默认模型 的顺序确定模型
func (l *LLM) ResolveModel(hint string) string {
	if hint != "" {
		return hint
	}
	if l.Model != "" {
		return l.Model
	}
	return DefaultModel
}
