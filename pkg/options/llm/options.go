// Package llm provides LLM provider configuration options.
package llm

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/sentinel-rag/pkg/options"
)

var _ options.IOptions = (*ProviderOptions)(nil)

// ProviderOptions 定义 LLM 供应商配置。
// 同一结构用于 embedding 和 chat，两者通过 flag 前缀区分。
type ProviderOptions struct {
	// Provider 供应商名称（ollama, openai, huggingface）。
	Provider string `json:"provider" mapstructure:"provider"`

	// BaseURL API 基础地址。
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// APIKey API 密钥（openai 兼容接口和 huggingface 需要）。
	APIKey string `json:"-" mapstructure:"api-key"`

	// Model 使用的模型名称。
	Model string `json:"model" mapstructure:"model"`

	// Timeout 请求超时时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries 最大重试次数，默认 0：失败直接返回给调用方。
	MaxRetries int `json:"max-retries" mapstructure:"max-retries"`

	// Temperature 生成温度，仅 chat 使用。
	Temperature float64 `json:"temperature" mapstructure:"temperature"`

	// MaxTokens 最大生成 token 数，仅 chat 使用。
	MaxTokens int `json:"max-tokens" mapstructure:"max-tokens"`

	flagName string
}

// NewEmbeddingOptions 创建默认 Embedding 供应商配置（384 维 MiniLM）。
func NewEmbeddingOptions() *ProviderOptions {
	return &ProviderOptions{
		Provider: "ollama",
		BaseURL:  "http://localhost:11434",
		Model:    "all-minilm",
		Timeout:  60 * time.Second,
		flagName: "embedding",
	}
}

// NewChatOptions 创建默认 Chat 供应商配置（Groq 的 OpenAI 兼容接口）。
func NewChatOptions() *ProviderOptions {
	return &ProviderOptions{
		Provider:    "openai",
		BaseURL:     "https://api.groq.com/openai/v1",
		Model:       "llama-3.1-8b-instant",
		Timeout:     60 * time.Second,
		Temperature: 0.2,
		MaxTokens:   1024,
		flagName:    "chat",
	}
}

// ToConfigMap 转换为配置 map，用于供应商工厂。
func (o *ProviderOptions) ToConfigMap() map[string]any {
	return map[string]any{
		"base_url":    o.BaseURL,
		"api_key":     o.APIKey,
		"embed_model": o.Model,
		"chat_model":  o.Model,
		"timeout":     o.Timeout,
		"max_retries": o.MaxRetries,
		"temperature": o.Temperature,
		"max_tokens":  o.MaxTokens,
	}
}

// AddFlags adds flags for LLM provider options to the specified FlagSet.
func (o *ProviderOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + o.flagName + "."
	fs.StringVar(&o.Provider, p+"provider", o.Provider, "Provider (ollama, openai, huggingface).")
	fs.StringVar(&o.BaseURL, p+"base-url", o.BaseURL, "Provider API base URL.")
	fs.StringVar(&o.APIKey, p+"api-key", o.APIKey, "Provider API key.")
	fs.StringVar(&o.Model, p+"model", o.Model, "Model name.")
	fs.DurationVar(&o.Timeout, p+"timeout", o.Timeout, "Request timeout.")
	fs.IntVar(&o.MaxRetries, p+"max-retries", o.MaxRetries, "Retries on upstream 5xx (0 disables).")
	if o.flagName == "chat" {
		fs.Float64Var(&o.Temperature, p+"temperature", o.Temperature, "Sampling temperature.")
		fs.IntVar(&o.MaxTokens, p+"max-tokens", o.MaxTokens, "Maximum tokens to generate.")
	}
}

// Validate validates the LLM provider options.
func (o *ProviderOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Provider == "" {
		errs = append(errs, fmt.Errorf("%s.provider is required", o.flagName))
	}
	if o.BaseURL == "" && o.Provider != "huggingface" {
		errs = append(errs, fmt.Errorf("%s.base-url is required", o.flagName))
	}
	if o.Model == "" {
		errs = append(errs, fmt.Errorf("%s.model is required", o.flagName))
	}
	if (o.Provider == "openai" || o.Provider == "huggingface") && o.APIKey == "" {
		errs = append(errs, fmt.Errorf("%s.api-key is required for %s provider", o.flagName, o.Provider))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%s.timeout must be positive", o.flagName))
	}
	if o.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("%s.max-retries cannot be negative", o.flagName))
	}
	return errs
}

// Complete completes the LLM provider options with defaults.
func (o *ProviderOptions) Complete() error {
	if o.Timeout <= 0 {
		o.Timeout = 60 * time.Second
	}
	return nil
}
