// Package huggingface 提供 HuggingFace Inference API 供应商实现。
// Embedding 使用 feature-extraction pipeline，生成使用 text-generation 模型。
package huggingface

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kart-io/sentinel-rag/pkg/llm"
	"github.com/kart-io/sentinel-rag/pkg/utils/httpclient"
)

// ProviderName 是 HuggingFace 供应商的名称标识符
const ProviderName = "huggingface"

func init() {
	llm.RegisterProvider(ProviderName, NewProvider)
}

// Config HuggingFace 供应商配置。
type Config struct {
	BaseURL     string        `json:"base_url" mapstructure:"base_url"`
	APIKey      string        `json:"api_key" mapstructure:"api_key"`
	EmbedModel  string        `json:"embed_model" mapstructure:"embed_model"`
	ChatModel   string        `json:"chat_model" mapstructure:"chat_model"`
	Timeout     time.Duration `json:"timeout" mapstructure:"timeout"`
	MaxRetries  int           `json:"max_retries" mapstructure:"max_retries"`
	Temperature float64       `json:"temperature" mapstructure:"temperature"`
	MaxTokens   int           `json:"max_tokens" mapstructure:"max_tokens"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "https://api-inference.huggingface.co",
		EmbedModel: "sentence-transformers/all-MiniLM-L6-v2",
		ChatModel:  "mistralai/Mistral-7B-Instruct-v0.2",
		Timeout:    120 * time.Second,
	}
}

// Provider HuggingFace 供应商实现。
type Provider struct {
	config *Config
	client *httpclient.Client
}

// NewProvider 从配置 map 创建 HuggingFace 供应商。
func NewProvider(configMap map[string]any) (llm.Provider, error) {
	cfg := DefaultConfig()
	cfg.BaseURL = strings.TrimRight(llm.String(configMap, llm.KeyBaseURL, cfg.BaseURL), "/")
	cfg.APIKey = llm.String(configMap, llm.KeyAPIKey, cfg.APIKey)
	cfg.EmbedModel = llm.String(configMap, llm.KeyEmbedModel, cfg.EmbedModel)
	cfg.ChatModel = llm.String(configMap, llm.KeyChatModel, cfg.ChatModel)
	cfg.Timeout = llm.Duration(configMap, llm.KeyTimeout, cfg.Timeout)
	cfg.MaxRetries = llm.Int(configMap, llm.KeyMaxRetries, cfg.MaxRetries)
	cfg.Temperature = llm.Float(configMap, llm.KeyTemperature, cfg.Temperature)
	cfg.MaxTokens = llm.Int(configMap, llm.KeyMaxTokens, cfg.MaxTokens)

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("huggingface: api_key 是必需的")
	}
	return NewProviderWithConfig(cfg), nil
}

// NewProviderWithConfig 使用结构化配置创建 HuggingFace 供应商。
func NewProviderWithConfig(cfg *Config) *Provider {
	return &Provider{
		config: cfg,
		client: httpclient.NewClient(cfg.Timeout, cfg.MaxRetries),
	}
}

// Name 返回供应商名称。
func (p *Provider) Name() string {
	return ProviderName
}

func (p *Provider) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + p.config.APIKey}
}

type waitOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

type embeddingRequest struct {
	Inputs  []string    `json:"inputs"`
	Options waitOptions `json:"options"`
}

// Embed 为多个文本生成向量嵌入。
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	url := fmt.Sprintf("%s/pipeline/feature-extraction/%s", p.config.BaseURL, p.config.EmbedModel)
	var embeddings [][]float32
	err := p.client.PostJSON(ctx, url, p.headers(),
		embeddingRequest{Inputs: texts, Options: waitOptions{WaitForModel: true}}, &embeddings)
	if err != nil {
		return nil, fmt.Errorf("huggingface embed: %w", err)
	}
	return embeddings, nil
}

// EmbedSingle 为单个文本生成向量嵌入。
func (p *Provider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("huggingface embed: no embedding returned")
	}
	return embeddings[0], nil
}

type generateParams struct {
	MaxNewTokens   int     `json:"max_new_tokens,omitempty"`
	Temperature    float64 `json:"temperature,omitempty"`
	ReturnFullText bool    `json:"return_full_text"`
}

type generateRequest struct {
	Inputs     string         `json:"inputs"`
	Parameters generateParams `json:"parameters"`
	Options    waitOptions    `json:"options"`
}

type generateResponse []struct {
	GeneratedText string `json:"generated_text"`
}

// Chat 将多轮消息拼接为单个提示词后生成。
func (p *Provider) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	return p.generate(ctx, formatMessages(messages))
}

// Generate 根据提示生成文本，系统提示词放在最前面。
func (p *Provider) Generate(ctx context.Context, prompt string, systemPrompt string) (string, error) {
	if systemPrompt != "" {
		prompt = systemPrompt + "\n\n" + prompt
	}
	return p.generate(ctx, prompt)
}

func (p *Provider) generate(ctx context.Context, prompt string) (string, error) {
	url := fmt.Sprintf("%s/models/%s", p.config.BaseURL, p.config.ChatModel)
	var resp generateResponse
	err := p.client.PostJSON(ctx, url, p.headers(), generateRequest{
		Inputs: prompt,
		Parameters: generateParams{
			MaxNewTokens: p.config.MaxTokens,
			Temperature:  p.config.Temperature,
		},
		Options: waitOptions{WaitForModel: true},
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("huggingface generate: %w", err)
	}
	if len(resp) == 0 {
		return "", fmt.Errorf("huggingface generate: empty response")
	}
	return resp[0].GeneratedText, nil
}

func formatMessages(messages []llm.Message) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	b.WriteString("assistant:")
	return b.String()
}
