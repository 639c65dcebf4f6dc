// Package llm 定义 Embedding 与 Chat 供应商接口及按名称注册的工厂。
// Embedding 与 Chat 可以分别选用不同的供应商。
package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// EmbeddingProvider 将文本转换为向量。
type EmbeddingProvider interface {
	// Embed 按输入顺序返回每段文本的向量。
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	EmbedSingle(ctx context.Context, text string) ([]float32, error)

	Name() string
}

// ChatProvider 生成回答。
type ChatProvider interface {
	Chat(ctx context.Context, messages []Message) (string, error)

	// Generate 以 systemPrompt 为系统消息、prompt 为用户消息完成单轮生成。
	Generate(ctx context.Context, prompt string, systemPrompt string) (string, error)

	Name() string
}

// Role 消息角色。
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message 对话中的一条消息。
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Provider 同时具备 Embedding 与 Chat 能力。
type Provider interface {
	EmbeddingProvider
	ChatProvider
}

// ProviderFactory 根据配置 map 构造供应商，键见 config.go。
type ProviderFactory func(config map[string]any) (Provider, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]ProviderFactory)
)

// RegisterProvider 注册供应商工厂，同名注册会覆盖之前的工厂。
// 供应商包在 init 中调用。
func RegisterProvider(name string, factory ProviderFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = factory
}

// NewProvider 按名称创建供应商。
func NewProvider(name string, config map[string]any) (Provider, error) {
	factoriesMu.RLock()
	factory, ok := factories[name]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown llm provider %q (registered: %s)", name, strings.Join(Providers(), ", "))
	}
	return factory(config)
}

// NewEmbeddingProvider 按名称创建只用于 Embedding 的供应商。
func NewEmbeddingProvider(name string, config map[string]any) (EmbeddingProvider, error) {
	p, err := NewProvider(name, config)
	if err != nil {
		return nil, fmt.Errorf("embedding: %w", err)
	}
	return p, nil
}

// NewChatProvider 按名称创建只用于 Chat 的供应商。
func NewChatProvider(name string, config map[string]any) (ChatProvider, error) {
	p, err := NewProvider(name, config)
	if err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}
	return p, nil
}

// Providers 返回已注册的供应商名称（已排序）。
func Providers() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
