package biz

import (
	"context"

	"github.com/kart-io/sentinel-rag/pkg/llm"
)

// Embedder 将一批文本转换为向量，输出顺序与输入一致。
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Completer 根据系统提示词和用户提示词生成回答。
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Role 会话轮次的角色。
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn 会话中的一轮消息，追加顺序即时间顺序。
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// SessionMemory 有界的会话历史存储。
type SessionMemory interface {
	// Append 追加一轮消息并裁剪到最近的上限条数。
	Append(ctx context.Context, sessionID string, turn Turn) error
	// ReadAll 按时间顺序返回会话的全部历史；不存在的会话返回空。
	ReadAll(ctx context.Context, sessionID string) ([]Turn, error)
}

// ChatCompleter 将 llm.ChatProvider 适配为 Completer。
type ChatCompleter struct {
	Provider llm.ChatProvider
}

var _ Completer = ChatCompleter{}

// Complete 调用单轮生成接口。
func (c ChatCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	return c.Provider.Generate(ctx, user, system)
}

var _ Embedder = llm.EmbeddingProvider(nil)
