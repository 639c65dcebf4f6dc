package biz

import (
	"context"
	"slices"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/sentinel-rag/pkg/utils/errors"
	"github.com/kart-io/sentinel-rag/pkg/utils/json"
)

// DefaultMaxTurns 每个会话保留的最大轮次数。
const DefaultMaxTurns = 50

// RedisMemory 使用 Redis List 保存会话历史，键为 {prefix}{session_id}。
// 每次追加在一个 MULTI 事务中完成 RPUSH、LTRIM 和可选的 EXPIRE。
type RedisMemory struct {
	client   goredis.UniversalClient
	prefix   string
	maxTurns int
	ttl      time.Duration
}

// RedisMemoryConfig Redis 会话存储配置。
type RedisMemoryConfig struct {
	KeyPrefix string
	MaxTurns  int
	TTL       time.Duration
}

// NewRedisMemory 创建 Redis 会话存储。
func NewRedisMemory(client goredis.UniversalClient, cfg RedisMemoryConfig) *RedisMemory {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "chat:"
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = DefaultMaxTurns
	}
	return &RedisMemory{client: client, prefix: cfg.KeyPrefix, maxTurns: cfg.MaxTurns, ttl: cfg.TTL}
}

func (m *RedisMemory) key(sessionID string) string {
	return m.prefix + sessionID
}

// Append 追加一轮消息。
func (m *RedisMemory) Append(ctx context.Context, sessionID string, turn Turn) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return errors.ErrRAGMemoryStore.WithCause(err)
	}

	key := m.key(sessionID)
	_, err = m.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		pipe.LTrim(ctx, key, int64(-m.maxTurns), -1)
		if m.ttl > 0 {
			pipe.Expire(ctx, key, m.ttl)
		}
		return nil
	})
	if err != nil {
		return errors.ErrRAGMemoryStore.WithCause(err)
	}
	return nil
}

// ReadAll 读取会话全部历史。无法解析的条目会被跳过。
func (m *RedisMemory) ReadAll(ctx context.Context, sessionID string) ([]Turn, error) {
	raw, err := m.client.LRange(ctx, m.key(sessionID), 0, -1).Result()
	if err != nil {
		return nil, errors.ErrRAGMemoryStore.WithCause(err)
	}

	turns := make([]Turn, 0, len(raw))
	for _, item := range raw {
		var t Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			continue
		}
		turns = append(turns, t)
	}
	return turns, nil
}

// LocalMemory 进程内的会话存储，用于开发和测试。
type LocalMemory struct {
	mu       sync.Mutex
	maxTurns int
	sessions map[string][]Turn
}

// NewLocalMemory 创建进程内会话存储。maxTurns <= 0 时使用 DefaultMaxTurns。
func NewLocalMemory(maxTurns int) *LocalMemory {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &LocalMemory{maxTurns: maxTurns, sessions: make(map[string][]Turn)}
}

// Append 追加并裁剪到最近 maxTurns 条。
func (m *LocalMemory) Append(_ context.Context, sessionID string, turn Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	turns := append(m.sessions[sessionID], turn)
	if len(turns) > m.maxTurns {
		turns = slices.Clone(turns[len(turns)-m.maxTurns:])
	}
	m.sessions[sessionID] = turns
	return nil
}

// ReadAll 返回历史的副本。
func (m *LocalMemory) ReadAll(_ context.Context, sessionID string) ([]Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.sessions[sessionID]), nil
}

var (
	_ SessionMemory = (*RedisMemory)(nil)
	_ SessionMemory = (*LocalMemory)(nil)
)
