package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/sentinel-rag/pkg/utils/json"
)

// EmbeddingCacheConfig Embedding 缓存配置。
type EmbeddingCacheConfig struct {
	// TTL 缓存过期时间，0 表示不过期。
	TTL time.Duration
	// KeyPrefix 缓存键前缀，键中同时包含模型标识避免不同模型结果串用。
	KeyPrefix string
	// Dim 期望的向量维度。大于 0 时维度不符的向量既不写入也不读出缓存；
	// 为 0 时以本批次第一个向量的维度为准。
	Dim int
}

// DefaultEmbeddingCacheConfig 返回默认的 Embedding 缓存配置。
func DefaultEmbeddingCacheConfig() EmbeddingCacheConfig {
	return EmbeddingCacheConfig{
		TTL:       24 * time.Hour,
		KeyPrefix: "emb:",
	}
}

// CachedEmbeddingProvider 以 Redis 缓存包装 Embedding 供应商。
// 缓存读写失败只记录日志，不影响嵌入结果。
type CachedEmbeddingProvider struct {
	provider EmbeddingProvider
	redis    goredis.UniversalClient
	config   EmbeddingCacheConfig
}

// NewCachedEmbeddingProvider 创建带缓存的 Embedding 供应商。
func NewCachedEmbeddingProvider(provider EmbeddingProvider, redis goredis.UniversalClient, config EmbeddingCacheConfig) *CachedEmbeddingProvider {
	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultEmbeddingCacheConfig().KeyPrefix
	}
	return &CachedEmbeddingProvider{provider: provider, redis: redis, config: config}
}

// Name 返回底层供应商名称。
func (c *CachedEmbeddingProvider) Name() string {
	return c.provider.Name()
}

func (c *CachedEmbeddingProvider) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.config.KeyPrefix + c.provider.Name() + ":" + hex.EncodeToString(sum[:])
}

// EmbedSingle 生成单个文本的 Embedding。
func (c *CachedEmbeddingProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	out, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errors.New("embedding provider returned no vector")
	}
	return out[0], nil
}

// Embed 批量生成 Embedding，仅对未命中的文本调用底层供应商。
func (c *CachedEmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if c.redis == nil || len(texts) == 0 {
		return c.provider.Embed(ctx, texts)
	}

	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = c.cacheKey(t)
	}

	embeddings := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	cached, err := c.redis.MGet(ctx, keys...).Result()
	if err != nil {
		logger.Warnw("embedding cache read failed, falling back to provider", "error", err.Error())
		cached = make([]any, len(texts))
	}
	for i, v := range cached {
		if s, ok := v.(string); ok {
			var vec []float32
			if err := json.Unmarshal([]byte(s), &vec); err == nil && cacheable(vec, c.config.Dim) {
				embeddings[i] = vec
				continue
			}
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, texts[i])
	}

	if len(missTexts) == 0 {
		logger.Debugw("embedding cache hit", "count", len(texts))
		return embeddings, nil
	}

	fresh, err := c.provider.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missTexts) {
		return nil, errors.New("embedding provider returned wrong number of vectors")
	}

	want := c.config.Dim
	if want <= 0 && len(fresh) > 0 {
		want = len(fresh[0])
	}
	skipped := 0
	_, err = c.redis.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for j, idx := range missIdx {
			embeddings[idx] = fresh[j]
			if !cacheable(fresh[j], want) {
				skipped++
				continue
			}
			data, err := json.Marshal(fresh[j])
			if err != nil {
				continue
			}
			pipe.Set(ctx, keys[idx], data, c.config.TTL)
		}
		return nil
	})
	if err != nil {
		logger.Warnw("embedding cache write failed", "error", err.Error())
	}

	if skipped > 0 {
		logger.Warnw("embedding dimension mismatch, vectors not cached", "skipped", skipped, "dim", want)
	}
	logger.Debugw("embedding cache miss", "total", len(texts), "missed", len(missTexts))
	return embeddings, nil
}

// cacheable 报告向量是否可缓存；dim 不大于 0 时只要求非空。
func cacheable(vec []float32, dim int) bool {
	if len(vec) == 0 {
		return false
	}
	return dim <= 0 || len(vec) == dim
}

var _ EmbeddingProvider = (*CachedEmbeddingProvider)(nil)
