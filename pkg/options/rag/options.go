// Package rag provides RAG (Retrieval-Augmented Generation) configuration options.
package rag

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/sentinel-rag/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Backend names for the vector store and the session store.
const (
	BackendMilvus = "milvus"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Options contains RAG-specific configuration.
type Options struct {
	// ChunkSize 默认分块大小（字符数）。
	ChunkSize int `json:"chunk-size" mapstructure:"chunk-size"`

	// ChunkOverlap 滑动窗口重叠字符数。
	ChunkOverlap int `json:"chunk-overlap" mapstructure:"chunk-overlap"`

	// ChunkingStrategy 默认分块策略（sliding 或 sentences）。
	ChunkingStrategy string `json:"chunking-strategy" mapstructure:"chunking-strategy"`

	// EmbeddingDim 向量维度，与集合一致。
	EmbeddingDim int `json:"embedding-dim" mapstructure:"embedding-dim"`

	// TopK 默认检索条数。
	TopK int `json:"top-k" mapstructure:"top-k"`

	// MaxHistory 每个会话保留的最大轮次数。
	MaxHistory int `json:"max-history" mapstructure:"max-history"`

	// Collection 向量集合名称。
	Collection string `json:"collection" mapstructure:"collection"`

	// VectorStore 向量库后端（milvus 或 memory）。
	VectorStore string `json:"vector-store" mapstructure:"vector-store"`

	// SessionStore 会话存储后端（redis 或 memory）。
	SessionStore string `json:"session-store" mapstructure:"session-store"`

	// SessionKeyPrefix 会话键前缀。
	SessionKeyPrefix string `json:"session-key-prefix" mapstructure:"session-key-prefix"`

	// SessionTTL 会话过期时间，0 表示不过期。
	SessionTTL time.Duration `json:"session-ttl" mapstructure:"session-ttl"`

	// SystemPrompt 系统提示词。
	SystemPrompt string `json:"system-prompt" mapstructure:"system-prompt"`

	// RequestTimeout 单次 ingest/chat 请求的超时时间。
	RequestTimeout time.Duration `json:"request-timeout" mapstructure:"request-timeout"`

	// MaxUploadSize 上传文件的最大字节数。
	MaxUploadSize int64 `json:"max-upload-size" mapstructure:"max-upload-size"`

	// EmbeddingCache 是否启用 Redis 向量缓存。
	EmbeddingCache bool `json:"embedding-cache" mapstructure:"embedding-cache"`

	// EmbeddingCacheTTL 向量缓存过期时间。
	EmbeddingCacheTTL time.Duration `json:"embedding-cache-ttl" mapstructure:"embedding-cache-ttl"`
}

// DefaultSystemPrompt instructs the model to stay inside the retrieved context.
const DefaultSystemPrompt = "You are a helpful assistant. Answer the question using only the information in CONTEXT and CONVERSATION HISTORY. " +
	"If the answer is not contained there, say that you don't know."

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		ChunkSize:         500,
		ChunkOverlap:      50,
		ChunkingStrategy:  "sliding",
		EmbeddingDim:      384,
		TopK:              3,
		MaxHistory:        50,
		Collection:        "rag_chunks",
		VectorStore:       BackendMilvus,
		SessionStore:      BackendRedis,
		SessionKeyPrefix:  "chat:",
		SystemPrompt:      DefaultSystemPrompt,
		RequestTimeout:    60 * time.Second,
		MaxUploadSize:     20 << 20,
		EmbeddingCacheTTL: 24 * time.Hour,
	}
}

// AddFlags adds flags for RAG options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "rag."
	fs.IntVar(&o.ChunkSize, p+"chunk-size", o.ChunkSize, "Default chunk size in characters.")
	fs.IntVar(&o.ChunkOverlap, p+"chunk-overlap", o.ChunkOverlap, "Default sliding window overlap.")
	fs.StringVar(&o.ChunkingStrategy, p+"chunking-strategy", o.ChunkingStrategy, "Default chunking strategy (sliding, sentences).")
	fs.IntVar(&o.EmbeddingDim, p+"embedding-dim", o.EmbeddingDim, "Embedding vector dimension.")
	fs.IntVar(&o.TopK, p+"top-k", o.TopK, "Default number of retrieved chunks.")
	fs.IntVar(&o.MaxHistory, p+"max-history", o.MaxHistory, "Turns kept per session.")
	fs.StringVar(&o.Collection, p+"collection", o.Collection, "Vector collection name.")
	fs.StringVar(&o.VectorStore, p+"vector-store", o.VectorStore, "Vector store backend (milvus, memory).")
	fs.StringVar(&o.SessionStore, p+"session-store", o.SessionStore, "Session store backend (redis, memory).")
	fs.StringVar(&o.SessionKeyPrefix, p+"session-key-prefix", o.SessionKeyPrefix, "Key prefix of session lists.")
	fs.DurationVar(&o.SessionTTL, p+"session-ttl", o.SessionTTL, "Session expiry, 0 keeps sessions forever.")
	fs.StringVar(&o.SystemPrompt, p+"system-prompt", o.SystemPrompt, "System prompt for grounded answers.")
	fs.DurationVar(&o.RequestTimeout, p+"request-timeout", o.RequestTimeout, "Timeout of one ingest or chat request.")
	fs.Int64Var(&o.MaxUploadSize, p+"max-upload-size", o.MaxUploadSize, "Maximum upload size in bytes.")
	fs.BoolVar(&o.EmbeddingCache, p+"embedding-cache", o.EmbeddingCache, "Cache embeddings in Redis.")
	fs.DurationVar(&o.EmbeddingCacheTTL, p+"embedding-cache-ttl", o.EmbeddingCacheTTL, "Embedding cache TTL.")
}

// Validate validates the RAG options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("rag.chunk-size must be positive"))
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		errs = append(errs, fmt.Errorf("rag.chunk-overlap must be in [0, chunk-size)"))
	}
	if o.ChunkingStrategy != "sliding" && o.ChunkingStrategy != "sentences" {
		errs = append(errs, fmt.Errorf("rag.chunking-strategy must be sliding or sentences, got %q", o.ChunkingStrategy))
	}
	if o.EmbeddingDim <= 0 {
		errs = append(errs, fmt.Errorf("rag.embedding-dim must be positive"))
	}
	if o.TopK < 1 || o.TopK > 20 {
		errs = append(errs, fmt.Errorf("rag.top-k must be in 1..20"))
	}
	if o.MaxHistory <= 0 {
		errs = append(errs, fmt.Errorf("rag.max-history must be positive"))
	}
	if o.VectorStore != BackendMilvus && o.VectorStore != BackendMemory {
		errs = append(errs, fmt.Errorf("rag.vector-store must be milvus or memory, got %q", o.VectorStore))
	}
	if o.SessionStore != BackendRedis && o.SessionStore != BackendMemory {
		errs = append(errs, fmt.Errorf("rag.session-store must be redis or memory, got %q", o.SessionStore))
	}
	if o.EmbeddingCache && o.SessionStore != BackendRedis {
		errs = append(errs, fmt.Errorf("rag.embedding-cache requires the redis session store"))
	}
	if o.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("rag.request-timeout must be positive"))
	}
	if o.MaxUploadSize <= 0 {
		errs = append(errs, fmt.Errorf("rag.max-upload-size must be positive"))
	}
	return errs
}

// Complete completes the RAG options with defaults.
func (o *Options) Complete() error {
	if o.SystemPrompt == "" {
		o.SystemPrompt = DefaultSystemPrompt
	}
	if o.SessionKeyPrefix == "" {
		o.SessionKeyPrefix = "chat:"
	}
	return nil
}
