// Package ragsvc provides the RAG Service server implementation.
package ragsvc

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/sentinel-rag/internal/rag/biz"
	"github.com/kart-io/sentinel-rag/internal/rag/handler"
	"github.com/kart-io/sentinel-rag/internal/rag/metrics"
	"github.com/kart-io/sentinel-rag/internal/rag/router"
	"github.com/kart-io/sentinel-rag/internal/rag/store"
	infraapp "github.com/kart-io/sentinel-rag/pkg/infra/app"
	"github.com/kart-io/sentinel-rag/pkg/component/database"
	"github.com/kart-io/sentinel-rag/pkg/component/milvus"
	"github.com/kart-io/sentinel-rag/pkg/component/redis"
	"github.com/kart-io/sentinel-rag/pkg/infra/pool"
	"github.com/kart-io/sentinel-rag/pkg/infra/server"
	httpserver "github.com/kart-io/sentinel-rag/pkg/infra/server/http"
	"github.com/kart-io/sentinel-rag/pkg/infra/tracing"
	"github.com/kart-io/sentinel-rag/pkg/llm"
	// 导入 LLM 供应商以自动注册
	_ "github.com/kart-io/sentinel-rag/pkg/llm/huggingface"
	_ "github.com/kart-io/sentinel-rag/pkg/llm/ollama"
	_ "github.com/kart-io/sentinel-rag/pkg/llm/openai"
	dbopts "github.com/kart-io/sentinel-rag/pkg/options/database"
	httpopts "github.com/kart-io/sentinel-rag/pkg/options/http"
	llmopts "github.com/kart-io/sentinel-rag/pkg/options/llm"
	logopts "github.com/kart-io/sentinel-rag/pkg/options/logger"
	milvusopts "github.com/kart-io/sentinel-rag/pkg/options/milvus"
	poolopts "github.com/kart-io/sentinel-rag/pkg/options/pool"
	ragopts "github.com/kart-io/sentinel-rag/pkg/options/rag"
	redisopts "github.com/kart-io/sentinel-rag/pkg/options/redis"
	tracingopts "github.com/kart-io/sentinel-rag/pkg/options/tracing"
)

// Name is the name of the application.
const Name = "sentinel-rag"

// Config contains application-related configurations.
type Config struct {
	HTTPOptions      *httpopts.Options
	LogOptions       *logopts.Options
	MilvusOptions    *milvusopts.Options
	RedisOptions     *redisopts.Options
	EmbeddingOptions *llmopts.ProviderOptions
	ChatOptions      *llmopts.ProviderOptions
	RAGOptions       *ragopts.Options
	DatabaseOptions  *dbopts.Options
	TracingOptions   *tracingopts.Options
	PoolOptions      *poolopts.Options
	ShutdownTimeout  time.Duration
}

// Server represents the RAG server.
type Server struct {
	srv *server.Manager
}

// NewServer initializes and returns a new Server instance. Each resource is
// registered for shutdown as soon as it is opened, so a failing step
// releases everything opened before it.
func (cfg *Config) NewServer(ctx context.Context) (_ *Server, err error) {
	printBanner(cfg)

	// 1. 初始化日志
	if err := cfg.LogOptions.Init(map[string]any{
		"service.name":    Name,
		"service.version": infraapp.GetVersion(),
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Infow("Starting RAG service...", infraapp.VersionFields()...)

	// 关闭顺序与打开顺序相反：任务池、向量库、Redis、数据库、追踪。
	mgr := server.NewManager(cfg.ShutdownTimeout)
	defer func() {
		if err != nil {
			_ = mgr.Stop(context.Background())
		}
	}()

	// 2. 初始化链路追踪
	cfg.TracingOptions.ServiceName = Name
	cfg.TracingOptions.ServiceVersion = infraapp.GetVersion()
	tracer, err := tracing.NewProvider(ctx, cfg.TracingOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	mgr.AddCloser("tracing", tracer.Shutdown)
	logger.Infow("Tracing initialized", "enabled", tracer.Enabled(), "exporter", cfg.TracingOptions.ExporterType)

	// 3. 初始化记录库
	db, err := database.Open(ctx, cfg.DatabaseOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	records := store.NewRecordStore(db)
	mgr.AddCloser("database", func(context.Context) error { return records.Close() })
	if err := records.AutoMigrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	logger.Infow("Record store initialized", "driver", cfg.DatabaseOptions.Driver)

	// 4. 初始化 Redis（会话历史与向量缓存共用）
	ropts := cfg.RAGOptions
	var redisClient *redis.Client
	if ropts.SessionStore == ragopts.BackendRedis || ropts.EmbeddingCache {
		redisClient, err = redis.New(ctx, cfg.RedisOptions)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		mgr.AddCloser("redis", func(context.Context) error { return redisClient.Close() })
		logger.Infow("Redis client initialized", "addr", cfg.RedisOptions.Addr(), "db", cfg.RedisOptions.Database)
	}

	var memory biz.SessionMemory
	if ropts.SessionStore == ragopts.BackendRedis {
		memory = biz.NewRedisMemory(redisClient.Client(), biz.RedisMemoryConfig{
			KeyPrefix: ropts.SessionKeyPrefix,
			MaxTurns:  ropts.MaxHistory,
			TTL:       ropts.SessionTTL,
		})
	} else {
		memory = biz.NewLocalMemory(ropts.MaxHistory)
		logger.Warn("Using in-process session memory, history is lost on restart")
	}

	// 5. 初始化向量库
	var vectorStore store.VectorStore
	if ropts.VectorStore == ragopts.BackendMemory {
		vectorStore = store.NewMemoryStore(ropts.EmbeddingDim)
		logger.Warn("Using in-memory vector store, data is lost on restart")
	} else {
		milvusClient, err := milvus.New(ctx, cfg.MilvusOptions)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize milvus: %w", err)
		}
		mgr.AddCloser("milvus", milvusClient.Close)
		vectorStore, err = store.NewMilvusStore(ctx, milvusClient, ropts.Collection, ropts.EmbeddingDim)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize vector store: %w", err)
		}
		logger.Infow("Milvus vector store initialized",
			"address", cfg.MilvusOptions.Address,
			"collection", ropts.Collection,
			"dim", ropts.EmbeddingDim,
		)
	}

	// 6. 初始化 LLM 供应商
	embedProvider, err := llm.NewEmbeddingProvider(cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	if ropts.EmbeddingCache {
		cacheCfg := llm.DefaultEmbeddingCacheConfig()
		cacheCfg.TTL = ropts.EmbeddingCacheTTL
		// 不同模型的向量不可混用
		cacheCfg.KeyPrefix += cfg.EmbeddingOptions.Model + ":"
		cacheCfg.Dim = ropts.EmbeddingDim
		embedProvider = llm.NewCachedEmbeddingProvider(embedProvider, redisClient.Client(), cacheCfg)
	}
	logger.Infow("Embedding provider initialized",
		"provider", cfg.EmbeddingOptions.Provider,
		"model", cfg.EmbeddingOptions.Model,
		"cache", ropts.EmbeddingCache,
	)

	chatProvider, err := llm.NewChatProvider(cfg.ChatOptions.Provider, cfg.ChatOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat provider: %w", err)
	}
	logger.Infow("Chat provider initialized",
		"provider", cfg.ChatOptions.Provider,
		"model", cfg.ChatOptions.Model,
	)

	// 7. 初始化后台任务池
	bgPool, err := pool.NewPool("background", cfg.PoolOptions.Config())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize background pool: %w", err)
	}
	mgr.AddCloser("background pool", func(context.Context) error {
		return bgPool.Release(cfg.PoolOptions.ReleaseTimeout)
	})

	// 8. 初始化 Biz 层
	indexer := biz.NewIndexer(biz.Chunker{Splitter: biz.RuleSplitter{}}, embedProvider, vectorStore, &biz.IndexerConfig{
		EmbeddingDim: ropts.EmbeddingDim,
	})
	orchestrator := biz.NewOrchestrator(embedProvider, vectorStore, memory, biz.ChatCompleter{Provider: chatProvider}, &biz.OrchestratorConfig{
		SystemPrompt: ropts.SystemPrompt,
	})
	ragService := biz.NewRAGService(indexer, orchestrator, memory)
	logger.Infow("RAG service initialized",
		"vector_store", ropts.VectorStore,
		"session_store", ropts.SessionStore,
		"max_history", ropts.MaxHistory,
	)

	// 9. 初始化 Handler 层
	ragHandler := handler.NewRAGHandler(ragService, records, bgPool, handler.Config{
		ServiceName:      Name,
		Env:              cfg.TracingOptions.Environment,
		ChunkingStrategy: ropts.ChunkingStrategy,
		ChunkSize:        ropts.ChunkSize,
		ChunkOverlap:     ropts.ChunkOverlap,
		TopK:             ropts.TopK,
		RequestTimeout:   ropts.RequestTimeout,
		MaxUploadSize:    ropts.MaxUploadSize,
		Metrics:          metrics.New("rag"),
	})

	// 10. 注册路由
	httpSrv := httpserver.NewServer(cfg.HTTPOptions)
	router.Register(httpSrv.Engine(), ragHandler)
	mgr.AddServer(httpSrv)

	logger.Info("RAG service is ready")
	return &Server{srv: mgr}, nil
}

// Run starts the server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.srv.Run(ctx)
}

func printBanner(cfg *Config) {
	fmt.Printf("Starting %s %s...\n", Name, infraapp.GetVersion())
	fmt.Printf("  HTTP: %s\n", cfg.HTTPOptions.Addr)
	fmt.Printf("  Vector store: %s, session store: %s\n", cfg.RAGOptions.VectorStore, cfg.RAGOptions.SessionStore)
	fmt.Printf("  Embedding: %s (%s)\n", cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.Model)
	fmt.Printf("  Chat: %s (%s)\n", cfg.ChatOptions.Provider, cfg.ChatOptions.Model)
}
