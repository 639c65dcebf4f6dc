package biz

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/kart-io/sentinel-rag/internal/rag/store"
	infralog "github.com/kart-io/sentinel-rag/pkg/infra/logger"
	"github.com/kart-io/sentinel-rag/pkg/infra/tracing"
	"github.com/kart-io/sentinel-rag/pkg/utils/errors"
)

// MaxTopK 单次检索允许的最大条数。
const MaxTopK = 20

// OrchestratorConfig 问答编排配置。
type OrchestratorConfig struct {
	// SystemPrompt 系统提示词。
	SystemPrompt string
}

// AnswerRequest 问答请求。SessionID 为空时创建新会话。
type AnswerRequest struct {
	SessionID string
	Query     string
	TopK      int
}

// Source 回答引用的检索结果。
type Source struct {
	ID       string         `json:"id"`
	Score    float32        `json:"score"`
	Metadata store.Metadata `json:"metadata"`
}

// AnswerResult 问答结果。
type AnswerResult struct {
	SessionID string   `json:"session_id"`
	Answer    string   `json:"answer"`
	Sources   []Source `json:"sources"`
}

// Orchestrator 负责检索增强问答。
type Orchestrator struct {
	embedder  Embedder
	store     store.VectorStore
	memory    SessionMemory
	completer Completer
	config    *OrchestratorConfig
}

// NewOrchestrator 创建问答编排器。
func NewOrchestrator(embedder Embedder, vectorStore store.VectorStore, memory SessionMemory, completer Completer, config *OrchestratorConfig) *Orchestrator {
	return &Orchestrator{
		embedder:  embedder,
		store:     vectorStore,
		memory:    memory,
		completer: completer,
		config:    config,
	}
}

func validateAnswer(req *AnswerRequest) error {
	if req.TopK < 1 || req.TopK > MaxTopK {
		return errors.ErrRAGValidation.WithMessagef("top_k must be between 1 and %d, got %d", MaxTopK, req.TopK)
	}
	if strings.TrimSpace(req.Query) == "" {
		return errors.ErrRAGValidation.WithMessage("query is required")
	}
	return nil
}

// Answer 回答一个问题。
//
// 先写入用户轮次，再并发执行“嵌入+检索”和“读取历史”，因此历史中总包含本轮问题。
// 任一端口失败即中止，不重试也不回滚已写入的轮次。
func (o *Orchestrator) Answer(ctx context.Context, req AnswerRequest) (*AnswerResult, error) {
	if err := validateAnswer(&req); err != nil {
		return nil, err
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	ctx = infralog.WithSessionID(ctx, req.SessionID)
	ctx, span := tracing.StartSpan(ctx, tracerName, "rag.answer",
		attribute.String("rag.session_id", req.SessionID),
		attribute.Int("rag.top_k", req.TopK),
	)
	defer span.End()
	log := infralog.GetLogger(ctx)

	fail := func(stage string, err error) (*AnswerResult, error) {
		tracing.RecordError(ctx, err)
		log.Errorw("answer failed", "stage", stage, "error", err.Error())
		return nil, err
	}

	if err := o.memory.Append(ctx, req.SessionID, Turn{Role: RoleUser, Text: req.Query}); err != nil {
		return fail("append_user", errors.Classify(err, errors.ErrRAGMemoryStore))
	}

	var (
		matches []store.Match
		history []Turn
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		matches, err = o.retrieve(gctx, req.Query, req.TopK)
		return err
	})
	g.Go(func() error {
		var err error
		history, err = o.memory.ReadAll(gctx, req.SessionID)
		return errors.Classify(err, errors.ErrRAGMemoryStore)
	})
	if err := g.Wait(); err != nil {
		return fail("retrieve", err)
	}

	contexts := make([]string, len(matches))
	sources := make([]Source, len(matches))
	for i, m := range matches {
		contexts[i] = m.Metadata.ChunkText
		sources[i] = Source{ID: m.ID, Score: m.Score, Metadata: m.Metadata}
	}

	prompt := BuildPrompt(contexts, history, req.Query)

	completeCtx, completeSpan := tracing.StartSpan(ctx, tracerName, "rag.complete")
	answer, err := o.completer.Complete(completeCtx, o.config.SystemPrompt, prompt)
	completeSpan.End()
	if err != nil {
		return fail("complete", errors.Classify(err, errors.ErrRAGCompletion))
	}
	answer = strings.TrimSpace(answer)

	if err := o.memory.Append(ctx, req.SessionID, Turn{Role: RoleAssistant, Text: answer}); err != nil {
		return fail("append_assistant", errors.Classify(err, errors.ErrRAGMemoryStore))
	}

	log.Infow("question answered", "matches", len(matches), "history", len(history))
	return &AnswerResult{SessionID: req.SessionID, Answer: answer, Sources: sources}, nil
}

// retrieve 嵌入查询并检索 topK 条结果。
func (o *Orchestrator) retrieve(ctx context.Context, query string, topK int) ([]store.Match, error) {
	embedCtx, embedSpan := tracing.StartSpan(ctx, tracerName, "rag.embed", attribute.Int("rag.texts", 1))
	vectors, err := o.embedder.Embed(embedCtx, []string{query})
	embedSpan.End()
	if err != nil {
		return nil, errors.Classify(err, errors.ErrRAGEmbedding)
	}
	if len(vectors) == 0 {
		return nil, errors.ErrRAGEmbedding.WithMessage("embedder returned no vector for the query")
	}

	queryCtx, querySpan := tracing.StartSpan(ctx, tracerName, "rag.vector.query", attribute.Int("rag.top_k", topK))
	matches, err := o.store.Query(queryCtx, vectors[0], topK)
	querySpan.End()
	if err != nil {
		return nil, errors.Classify(err, errors.ErrRAGVectorStore)
	}
	return matches, nil
}
