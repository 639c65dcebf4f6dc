package biz

import (
	"context"
	"strings"

	"github.com/kart-io/sentinel-rag/pkg/utils/errors"
)

// Service 定义 RAG 服务接口，供传输层调用。
type Service interface {
	// Ingest 将一篇文档切块、嵌入并写入向量库。
	Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error)
	// Answer 执行检索增强问答。
	Answer(ctx context.Context, req AnswerRequest) (*AnswerResult, error)
	// History 返回会话的全部历史。
	History(ctx context.Context, sessionID string) ([]Turn, error)
}

// RAGService 组合 Indexer、Orchestrator 与 SessionMemory。
type RAGService struct {
	indexer      *Indexer
	orchestrator *Orchestrator
	memory       SessionMemory
}

var _ Service = (*RAGService)(nil)

// NewRAGService 创建 RAG 服务实例。
func NewRAGService(indexer *Indexer, orchestrator *Orchestrator, memory SessionMemory) *RAGService {
	return &RAGService{
		indexer:      indexer,
		orchestrator: orchestrator,
		memory:       memory,
	}
}

// Ingest 入库一篇文档。
func (s *RAGService) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	return s.indexer.Ingest(ctx, req)
}

// Answer 回答一个问题。
func (s *RAGService) Answer(ctx context.Context, req AnswerRequest) (*AnswerResult, error) {
	return s.orchestrator.Answer(ctx, req)
}

// History 读取会话历史，会话不存在时返回 ErrRAGSessionNotFound。
func (s *RAGService) History(ctx context.Context, sessionID string) ([]Turn, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, errors.ErrRAGValidation.WithMessage("session id is required")
	}
	turns, err := s.memory.ReadAll(ctx, sessionID)
	if err != nil {
		return nil, errors.Classify(err, errors.ErrRAGMemoryStore)
	}
	if len(turns) == 0 {
		return nil, errors.ErrRAGSessionNotFound
	}
	return turns, nil
}
