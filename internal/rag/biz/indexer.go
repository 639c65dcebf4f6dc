package biz

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kart-io/sentinel-rag/internal/rag/store"
	infralog "github.com/kart-io/sentinel-rag/pkg/infra/logger"
	"github.com/kart-io/sentinel-rag/pkg/infra/tracing"
	"github.com/kart-io/sentinel-rag/pkg/utils/errors"
)

const tracerName = "sentinel-rag/biz"

// IndexerConfig 索引器配置。
type IndexerConfig struct {
	// EmbeddingDim 嵌入向量维度，与向量库集合一致。
	EmbeddingDim int
}

// IngestRequest 入库请求。
type IngestRequest struct {
	Text      string
	Strategy  Strategy
	ChunkSize int
	Overlap   int
	Source    string
	SessionID string
	Extra     string
}

// IngestResult 入库结果。
type IngestResult struct {
	ChunkCount int      `json:"chunk_count"`
	ChunkIDs   []string `json:"chunk_ids"`
}

// Indexer 负责文档入库：规范化、分块、嵌入、写入向量库。
type Indexer struct {
	chunker  Chunker
	embedder Embedder
	store    store.VectorStore
	config   *IndexerConfig
}

// NewIndexer 创建索引器实例。
func NewIndexer(chunker Chunker, embedder Embedder, vectorStore store.VectorStore, config *IndexerConfig) *Indexer {
	return &Indexer{
		chunker:  chunker,
		embedder: embedder,
		store:    vectorStore,
		config:   config,
	}
}

// ChunkID 返回分块的确定性 ID。
func ChunkID(source string, ordinal int) string {
	return fmt.Sprintf("%s_chunk_%d", source, ordinal)
}

// checkChunkID 校验分块 ID 不超过向量库主键长度上限。
func checkChunkID(source string, ordinal int) error {
	if id := ChunkID(source, ordinal); len(id) > store.MaxIDBytes {
		return errors.ErrRAGValidation.WithMessagef("chunk id %d bytes exceeds %d", len(id), store.MaxIDBytes)
	}
	return nil
}

func validateIngest(req *IngestRequest) error {
	if strings.TrimSpace(req.Source) == "" {
		return errors.ErrRAGValidation.WithMessage("source is required")
	}
	if len(req.Source) > store.MaxSourceBytes {
		return errors.ErrRAGValidation.WithMessagef("source exceeds %d bytes", store.MaxSourceBytes)
	}
	if err := checkChunkID(req.Source, 0); err != nil {
		return err
	}
	if _, err := ParseStrategy(string(req.Strategy)); err != nil {
		return err
	}
	return ValidateChunkParams(req.Strategy, req.ChunkSize, req.Overlap)
}

// Ingest 执行一次入库。
//
// 参数校验先于任何外部调用；空文档返回零结果且不调用任何端口。
// 向量数量或维度不符返回 ErrRAGEmbedding，此时不会写入向量库。
// 相同 source 与参数重复入库得到相同的 ID，写入为覆盖。
func (i *Indexer) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	if err := validateIngest(&req); err != nil {
		return nil, err
	}

	ctx = infralog.WithSource(ctx, req.Source)
	ctx, span := tracing.StartSpan(ctx, tracerName, "rag.ingest",
		attribute.String("rag.source", req.Source),
		attribute.String("rag.strategy", string(req.Strategy)),
	)
	defer span.End()
	log := infralog.GetLogger(ctx)

	raw, err := i.chunker.Chunk(Normalize(req.Text), req.Strategy, req.ChunkSize, req.Overlap)
	if err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(raw))
	for _, c := range raw {
		if c = Normalize(c); c != "" {
			texts = append(texts, c)
		}
	}
	if len(texts) == 0 {
		log.Infow("empty document, nothing to ingest")
		return &IngestResult{ChunkIDs: []string{}}, nil
	}
	if err := checkChunkID(req.Source, len(texts)-1); err != nil {
		return nil, err
	}

	vectors, err := i.embed(ctx, texts)
	if err != nil {
		tracing.RecordError(ctx, err)
		log.Errorw("embedding failed", "chunks", len(texts), "error", err.Error())
		return nil, err
	}

	ids := make([]string, len(texts))
	records := make([]store.Record, len(texts))
	for n, text := range texts {
		ids[n] = ChunkID(req.Source, n)
		records[n] = store.Record{
			ID:     ids[n],
			Vector: vectors[n],
			Metadata: store.Metadata{
				Source:    req.Source,
				ChunkText: text,
				SessionID: req.SessionID,
				Extra:     req.Extra,
			},
		}
	}

	upsertCtx, upsertSpan := tracing.StartSpan(ctx, tracerName, "rag.vector.upsert", attribute.Int("rag.records", len(records)))
	err = i.store.Upsert(upsertCtx, records)
	upsertSpan.End()
	if err != nil {
		err = errors.Classify(err, errors.ErrRAGVectorStore)
		tracing.RecordError(ctx, err)
		log.Errorw("vector upsert failed", "chunks", len(records), "error", err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("rag.chunks", len(ids)))
	log.Infow("document ingested", "chunks", len(ids), "strategy", string(req.Strategy))
	return &IngestResult{ChunkCount: len(ids), ChunkIDs: ids}, nil
}

// embed 调用 Embedder 并校验数量与维度。
func (i *Indexer) embed(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "rag.embed", attribute.Int("rag.texts", len(texts)))
	defer span.End()

	vectors, err := i.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, errors.Classify(err, errors.ErrRAGEmbedding)
	}
	if len(vectors) != len(texts) {
		return nil, errors.ErrRAGEmbedding.WithMessagef("embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}
	if dim := i.config.EmbeddingDim; dim > 0 {
		for n, v := range vectors {
			if len(v) != dim {
				return nil, errors.ErrRAGEmbedding.WithMessagef("vector %d has dimension %d, expected %d", n, len(v), dim)
			}
		}
	}
	return vectors, nil
}
