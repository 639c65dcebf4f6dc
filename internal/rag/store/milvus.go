package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	"github.com/kart-io/sentinel-rag/internal/pkg/rag/textutil"
	"github.com/kart-io/sentinel-rag/pkg/component/milvus"
	"github.com/kart-io/sentinel-rag/pkg/utils/errors"
)

// Milvus 字段名。
const (
	fieldID        = "id"
	fieldEmbedding = "embedding"
	fieldSource    = "source"
	fieldChunkText = "chunk_text"
	fieldSessionID = "session_id"
	fieldExtra     = "extra"
)

const (
	maxChunkTextLen = 65535
	maxExtraLen     = 4096
)

var outputFields = []string{fieldSource, fieldChunkText, fieldSessionID, fieldExtra}

// MilvusStore 实现基于 Milvus 的向量存储。
type MilvusStore struct {
	client     *milvus.Client
	collection string
	dim        int
}

// NewMilvusStore 创建 Milvus 存储实例，并确保集合已创建、建索引并加载。
func NewMilvusStore(ctx context.Context, client *milvus.Client, collection string, dim int) (*MilvusStore, error) {
	schema := &milvus.CollectionSchema{
		Name:             collection,
		Description:      "RAG chunk collection",
		Dimension:        dim,
		PrimaryKeyMaxLen: MaxIDBytes,
		VarCharFields: []milvus.VarCharField{
			{Name: fieldSource, MaxLen: MaxSourceBytes},
			{Name: fieldChunkText, MaxLen: maxChunkTextLen},
			{Name: fieldSessionID, MaxLen: 128},
			{Name: fieldExtra, MaxLen: maxExtraLen},
		},
	}
	if err := client.EnsureCollection(ctx, schema); err != nil {
		return nil, errors.ErrRAGVectorStore.WithCause(err)
	}
	return &MilvusStore{client: client, collection: collection, dim: dim}, nil
}

// Upsert 按主键幂等写入，写入后 flush 使数据立即可检索。
func (s *MilvusStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	ids := make([]string, len(records))
	vectors := make([][]float32, len(records))
	sources := make([]string, len(records))
	texts := make([]string, len(records))
	sessions := make([]string, len(records))
	extras := make([]string, len(records))
	for i, r := range records {
		if len(r.Vector) != s.dim {
			return errors.ErrRAGVectorStore.WithMessagef("vector %s has dimension %d, collection expects %d", r.ID, len(r.Vector), s.dim)
		}
		ids[i] = r.ID
		vectors[i] = r.Vector
		sources[i] = r.Metadata.Source
		texts[i] = textutil.TruncateBytes(r.Metadata.ChunkText, maxChunkTextLen)
		sessions[i] = r.Metadata.SessionID
		extras[i] = textutil.TruncateBytes(r.Metadata.Extra, maxExtraLen)
	}

	opt := milvusclient.NewColumnBasedInsertOption(s.collection,
		column.NewColumnVarChar(fieldID, ids),
		column.NewColumnFloatVector(fieldEmbedding, s.dim, vectors),
		column.NewColumnVarChar(fieldSource, sources),
		column.NewColumnVarChar(fieldChunkText, texts),
		column.NewColumnVarChar(fieldSessionID, sessions),
		column.NewColumnVarChar(fieldExtra, extras),
	)
	if _, err := s.client.RawClient().Upsert(ctx, opt); err != nil {
		return errors.ErrRAGVectorStore.WithCause(fmt.Errorf("failed to upsert into milvus: %w", err))
	}
	if err := s.client.Flush(ctx, s.collection); err != nil {
		return errors.ErrRAGVectorStore.WithCause(err)
	}
	return nil
}

// Query 执行向量相似度检索。Milvus 已按分数降序返回结果。
func (s *MilvusStore) Query(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	results, err := s.client.RawClient().Search(ctx, milvusclient.NewSearchOption(
		s.collection,
		topK,
		[]entity.Vector{entity.FloatVector(vector)},
	).WithANNSField(fieldEmbedding).
		WithSearchParam("nprobe", strconv.Itoa(s.client.NProbe())).
		WithOutputFields(outputFields...))
	if err != nil {
		return nil, errors.ErrRAGVectorStore.WithCause(fmt.Errorf("failed to search milvus: %w", err))
	}

	if len(results) == 0 {
		return []Match{}, nil
	}

	rs := results[0]
	matches := make([]Match, 0, rs.ResultCount)
	for i := 0; i < rs.ResultCount; i++ {
		m := Match{Score: rs.Scores[i]}
		if idCol, ok := rs.IDs.(*column.ColumnVarChar); ok {
			m.ID = idCol.Data()[i]
		}
		for _, field := range rs.Fields {
			col, ok := field.(*column.ColumnVarChar)
			if !ok {
				continue
			}
			switch col.Name() {
			case fieldSource:
				m.Metadata.Source = col.Data()[i]
			case fieldChunkText:
				m.Metadata.ChunkText = col.Data()[i]
			case fieldSessionID:
				m.Metadata.SessionID = col.Data()[i]
			case fieldExtra:
				m.Metadata.Extra = col.Data()[i]
			}
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// Count 返回集合中的实体数量。
func (s *MilvusStore) Count(ctx context.Context) (int64, error) {
	n, err := s.client.RowCount(ctx, s.collection)
	if err != nil {
		return 0, errors.ErrRAGVectorStore.WithCause(err)
	}
	return n, nil
}

// Close 关闭 Milvus 连接。
func (s *MilvusStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

// 确保 MilvusStore 实现了 VectorStore 接口。
var _ VectorStore = (*MilvusStore)(nil)
