package store

import (
	"context"
	"slices"
	"sync"

	"github.com/kart-io/sentinel-rag/internal/pkg/rag/textutil"
	"github.com/kart-io/sentinel-rag/pkg/utils/errors"
)

// MemoryStore 是进程内的向量存储，按余弦相似度做精确检索。
// 用于本地开发和测试，不做持久化。
type MemoryStore struct {
	mu      sync.RWMutex
	dim     int
	order   []string
	records map[string]Record
}

// NewMemoryStore 创建内存向量存储。dim 为 0 时不校验维度。
func NewMemoryStore(dim int) *MemoryStore {
	return &MemoryStore{dim: dim, records: make(map[string]Record)}
}

// Upsert 写入记录，同 ID 覆盖且保持首次插入的顺序。
func (s *MemoryStore) Upsert(_ context.Context, records []Record) error {
	for _, r := range records {
		if s.dim > 0 && len(r.Vector) != s.dim {
			return errors.ErrRAGVectorStore.WithMessagef("vector %s has dimension %d, store expects %d", r.ID, len(r.Vector), s.dim)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		if _, ok := s.records[r.ID]; !ok {
			s.order = append(s.order, r.ID)
		}
		r.Vector = slices.Clone(r.Vector)
		s.records[r.ID] = r
	}
	return nil
}

// Query 返回余弦相似度最高的 topK 条记录，同分按插入顺序。
func (s *MemoryStore) Query(_ context.Context, vector []float32, topK int) ([]Match, error) {
	s.mu.RLock()
	matches := make([]Match, 0, len(s.order))
	for _, id := range s.order {
		r := s.records[id]
		matches = append(matches, Match{
			ID:       r.ID,
			Score:    float32(textutil.CosineSimilarity(vector, r.Vector)),
			Metadata: r.Metadata,
		})
	}
	s.mu.RUnlock()

	slices.SortStableFunc(matches, func(a, b Match) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	if topK >= 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Count 返回记录数。
func (s *MemoryStore) Count(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.records)), nil
}

// Close 无需释放资源。
func (s *MemoryStore) Close(context.Context) error {
	return nil
}

var _ VectorStore = (*MemoryStore)(nil)
