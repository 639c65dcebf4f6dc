package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/sentinel-rag/pkg/utils/errors"
)

func TestMemoryStore_QueryOrdering(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []Record{
		{ID: "far", Vector: []float32{0, 1}, Metadata: Metadata{ChunkText: "far"}},
		{ID: "near", Vector: []float32{1, 0.1}, Metadata: Metadata{ChunkText: "near"}},
		{ID: "tie", Vector: []float32{0, 2}, Metadata: Metadata{ChunkText: "tie"}},
	}))

	matches, err := s.Query(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, "near", matches[0].ID)
	// far and tie score the same; insertion order decides.
	assert.Equal(t, "far", matches[1].ID)
	assert.Equal(t, "tie", matches[2].ID)
	assert.GreaterOrEqual(t, matches[0].Score, matches[1].Score)
}

func TestMemoryStore_FewerThanTopK(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, []Record{
		{ID: "a", Vector: []float32{1, 0}},
		{ID: "b", Vector: []float32{0, 1}},
	}))

	matches, err := s.Query(ctx, []float32{1, 1}, 3)
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestMemoryStore_UpsertOverwrites(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []Record{{ID: "a", Vector: []float32{1, 0}, Metadata: Metadata{ChunkText: "v1"}}}))
	require.NoError(t, s.Upsert(ctx, []Record{{ID: "a", Vector: []float32{1, 0}, Metadata: Metadata{ChunkText: "v2"}}}))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	matches, err := s.Query(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, "v2", matches[0].Metadata.ChunkText)
}

func TestMemoryStore_DimensionMismatch(t *testing.T) {
	s := NewMemoryStore(3)
	err := s.Upsert(context.Background(), []Record{{ID: "a", Vector: []float32{1}}})
	assert.ErrorIs(t, err, errors.ErrRAGVectorStore)

	n, _ := s.Count(context.Background())
	assert.Zero(t, n)
}
