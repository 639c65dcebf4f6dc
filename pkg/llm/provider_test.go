package llm

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockProvider struct {
	name  string
	calls int
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	m.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

func (m *mockProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	out, err := m.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (m *mockProvider) Chat(_ context.Context, _ []Message) (string, error) {
	return "mock response", nil
}

func (m *mockProvider) Generate(_ context.Context, _ string, _ string) (string, error) {
	return "mock generated text", nil
}

func TestRegistry(t *testing.T) {
	RegisterProvider("test-provider", func(config map[string]any) (Provider, error) {
		return &mockProvider{name: String(config, "name", "test-provider")}, nil
	})
	RegisterProvider("failing", func(map[string]any) (Provider, error) {
		return nil, errors.New("missing api key")
	})

	p, err := NewProvider("test-provider", map[string]any{"name": "custom"})
	require.NoError(t, err)
	assert.Equal(t, "custom", p.Name())

	e, err := NewEmbeddingProvider("test-provider", nil)
	require.NoError(t, err)
	assert.Equal(t, "test-provider", e.Name())

	c, err := NewChatProvider("test-provider", nil)
	require.NoError(t, err)
	assert.Equal(t, "test-provider", c.Name())

	_, err = NewChatProvider("missing", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `chat: unknown llm provider "missing"`)
	assert.Contains(t, err.Error(), "test-provider")

	_, err = NewEmbeddingProvider("failing", nil)
	assert.EqualError(t, err, "embedding: missing api key")

	names := Providers()
	assert.Subset(t, names, []string{"test-provider", "failing"})
	assert.IsNonDecreasing(t, names)
}

func TestConfigHelpers(t *testing.T) {
	cfg := map[string]any{
		KeyBaseURL:     "http://x",
		KeyTimeout:     5 * time.Second,
		KeyMaxRetries:  0,
		KeyTemperature: 0.3,
		KeyMaxTokens:   -1,
	}
	assert.Equal(t, "http://x", String(cfg, KeyBaseURL, "d"))
	assert.Equal(t, "d", String(cfg, KeyAPIKey, "d"))
	assert.Equal(t, 5*time.Second, Duration(cfg, KeyTimeout, time.Second))
	assert.Equal(t, 0, Int(cfg, KeyMaxRetries, 3))
	assert.Equal(t, 7, Int(cfg, KeyMaxTokens, 7), "negative values keep the default")
	assert.InDelta(t, 0.3, Float(cfg, KeyTemperature, 0), 1e-9)
}

func TestCachedEmbeddingProvider_NoRedis(t *testing.T) {
	inner := &mockProvider{name: "inner"}
	c := NewCachedEmbeddingProvider(inner, nil, DefaultEmbeddingCacheConfig())

	v, err := c.EmbedSingle(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 1}, v)
	assert.Equal(t, "inner", c.Name())
}

func newCachedProvider(t *testing.T, inner EmbeddingProvider, dim int) (*CachedEmbeddingProvider, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewCachedEmbeddingProvider(inner, rdb, EmbeddingCacheConfig{TTL: time.Minute, KeyPrefix: "test:emb:", Dim: dim}), mr
}

func TestCachedEmbeddingProvider_Redis(t *testing.T) {
	ctx := context.Background()
	inner := &mockProvider{name: "inner"}
	c, mr := newCachedProvider(t, inner, 0)

	first, err := c.Embed(ctx, []string{"aa", "bbb"})
	require.NoError(t, err)
	second, err := c.Embed(ctx, []string{"bbb", "aa"})
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, first[0], second[1])
	assert.Equal(t, first[1], second[0])
	assert.True(t, mr.Exists(c.cacheKey("aa")))
	assert.Equal(t, time.Minute, mr.TTL(c.cacheKey("aa")))
}

// raggedProvider returns a short vector for texts starting with "x".
type raggedProvider struct {
	mockProvider
}

func (r *raggedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out, err := r.mockProvider.Embed(ctx, texts)
	for i, t := range texts {
		if len(t) > 0 && t[0] == 'x' {
			out[i] = out[i][:1]
		}
	}
	return out, err
}

func TestCachedEmbeddingProvider_SkipsMismatchedDimension(t *testing.T) {
	tests := []struct {
		name string
		dim  int
		in   []string
		// cached lists the texts expected in redis afterwards
		cached []string
	}{
		{"first vector sets dimension", 0, []string{"aa", "xb", "cc"}, []string{"aa", "cc"}},
		{"configured dimension", 2, []string{"xa", "bb"}, []string{"bb"}},
		{"configured dimension rejects all", 3, []string{"aa", "bb"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := &raggedProvider{mockProvider{name: "inner"}}
			c, mr := newCachedProvider(t, inner, tt.dim)

			out, err := c.Embed(context.Background(), tt.in)
			require.NoError(t, err)
			require.Len(t, out, len(tt.in))

			for _, text := range tt.in {
				assert.Equal(t, slices.Contains(tt.cached, text), mr.Exists(c.cacheKey(text)), text)
			}
		})
	}
}

func TestCachedEmbeddingProvider_IgnoresStaleEntry(t *testing.T) {
	ctx := context.Background()
	inner := &mockProvider{name: "inner"}
	c, mr := newCachedProvider(t, inner, 2)
	require.NoError(t, mr.Set(c.cacheKey("aa"), "[1,2,3]"))

	v, err := c.EmbedSingle(ctx, "aa")
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 1}, v)
	assert.Equal(t, 1, inner.calls)
}
