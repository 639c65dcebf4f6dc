package biz

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/kart-io/sentinel-rag/internal/rag/store"
)

// hashEmbedder produces deterministic vectors from the text bytes.
type hashEmbedder struct {
	dim   int
	err   error
	calls int
	// override lets a test return malformed output.
	override func(texts []string) [][]float32
	mu       sync.Mutex
}

func (e *hashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	if e.override != nil {
		return e.override(texts), nil
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, e.dim)
		for j := range v {
			h := fnv.New32a()
			_, _ = h.Write([]byte{byte(j)})
			_, _ = h.Write([]byte(t))
			v[j] = float32(h.Sum32()%1000) / 1000
		}
		out[i] = v
	}
	return out, nil
}

// recordingStore wraps MemoryStore and counts calls.
type recordingStore struct {
	*store.MemoryStore
	upserts   int
	queries   int
	upsertErr error
	queryErr  error
	// fixed, when set, is returned from Query instead of the inner store.
	fixed []store.Match
}

func newRecordingStore(dim int) *recordingStore {
	return &recordingStore{MemoryStore: store.NewMemoryStore(dim)}
}

func (s *recordingStore) Upsert(ctx context.Context, records []store.Record) error {
	s.upserts++
	if s.upsertErr != nil {
		return s.upsertErr
	}
	return s.MemoryStore.Upsert(ctx, records)
}

func (s *recordingStore) Query(ctx context.Context, vector []float32, topK int) ([]store.Match, error) {
	s.queries++
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	if s.fixed != nil {
		return s.fixed, nil
	}
	return s.MemoryStore.Query(ctx, vector, topK)
}

// fakeCompleter records the prompts it receives.
type fakeCompleter struct {
	answer string
	err    error
	system string
	user   string
	calls  int
}

func (c *fakeCompleter) Complete(_ context.Context, system, user string) (string, error) {
	c.calls++
	c.system, c.user = system, user
	if c.err != nil {
		return "", c.err
	}
	return c.answer, nil
}

// failingMemory fails selected operations.
type failingMemory struct {
	*LocalMemory
	appendErr error
	readErr   error
}

func (m *failingMemory) Append(ctx context.Context, id string, t Turn) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	return m.LocalMemory.Append(ctx, id, t)
}

func (m *failingMemory) ReadAll(ctx context.Context, id string) ([]Turn, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	return m.LocalMemory.ReadAll(ctx, id)
}

// contextSection extracts the CONTEXT block of a prompt.
func contextSection(prompt string) string {
	start := strings.Index(prompt, "CONTEXT:\n") + len("CONTEXT:\n")
	end := strings.Index(prompt, "\n\nCONVERSATION HISTORY:")
	return prompt[start:end]
}
