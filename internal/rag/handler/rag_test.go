package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/sentinel-rag/internal/model"
	"github.com/kart-io/sentinel-rag/internal/rag/biz"
	"github.com/kart-io/sentinel-rag/pkg/infra/middleware"
	"github.com/kart-io/sentinel-rag/pkg/utils/errors"
)

type fakeService struct {
	ingestReq  biz.IngestRequest
	answerReq  biz.AnswerRequest
	ingestErr  error
	answerErr  error
	history    map[string][]biz.Turn
	ingestCall int
	// bounded records whether History saw a context with a deadline.
	bounded bool
}

func (f *fakeService) Ingest(_ context.Context, req biz.IngestRequest) (*biz.IngestResult, error) {
	f.ingestCall++
	f.ingestReq = req
	if f.ingestErr != nil {
		return nil, f.ingestErr
	}
	return &biz.IngestResult{ChunkCount: 2, ChunkIDs: []string{biz.ChunkID(req.Source, 0), biz.ChunkID(req.Source, 1)}}, nil
}

func (f *fakeService) Answer(_ context.Context, req biz.AnswerRequest) (*biz.AnswerResult, error) {
	f.answerReq = req
	if f.answerErr != nil {
		return nil, f.answerErr
	}
	sid := req.SessionID
	if sid == "" {
		sid = "generated"
	}
	return &biz.AnswerResult{SessionID: sid, Answer: "forty two", Sources: []biz.Source{}}, nil
}

func (f *fakeService) History(ctx context.Context, sessionID string) ([]biz.Turn, error) {
	_, f.bounded = ctx.Deadline()
	turns, ok := f.history[sessionID]
	if !ok {
		return nil, errors.ErrRAGSessionNotFound
	}
	return turns, nil
}

type fakeRecords struct {
	mu       sync.Mutex
	docs     []model.Document
	bookings []model.Booking
	err      error
	// bounded lists the operations that received a context with a deadline.
	bounded []string
}

func (f *fakeRecords) track(ctx context.Context, op string) {
	if _, ok := ctx.Deadline(); ok {
		f.bounded = append(f.bounded, op)
	}
}

func (f *fakeRecords) CreateDocument(_ context.Context, doc *model.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.docs = append(f.docs, *doc)
	return nil
}

func (f *fakeRecords) ListDocuments(ctx context.Context, limit, offset int) ([]model.Document, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.track(ctx, "list")
	if offset >= len(f.docs) {
		return []model.Document{}, int64(len(f.docs)), nil
	}
	end := offset + limit
	if end > len(f.docs) {
		end = len(f.docs)
	}
	return f.docs[offset:end], int64(len(f.docs)), nil
}

func (f *fakeRecords) CreateBooking(ctx context.Context, b *model.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.track(ctx, "book")
	if f.err != nil {
		return f.err
	}
	b.ID = "01HBOOKING"
	f.bookings = append(f.bookings, *b)
	return nil
}

// inlineTasks runs submitted work synchronously.
type inlineTasks struct{}

func (inlineTasks) Submit(task func()) error {
	task()
	return nil
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func testConfig() Config {
	return Config{
		ServiceName:      "sentinel-rag",
		Env:              "test",
		ChunkingStrategy: "sliding",
		ChunkSize:        500,
		ChunkOverlap:     50,
		TopK:             3,
		MaxUploadSize:    1 << 20,
	}
}

func newTestEngine(svc biz.Service, records RecordRepository, cfg Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewRAGHandler(svc, records, inlineTasks{}, cfg)

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.GET("/healthz", h.Health)
	engine.POST("/v1/rag/ingest", h.Ingest)
	engine.POST("/v1/rag/chat", h.Chat)
	engine.GET("/v1/rag/sessions/:id/history", h.History)
	engine.GET("/v1/rag/documents", h.ListDocuments)
	engine.POST("/v1/rag/book", h.Book)
	return engine
}

func do(t *testing.T, engine *gin.Engine, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, filename, content string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		fw, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/rag/ingest", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestHealth(t *testing.T) {
	engine := newTestEngine(&fakeService{}, &fakeRecords{}, testConfig())

	rec, env := do(t, engine, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(env.Data, &health))
	assert.Equal(t, HealthResponse{Status: "ok", Service: "sentinel-rag", Env: "test"}, health)
}

func TestIngest(t *testing.T) {
	svc := &fakeService{}
	records := &fakeRecords{}
	engine := newTestEngine(svc, records, testConfig())

	req := multipartRequest(t, "notes.txt", "Hello   world.\n\nSecond line.", map[string]string{
		"source":   "kb",
		"metadata": `{"team":"infra"}`,
	})
	rec, env := do(t, engine, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out IngestResponse
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, 2, out.ChunkCount)
	assert.Equal(t, []string{"kb_chunk_0", "kb_chunk_1"}, out.ChunkIDs)
	assert.Equal(t, "Uploaded and processed notes.txt with 2 chunks.", out.Message)

	assert.Equal(t, biz.StrategySliding, svc.ingestReq.Strategy)
	assert.Equal(t, 500, svc.ingestReq.ChunkSize)
	assert.Equal(t, 50, svc.ingestReq.Overlap)
	assert.Equal(t, `{"team":"infra"}`, svc.ingestReq.Extra)
	assert.Contains(t, svc.ingestReq.Text, "Hello")

	require.Len(t, records.docs, 1)
	assert.Equal(t, "notes.txt", records.docs[0].Filename)
	assert.Equal(t, 2, records.docs[0].ChunkCount)
}

func TestIngest_FormOverridesDefaults(t *testing.T) {
	svc := &fakeService{}
	engine := newTestEngine(svc, &fakeRecords{}, testConfig())

	req := multipartRequest(t, "a.txt", "One. Two.", map[string]string{
		"source":            "kb",
		"chunking_strategy": "sentences",
		"chunk_size":        "120",
		"session_id":        "s-1",
	})
	rec, _ := do(t, engine, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, biz.StrategySentences, svc.ingestReq.Strategy)
	assert.Equal(t, 120, svc.ingestReq.ChunkSize)
	assert.Equal(t, "s-1", svc.ingestReq.SessionID)
}

func TestIngest_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		fields   map[string]string
		status   int
		code     int
	}{
		{
			name:     "missing source",
			filename: "a.txt",
			fields:   map[string]string{},
			status:   http.StatusBadRequest,
			code:     errors.ErrRAGValidation.Code,
		},
		{
			name:   "missing file",
			fields: map[string]string{"source": "kb"},
			status: http.StatusBadRequest,
			code:   errors.ErrRAGValidation.Code,
		},
		{
			name:     "unsupported file type",
			filename: "slides.pptx",
			fields:   map[string]string{"source": "kb"},
			status:   http.StatusUnsupportedMediaType,
			code:     errors.ErrRAGUnsupportedInput.Code,
		},
		{
			name:     "multibyte source over byte limit",
			filename: "a.txt",
			fields:   map[string]string{"source": strings.Repeat("文", 512)},
			status:   http.StatusBadRequest,
			code:     errors.ErrRAGValidation.Code,
		},
		{
			name:     "ascii source over byte limit",
			filename: "a.txt",
			fields:   map[string]string{"source": strings.Repeat("a", 513)},
			status:   http.StatusBadRequest,
			code:     errors.ErrRAGValidation.Code,
		},
		{
			name:     "unknown strategy",
			filename: "a.txt",
			fields:   map[string]string{"source": "kb", "chunking_strategy": "paragraphs"},
			status:   http.StatusUnsupportedMediaType,
			code:     errors.ErrRAGUnsupportedInput.Code,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}
			engine := newTestEngine(svc, &fakeRecords{}, testConfig())

			rec, env := do(t, engine, multipartRequest(t, tt.filename, "text", tt.fields))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, env.Code)
			assert.Zero(t, svc.ingestCall)
		})
	}
}

func TestIngest_UploadTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.MaxUploadSize = 64
	engine := newTestEngine(&fakeService{}, &fakeRecords{}, cfg)

	req := multipartRequest(t, "big.txt", strings.Repeat("x", 4096), map[string]string{"source": "kb"})
	rec, env := do(t, engine, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errors.ErrRAGValidation.Code, env.Code)
}

func TestIngest_RecordFailureDoesNotFailRequest(t *testing.T) {
	records := &fakeRecords{err: errors.ErrRAGRecordStore}
	engine := newTestEngine(&fakeService{}, records, testConfig())

	rec, _ := do(t, engine, multipartRequest(t, "a.txt", "hello", map[string]string{"source": "kb"}))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIngest_ServiceError(t *testing.T) {
	svc := &fakeService{ingestErr: errors.ErrRAGEmbedding}
	engine := newTestEngine(svc, &fakeRecords{}, testConfig())

	rec, env := do(t, engine, multipartRequest(t, "a.txt", "hello", map[string]string{"source": "kb"}))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, errors.ErrRAGEmbedding.Code, env.Code)
}

func TestChat(t *testing.T) {
	svc := &fakeService{}
	engine := newTestEngine(svc, &fakeRecords{}, testConfig())

	rec, env := do(t, engine, jsonRequest(http.MethodPost, "/v1/rag/chat", `{"query":"what is the answer?"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 3, svc.answerReq.TopK)

	var out biz.AnswerResult
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, "generated", out.SessionID)
	assert.Equal(t, "forty two", out.Answer)
}

func TestChat_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "blank query", body: `{"query":"   "}`},
		{name: "missing query", body: `{"top_k":2}`},
		{name: "top_k too large", body: `{"query":"q","top_k":21}`},
		{name: "top_k zero", body: `{"query":"q","top_k":0}`},
		{name: "malformed", body: `{"query":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(&fakeService{}, &fakeRecords{}, testConfig())
			rec, env := do(t, engine, jsonRequest(http.MethodPost, "/v1/rag/chat", tt.body))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, errors.ErrRAGValidation.Code, env.Code)
		})
	}
}

func TestChat_MemoryUnavailable(t *testing.T) {
	svc := &fakeService{answerErr: errors.ErrRAGMemoryStore}
	engine := newTestEngine(svc, &fakeRecords{}, testConfig())

	rec, env := do(t, engine, jsonRequest(http.MethodPost, "/v1/rag/chat", `{"query":"q","session_id":"s"}`))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, errors.ErrRAGMemoryStore.Code, env.Code)
}

func TestHistory(t *testing.T) {
	svc := &fakeService{history: map[string][]biz.Turn{
		"s1": {{Role: biz.RoleUser, Text: "hi"}, {Role: biz.RoleAssistant, Text: "hello"}},
	}}
	engine := newTestEngine(svc, &fakeRecords{}, testConfig())

	rec, env := do(t, engine, httptest.NewRequest(http.MethodGet, "/v1/rag/sessions/s1/history", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var out HistoryResponse
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, "s1", out.SessionID)
	assert.Len(t, out.Turns, 2)

	rec, env = do(t, engine, httptest.NewRequest(http.MethodGet, "/v1/rag/sessions/nope/history", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, errors.ErrRAGSessionNotFound.Code, env.Code)
}

func TestListDocuments(t *testing.T) {
	records := &fakeRecords{docs: []model.Document{{ID: "a"}, {ID: "b"}, {ID: "c"}}}
	engine := newTestEngine(&fakeService{}, records, testConfig())

	rec, env := do(t, engine, httptest.NewRequest(http.MethodGet, "/v1/rag/documents?limit=2&offset=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var page struct {
		List   []model.Document `json:"list"`
		Total  int64            `json:"total"`
		Limit  int              `json:"limit"`
		Offset int              `json:"offset"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.Limit)
	require.Len(t, page.List, 2)
	assert.Equal(t, "b", page.List[0].ID)

	rec, _ = do(t, engine, httptest.NewRequest(http.MethodGet, "/v1/rag/documents?limit=500", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBook(t *testing.T) {
	records := &fakeRecords{}
	engine := newTestEngine(&fakeService{}, records, testConfig())

	body := `{"name":"Ada","email":"ada@example.com","date":"2026-11-02","time":"14:30"}`
	rec, env := do(t, engine, jsonRequest(http.MethodPost, "/v1/rag/book", body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out BookResponse
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, "booked", out.Status)
	assert.Equal(t, "01HBOOKING", out.ID)
	require.Len(t, records.bookings, 1)
	assert.Equal(t, "2026-11-02", records.bookings[0].Date)
}

func TestBook_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "bad email", body: `{"name":"Ada","email":"nope","date":"2026-11-02","time":"14:30"}`},
		{name: "bad date", body: `{"name":"Ada","email":"ada@example.com","date":"02/11/2026","time":"14:30"}`},
		{name: "bad time", body: `{"name":"Ada","email":"ada@example.com","date":"2026-11-02","time":"2pm"}`},
		{name: "missing name", body: `{"email":"ada@example.com","date":"2026-11-02","time":"14:30"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := &fakeRecords{}
			engine := newTestEngine(&fakeService{}, records, testConfig())
			rec, _ := do(t, engine, jsonRequest(http.MethodPost, "/v1/rag/book", tt.body))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, records.bookings)
		})
	}
}

func TestHandlers_RequestTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.RequestTimeout = time.Minute
	svc := &fakeService{history: map[string][]biz.Turn{"s1": {}}}
	records := &fakeRecords{}
	engine := newTestEngine(svc, records, cfg)

	rec, _ := do(t, engine, httptest.NewRequest(http.MethodGet, "/v1/rag/sessions/s1/history", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.bounded)

	rec, _ = do(t, engine, httptest.NewRequest(http.MethodGet, "/v1/rag/documents", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := `{"name":"Ada","email":"ada@example.com","date":"2026-11-02","time":"14:30"}`
	rec, _ = do(t, engine, jsonRequest(http.MethodPost, "/v1/rag/book", body))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, []string{"list", "book"}, records.bounded)
}
