// Package handler provides HTTP handlers for RAG service.
package handler

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/kart-io/sentinel-rag/internal/model"
	"github.com/kart-io/sentinel-rag/internal/pkg/httputils"
	"github.com/kart-io/sentinel-rag/internal/pkg/rag/docutil"
	"github.com/kart-io/sentinel-rag/internal/rag/biz"
	"github.com/kart-io/sentinel-rag/internal/rag/metrics"
	infralog "github.com/kart-io/sentinel-rag/pkg/infra/logger"
	"github.com/kart-io/sentinel-rag/pkg/utils/errors"
	"github.com/kart-io/sentinel-rag/pkg/utils/response"
	"github.com/kart-io/sentinel-rag/pkg/validator"
)

const (
	defaultPageLimit = 20
	// persistTimeout bounds one background document write.
	persistTimeout = 10 * time.Second
)

// RecordRepository persists ingest records and bookings.
type RecordRepository interface {
	CreateDocument(ctx context.Context, doc *model.Document) error
	ListDocuments(ctx context.Context, limit, offset int) ([]model.Document, int64, error)
	CreateBooking(ctx context.Context, b *model.Booking) error
}

// TaskSubmitter runs fire-and-forget work off the request path.
type TaskSubmitter interface {
	Submit(task func()) error
}

// Config carries the request defaults and limits.
type Config struct {
	ServiceName      string
	Env              string
	ChunkingStrategy string
	ChunkSize        int
	ChunkOverlap     int
	TopK             int
	RequestTimeout   time.Duration
	MaxUploadSize    int64
	// Metrics is optional.
	Metrics *metrics.RAGMetrics
}

// RAGHandler handles RAG HTTP requests.
type RAGHandler struct {
	service  biz.Service
	records  RecordRepository
	tasks    TaskSubmitter
	validate *validator.Validator
	cfg      Config
}

// NewRAGHandler creates a new RAGHandler.
func NewRAGHandler(service biz.Service, records RecordRepository, tasks TaskSubmitter, cfg Config) *RAGHandler {
	return &RAGHandler{
		service:  service,
		records:  records,
		tasks:    tasks,
		validate: validator.Global(),
		cfg:      cfg,
	}
}

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Env     string `json:"env"`
}

// Health reports liveness.
func (h *RAGHandler) Health(c *gin.Context) {
	httputils.WriteResponse(c, nil, HealthResponse{Status: "ok", Service: h.cfg.ServiceName, Env: h.cfg.Env})
}

// IngestForm holds the multipart fields besides the file.
type IngestForm struct {
	Source           string `form:"source" validate:"required,notblank,maxbytes=512"`
	Metadata         string `form:"metadata" validate:"max=4096"`
	ChunkingStrategy string `form:"chunking_strategy" validate:"required"`
	ChunkSize        int    `form:"chunk_size" validate:"min=1"`
	Overlap          int    `form:"overlap" validate:"min=0"`
	SessionID        string `form:"session_id" validate:"omitempty,max=128,nocontrol"`
}

// IngestResponse is returned after a successful ingest.
type IngestResponse struct {
	Message    string   `json:"message"`
	ChunkCount int      `json:"chunk_count"`
	ChunkIDs   []string `json:"chunk_ids"`
}

// Ingest extracts an uploaded PDF or text file, chunks it and indexes it.
func (h *RAGHandler) Ingest(c *gin.Context) {
	if h.cfg.MaxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxUploadSize)
	}

	form := IngestForm{
		ChunkingStrategy: h.cfg.ChunkingStrategy,
		ChunkSize:        h.cfg.ChunkSize,
		Overlap:          h.cfg.ChunkOverlap,
	}
	if err := c.ShouldBindWith(&form, binding.FormMultipart); err != nil {
		httputils.WriteResponse(c, h.uploadError(err), nil)
		return
	}
	if err := h.check(c, &form); err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		httputils.WriteResponse(c, h.uploadError(err), nil)
		return
	}
	data, err := readUpload(header)
	if err != nil {
		httputils.WriteResponse(c, h.uploadError(err), nil)
		return
	}

	strategy, err := biz.ParseStrategy(form.ChunkingStrategy)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}
	text, err := docutil.Extract(header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()
	ctx = infralog.WithSource(ctx, form.Source)

	start := time.Now()
	result, err := h.service.Ingest(ctx, biz.IngestRequest{
		Text:      text,
		Strategy:  strategy,
		ChunkSize: form.ChunkSize,
		Overlap:   form.Overlap,
		Source:    form.Source,
		SessionID: form.SessionID,
		Extra:     form.Metadata,
	})
	chunks := 0
	if result != nil {
		chunks = result.ChunkCount
	}
	h.cfg.Metrics.RecordIngest(string(strategy), chunks, time.Since(start), err)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	h.persistDocument(ctx, &model.Document{
		Source:     form.Source,
		Filename:   header.Filename,
		ChunkCount: result.ChunkCount,
		Strategy:   string(strategy),
		SessionID:  form.SessionID,
		Metadata:   form.Metadata,
	})

	httputils.WriteResponse(c, nil, IngestResponse{
		Message:    fmt.Sprintf("Uploaded and processed %s with %d chunks.", header.Filename, result.ChunkCount),
		ChunkCount: result.ChunkCount,
		ChunkIDs:   result.ChunkIDs,
	})
}

// persistDocument writes the ingest record on the background pool. The
// vectors are already committed, so failures are only logged.
func (h *RAGHandler) persistDocument(ctx context.Context, doc *model.Document) {
	if h.records == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	log := infralog.GetLogger(ctx)

	task := func() {
		wctx, cancel := context.WithTimeout(ctx, persistTimeout)
		defer cancel()
		if err := h.records.CreateDocument(wctx, doc); err != nil {
			h.cfg.Metrics.RecordPersistFailure()
			log.Errorw("failed to persist document record", "error", err.Error(), "chunks", doc.ChunkCount)
		}
	}
	if h.tasks == nil {
		task()
		return
	}
	if err := h.tasks.Submit(task); err != nil {
		log.Warnw("background pool rejected document record", "error", err.Error())
	}
}

// ChatRequest is the chat body. TopK defaults to the configured value.
type ChatRequest struct {
	SessionID string `json:"session_id" validate:"omitempty,max=128,nocontrol"`
	Query     string `json:"query" validate:"required,notblank"`
	TopK      int    `json:"top_k" validate:"min=1,max=20"`
}

// Chat answers a question against the indexed documents.
func (h *RAGHandler) Chat(c *gin.Context) {
	req := ChatRequest{TopK: h.cfg.TopK}
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, errors.ErrRAGValidation.WithMessagef("invalid request body: %v", err), nil)
		return
	}
	if err := h.check(c, &req); err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	start := time.Now()
	result, err := h.service.Answer(ctx, biz.AnswerRequest{
		SessionID: req.SessionID,
		Query:     req.Query,
		TopK:      req.TopK,
	})
	h.cfg.Metrics.RecordChat(time.Since(start), err)
	httputils.WriteResponse(c, err, result)
}

// HistoryResponse lists a session's turns oldest first.
type HistoryResponse struct {
	SessionID string     `json:"session_id"`
	Turns     []biz.Turn `json:"turns"`
}

// History returns the stored turns of one session.
func (h *RAGHandler) History(c *gin.Context) {
	sessionID := c.Param("id")
	ctx, cancel := h.requestContext(c)
	defer cancel()

	turns, err := h.service.History(ctx, sessionID)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}
	httputils.WriteResponse(c, nil, HistoryResponse{SessionID: sessionID, Turns: turns})
}

// ListDocumentsQuery pages through ingest records.
type ListDocumentsQuery struct {
	Limit  int `form:"limit" validate:"min=1,max=100"`
	Offset int `form:"offset" validate:"min=0"`
}

// ListDocuments lists ingest records, newest first.
func (h *RAGHandler) ListDocuments(c *gin.Context) {
	q := ListDocumentsQuery{Limit: defaultPageLimit}
	if err := c.ShouldBindQuery(&q); err != nil {
		httputils.WriteResponse(c, errors.ErrRAGValidation.WithMessagef("invalid query: %v", err), nil)
		return
	}
	if err := h.check(c, &q); err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}
	if h.records == nil {
		httputils.WriteResponse(c, errors.ErrRAGRecordStore.WithMessage("record store is not configured"), nil)
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	docs, total, err := h.records.ListDocuments(ctx, q.Limit, q.Offset)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}
	httputils.WriteResponse(c, nil, response.Page(docs, total, q.Limit, q.Offset))
}

// BookRequest captures an interview booking.
type BookRequest struct {
	Name  string `json:"name" validate:"required,notblank,max=128"`
	Email string `json:"email" validate:"required,email"`
	Date  string `json:"date" validate:"required,datetime=2006-01-02"`
	Time  string `json:"time" validate:"required,datetime=15:04"`
}

// BookResponse echoes the stored booking.
type BookResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Date   string `json:"date"`
	Time   string `json:"time"`
}

// Book stores an interview booking.
func (h *RAGHandler) Book(c *gin.Context) {
	var req BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, errors.ErrRAGValidation.WithMessagef("invalid request body: %v", err), nil)
		return
	}
	if err := h.check(c, &req); err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}
	if h.records == nil {
		httputils.WriteResponse(c, errors.ErrRAGRecordStore.WithMessage("record store is not configured"), nil)
		return
	}

	b := &model.Booking{
		Name:     strings.TrimSpace(req.Name),
		Email:    req.Email,
		Date:     req.Date,
		Time:     req.Time,
		Metadata: "{}",
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.records.CreateBooking(ctx, b); err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}
	httputils.WriteResponse(c, nil, BookResponse{
		Status: "booked",
		ID:     b.ID,
		Name:   b.Name,
		Email:  b.Email,
		Date:   b.Date,
		Time:   b.Time,
	})
}

// check validates obj and reports field errors in the client's language.
func (h *RAGHandler) check(c *gin.Context, obj any) error {
	verrs := h.validate.ValidateWithLang(obj, c.GetHeader("Accept-Language"))
	if !verrs.HasErrors() {
		return nil
	}
	return errors.ErrRAGValidation.WithMessage(strings.Join(verrs.Messages(), "; "))
}

func (h *RAGHandler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.cfg.RequestTimeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
}

func (h *RAGHandler) uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		return errors.ErrRAGValidation.WithMessagef("upload exceeds %d bytes", tooLarge.Limit)
	}
	if stderrors.Is(err, http.ErrMissingFile) {
		return errors.ErrRAGValidation.WithMessage("file is required")
	}
	return errors.ErrRAGValidation.WithMessagef("invalid upload: %v", err)
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// Metrics returns the configured metrics, or nil.
func (h *RAGHandler) Metrics() *metrics.RAGMetrics {
	return h.cfg.Metrics
}
