package store

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kart-io/sentinel-rag/internal/model"
	"github.com/kart-io/sentinel-rag/pkg/utils/errors"
)

func newTestRecordStore(t *testing.T) *RecordStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	// :memory: databases are per connection.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	s := NewRecordStore(db)
	require.NoError(t, s.AutoMigrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordStore_Documents(t *testing.T) {
	s := newTestRecordStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, src := range []string{"a.txt", "b.pdf", "c.txt"} {
		doc := &model.Document{Source: src, ChunkCount: i + 1, Strategy: "sliding", CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, s.CreateDocument(ctx, doc))
		assert.Len(t, doc.ID, 26)
	}

	docs, total, err := s.ListDocuments(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, docs, 2)
	assert.Equal(t, "c.txt", docs[0].Source)
	assert.Equal(t, "b.pdf", docs[1].Source)

	docs, _, err = s.ListDocuments(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a.txt", docs[0].Source)
}

func TestRecordStore_Booking(t *testing.T) {
	s := newTestRecordStore(t)

	b := &model.Booking{Name: "Ada", Email: "ada@example.com", Date: "2026-03-01", Time: "10:30"}
	require.NoError(t, s.CreateBooking(context.Background(), b))
	assert.NotEmpty(t, b.ID)

	var got model.Booking
	require.NoError(t, s.db.First(&got, "id = ?", b.ID).Error)
	assert.Equal(t, "ada@example.com", got.Email)
}

func TestRecordStore_ErrorsAreClassified(t *testing.T) {
	s := newTestRecordStore(t)
	require.NoError(t, s.Close())

	err := s.CreateBooking(context.Background(), &model.Booking{Name: "x", Email: "x@y.z", Date: "2026-01-01", Time: "09:00"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrRAGRecordStore)
}
