package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/kart-io/sentinel-rag/internal/model"
	"github.com/kart-io/sentinel-rag/pkg/component/database"
	"github.com/kart-io/sentinel-rag/pkg/utils/errors"
)

// RecordStore 基于 gorm 保存文档入库记录与预约。
type RecordStore struct {
	db *gorm.DB
}

// NewRecordStore 创建记录存储。
func NewRecordStore(db *gorm.DB) *RecordStore {
	return &RecordStore{db: db}
}

// AutoMigrate 创建或更新表结构。
func (s *RecordStore) AutoMigrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&model.Document{}, &model.Booking{}); err != nil {
		return errors.ErrRAGRecordStore.WithCause(err)
	}
	return nil
}

// CreateDocument 保存一条文档记录。
func (s *RecordStore) CreateDocument(ctx context.Context, doc *model.Document) error {
	if err := s.db.WithContext(ctx).Create(doc).Error; err != nil {
		return errors.ErrRAGRecordStore.WithCause(err)
	}
	return nil
}

// ListDocuments 按创建时间倒序分页列出文档记录。
func (s *RecordStore) ListDocuments(ctx context.Context, limit, offset int) ([]model.Document, int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Document{}).Count(&count).Error; err != nil {
		return nil, 0, errors.ErrRAGRecordStore.WithCause(err)
	}

	docs := make([]model.Document, 0, limit)
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&docs).Error; err != nil {
		return nil, 0, errors.ErrRAGRecordStore.WithCause(err)
	}
	return docs, count, nil
}

// CreateBooking 保存一条预约。
func (s *RecordStore) CreateBooking(ctx context.Context, b *model.Booking) error {
	if err := s.db.WithContext(ctx).Create(b).Error; err != nil {
		return errors.ErrRAGRecordStore.WithCause(err)
	}
	return nil
}

// Close 关闭底层连接池。
func (s *RecordStore) Close() error {
	return database.Close(s.db)
}
