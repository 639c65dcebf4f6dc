// Package model provides the relational data models of sentinel-rag.
package model

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// Document records one successful ingest.
type Document struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	Source     string    `json:"source" gorm:"type:varchar(512);not null;index:idx_source"`
	Filename   string    `json:"filename" gorm:"type:varchar(255)"`
	ChunkCount int       `json:"chunk_count" gorm:"default:0"`
	Strategy   string    `json:"strategy" gorm:"type:varchar(32)"`
	SessionID  string    `json:"session_id,omitempty" gorm:"type:varchar(128)"`
	Metadata   string    `json:"metadata,omitempty" gorm:"type:text"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for Document.
func (Document) TableName() string {
	return "rag_documents"
}

// BeforeCreate assigns a ULID when the id is empty.
func (d *Document) BeforeCreate(*gorm.DB) error {
	if d.ID == "" {
		d.ID = ulid.Make().String()
	}
	return nil
}
