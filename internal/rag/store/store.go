package store

import (
	"context"
)

// 与 Milvus 集合 schema 一致的 VarChar 长度上限，单位为字节。
const (
	// MaxIDBytes 主键（分块 ID）的最大字节数。
	MaxIDBytes = 512
	// MaxSourceBytes source 字段的最大字节数。
	MaxSourceBytes = 512
)

// Metadata 是随向量一起存储的分块元数据（固定结构）。
type Metadata struct {
	// Source 文档来源标识。
	Source string `json:"source"`
	// ChunkText 分块的规范化文本。
	ChunkText string `json:"chunk_text"`
	// SessionID 上传时关联的会话，可为空。
	SessionID string `json:"session_id,omitempty"`
	// Extra 上传者附带的自由格式元数据，可为空。
	Extra string `json:"extra,omitempty"`
}

// Record 表示一条待写入的向量记录。
type Record struct {
	ID       string
	Vector   []float32
	Metadata Metadata
}

// Match 表示一条检索结果，分数越高越相关。
type Match struct {
	ID       string   `json:"id"`
	Score    float32  `json:"score"`
	Metadata Metadata `json:"metadata"`
}

// VectorStore 定义向量存储接口。
//
// Upsert 按 ID 幂等写入；Query 按分数降序返回至多 topK 条结果，
// 结果不足 topK 不视为错误。
type VectorStore interface {
	// Upsert 批量写入记录，同 ID 覆盖。
	Upsert(ctx context.Context, records []Record) error

	// Query 向量相似度检索。
	Query(ctx context.Context, vector []float32, topK int) ([]Match, error)

	// Close 关闭连接。
	Close(ctx context.Context) error
}
