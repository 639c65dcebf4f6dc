// Package store 提供 RAG 服务的数据存储层。
//
// VectorStore 定义向量记录的写入与检索，提供 Milvus 与内存两种实现；
// RecordStore 基于 gorm 保存文档入库记录和面试预约。
package store
