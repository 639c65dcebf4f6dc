// Package biz 提供 RAG 服务的业务逻辑层。
//
// 该包将业务逻辑拆分为以下组件：
//   - Chunker: 文本规范化与分块（滑动窗口、按句子）
//   - Indexer: 文档入库（规范化、分块、嵌入、写入向量库）
//   - SessionMemory: 有界的会话历史
//   - Orchestrator: 检索增强问答（并发检索与读取历史、构建提示词、生成回答）
//   - RAGService: 组合以上组件，提供统一的服务接口
//
// 外部依赖通过 Embedder、store.VectorStore、SessionMemory 和 Completer
// 四个端口注入。
package biz
