package errors

// RAG 服务代码: 20 (业务服务范围 20-79)
// 错误码格式: AABBCCC
// - AA: 20 (RAG 服务)
// - BB: 类别代码
// - CCC: 序号

var (
	// 请求参数错误 (类别 01)，在调用任何外部依赖之前返回
	ErrRAGValidation       = NewRequestErr(ServiceRAG, 1, "Invalid request parameters", "请求参数无效")
	ErrRAGUnsupportedInput = NewUnsupportedErr(ServiceRAG, 2, "Unsupported input", "不支持的输入")

	// 会话不存在 (类别 04)
	ErrRAGSessionNotFound = NewNotFoundErr(ServiceRAG, 1, "Session not found", "会话不存在")

	// 上游模型错误 (类别 10)
	ErrRAGEmbedding  = NewUpstreamErr(ServiceRAG, 1, "Embedding failed", "向量化失败")
	ErrRAGCompletion = NewUpstreamErr(ServiceRAG, 2, "Completion failed", "生成回答失败")

	// 存储错误 (类别 08, 09)
	ErrRAGVectorStore = NewStoreUnavailableErr(ServiceRAG, CategoryDatabase, 1, "Vector store unavailable", "向量库不可用")
	ErrRAGMemoryStore = NewStoreUnavailableErr(ServiceRAG, CategoryCache, 1, "Session memory unavailable", "会话存储不可用")
	ErrRAGRecordStore = NewDatabaseErr(ServiceRAG, 2, "Record store failed", "记录存储失败")

	// 超时 (类别 11)
	ErrRAGTimeout = NewTimeoutErr(ServiceRAG, 1, "RAG request timeout", "RAG 请求超时")
)
