// Package router provides RAG service routing.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/sentinel-rag/internal/rag/handler"
)

// Register registers the RAG service routes.
func Register(engine *gin.Engine, ragHandler *handler.RAGHandler) {
	engine.GET("/healthz", ragHandler.Health)
	if m := ragHandler.Metrics(); m != nil {
		engine.GET("/metrics", gin.WrapH(m.Handler()))
	}

	v1 := engine.Group("/v1")
	{
		rag := v1.Group("/rag")
		{
			rag.POST("/ingest", ragHandler.Ingest)
			rag.POST("/chat", ragHandler.Chat)
			rag.GET("/sessions/:id/history", ragHandler.History)
			rag.GET("/documents", ragHandler.ListDocuments)
			rag.POST("/book", ragHandler.Book)
		}
	}

	logger.Info("HTTP routes registered")
}
