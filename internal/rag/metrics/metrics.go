// Package metrics 提供 RAG 服务的业务指标收集。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	resultOK    = "ok"
	resultError = "error"
)

// RAGMetrics RAG 服务业务指标，注册在独立的 Registry 上。
// 所有方法对 nil 接收者安全，未启用指标时可直接传 nil。
type RAGMetrics struct {
	registry *prometheus.Registry

	// 入库指标
	ingestTotal    *prometheus.CounterVec
	chunksIndexed  prometheus.Counter
	ingestDuration prometheus.Histogram

	// 问答指标
	chatTotal    *prometheus.CounterVec
	chatDuration prometheus.Histogram

	// 异步写入文档记录失败次数
	recordFailures prometheus.Counter
}

// New 创建指标集合，namespace 为空时使用 "rag"。
func New(namespace string) *RAGMetrics {
	if namespace == "" {
		namespace = "rag"
	}
	m := &RAGMetrics{
		registry: prometheus.NewRegistry(),
		ingestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_total",
			Help:      "Number of ingest requests by chunking strategy and result.",
		}, []string{"strategy", "result"}),
		chunksIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_indexed_total",
			Help:      "Number of chunks upserted into the vector store.",
		}),
		ingestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_duration_seconds",
			Help:      "Ingest latency from extracted text to upserted vectors.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		chatTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_total",
			Help:      "Number of chat requests by result.",
		}, []string{"result"}),
		chatDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chat_duration_seconds",
			Help:      "Answer latency including retrieval and completion.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		recordFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "record_failures_total",
			Help:      "Number of document records that failed to persist after a successful ingest.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ingestTotal,
		m.chunksIndexed,
		m.ingestDuration,
		m.chatTotal,
		m.chatDuration,
		m.recordFailures,
	)
	return m
}

// RecordIngest 记录一次入库。
func (m *RAGMetrics) RecordIngest(strategy string, chunks int, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.ingestTotal.WithLabelValues(strategy, result(err)).Inc()
	if err != nil {
		return
	}
	m.chunksIndexed.Add(float64(chunks))
	m.ingestDuration.Observe(duration.Seconds())
}

// RecordChat 记录一次问答。
func (m *RAGMetrics) RecordChat(duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.chatTotal.WithLabelValues(result(err)).Inc()
	if err == nil {
		m.chatDuration.Observe(duration.Seconds())
	}
}

// RecordPersistFailure 记录一次文档记录写入失败。
func (m *RAGMetrics) RecordPersistFailure() {
	if m == nil {
		return
	}
	m.recordFailures.Inc()
}

// Registry 返回底层 Registry。
func (m *RAGMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 返回 Prometheus 文本格式的导出接口。
func (m *RAGMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func result(err error) string {
	if err != nil {
		return resultError
	}
	return resultOK
}
