package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 上游调用方式
const (
	ModeBuffered = "buffered"
	ModeStream   = "stream"
)

var (
	// UpstreamRequests 按方式和结果统计外部API调用
	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "semantics_upstream_requests_total",
		Help: "Calls to the semantics answer API by mode and outcome",
	}, []string{"mode", "outcome"})

	// UpstreamDuration 外部API调用耗时
	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "semantics_upstream_duration_seconds",
		Help:    "Duration of calls to the semantics answer API",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
	}, []string{"mode"})

	// StreamChunks 转发给浏览器的chunk事件数
	StreamChunks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "semantics_stream_chunks_total",
		Help: "Chunk events relayed to browsers",
	})

	// GenerateRequests 两个生成端点的请求结果
	GenerateRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "semantics_generate_requests_total",
		Help: "Answer generation requests by endpoint and result",
	}, []string{"endpoint", "result"})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
