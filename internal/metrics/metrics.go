// Package metrics 汇总签名、认证和 HTTP 调用的 Prometheus 指标。
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics 一组独立注册表上的指标
type Metrics struct {
	registry *prometheus.Registry

	SignaturesTotal *prometheus.CounterVec
	OrdersSigned    *prometheus.CounterVec
	AuthFailures    *prometheus.CounterVec
	CredsDerived    *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
}

// New 创建指标集合；withRuntime 为 true 时附带 Go 运行时和进程指标
func New(withRuntime bool) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		SignaturesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clob_signatures_total",
				Help: "Signatures produced, by kind and result",
			},
			[]string{"kind", "result"},
		),
		OrdersSigned: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clob_orders_signed_total",
				Help: "Orders signed, by side and signature type",
			},
			[]string{"side", "signature_type"},
		),
		AuthFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clob_auth_failures_total",
				Help: "Authenticated calls rejected by the exchange",
			},
			[]string{"op", "status"},
		),
		CredsDerived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clob_api_creds_total",
				Help: "API credentials obtained, by source (create, derive, store)",
			},
			[]string{"source"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clob_http_requests_total",
				Help: "HTTP requests to the exchange",
			},
			[]string{"method", "path", "code"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clob_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms 到 ~10s
			},
			[]string{"method", "path"},
		),
	}

	m.registry.MustRegister(
		m.SignaturesTotal,
		m.OrdersSigned,
		m.AuthFailures,
		m.CredsDerived,
		m.HTTPRequests,
		m.HTTPDuration,
	)
	if withRuntime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

// Registry 返回注册表
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordSignature 记录一次签名
func (m *Metrics) RecordSignature(kind string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.SignaturesTotal.WithLabelValues(kind, result).Inc()
}

// RecordOrderSigned 记录一笔已签名订单
func (m *Metrics) RecordOrderSigned(side, signatureType string) {
	m.OrdersSigned.WithLabelValues(side, signatureType).Inc()
}

// RecordAuthFailure 记录一次认证失败
func (m *Metrics) RecordAuthFailure(op string, status int) {
	m.AuthFailures.WithLabelValues(op, strconv.Itoa(status)).Inc()
}

// RecordCreds 记录凭证来源
func (m *Metrics) RecordCreds(source string) {
	m.CredsDerived.WithLabelValues(source).Inc()
}

// RecordHTTP 记录一次 HTTP 调用；status 为 0 表示未收到响应
func (m *Metrics) RecordHTTP(method, path string, status int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Default 进程级默认实例（包含运行时指标）
func Default() *Metrics {
	once.Do(func() {
		defaultMetrics = New(true)
	})
	return defaultMetrics
}
