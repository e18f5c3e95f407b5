package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 外部调用结果标签
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
)

// Metrics 引擎指标，注册在私有 Registry 上
// nil *Metrics 的所有方法都是空操作
type Metrics struct {
	registry *prometheus.Registry

	fallbacks     *prometheus.CounterVec
	externalCalls *prometheus.CounterVec
	callDuration  *prometheus.HistogramVec
}

// New 创建指标集合
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "resume_engine"
	}
	registry := prometheus.NewRegistry()

	fallbacks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "fallbacks_total",
			Help:      "Degraded code paths taken, by component and reason.",
		},
		[]string{"component", "reason"},
	)
	externalCalls := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "external_calls_total",
			Help:      "Calls to OCR, embedding and narrative services, by outcome.",
		},
		[]string{"service", "outcome"},
	)
	callDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "external_call_duration_seconds",
			Help:      "External call latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"service"},
	)

	registry.MustRegister(fallbacks, externalCalls, callDuration)

	return &Metrics{
		registry:      registry,
		fallbacks:     fallbacks,
		externalCalls: externalCalls,
		callDuration:  callDuration,
	}
}

// Registry 暴露底层 Registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler 返回 Prometheus 文本格式的 HTTP handler
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Fallback 记录一次降级
func (m *Metrics) Fallback(component, reason string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(component, reason).Inc()
}

// ObserveCall 记录一次外部调用
func (m *Metrics) ObserveCall(service string, duration time.Duration, outcome string) {
	if m == nil {
		return
	}
	m.externalCalls.WithLabelValues(service, outcome).Inc()
	m.callDuration.WithLabelValues(service).Observe(duration.Seconds())
}
