package metrics

import (
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"

	coreerrors "rawbridge-core/internal/core/errors"
	"rawbridge-core/internal/core/dispose"
)

// DefaultNamespace Prometheus 指标命名空间
const DefaultNamespace = "rawbridge"

// PrometheusMetrics 基于 client_golang 的实现
// 指标在首次使用时按 (名称, 标签名集合) 懒注册
type PrometheusMetrics struct {
	dispose.Dispose

	namespace string
	registry  *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

// NewPrometheusMetrics 创建 Prometheus 指标收集器，包含 Go 运行时与进程指标
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &PrometheusMetrics{
		namespace:  namespace,
		registry:   registry,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

// Registry 返回底层注册表
func (p *PrometheusMetrics) Registry() *prometheus.Registry {
	return p.registry
}

// Handler 返回 /metrics HTTP 处理器
func (p *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func vecKey(name string, labels map[string]string) string {
	return name + "|" + strings.Join(sortedLabelNames(labels), ",")
}

func (p *PrometheusMetrics) counterVec(name string, labels map[string]string) (*prometheus.CounterVec, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := vecKey(name, labels)
	if vec, ok := p.counters[key]; ok {
		return vec, nil
	}
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: p.namespace,
		Name:      name,
		Help:      name,
	}, sortedLabelNames(labels))
	if err := p.registry.Register(vec); err != nil {
		return nil, coreerrors.Wrapf(err, coreerrors.CodeInvalidParam, "register counter %s", name)
	}
	p.counters[key] = vec
	return vec, nil
}

func (p *PrometheusMetrics) gaugeVec(name string, labels map[string]string) (*prometheus.GaugeVec, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := vecKey(name, labels)
	if vec, ok := p.gauges[key]; ok {
		return vec, nil
	}
	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: p.namespace,
		Name:      name,
		Help:      name,
	}, sortedLabelNames(labels))
	if err := p.registry.Register(vec); err != nil {
		return nil, coreerrors.Wrapf(err, coreerrors.CodeInvalidParam, "register gauge %s", name)
	}
	p.gauges[key] = vec
	return vec, nil
}

func (p *PrometheusMetrics) histogramVec(name string, labels map[string]string) (*prometheus.HistogramVec, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := vecKey(name, labels)
	if vec, ok := p.histograms[key]; ok {
		return vec, nil
	}
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: p.namespace,
		Name:      name,
		Help:      name,
		Buckets:   prometheus.DefBuckets,
	}, sortedLabelNames(labels))
	if err := p.registry.Register(vec); err != nil {
		return nil, coreerrors.Wrapf(err, coreerrors.CodeInvalidParam, "register histogram %s", name)
	}
	p.histograms[key] = vec
	return vec, nil
}

// IncrementCounter 增加计数器
func (p *PrometheusMetrics) IncrementCounter(name string, labels map[string]string) error {
	return p.AddCounter(name, 1, labels)
}

// AddCounter 增加计数器指定值
func (p *PrometheusMetrics) AddCounter(name string, value float64, labels map[string]string) error {
	if value < 0 {
		return errNegativeCounter(name)
	}
	vec, err := p.counterVec(name, labels)
	if err != nil {
		return err
	}
	vec.With(labels).Add(value)
	return nil
}

// GetCounter 读取计数器当前值
func (p *PrometheusMetrics) GetCounter(name string, labels map[string]string) (float64, error) {
	vec, err := p.counterVec(name, labels)
	if err != nil {
		return 0, err
	}
	var m dto.Metric
	if err := vec.With(labels).Write(&m); err != nil {
		return 0, err
	}
	return m.GetCounter().GetValue(), nil
}

// SetGauge 设置 Gauge 值
func (p *PrometheusMetrics) SetGauge(name string, value float64, labels map[string]string) error {
	vec, err := p.gaugeVec(name, labels)
	if err != nil {
		return err
	}
	vec.With(labels).Set(value)
	return nil
}

// AddGauge 调整 Gauge 值
func (p *PrometheusMetrics) AddGauge(name string, delta float64, labels map[string]string) error {
	vec, err := p.gaugeVec(name, labels)
	if err != nil {
		return err
	}
	vec.With(labels).Add(delta)
	return nil
}

// GetGauge 读取 Gauge 当前值
func (p *PrometheusMetrics) GetGauge(name string, labels map[string]string) (float64, error) {
	vec, err := p.gaugeVec(name, labels)
	if err != nil {
		return 0, err
	}
	var m dto.Metric
	if err := vec.With(labels).Write(&m); err != nil {
		return 0, err
	}
	return m.GetGauge().GetValue(), nil
}

// ObserveHistogram 记录观测值
func (p *PrometheusMetrics) ObserveHistogram(name string, value float64, labels map[string]string) error {
	vec, err := p.histogramVec(name, labels)
	if err != nil {
		return err
	}
	vec.With(labels).Observe(value)
	return nil
}

// Close 关闭指标收集器
func (p *PrometheusMetrics) Close() error {
	return p.Dispose.CloseWithError()
}

func errNegativeCounter(name string) error {
	return coreerrors.Newf(coreerrors.CodeInvalidParam, "counter %s cannot decrease", name)
}
