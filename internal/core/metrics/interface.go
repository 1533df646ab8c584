// Package metrics 提供指标收集接口及其内存、Prometheus 两种实现
package metrics

// Metrics 指标收集接口
type Metrics interface {
	// Counter 操作
	IncrementCounter(name string, labels map[string]string) error
	AddCounter(name string, value float64, labels map[string]string) error
	GetCounter(name string, labels map[string]string) (float64, error)

	// Gauge 操作
	SetGauge(name string, value float64, labels map[string]string) error
	AddGauge(name string, delta float64, labels map[string]string) error
	GetGauge(name string, labels map[string]string) (float64, error)

	// Histogram 操作
	ObserveHistogram(name string, value float64, labels map[string]string) error

	Close() error
}
