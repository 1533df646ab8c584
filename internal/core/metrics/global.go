package metrics

import (
	"sync"
)

var (
	globalMetrics Metrics
	globalMu      sync.RWMutex
)

// SetGlobalMetrics 设置全局 Metrics 实例，传 nil 关闭全局指标
func SetGlobalMetrics(m Metrics) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalMetrics = m
}

// GetGlobalMetrics 获取全局 Metrics 实例，未设置时返回 nil
func GetGlobalMetrics() Metrics {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalMetrics
}
