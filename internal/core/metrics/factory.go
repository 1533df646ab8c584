package metrics

import (
	"rawbridge-core/internal/config/schema"
	coreerrors "rawbridge-core/internal/core/errors"
)

// New 按配置创建指标收集器
// 未启用时返回内存实现，调用方无需判空
func New(cfg schema.MetricsConfig) (Metrics, error) {
	if !cfg.Enabled {
		return NewMemoryMetrics(), nil
	}
	switch cfg.Backend {
	case "", schema.MetricsBackendMemory:
		return NewMemoryMetrics(), nil
	case schema.MetricsBackendPrometheus:
		return NewPrometheusMetrics(DefaultNamespace), nil
	default:
		return nil, coreerrors.Newf(coreerrors.CodeConfigError, "unsupported metrics backend: %s", cfg.Backend)
	}
}
