package schema

// Metrics backends
const (
	MetricsBackendMemory     = "memory"
	MetricsBackendPrometheus = "prometheus"
)

// MetricsConfig contains metrics settings
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Backend string `yaml:"backend" json:"backend"` // memory/prometheus
	Listen  string `yaml:"listen" json:"listen"`   // promhttp listen address, empty = disabled
}
