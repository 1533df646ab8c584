// Package schema defines configuration structure types
package schema

// Root is the top-level configuration structure
type Root struct {
	Log     LogConfig     `yaml:"log" json:"log"`
	Stream  StreamConfig  `yaml:"stream" json:"stream"`
	Engine  EngineConfig  `yaml:"engine" json:"engine"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
	Batch   BatchConfig   `yaml:"batch" json:"batch"`
}

// BatchConfig controls the CLI batch runner
type BatchConfig struct {
	// Workers is the number of sessions decoded concurrently.
	// Each session stays confined to one goroutine.
	Workers int `yaml:"workers" json:"workers"`
}
