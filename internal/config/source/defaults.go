package source

import (
	"rawbridge-core/internal/config/schema"
)

// Default values shared with the validator and the stream adapter
const (
	DefaultBufferSize     = 64 * 1024
	DefaultMaxLine        = 65535
	DefaultPageSize       = 256 * 1024
	DefaultPageCachePages = 64
	DefaultOutputBPS      = 8
	DefaultBatchWorkers   = 4
)

// DefaultSource provides default configuration values
type DefaultSource struct{}

// NewDefaultSource creates a new DefaultSource
func NewDefaultSource() *DefaultSource {
	return &DefaultSource{}
}

// Name returns the source name
func (s *DefaultSource) Name() string {
	return "defaults"
}

// Priority returns the source priority
func (s *DefaultSource) Priority() int {
	return PriorityDefaults
}

// LoadInto loads default values into the configuration
func (s *DefaultSource) LoadInto(cfg *schema.Root) error {
	// Log defaults
	cfg.Log.Level = schema.LogLevelInfo
	cfg.Log.Format = schema.LogFormatText
	cfg.Log.Output = schema.LogOutputStderr

	// Stream defaults
	cfg.Stream.BufferSize = DefaultBufferSize
	cfg.Stream.MaxLine = DefaultMaxLine
	cfg.Stream.PageSize = DefaultPageSize
	cfg.Stream.PageCachePages = DefaultPageCachePages

	// Engine defaults
	cfg.Engine.UserFlip = -1
	cfg.Engine.OutputBPS = DefaultOutputBPS
	cfg.Engine.UseCameraWB = true

	// Metrics defaults
	cfg.Metrics.Enabled = true
	cfg.Metrics.Backend = schema.MetricsBackendMemory

	// Batch defaults
	cfg.Batch.Workers = DefaultBatchWorkers

	return nil
}

// GetDefaultConfig returns a fully initialized default configuration
func GetDefaultConfig() *schema.Root {
	cfg := &schema.Root{}
	source := NewDefaultSource()
	_ = source.LoadInto(cfg)
	return cfg
}
