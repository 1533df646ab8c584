package source

import (
	"os"
	"strconv"

	"rawbridge-core/internal/config/schema"
)

// EnvSource loads configuration from environment variables
type EnvSource struct {
	prefix string
}

// NewEnvSource creates a new EnvSource with the specified prefix
func NewEnvSource(prefix string) *EnvSource {
	return &EnvSource{
		prefix: prefix,
	}
}

// Name returns the source name
func (s *EnvSource) Name() string {
	return "env"
}

// Priority returns the source priority
func (s *EnvSource) Priority() int {
	return PriorityEnv
}

// LoadInto loads environment variables into the config structure
func (s *EnvSource) LoadInto(cfg *schema.Root) error {
	// Log
	s.loadString("LOG_LEVEL", &cfg.Log.Level)
	s.loadString("LOG_FORMAT", &cfg.Log.Format)
	s.loadString("LOG_OUTPUT", &cfg.Log.Output)
	s.loadString("LOG_FILE", &cfg.Log.File)

	// Stream
	s.loadInt("STREAM_BUFFER_SIZE", &cfg.Stream.BufferSize)
	s.loadInt("STREAM_MAX_LINE", &cfg.Stream.MaxLine)
	s.loadBool("STREAM_MMAP", &cfg.Stream.Mmap)
	s.loadInt("STREAM_PAGE_SIZE", &cfg.Stream.PageSize)
	s.loadInt("STREAM_PAGE_CACHE_PAGES", &cfg.Stream.PageCachePages)

	// Engine
	s.loadBool("ENGINE_HALF_SIZE", &cfg.Engine.HalfSize)
	s.loadBool("ENGINE_USE_CAMERA_WB", &cfg.Engine.UseCameraWB)
	s.loadInt("ENGINE_USER_FLIP", &cfg.Engine.UserFlip)
	s.loadInt("ENGINE_OUTPUT_BPS", &cfg.Engine.OutputBPS)

	// Metrics
	s.loadBool("METRICS_ENABLED", &cfg.Metrics.Enabled)
	s.loadString("METRICS_BACKEND", &cfg.Metrics.Backend)
	s.loadString("METRICS_LISTEN", &cfg.Metrics.Listen)

	// Batch
	s.loadInt("BATCH_WORKERS", &cfg.Batch.Workers)

	return nil
}

// getEnv gets environment variable with the configured prefix
func (s *EnvSource) getEnv(key string) (string, bool) {
	prefixedKey := s.prefix + "_" + key
	if v := os.Getenv(prefixedKey); v != "" {
		return v, true
	}
	return "", false
}

func (s *EnvSource) loadString(key string, target *string) {
	if v, ok := s.getEnv(key); ok {
		*target = v
	}
}

func (s *EnvSource) loadBool(key string, target *bool) {
	if v, ok := s.getEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*target = b
		}
	}
}

func (s *EnvSource) loadInt(key string, target *int) {
	if v, ok := s.getEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			*target = i
		}
	}
}
