package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"rawbridge-core/internal/config/schema"
	"rawbridge-core/internal/config/source"
)

func TestNewValidator(t *testing.T) {
	v := NewValidator()
	assert.NotEmpty(t, v.rules)
}

func TestValidationResult_IsValid(t *testing.T) {
	tests := []struct {
		name   string
		errors []ValidationError
		want   bool
	}{
		{"no errors", nil, true},
		{"empty errors", []ValidationError{}, true},
		{"has errors", []ValidationError{{Field: "test", Message: "error"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &ValidationResult{Errors: tt.errors}
			assert.Equal(t, tt.want, r.IsValid())
		})
	}
}

func TestValidate_Defaults(t *testing.T) {
	result := ValidateConfig(source.GetDefaultConfig())
	assert.True(t, result.IsValid(), result.Error())
}

func TestValidate_Rules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *schema.Root)
		field  string
	}{
		{"bad log level", func(c *schema.Root) { c.Log.Level = "verbose" }, "log.level"},
		{"file output without path", func(c *schema.Root) { c.Log.Output = schema.LogOutputFile }, "log.file"},
		{"zero buffer", func(c *schema.Root) { c.Stream.BufferSize = 0 }, "stream.buffer_size"},
		{"max line too large", func(c *schema.Root) { c.Stream.MaxLine = 70000 }, "stream.max_line"},
		{"max line zero", func(c *schema.Root) { c.Stream.MaxLine = 0 }, "stream.max_line"},
		{"bad bps", func(c *schema.Root) { c.Engine.OutputBPS = 12 }, "engine.output_bps"},
		{"bad flip", func(c *schema.Root) { c.Engine.UserFlip = 2 }, "engine.user_flip"},
		{"bad backend", func(c *schema.Root) { c.Metrics.Backend = "statsd" }, "metrics.backend"},
		{"listen without prometheus", func(c *schema.Root) { c.Metrics.Listen = ":9090" }, "metrics.listen"},
		{"zero workers", func(c *schema.Root) { c.Batch.Workers = 0 }, "batch.workers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := source.GetDefaultConfig()
			tt.mutate(cfg)

			result := ValidateConfig(cfg)
			if assert.False(t, result.IsValid()) {
				assert.Equal(t, tt.field, result.Errors[0].Field)
				assert.Contains(t, result.Error(), tt.field)
			}
		})
	}
}

func TestValidate_MetricsDisabledSkipsBackend(t *testing.T) {
	cfg := source.GetDefaultConfig()
	cfg.Metrics.Enabled = false
	cfg.Metrics.Backend = "anything"
	assert.True(t, ValidateConfig(cfg).IsValid())
}
