package schema

// StreamConfig contains stream adapter settings
type StreamConfig struct {
	BufferSize     int  `yaml:"buffer_size" json:"buffer_size"`           // buffered adapter window in bytes
	MaxLine        int  `yaml:"max_line" json:"max_line"`                 // gets capacity clamp
	Mmap           bool `yaml:"mmap" json:"mmap"`                         // map file sources into memory (unix)
	PageSize       int  `yaml:"page_size" json:"page_size"`               // paged source page size
	PageCachePages int  `yaml:"page_cache_pages" json:"page_cache_pages"` // paged source LRU capacity
}
