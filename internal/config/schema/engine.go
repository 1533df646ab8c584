package schema

// EngineConfig contains processing parameters forwarded to the native engine
type EngineConfig struct {
	HalfSize    bool `yaml:"half_size" json:"half_size"`
	UseCameraWB bool `yaml:"use_camera_wb" json:"use_camera_wb"`
	UserFlip    int  `yaml:"user_flip" json:"user_flip"`   // -1 = use file orientation
	OutputBPS   int  `yaml:"output_bps" json:"output_bps"` // 8 or 16
}
