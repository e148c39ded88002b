//nolint:lll
package config

// Config represents the complete configuration for the peoplecount application.
// It covers every command (detect, evaluate, match, serve) and is loaded from
// configuration files, environment variables and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Detection  DetectionConfig  `mapstructure:"detection" yaml:"detection" json:"detection"`
	Zones      ZonesConfig      `mapstructure:"zones" yaml:"zones" json:"zones"`
	Preprocess PreprocessConfig `mapstructure:"preprocess" yaml:"preprocess" json:"preprocess"`
	Matching   MatchingConfig   `mapstructure:"matching" yaml:"matching" json:"matching"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`

	// Batch evaluation configuration
	Batch BatchConfig `mapstructure:"batch" yaml:"batch" json:"batch"`
}

// DetectionConfig contains contour filtering and counting settings.
type DetectionConfig struct {
	MinArea       float64 `mapstructure:"min_area" yaml:"min_area" json:"min_area"`
	MaxArea       float64 `mapstructure:"max_area" yaml:"max_area" json:"max_area"`
	AreaThreshold float64 `mapstructure:"area_threshold" yaml:"area_threshold" json:"area_threshold"`
	ClosingKernel int     `mapstructure:"closing_kernel" yaml:"closing_kernel" json:"closing_kernel"`
	Backend       string  `mapstructure:"backend" yaml:"backend" json:"backend"`
	ParallelZones bool    `mapstructure:"parallel_zones" yaml:"parallel_zones" json:"parallel_zones"`
}

// ZonesConfig contains the perspective bands of the image.
type ZonesConfig struct {
	FirstBoundary  int       `mapstructure:"first_boundary" yaml:"first_boundary" json:"first_boundary"`
	SecondBoundary int       `mapstructure:"second_boundary" yaml:"second_boundary" json:"second_boundary"`
	Scales         []float64 `mapstructure:"scales" yaml:"scales" json:"scales"`
}

// PreprocessConfig contains mask generation settings.
type PreprocessConfig struct {
	Method    string  `mapstructure:"method" yaml:"method" json:"method"`
	BlurSigma float64 `mapstructure:"blur_sigma" yaml:"blur_sigma" json:"blur_sigma"`
	CannyLow  float64 `mapstructure:"canny_low" yaml:"canny_low" json:"canny_low"`
	CannyHigh float64 `mapstructure:"canny_high" yaml:"canny_high" json:"canny_high"`
	Threshold int     `mapstructure:"threshold" yaml:"threshold" json:"threshold"`
}

// MatchingConfig contains ground-truth matching settings.
type MatchingConfig struct {
	Threshold float64 `mapstructure:"threshold" yaml:"threshold" json:"threshold"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format       string `mapstructure:"format" yaml:"format" json:"format"`
	File         string `mapstructure:"file" yaml:"file" json:"file"`
	OverlayDir   string `mapstructure:"overlay_dir" yaml:"overlay_dir" json:"overlay_dir"`
	OverlayColor string `mapstructure:"overlay_color" yaml:"overlay_color" json:"overlay_color"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// BatchConfig contains batch evaluation settings.
type BatchConfig struct {
	Workers         int  `mapstructure:"workers" yaml:"workers" json:"workers"`
	ContinueOnError bool `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
}
