package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/MeKo-Tech/peoplecount/internal/batch"
	"github.com/MeKo-Tech/peoplecount/internal/contour"
	"github.com/MeKo-Tech/peoplecount/internal/detector"
	"github.com/MeKo-Tech/peoplecount/internal/matching"
	"github.com/MeKo-Tech/peoplecount/internal/pipeline"
	"github.com/MeKo-Tech/peoplecount/internal/preprocess"
)

var validLogLevels = []string{"debug", "info", "warn", "error"}

// DefaultConfig returns a configuration with the reference parameters.
func DefaultConfig() Config {
	det := detector.DefaultConfig()
	pre := preprocess.DefaultConfig()
	return Config{
		LogLevel: "info",
		Detection: DetectionConfig{
			MinArea:       det.MinArea,
			MaxArea:       det.MaxArea,
			AreaThreshold: det.AreaThreshold,
			ClosingKernel: det.ClosingKernel,
			Backend:       defaultBackend(),
		},
		Zones: ZonesConfig{
			FirstBoundary:  det.FirstBoundary,
			SecondBoundary: det.SecondBoundary,
			Scales:         det.Scales[:],
		},
		Preprocess: PreprocessConfig{
			Method:    pre.Method,
			BlurSigma: float64(pre.BlurSigma),
			CannyLow:  pre.CannyLow,
			CannyHigh: pre.CannyHigh,
			Threshold: int(pre.Threshold),
		},
		Matching: MatchingConfig{Threshold: matching.DefaultThreshold},
		Output: OutputConfig{
			Format:       batch.FormatText,
			OverlayColor: pipeline.DefaultOverlayColor,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     50,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
		},
		Batch: BatchConfig{Workers: 4},
	}
}

func defaultBackend() string {
	if contour.GoCVAvailable() {
		return contour.BackendGoCV
	}
	return contour.BackendNative
}

// Validate validates the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}
	if c.Output.Format != "" && !slices.Contains(batch.Formats(), c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)",
			c.Output.Format, strings.Join(batch.Formats(), ", "))
	}
	if !slices.Contains(preprocess.Methods(), c.Preprocess.Method) {
		return fmt.Errorf("invalid preprocess method: %s (must be one of: %s)",
			c.Preprocess.Method, strings.Join(preprocess.Methods(), ", "))
	}
	if c.Preprocess.Threshold < 0 || c.Preprocess.Threshold > 254 {
		return fmt.Errorf("invalid preprocess threshold: %d (must be between 0 and 254)", c.Preprocess.Threshold)
	}
	if len(c.Zones.Scales) != 3 {
		return fmt.Errorf("%w: invalid zones.scales: need 3 values, got %d",
			detector.ErrInvalidZones, len(c.Zones.Scales))
	}
	if c.Zones.FirstBoundary <= 0 {
		return fmt.Errorf("%w: invalid zones.first_boundary: %d (must be positive)",
			detector.ErrInvalidZones, c.Zones.FirstBoundary)
	}
	if err := c.ToDetectorConfig().Validate(); err != nil {
		return err
	}
	if c.Matching.Threshold <= 0 {
		return errors.New("matching.threshold must be positive")
	}
	if _, err := pipeline.ParseOverlayColor(c.Output.OverlayColor); err != nil {
		return err
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}
	return nil
}

// ToDetectorConfig converts to the detector's configuration. Missing scales
// keep their defaults.
func (c *Config) ToDetectorConfig() detector.Config {
	cfg := detector.Config{
		FirstBoundary:  c.Zones.FirstBoundary,
		SecondBoundary: c.Zones.SecondBoundary,
		Scales:         detector.DefaultScales,
		MinArea:        c.Detection.MinArea,
		MaxArea:        c.Detection.MaxArea,
		AreaThreshold:  c.Detection.AreaThreshold,
		ClosingKernel:  c.Detection.ClosingKernel,
		ParallelZones:  c.Detection.ParallelZones,
		Backend:        c.Detection.Backend,
	}
	copy(cfg.Scales[:], c.Zones.Scales)
	return cfg
}

// ToPreprocessConfig converts to the preprocessor's configuration.
func (c *Config) ToPreprocessConfig() preprocess.Config {
	return preprocess.Config{
		Method:    c.Preprocess.Method,
		BlurSigma: float32(c.Preprocess.BlurSigma),
		CannyLow:  c.Preprocess.CannyLow,
		CannyHigh: c.Preprocess.CannyHigh,
		Threshold: uint8(min(max(c.Preprocess.Threshold, 0), 255)), //nolint:gosec // clamped
	}
}

// ToPipelineConfig converts the config to the pipeline configuration.
func (c *Config) ToPipelineConfig() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	cfg.Preprocess = c.ToPreprocessConfig()
	cfg.Detector = c.ToDetectorConfig()
	cfg.MatchThreshold = c.Matching.Threshold
	if c.Batch.Workers > 0 {
		cfg.Parallel.MaxWorkers = c.Batch.Workers
	}
	return cfg
}

// ToBatchConfig converts the config to a batch evaluation configuration.
func (c *Config) ToBatchConfig() *batch.Config {
	return &batch.Config{
		Pipeline:        c.ToPipelineConfig(),
		Format:          c.Output.Format,
		OutputFile:      c.Output.File,
		OverlayDir:      c.Output.OverlayDir,
		OverlayColor:    c.Output.OverlayColor,
		Workers:         c.Batch.Workers,
		ContinueOnError: c.Batch.ContinueOnError,
		Recursive:       true,
	}
}
