package pipeline

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/peoplecount/internal/detector"
	"github.com/MeKo-Tech/peoplecount/internal/matching"
	"github.com/MeKo-Tech/peoplecount/internal/preprocess"
)

// Config holds configuration for the counting pipeline and its stages.
type Config struct {
	Preprocess     preprocess.Config
	Detector       detector.Config
	MatchThreshold float64

	// Parallel processing configuration
	Parallel ParallelConfig
}

// DefaultConfig returns a pipeline config with component defaults.
func DefaultConfig() Config {
	return Config{
		Preprocess:     preprocess.DefaultConfig(),
		Detector:       detector.DefaultConfig(),
		MatchThreshold: matching.DefaultThreshold,
		Parallel:       DefaultParallelConfig(),
	}
}

// Builder constructs a Pipeline with fluent configuration.
type Builder struct {
	cfg Config
}

// NewBuilder creates a new pipeline builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// WithPreprocessMethod selects how images are turned into masks.
func (b *Builder) WithPreprocessMethod(method string) *Builder {
	if method != "" {
		b.cfg.Preprocess.Method = method
	}
	return b
}

// WithCannyThresholds sets the hysteresis thresholds of the canny method.
func (b *Builder) WithCannyThresholds(low, high float64) *Builder {
	if low > 0 {
		b.cfg.Preprocess.CannyLow = low
	}
	if high > 0 {
		b.cfg.Preprocess.CannyHigh = high
	}
	return b
}

// WithZoneBoundaries sets the two row boundaries that split the image into zones.
func (b *Builder) WithZoneBoundaries(first, second int) *Builder {
	b.cfg.Detector.FirstBoundary = first
	b.cfg.Detector.SecondBoundary = second
	return b
}

// WithZoneScales sets the per-zone minimum area multipliers.
func (b *Builder) WithZoneScales(scales [3]float64) *Builder {
	b.cfg.Detector.Scales = scales
	return b
}

// WithAreaRange sets the base minimum and the absolute maximum contour area.
func (b *Builder) WithAreaRange(minArea, maxArea float64) *Builder {
	b.cfg.Detector.MinArea = minArea
	b.cfg.Detector.MaxArea = maxArea
	return b
}

// WithAreaThreshold sets the area above which a contour counts as a person.
func (b *Builder) WithAreaThreshold(th float64) *Builder {
	b.cfg.Detector.AreaThreshold = th
	return b
}

// WithBackend selects the contour finder backend.
func (b *Builder) WithBackend(name string) *Builder {
	b.cfg.Detector.Backend = name
	return b
}

// WithMatchThreshold sets the maximum distance for a true positive.
func (b *Builder) WithMatchThreshold(th float64) *Builder {
	if th > 0 {
		b.cfg.MatchThreshold = th
	}
	return b
}

// WithParallelWorkers sets the number of parallel workers for batch processing.
func (b *Builder) WithParallelWorkers(workers int) *Builder {
	if workers > 0 {
		b.cfg.Parallel.MaxWorkers = workers
	}
	return b
}

// WithProgressCallback sets the progress callback for batch processing.
func (b *Builder) WithProgressCallback(callback ProgressCallback) *Builder {
	b.cfg.Parallel.ProgressCallback = callback
	return b
}

// Config returns a copy of the current config.
func (b *Builder) Config() Config { return b.cfg }

// Validate checks that the configuration looks sane.
func (b *Builder) Validate() error {
	if err := b.cfg.Detector.Validate(); err != nil {
		return err
	}
	if b.cfg.MatchThreshold <= 0 {
		return errors.New("match threshold must be > 0")
	}
	return nil
}

// Build validates the configuration and constructs the stages.
func (b *Builder) Build() (*Pipeline, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	pre, err := preprocess.New(b.cfg.Preprocess)
	if err != nil {
		return nil, fmt.Errorf("create preprocessor: %w", err)
	}
	det, err := detector.NewDetector(b.cfg.Detector)
	if err != nil {
		return nil, fmt.Errorf("create detector: %w", err)
	}
	return &Pipeline{cfg: b.cfg, Preprocessor: pre, Detector: det}, nil
}

// Pipeline wires preprocessing, detection and evaluation together.
type Pipeline struct {
	cfg          Config
	Preprocessor *preprocess.Preprocessor
	Detector     *detector.Detector
}

// Config returns the configuration the pipeline was built with.
func (p *Pipeline) Config() Config { return p.cfg }

// Info returns a short description for logs and health output.
func (p *Pipeline) Info() map[string]any {
	if p == nil {
		return nil
	}
	return map[string]any{
		"preprocess":      p.Preprocessor.Method(),
		"backend":         p.Detector.Backend(),
		"first_boundary":  p.cfg.Detector.FirstBoundary,
		"second_boundary": p.cfg.Detector.SecondBoundary,
		"match_threshold": p.cfg.MatchThreshold,
	}
}
