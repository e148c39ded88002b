package batch

import (
	"fmt"
	"io"
	"time"

	"github.com/MeKo-Tech/peoplecount/internal/metrics"
	"github.com/MeKo-Tech/peoplecount/internal/pipeline"
)

// Config holds all configuration for a batch evaluation run.
type Config struct {
	Pipeline pipeline.Config

	// Output settings
	Format       string
	OutputFile   string
	OverlayDir   string
	OverlayColor string

	// Parallel processing settings
	Workers         int
	ContinueOnError bool

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Progress settings
	ShowProgress bool
	Quiet        bool
	ShowStats    bool
	// ProgressWriter receives the progress bar; nil means stderr.
	ProgressWriter io.Writer
}

// DefaultConfig returns batch settings around the default pipeline.
func DefaultConfig() *Config {
	return &Config{
		Pipeline:     pipeline.DefaultConfig(),
		Format:       FormatText,
		OverlayColor: pipeline.DefaultOverlayColor,
		Workers:      4,
		Recursive:    true,
	}
}

// Result holds the result of a batch evaluation.
type Result struct {
	Results     []*pipeline.EvaluationResult
	ImagePaths  []string
	Summary     *metrics.Summary
	Duration    time.Duration
	WorkerCount int
}

// FormatResults renders per-image results and the summary in format.
func (r *Result) FormatResults(format string) (string, error) {
	return formatEvaluation(r.Results, r.ImagePaths, r.Summary, format)
}

// WriteResults writes the formatted results to w.
func (r *Result) WriteResults(w io.Writer, format string) error {
	out, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}

// PrintStats writes throughput statistics to w.
func (r *Result) PrintStats(w io.Writer) {
	stats := pipeline.CalculateParallelStats(r.Results, r.Duration, r.WorkerCount)
	_, _ = fmt.Fprintf(w, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Total images: %d\n", stats.TotalImages)
	_, _ = fmt.Fprintf(w, "  Scored: %d\n", stats.ScoredImages)
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", stats.FailedImages)
	_, _ = fmt.Fprintf(w, "  Workers: %d\n", stats.WorkerCount)
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", stats.TotalDuration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  Avg per image: %v\n", stats.AveragePerImage.Round(time.Microsecond))
	_, _ = fmt.Fprintf(w, "  Throughput: %.1f images/sec\n", stats.ThroughputPerSec)
}
