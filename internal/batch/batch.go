// Package batch evaluates many images against a ground-truth file and
// formats the per-image and aggregated scores.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/MeKo-Tech/peoplecount/internal/groundtruth"
	"github.com/MeKo-Tech/peoplecount/internal/pipeline"
)

// Evaluate discovers images under paths, evaluates them in parallel against
// truth and aggregates the scores. Per-image failures abort the run unless
// ContinueOnError is set, in which case they are reported in the result.
func Evaluate(ctx context.Context, paths []string, truth groundtruth.Set, config *Config) (*Result, error) {
	if config == nil {
		config = DefaultConfig()
	}
	files, err := discoverImageFiles(paths, config.Recursive, config.IncludePatterns, config.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover image files: %w", err)
	}
	if len(files) == 0 {
		return nil, errors.New("no image files found")
	}

	var progress pipeline.ProgressCallback
	switch {
	case config.Quiet:
	case config.ShowProgress:
		progress = pipeline.NewConsoleProgressCallback(config.ProgressWriter, "Evaluating: ")
	default:
		progress = pipeline.NewLogProgressCallback(nil, 10)
	}

	pl, err := buildPipeline(config, progress)
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	items := make([]pipeline.Item, len(files))
	for i, f := range files {
		items[i] = pipeline.Item{ID: filepath.Base(f), Path: f}
	}

	start := time.Now()
	results, err := pl.EvaluateImagesParallel(ctx, items, truth, pl.Config().Parallel)
	duration := time.Since(start)
	if err != nil {
		if ctx.Err() != nil || !config.ContinueOnError {
			return nil, fmt.Errorf("batch evaluation failed: %w", err)
		}
		slog.Warn("Some images failed", "error", err)
	}

	if config.OverlayDir != "" {
		if err := writeOverlays(results, files, truth, config); err != nil {
			return nil, err
		}
	}

	return &Result{
		Results:     results,
		ImagePaths:  files,
		Summary:     pipeline.Summarize(results),
		Duration:    duration,
		WorkerCount: pl.Config().Parallel.MaxWorkers,
	}, nil
}

// buildPipeline creates a pipeline from the batch configuration.
func buildPipeline(config *Config, progress pipeline.ProgressCallback) (*pipeline.Pipeline, error) {
	return pipeline.NewBuilder().
		WithConfig(config.Pipeline).
		WithParallelWorkers(config.Workers).
		WithProgressCallback(progress).
		Build()
}
