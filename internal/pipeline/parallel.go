package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/MeKo-Tech/peoplecount/internal/metrics"
)

// ParallelConfig holds configuration for parallel evaluation.
type ParallelConfig struct {
	MaxWorkers       int               // Number of parallel workers (0 = runtime.NumCPU())
	ProgressCallback ProgressCallback  // Optional progress reporting
	ErrorHandler     func(Item, error) // Optional per-image error handler
}

// DefaultParallelConfig returns sensible defaults for parallel processing.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{MaxWorkers: runtime.NumCPU()}
}

type evalJob struct {
	index int
	item  Item
}

type evalResult struct {
	index  int
	result *EvaluationResult
}

// EvaluateImagesParallel evaluates items on a worker pool and returns results
// in input order. Every item gets a result; failed items carry Err. The
// returned error is the first per-item failure in input order, or the context
// error when evaluation was cancelled.
func (p *Pipeline) EvaluateImagesParallel(
	ctx context.Context,
	items []Item,
	truth metrics.GroundTruth,
	config ParallelConfig,
) ([]*EvaluationResult, error) {
	if len(items) == 0 {
		return nil, errors.New("no images provided")
	}
	if p == nil || p.Detector == nil || p.Preprocessor == nil {
		return nil, ErrNotInitialized
	}

	if config.MaxWorkers <= 0 {
		config.MaxWorkers = runtime.NumCPU()
	}
	if config.MaxWorkers > len(items) {
		config.MaxWorkers = len(items)
	}

	if config.ProgressCallback != nil {
		config.ProgressCallback.OnStart(len(items))
		defer config.ProgressCallback.OnComplete()
	}

	jobs := make(chan evalJob, len(items))
	results := make(chan evalResult, len(items))

	var wg sync.WaitGroup
	for i := 0; i < config.MaxWorkers; i++ {
		wg.Add(1)
		go p.worker(ctx, jobs, results, &wg, truth)
	}

	go func() {
		defer close(jobs)
		for i, it := range items {
			select {
			case jobs <- evalJob{index: i, item: it}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([]*EvaluationResult, len(items))
	processed := 0
	for r := range results {
		ordered[r.index] = r.result
		processed++
		if config.ProgressCallback == nil {
			continue
		}
		if r.result.Err != nil {
			config.ProgressCallback.OnError(r.index, r.result.Err)
		}
		config.ProgressCallback.OnProgress(processed, len(items))
	}

	if err := ctx.Err(); err != nil {
		return ordered, err
	}

	var firstError error
	for i, r := range ordered {
		if r == nil || r.Err == nil {
			continue
		}
		if firstError == nil {
			firstError = fmt.Errorf("image %d (%s): %w", i, r.ImageID, r.Err)
		}
		if config.ErrorHandler != nil {
			config.ErrorHandler(items[i], r.Err)
		}
	}
	return ordered, firstError
}

func (p *Pipeline) worker(
	ctx context.Context,
	jobs <-chan evalJob,
	results chan<- evalResult,
	wg *sync.WaitGroup,
	truth metrics.GroundTruth,
) {
	defer wg.Done()

	for {
		select {
		case job, ok := <-jobs:
			if !ok {
				return
			}
			res := p.evaluateItem(ctx, job.item, truth)
			select {
			case results <- evalResult{index: job.index, result: res}:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (p *Pipeline) evaluateItem(ctx context.Context, it Item, truth metrics.GroundTruth) *EvaluationResult {
	var res *EvaluationResult
	if it.Image != nil {
		res, _ = p.EvaluateImageContext(ctx, it.ID, it.Image, truth)
	} else {
		res, _ = p.EvaluateFile(ctx, it.ID, it.Path, truth)
	}
	return res
}

// ParallelStats holds statistics about a batch run.
type ParallelStats struct {
	TotalImages      int           `json:"total_images"`
	ScoredImages     int           `json:"scored_images"`
	FailedImages     int           `json:"failed_images"`
	WorkerCount      int           `json:"worker_count"`
	TotalDuration    time.Duration `json:"total_duration_ns"`
	AveragePerImage  time.Duration `json:"average_per_image_ns"`
	ThroughputPerSec float64       `json:"throughput_per_sec"`
}

// CalculateParallelStats summarises throughput for a finished batch.
func CalculateParallelStats(results []*EvaluationResult, duration time.Duration, workerCount int) ParallelStats {
	stats := ParallelStats{
		TotalImages:   len(results),
		WorkerCount:   workerCount,
		TotalDuration: duration,
	}
	for _, r := range results {
		if r.Scored() {
			stats.ScoredImages++
		}
		if r == nil || r.Err != nil {
			stats.FailedImages++
		}
	}
	if stats.TotalImages > 0 && duration > 0 {
		stats.AveragePerImage = duration / time.Duration(stats.TotalImages)
		stats.ThroughputPerSec = float64(stats.TotalImages) / duration.Seconds()
	}
	return stats
}
