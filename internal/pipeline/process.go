package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/MeKo-Tech/peoplecount/internal/detector"
	"github.com/MeKo-Tech/peoplecount/internal/metrics"
	"github.com/MeKo-Tech/peoplecount/internal/utils"
)

// ErrNotInitialized is returned when a Pipeline was not built with a Builder.
var ErrNotInitialized = errors.New("pipeline not initialized")

// DetectImage preprocesses img and runs zone-aware detection on the mask.
func (p *Pipeline) DetectImage(img image.Image) (*DetectionResult, error) {
	return p.DetectImageContext(context.Background(), img)
}

// DetectImageContext is DetectImage with cancellation checked between stages.
func (p *Pipeline) DetectImageContext(ctx context.Context, img image.Image) (*DetectionResult, error) {
	if p == nil || p.Preprocessor == nil || p.Detector == nil {
		return nil, ErrNotInitialized
	}
	if img == nil {
		return nil, errors.New("input image is nil")
	}

	res := &DetectionResult{}
	stop := res.Processing.Track(StagePreprocess)
	mask := p.Preprocessor.Apply(img)
	stop()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stop = res.Processing.Track(StageDetect)
	det, err := p.Detector.Detect(mask)
	stop()
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}

	res.Width, res.Height = det.Width, det.Height
	res.Labels = det.Labels
	res.Count = det.Count
	res.Zones = det.Zones
	res.ClosingDelta = det.ClosingDelta
	res.Contours = det.Contours
	res.Areas = det.Areas

	slog.Debug("Image detected",
		"width", res.Width,
		"height", res.Height,
		"count", res.Count,
		"labels", len(res.Labels),
		"duration", res.Processing.Total())
	return res, nil
}

// EvaluateImage detects people in img and scores the labels against the
// ground truth stored for id. An id without annotations is scored against an
// empty set. The returned result carries the error too, so callers that
// collect failures keep the partial report.
func (p *Pipeline) EvaluateImage(id string, img image.Image, truth metrics.GroundTruth) (*EvaluationResult, error) {
	return p.EvaluateImageContext(context.Background(), id, img, truth)
}

// EvaluateImageContext is EvaluateImage with cancellation support.
func (p *Pipeline) EvaluateImageContext(ctx context.Context, id string, img image.Image, truth metrics.GroundTruth) (*EvaluationResult, error) {
	out := &EvaluationResult{ImageID: id}
	if truth == nil {
		return out.fail(errors.New("ground truth is nil"))
	}

	det, err := p.DetectImageContext(ctx, img)
	if err != nil {
		return out.fail(fmt.Errorf("image %s: %w", id, err))
	}
	det.ImageID = id
	out.Detection = det

	stop := det.Processing.Track(StageMatch)
	report, match, err := metrics.Evaluate(detector.LabelPoints(det.Labels), truth, id, p.cfg.MatchThreshold)
	stop()
	out.Match = match
	out.Report = report
	if err != nil {
		return out.fail(err)
	}

	slog.Debug("Image evaluated",
		"image", id,
		"tp", match.TruePositives,
		"fp", match.FalsePositives,
		"fn", match.FalseNegatives,
		"f1", report.F1)
	return out, nil
}

// EvaluateFile loads path and evaluates it under id.
func (p *Pipeline) EvaluateFile(ctx context.Context, id, path string, truth metrics.GroundTruth) (*EvaluationResult, error) {
	img, _, err := utils.LoadImage(path)
	if err != nil {
		out := &EvaluationResult{ImageID: id}
		return out.fail(err)
	}
	return p.EvaluateImageContext(ctx, id, img, truth)
}

func (r *EvaluationResult) fail(err error) (*EvaluationResult, error) {
	r.Err = err
	r.Error = err.Error()
	return r, err
}
