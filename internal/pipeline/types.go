package pipeline

import (
	"image"

	"github.com/MeKo-Tech/peoplecount/internal/common"
	"github.com/MeKo-Tech/peoplecount/internal/contour"
	"github.com/MeKo-Tech/peoplecount/internal/detector"
	"github.com/MeKo-Tech/peoplecount/internal/matching"
	"github.com/MeKo-Tech/peoplecount/internal/metrics"
)

// Stage names recorded in Processing.
const (
	StagePreprocess = "preprocess"
	StageDetect     = "detect"
	StageMatch      = "match"
)

// DetectionResult is the per-image detection output.
type DetectionResult struct {
	ImageID      string               `json:"image,omitempty"`
	Width        int                  `json:"width"`
	Height       int                  `json:"height"`
	Labels       []detector.Label     `json:"labels"`
	Count        int                  `json:"count"`
	Zones        []detector.ZoneStats `json:"zones"`
	ClosingDelta int                  `json:"closing_delta"`
	Contours     []contour.Contour    `json:"-"`
	Areas        []float64            `json:"-"`
	Processing   common.Stages        `json:"processing"`
}

// EvaluationResult couples detection with its score against ground truth.
// Err is set when the image could not be loaded, detected or scored; Report
// is still filled when only accuracy was undefined.
type EvaluationResult struct {
	ImageID   string           `json:"image"`
	Detection *DetectionResult `json:"detection,omitempty"`
	Match     matching.Result  `json:"match"`
	Report    metrics.Report   `json:"report"`
	Err       error            `json:"-"`
	Error     string           `json:"error,omitempty"`
}

// Scored reports whether matching ran for the image.
func (r *EvaluationResult) Scored() bool {
	return r != nil && r.Detection != nil
}

// Item is one image queued for batch evaluation. Image is used when set,
// otherwise the file at Path is loaded by the worker.
type Item struct {
	ID    string
	Path  string
	Image image.Image
}
