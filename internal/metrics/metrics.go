// Package metrics turns confusion counts into precision, recall, F1 and accuracy.
//
// Precision, recall and F1 resolve a zero denominator to 0. Accuracy does not:
// with no true positives, false positives or false negatives it returns
// ErrZeroDenominator, which callers must handle.
package metrics

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/peoplecount/internal/matching"
	"github.com/MeKo-Tech/peoplecount/internal/utils"
)

// ErrZeroDenominator is returned by Accuracy when tp+fp+fn is zero.
var ErrZeroDenominator = errors.New("metrics: accuracy undefined for zero tp+fp+fn")

// Precision returns tp/(tp+fp), or 0 when the denominator is zero.
func Precision(tp, fp int) float64 {
	if tp+fp == 0 {
		return 0
	}
	return float64(tp) / float64(tp+fp)
}

// Recall returns tp/(tp+fn), or 0 when the denominator is zero.
func Recall(tp, fn int) float64 {
	if tp+fn == 0 {
		return 0
	}
	return float64(tp) / float64(tp+fn)
}

// F1 returns the harmonic mean of precision and recall, or 0 when both are zero.
func F1(precision, recall float64) float64 {
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}

// Accuracy returns tp/(tp+fp+fn).
func Accuracy(tp, fp, fn int) (float64, error) {
	total := tp + fp + fn
	if total == 0 {
		return 0, ErrZeroDenominator
	}
	return float64(tp) / float64(total), nil
}

// Report holds the scores for one image or an aggregate.
type Report struct {
	Precision        float64 `json:"precision"`
	Recall           float64 `json:"recall"`
	F1               float64 `json:"f1"`
	Accuracy         float64 `json:"accuracy"`
	MeanSquaredError float64 `json:"mse"`
	TruePositives    int     `json:"tp"`
	FalsePositives   int     `json:"fp"`
	FalseNegatives   int     `json:"fn"`
}

// FromMatch derives a report from a match result. The report is returned even
// when accuracy is undefined, alongside ErrZeroDenominator.
func FromMatch(m matching.Result) (Report, error) {
	r := Report{
		MeanSquaredError: m.MeanSquaredError,
		TruePositives:    m.TruePositives,
		FalsePositives:   m.FalsePositives,
		FalseNegatives:   m.FalseNegatives,
	}
	r.Precision = Precision(m.TruePositives, m.FalsePositives)
	r.Recall = Recall(m.TruePositives, m.FalseNegatives)
	r.F1 = F1(r.Precision, r.Recall)

	acc, err := Accuracy(m.TruePositives, m.FalsePositives, m.FalseNegatives)
	if err != nil {
		return r, err
	}
	r.Accuracy = acc
	return r, nil
}

// GroundTruth looks up the annotated points of an image. Unknown images have none.
type GroundTruth interface {
	Points(imageID string) []utils.Point
}

// Evaluate matches predictions against the ground truth of imageID and scores
// the result. Because an empty side short-circuits matching to zero counts, an
// image with no predictions or no annotations always fails with
// ErrZeroDenominator.
func Evaluate(predicted []utils.Point, truth GroundTruth, imageID string, threshold float64) (Report, matching.Result, error) {
	m := matching.Match(predicted, truth.Points(imageID), threshold)
	r, err := FromMatch(m)
	if err != nil {
		return r, m, fmt.Errorf("evaluate %s: %w", imageID, err)
	}
	return r, m, nil
}
