package pipeline

import (
	"errors"

	"github.com/MeKo-Tech/peoplecount/internal/metrics"
)

// Summarize folds per-image results into micro-averaged totals. Images that
// were matched contribute their counts even when their own accuracy was
// undefined; those and images that never reached matching are also counted
// as failed.
func Summarize(results []*EvaluationResult) *metrics.Summary {
	s := &metrics.Summary{}
	for _, r := range results {
		if r == nil {
			s.AddFailure()
			continue
		}
		if r.Scored() {
			s.Add(r.Match)
		}
		if r.Err != nil {
			s.AddFailure()
		}
	}
	return s
}

// UndefinedAccuracy reports whether err only means the image had nothing to
// score, as opposed to a load or detection failure.
func UndefinedAccuracy(err error) bool {
	return errors.Is(err, metrics.ErrZeroDenominator)
}
