package metrics

import (
	"github.com/MeKo-Tech/peoplecount/internal/matching"
)

// Summary accumulates counts over many images.
type Summary struct {
	Images         int     `json:"images"`
	Failed         int     `json:"failed"`
	TruePositives  int     `json:"tp"`
	FalsePositives int     `json:"fp"`
	FalseNegatives int     `json:"fn"`
	sumSquared     float64 // sum of per-pair squared errors
}

// Add folds one image's match result into the summary.
func (s *Summary) Add(m matching.Result) {
	s.Images++
	s.TruePositives += m.TruePositives
	s.FalsePositives += m.FalsePositives
	s.FalseNegatives += m.FalseNegatives
	s.sumSquared += m.MeanSquaredError * float64(m.TruePositives)
}

// AddFailure records an image that could not be evaluated.
func (s *Summary) AddFailure() { s.Failed++ }

// Report returns micro-averaged scores over all added images.
func (s *Summary) Report() (Report, error) {
	m := matching.Result{
		TruePositives:  s.TruePositives,
		FalsePositives: s.FalsePositives,
		FalseNegatives: s.FalseNegatives,
	}
	if s.TruePositives > 0 {
		m.MeanSquaredError = s.sumSquared / float64(s.TruePositives)
	}
	return FromMatch(m)
}
