package detector

import (
	"github.com/MeKo-Tech/peoplecount/internal/contour"
)

// ZoneStats summarises extraction in one zone.
type ZoneStats struct {
	Zone  Zone `json:"zone"`
	Found int  `json:"found"`
	Kept  int  `json:"kept"`
}

// Result holds the output of a detection run.
type Result struct {
	Width    int               `json:"width"`
	Height   int               `json:"height"`
	Contours []contour.Contour `json:"-"`
	Areas    []float64         `json:"areas,omitempty"`
	Labels   []Label           `json:"labels"`
	Count    int               `json:"count"`
	Zones    []ZoneStats       `json:"zones"`
	// ClosingDelta is how many pixels a closing pass would have changed.
	ClosingDelta int `json:"closing_delta"`
}
