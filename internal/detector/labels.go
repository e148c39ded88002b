package detector

import (
	"github.com/MeKo-Tech/peoplecount/internal/contour"
	"github.com/MeKo-Tech/peoplecount/internal/utils"
)

// PersonLabel is the name attached to every detection.
const PersonLabel = "Person"

// Label is a point detection at a contour centroid.
type Label struct {
	Name string `json:"label_name" yaml:"label_name"`
	X    int    `json:"label_x"    yaml:"label_x"`
	Y    int    `json:"label_y"    yaml:"label_y"`
}

// Point returns the label position for matching.
func (l Label) Point() utils.Point {
	return utils.Point{X: float64(l.X), Y: float64(l.Y)}
}

// LabelPoints converts labels to points, preserving order.
func LabelPoints(labels []Label) []utils.Point {
	pts := make([]utils.Point, len(labels))
	for i, l := range labels {
		pts[i] = l.Point()
	}
	return pts
}

// BuildDetections emits one label per contour with a non-zero zeroth moment
// and, independently, counts contours whose area exceeds areaThreshold.
// A contour can be counted without producing a label and vice versa.
func BuildDetections(contours []contour.Contour, areaThreshold float64) ([]Label, int) {
	labels := make([]Label, 0, len(contours))
	count := 0
	for _, c := range contours {
		if contour.Area(c) > areaThreshold {
			count++
		}
		center, ok := contour.Centroid(c)
		if !ok {
			continue
		}
		labels = append(labels, Label{Name: PersonLabel, X: center.X, Y: center.Y})
	}
	return labels, count
}
