// Package matching scores point detections against ground truth with greedy
// one-to-one nearest-neighbour assignment.
package matching

import (
	"github.com/MeKo-Tech/peoplecount/internal/utils"
)

// DefaultThreshold is the maximum distance in pixels for a true positive.
const DefaultThreshold = 5.0

// Pair links a ground-truth point to the prediction it consumed.
type Pair struct {
	Truth        int     `json:"truth"`
	Predicted    int     `json:"predicted"`
	SquaredError float64 `json:"squared_error"`
}

// Result holds confusion counts and positional error for one image.
type Result struct {
	TruePositives    int     `json:"tp"`
	FalsePositives   int     `json:"fp"`
	FalseNegatives   int     `json:"fn"`
	MeanSquaredError float64 `json:"mse"`
	Pairs            []Pair  `json:"pairs,omitempty"`
}

// Match assigns each ground-truth point, in order, to its single nearest
// prediction when that prediction lies within threshold and has not been
// consumed yet. A truth point whose nearest prediction is taken is a false
// negative; the next nearest is never tried. Predictions left unconsumed are
// false positives.
//
// If either input is empty the result is all zeros, including when the other
// side is non-empty.
//
// Among equidistant predictions the one returned by the k-d tree traversal
// wins. This is stable for a given input order.
func Match(predicted, truth []utils.Point, threshold float64) Result {
	if len(predicted) == 0 || len(truth) == 0 {
		return Result{}
	}

	ix := newIndex(predicted)
	used := make(map[int]struct{}, len(predicted))
	var res Result
	var sumSq float64

	for ti, t := range truth {
		pi, dist := ix.nearest(t)
		if _, taken := used[pi]; pi >= 0 && dist <= threshold && !taken {
			used[pi] = struct{}{}
			sq := t.SquaredDistance(predicted[pi])
			sumSq += sq
			res.TruePositives++
			res.Pairs = append(res.Pairs, Pair{Truth: ti, Predicted: pi, SquaredError: sq})
			continue
		}
		res.FalseNegatives++
	}

	res.FalsePositives = len(predicted) - len(used)
	if res.TruePositives > 0 {
		res.MeanSquaredError = sumSq / float64(res.TruePositives)
	}
	return res
}
