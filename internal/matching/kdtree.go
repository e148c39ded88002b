package matching

import (
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/MeKo-Tech/peoplecount/internal/utils"
)

// indexedPoint is a prediction that remembers its position in the input slice.
type indexedPoint struct {
	utils.Point
	index int
}

func (p indexedPoint) coord(d kdtree.Dim) float64 {
	if d == 0 {
		return p.X
	}
	return p.Y
}

// Compare implements kdtree.Comparable.
func (p indexedPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(indexedPoint)
	return p.coord(d) - q.coord(d)
}

// Dims implements kdtree.Comparable.
func (p indexedPoint) Dims() int { return 2 }

// Distance implements kdtree.Comparable and returns the squared distance.
func (p indexedPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(indexedPoint)
	return p.SquaredDistance(q.Point)
}

// indexedPoints implements kdtree.Interface.
type indexedPoints []indexedPoint

func (p indexedPoints) Index(i int) kdtree.Comparable { return p[i] }
func (p indexedPoints) Len() int                      { return len(p) }
func (p indexedPoints) Pivot(d kdtree.Dim) int {
	return plane{points: p, dim: d}.Pivot()
}
func (p indexedPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// plane sorts points along one dimension for median partitioning.
type plane struct {
	points indexedPoints
	dim    kdtree.Dim
}

func (p plane) Len() int { return len(p.points) }
func (p plane) Less(i, j int) bool {
	return p.points[i].coord(p.dim) < p.points[j].coord(p.dim)
}
func (p plane) Swap(i, j int) { p.points[i], p.points[j] = p.points[j], p.points[i] }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	return plane{points: p.points[start:end], dim: p.dim}
}
func (p plane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }

// index is a static nearest-neighbour index over predicted points.
type index struct {
	tree *kdtree.Tree
}

func newIndex(points []utils.Point) *index {
	// kdtree.New reorders its input in place.
	pts := make(indexedPoints, len(points))
	for i, p := range points {
		pts[i] = indexedPoint{Point: p, index: i}
	}
	return &index{tree: kdtree.New(pts, false)}
}

// nearest returns the input index of the closest point and its Euclidean distance.
func (ix *index) nearest(q utils.Point) (int, float64) {
	c, d := ix.tree.Nearest(indexedPoint{Point: q, index: -1})
	if c == nil {
		return -1, 0
	}
	return c.(indexedPoint).index, math.Sqrt(d)
}
