package contour

import (
	"image"
	"math"
)

// Contour is a closed boundary given by its vertices in traversal order.
type Contour []image.Point

// Translate returns a copy of c shifted by (dx, dy).
func (c Contour) Translate(dx, dy int) Contour {
	out := make(Contour, len(c))
	for i, p := range c {
		out[i] = image.Point{X: p.X + dx, Y: p.Y + dy}
	}
	return out
}

// Bounds returns the smallest rectangle containing every vertex.
func (c Contour) Bounds() image.Rectangle {
	if len(c) == 0 {
		return image.Rectangle{}
	}
	r := image.Rectangle{Min: c[0], Max: c[0]}
	for _, p := range c[1:] {
		r.Min.X = min(r.Min.X, p.X)
		r.Min.Y = min(r.Min.Y, p.Y)
		r.Max.X = max(r.Max.X, p.X)
		r.Max.Y = max(r.Max.Y, p.Y)
	}
	return r
}

// Area is the absolute shoelace area of the polygon through the vertices.
// Fewer than three vertices give zero.
func Area(c Contour) float64 {
	if len(c) < 3 {
		return 0
	}
	var a float64
	prev := c[len(c)-1]
	for _, p := range c {
		a += float64(prev.X)*float64(p.Y) - float64(prev.Y)*float64(p.X)
		prev = p
	}
	return math.Abs(a * 0.5)
}

// Moments holds the spatial moments needed for a centroid.
type Moments struct {
	M00 float64
	M10 float64
	M01 float64
}

// flt32Epsilon is the single-precision machine epsilon.
const flt32Epsilon = 1.1920928955078125e-07

// PolygonMoments integrates the moments over the polygon's interior using
// Green's theorem. The result is orientation independent; a degenerate
// polygon yields all zeros.
func PolygonMoments(c Contour) Moments {
	if len(c) == 0 {
		return Moments{}
	}
	var a00, a10, a01 float64
	last := c[len(c)-1]
	xp, yp := float64(last.X), float64(last.Y)
	for _, p := range c {
		xi, yi := float64(p.X), float64(p.Y)
		dxy := xp*yi - xi*yp
		a00 += dxy
		a10 += dxy * (xp + xi)
		a01 += dxy * (yp + yi)
		xp, yp = xi, yi
	}
	if math.Abs(a00) <= flt32Epsilon {
		return Moments{}
	}
	half, sixth := 0.5, 1.0/6.0
	if a00 < 0 {
		half, sixth = -half, -sixth
	}
	return Moments{M00: a00 * half, M10: a10 * sixth, M01: a01 * sixth}
}

// Centroid returns the truncated center of mass. ok is false when the
// zeroth moment vanishes.
func Centroid(c Contour) (image.Point, bool) {
	m := PolygonMoments(c)
	if m.M00 == 0 {
		return image.Point{}, false
	}
	return image.Point{X: int(m.M10 / m.M00), Y: int(m.M01 / m.M00)}, true
}
