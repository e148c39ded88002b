package utils

import (
	"image"
	"image/color"
	"image/draw"
	"math"
)

// ToRGBA returns a mutable RGBA copy of img with its origin at (0, 0).
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// DrawPolygon draws connected line segments and closes the polygon.
// A single vertex is drawn as a dot.
func DrawPolygon(dst *image.RGBA, pts []image.Point, col color.Color, thickness int) {
	switch len(pts) {
	case 0:
		return
	case 1:
		drawThickPoint(dst, pts[0].X, pts[0].Y, col, thickness)
		return
	}
	for i := range pts {
		drawLine(dst, pts[i], pts[(i+1)%len(pts)], col, thickness)
	}
}

// DrawCross draws a plus-shaped marker centred on p.
func DrawCross(dst *image.RGBA, p image.Point, size int, col color.Color, thickness int) {
	drawLine(dst, image.Pt(p.X-size, p.Y), image.Pt(p.X+size, p.Y), col, thickness)
	drawLine(dst, image.Pt(p.X, p.Y-size), image.Pt(p.X, p.Y+size), col, thickness)
}

// DrawCircle draws a circle outline of the given radius around p.
func DrawCircle(dst *image.RGBA, p image.Point, radius int, col color.Color, thickness int) {
	if radius <= 0 {
		drawThickPoint(dst, p.X, p.Y, col, thickness)
		return
	}
	steps := max(16, int(2*math.Pi*float64(radius)))
	prev := image.Pt(p.X+radius, p.Y)
	for i := 1; i <= steps; i++ {
		a := 2 * math.Pi * float64(i) / float64(steps)
		cur := image.Pt(
			p.X+int(math.Round(float64(radius)*math.Cos(a))),
			p.Y+int(math.Round(float64(radius)*math.Sin(a))),
		)
		drawLine(dst, prev, cur, col, thickness)
		prev = cur
	}
}

// drawLine draws a line between two points using a simple Bresenham variant.
func drawLine(dst *image.RGBA, a, b image.Point, col color.Color, thickness int) {
	x0, y0 := a.X, a.Y
	x1, y1 := b.X, b.Y
	dx := int(math.Abs(float64(x1 - x0)))
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -int(math.Abs(float64(y1 - y0)))
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		drawThickPoint(dst, x0, y0, col, thickness)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func drawThickPoint(dst *image.RGBA, x, y int, col color.Color, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	r := (thickness - 1) / 2
	for yy := y - r; yy <= y+r; yy++ {
		for xx := x - r; xx <= x+r; xx++ {
			if image.Pt(xx, yy).In(dst.Bounds()) {
				dst.Set(xx, yy, col)
			}
		}
	}
}
