package utils

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

var red = color.RGBA{R: 255, A: 255}

func TestDrawPolygon(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 10, 10))
	DrawPolygon(dst, []image.Point{{1, 1}, {1, 5}, {5, 5}, {5, 1}}, red, 1)

	assert.Equal(t, red, dst.RGBAAt(1, 3))
	assert.Equal(t, red, dst.RGBAAt(3, 5))
	assert.Equal(t, red, dst.RGBAAt(3, 1), "closing edge drawn")
	assert.Equal(t, color.RGBA{}, dst.RGBAAt(3, 3), "interior untouched")
}

func TestDrawPolygon_SingleVertexAndOutOfBounds(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 5, 5))
	DrawPolygon(dst, []image.Point{{2, 2}}, red, 1)
	assert.Equal(t, red, dst.RGBAAt(2, 2))

	assert.NotPanics(t, func() {
		DrawPolygon(dst, []image.Point{{-10, -10}, {20, 20}}, red, 3)
		DrawPolygon(dst, nil, red, 1)
	})
}

func TestDrawCrossAndCircle(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 21, 21))
	DrawCross(dst, image.Pt(10, 10), 3, red, 1)
	assert.Equal(t, red, dst.RGBAAt(7, 10))
	assert.Equal(t, red, dst.RGBAAt(10, 13))
	assert.Equal(t, color.RGBA{}, dst.RGBAAt(8, 8))

	DrawCircle(dst, image.Pt(10, 10), 6, red, 1)
	assert.Equal(t, red, dst.RGBAAt(16, 10))
	assert.Equal(t, red, dst.RGBAAt(4, 10))
}

func TestToRGBA_NormalisesOrigin(t *testing.T) {
	src := image.NewGray(image.Rect(5, 5, 8, 9))
	src.SetGray(5, 5, color.Gray{Y: 200})
	out := ToRGBA(src)
	assert.Equal(t, image.Rect(0, 0, 3, 4), out.Bounds())
	assert.Equal(t, uint8(200), out.RGBAAt(0, 0).R)
}

func TestPointDistance(t *testing.T) {
	p := Point{X: 0, Y: 0}
	q := Point{X: 3, Y: 4}
	assert.InDelta(t, 25.0, p.SquaredDistance(q), 1e-12)
	assert.InDelta(t, 5.0, p.Distance(q), 1e-12)
	assert.Equal(t, image.Pt(3, 4), Point{X: 2.6, Y: 4.4}.Round())
	assert.Equal(t, Point{X: 7, Y: 9}, Pt(image.Pt(7, 9)))
}
