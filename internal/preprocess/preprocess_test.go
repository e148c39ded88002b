package preprocess

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grayImage(w, h int, fill func(x, y int) uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: fill(x, y)})
		}
	}
	return img
}

func TestNew(t *testing.T) {
	p, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, MethodCanny, p.Method())

	p, err = New(Config{Method: " HistEq "})
	require.NoError(t, err)
	assert.Equal(t, MethodHistEq, p.Method())

	_, err = New(Config{Method: "sobel"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown method")

	_, err = New(Config{Method: MethodCanny, CannyLow: 100, CannyHigh: 50})
	assert.Error(t, err)
}

func TestApply_None(t *testing.T) {
	img := grayImage(4, 4, func(x, y int) uint8 {
		if x == y {
			return 200
		}
		return 0
	})
	p, err := New(Config{Method: MethodNone})
	require.NoError(t, err)

	m := p.Apply(img)
	assert.Equal(t, 4, m.Foreground())
	assert.NotZero(t, m.At(2, 2))
	assert.Zero(t, m.At(1, 2))
}

func TestEqualize(t *testing.T) {
	img := grayImage(4, 1, func(x, _ int) uint8 {
		if x < 2 {
			return 10
		}
		return 20
	})
	eq := Equalize(img)
	assert.Equal(t, []uint8{0, 0, 255, 255}, eq.Pix)

	flat := grayImage(3, 3, func(int, int) uint8 { return 90 })
	assert.Equal(t, uint8(90), Equalize(flat).Pix[4], "constant image is unchanged")
}

func TestHistEqualize_Threshold(t *testing.T) {
	img := grayImage(4, 1, func(x, _ int) uint8 { return uint8(10 + x) })
	// Levels 10..13 equalise to 0, 85, 170, 255.
	m := HistEqualize(img, 50)
	assert.Zero(t, m.At(0, 0))
	assert.NotZero(t, m.At(1, 0))
	assert.NotZero(t, m.At(3, 0))

	bright := grayImage(2, 2, func(int, int) uint8 { return 100 })
	assert.Equal(t, 4, HistEqualize(bright, 50).Foreground())
	dark := grayImage(2, 2, func(int, int) uint8 { return 30 })
	assert.Equal(t, 0, HistEqualize(dark, 50).Foreground())
}

func TestLaplacian(t *testing.T) {
	img := grayImage(5, 5, func(x, y int) uint8 {
		if x == 2 && y == 2 {
			return 200
		}
		return 0
	})
	m := Laplacian(img, 50)
	assert.Equal(t, 5, m.Foreground())
	assert.NotZero(t, m.At(2, 2))
	assert.NotZero(t, m.At(2, 1))
	assert.Zero(t, m.At(1, 1), "diagonal neighbours have no response")

	flat := grayImage(5, 5, func(int, int) uint8 { return 120 })
	assert.Zero(t, Laplacian(flat, 50).Foreground())
}

func TestGaussianCanny_VerticalEdge(t *testing.T) {
	img := grayImage(20, 20, func(x, _ int) uint8 {
		if x < 10 {
			return 0
		}
		return 255
	})
	m := GaussianCanny(img, 1.1, 50, 200)
	require.Positive(t, m.Foreground())
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			if m.At(x, y) != 0 {
				assert.True(t, x >= 8 && x <= 11, "edge pixel at column %d", x)
			}
		}
	}
}

func TestGaussianCanny_FlatImageHasNoEdges(t *testing.T) {
	img := grayImage(16, 16, func(int, int) uint8 { return 128 })
	assert.Zero(t, GaussianCanny(img, 1.1, 50, 200).Foreground())
	assert.Zero(t, GaussianCanny(image.NewGray(image.Rect(0, 0, 0, 0)), 1.1, 50, 200).Foreground())
}

func TestApply_AllMethodsPreserveSize(t *testing.T) {
	img := image.NewRGBA(image.Rect(10, 10, 42, 34))
	for _, method := range Methods() {
		p, err := New(Config{Method: method, BlurSigma: 1.1, CannyLow: 50, CannyHigh: 200, Threshold: 50})
		require.NoError(t, err)
		m := p.Apply(img)
		assert.Equal(t, 32, m.Width, method)
		assert.Equal(t, 24, m.Height, method)
	}
}
