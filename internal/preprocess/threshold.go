package preprocess

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/histogram"
	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/gift"

	"github.com/MeKo-Tech/peoplecount/internal/contour"
)

// laplacianKernel is the 4-neighbour Laplacian.
var laplacianKernel = []float32{
	0, 1, 0,
	1, -4, 1,
	0, 1, 0,
}

// binarize keeps pixels strictly above level as foreground.
func binarize(gray *image.Gray, level uint8) *contour.Mask {
	if level == math.MaxUint8 {
		return contour.NewMask(gray.Bounds().Dx(), gray.Bounds().Dy())
	}
	// segment.Threshold keeps pixels at or above its level.
	return contour.FromGray(segment.Threshold(gray, level+1))
}

// Equalize spreads the gray levels of img over the full range using the
// cumulative histogram. The darkest present level maps to 0.
func Equalize(img image.Image) *image.Gray {
	gray := grayscale(img)
	bins := histogram.NewRGBAHistogram(gray).R.Bins

	total, first := 0, -1
	for i, n := range bins {
		total += n
		if first < 0 && n > 0 {
			first = i
		}
	}
	if first < 0 || bins[first] == total {
		return gray
	}

	var lut [256]uint8
	scale := 255.0 / float64(total-bins[first])
	sum := 0
	for i := first + 1; i < len(bins) && i < 256; i++ {
		sum += bins[i]
		lut[i] = uint8(min(255, math.Round(float64(sum)*scale)))
	}
	for i, v := range gray.Pix {
		gray.Pix[i] = lut[v]
	}
	return gray
}

// HistEqualize equalises img and thresholds the result.
func HistEqualize(img image.Image, level uint8) *contour.Mask {
	return binarize(Equalize(img), level)
}

// Laplacian applies a 3x3 Laplacian, takes the absolute response saturated
// to 8 bits and thresholds it.
func Laplacian(img image.Image, level uint8) *contour.Mask {
	gray := grayscale(img, gift.Convolution(laplacianKernel, false, false, true, 0))
	return binarize(gray, level)
}
