package preprocess

import (
	"image"
	"math"

	"github.com/disintegration/gift"

	"github.com/MeKo-Tech/peoplecount/internal/contour"
)

// tan(22.5°) and tan(67.5°) bound the horizontal and vertical sectors.
const (
	tan22 = 0.41421356237309503
	tan67 = 2.414213562373095
)

// GaussianCanny blurs img and runs Canny edge detection with an L1 Sobel
// gradient on the 0-255 intensity scale. Edge pixels are 255.
func GaussianCanny(img image.Image, sigma float32, low, high float64) *contour.Mask {
	var filters []gift.Filter
	if sigma > 0 {
		filters = append(filters, gift.GaussianBlur(sigma))
	}
	gray := grayscale(img, filters...)
	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()
	out := contour.NewMask(w, h)
	if w == 0 || h == 0 {
		return out
	}

	at := func(x, y int) float64 {
		x = min(max(x, 0), w-1)
		y = min(max(y, 0), h-1)
		return float64(gray.Pix[y*gray.Stride+x])
	}

	gx := make([]float64, w*h)
	gy := make([]float64, w*h)
	mag := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx := (at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1)) -
				(at(x-1, y-1) + 2*at(x-1, y) + at(x-1, y+1))
			dy := (at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)) -
				(at(x-1, y-1) + 2*at(x, y-1) + at(x+1, y-1))
			i := y*w + x
			gx[i], gy[i] = dx, dy
			mag[i] = math.Abs(dx) + math.Abs(dy)
		}
	}

	magAt := func(x, y int) float64 {
		if x < 0 || y < 0 || x >= w || y >= h {
			return 0
		}
		return mag[y*w+x]
	}

	// 0: below low, 1: weak candidate, 2: strong edge
	state := make([]uint8, w*h)
	var stack []int
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			m := mag[i]
			if m <= low {
				continue
			}
			ax, ay := math.Abs(gx[i]), math.Abs(gy[i])
			var keep bool
			switch {
			case ay < ax*tan22:
				keep = m > magAt(x-1, y) && m >= magAt(x+1, y)
			case ay > ax*tan67:
				keep = m > magAt(x, y-1) && m >= magAt(x, y+1)
			case (gx[i] < 0) != (gy[i] < 0):
				keep = m > magAt(x+1, y-1) && m > magAt(x-1, y+1)
			default:
				keep = m > magAt(x-1, y-1) && m > magAt(x+1, y+1)
			}
			if !keep {
				continue
			}
			if m > high {
				state[i] = 2
				stack = append(stack, i)
			} else {
				state[i] = 1
			}
		}
	}

	// Hysteresis: grow strong edges through 8-connected weak candidates.
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out.Pix[i] = 255
		x, y := i%w, i/w
		for ky := -1; ky <= 1; ky++ {
			for kx := -1; kx <= 1; kx++ {
				nx, ny := x+kx, y+ky
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				j := ny*w + nx
				if state[j] == 1 {
					state[j] = 2
					stack = append(stack, j)
				}
			}
		}
	}
	return out
}
