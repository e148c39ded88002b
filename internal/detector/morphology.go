package detector

import (
	"github.com/MeKo-Tech/peoplecount/internal/contour"
	"github.com/MeKo-Tech/peoplecount/internal/mempool"
)

// Close applies a single morphological closing (dilate then erode) with a
// square kernel and returns a new compact mask. Pixels outside the mask never
// contribute, so borders are neither grown nor eroded by the frame. Kernels
// of size 1 or less return an unchanged copy.
func Close(m *contour.Mask, kernel int) *contour.Mask {
	result := m.Clone()
	if kernel <= 1 {
		return result
	}

	tmp := mempool.GetUint8(len(result.Pix))
	defer mempool.PutUint8(tmp)

	dilate(result.Pix, tmp, result.Width, result.Height, kernel)
	erode(result.Pix, tmp, result.Width, result.Height, kernel)
	return result
}

// ChangedPixels counts positions whose foreground state differs between a and b.
func ChangedPixels(a, b *contour.Mask) int {
	n := 0
	for y := 0; y < min(a.Height, b.Height); y++ {
		for x := 0; x < min(a.Width, b.Width); x++ {
			if (a.At(x, y) != 0) != (b.At(x, y) != 0) {
				n++
			}
		}
	}
	return n
}

// dilate replaces each pixel with the maximum over the kernel window, in place.
func dilate(pix, tmp []uint8, width, height, kernelSize int) {
	half := kernelSize / 2
	copy(tmp, pix)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			maxVal := uint8(0)
			for ky := -half; ky <= half; ky++ {
				ny := y + ky
				if ny < 0 || ny >= height {
					continue
				}
				for kx := -half; kx <= half; kx++ {
					nx := x + kx
					if nx >= 0 && nx < width && tmp[ny*width+nx] > maxVal {
						maxVal = tmp[ny*width+nx]
					}
				}
			}
			pix[y*width+x] = maxVal
		}
	}
}

// erode replaces each pixel with the minimum over the kernel window, in place.
func erode(pix, tmp []uint8, width, height, kernelSize int) {
	half := kernelSize / 2
	copy(tmp, pix)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			minVal := uint8(255)
			for ky := -half; ky <= half; ky++ {
				ny := y + ky
				if ny < 0 || ny >= height {
					continue
				}
				for kx := -half; kx <= half; kx++ {
					nx := x + kx
					if nx >= 0 && nx < width && tmp[ny*width+nx] < minVal {
						minVal = tmp[ny*width+nx]
					}
				}
			}
			pix[y*width+x] = minVal
		}
	}
}
