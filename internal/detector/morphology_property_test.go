package detector

import (
	"testing"

	"github.com/MeKo-Tech/peoplecount/internal/contour"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func patternMask(width, height, seed int) *contour.Mask {
	m := contour.NewMask(width, height)
	for i := range m.Pix {
		if (i*7+seed)%5 == 0 {
			m.Pix[i] = 255
		}
	}
	return m
}

// TestClose_IsExtensive verifies closing never removes foreground.
func TestClose_IsExtensive(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("closing keeps every foreground pixel", prop.ForAll(
		func(width, height, kernel, seed int) bool {
			m := patternMask(width, height, seed)
			closed := Close(m, kernel)
			for y := 0; y < height; y++ {
				for x := 0; x < width; x++ {
					if m.At(x, y) != 0 && closed.At(x, y) == 0 {
						return false
					}
				}
			}
			return true
		},
		gen.IntRange(1, 30),
		gen.IntRange(1, 30),
		gen.OneConstOf(1, 3, 5),
		gen.IntRange(0, 4),
	))

	properties.TestingRun(t)
}

// TestClose_SizePreservation verifies output dimensions equal input.
func TestClose_SizePreservation(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("closing preserves mask size", prop.ForAll(
		func(width, height, kernel int) bool {
			m := patternMask(width, height, 1)
			result := Close(m, kernel)
			return result.Width == width && result.Height == height && len(result.Pix) == width*height
		},
		gen.IntRange(1, 40),
		gen.IntRange(1, 40),
		gen.OneConstOf(0, 1, 3, 5),
	))

	properties.TestingRun(t)
}
