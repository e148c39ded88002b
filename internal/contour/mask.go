package contour

import (
	"image"

	"github.com/disintegration/imaging"
)

// Mask is a single-channel intensity grid. Any non-zero value is foreground.
type Mask struct {
	Width  int
	Height int
	Stride int
	Pix    []uint8
}

// NewMask allocates an all-background mask.
func NewMask(width, height int) *Mask {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Mask{Width: width, Height: height, Stride: width, Pix: make([]uint8, width*height)}
}

// FromGray wraps a grayscale image without copying its pixels.
func FromGray(g *image.Gray) *Mask {
	b := g.Bounds()
	off := g.PixOffset(b.Min.X, b.Min.Y)
	return &Mask{
		Width:  b.Dx(),
		Height: b.Dy(),
		Stride: g.Stride,
		Pix:    g.Pix[off:],
	}
}

// FromImage converts any image to a mask using its luminance.
func FromImage(img image.Image) *Mask {
	if g, ok := img.(*image.Gray); ok {
		return FromGray(g)
	}
	gray := imaging.Grayscale(img)
	b := gray.Bounds()
	m := NewMask(b.Dx(), b.Dy())
	for y := 0; y < m.Height; y++ {
		row := gray.Pix[y*gray.Stride:]
		for x := 0; x < m.Width; x++ {
			m.Pix[y*m.Stride+x] = row[x*4]
		}
	}
	return m
}

// At reports the raw value at (x, y); out-of-range reads are background.
func (m *Mask) At(x, y int) uint8 {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return 0
	}
	return m.Pix[y*m.Stride+x]
}

// Set writes v at (x, y). Out-of-range writes are ignored.
func (m *Mask) Set(x, y int, v uint8) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.Pix[y*m.Stride+x] = v
}

// Rows returns a view of rows [start, end). The view shares storage with m.
// Bounds are clamped to the mask, so an out-of-range request yields an empty view.
func (m *Mask) Rows(start, end int) *Mask {
	start = clamp(start, 0, m.Height)
	end = clamp(end, start, m.Height)
	v := &Mask{Width: m.Width, Height: end - start, Stride: m.Stride}
	if end > start {
		v.Pix = m.Pix[start*m.Stride : (end-1)*m.Stride+m.Width]
	}
	return v
}

// Foreground counts the non-zero pixels.
func (m *Mask) Foreground() int {
	n := 0
	for y := 0; y < m.Height; y++ {
		row := m.Pix[y*m.Stride : y*m.Stride+m.Width]
		for _, v := range row {
			if v != 0 {
				n++
			}
		}
	}
	return n
}

// Clone returns a compact deep copy.
func (m *Mask) Clone() *Mask {
	c := NewMask(m.Width, m.Height)
	for y := 0; y < m.Height; y++ {
		copy(c.Pix[y*c.Stride:(y+1)*c.Stride], m.Pix[y*m.Stride:y*m.Stride+m.Width])
	}
	return c
}

// Gray renders the mask as a grayscale image, foreground at 255.
func (m *Mask) Gray() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.Pix[y*m.Stride+x] != 0 {
				g.Pix[y*g.Stride+x] = 255
			}
		}
	}
	return g
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
