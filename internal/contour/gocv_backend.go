//go:build gocv

package contour

import (
	"cmp"
	"image"
	"log/slog"
	"slices"

	"gocv.io/x/gocv"
)

func newGoCVFinder() (Finder, error) { return gocvFinder{}, nil }

// GoCVAvailable reports whether the OpenCV finder is linked.
func GoCVAvailable() bool { return true }

type gocvFinder struct{}

func (gocvFinder) Name() string { return BackendGoCV }

func (gocvFinder) FindExternal(m *Mask) []Contour {
	if m.Width == 0 || m.Height == 0 {
		return nil
	}
	data := make([]byte, m.Width*m.Height)
	for y := 0; y < m.Height; y++ {
		row := m.Pix[y*m.Stride : y*m.Stride+m.Width]
		for x, v := range row {
			if v != 0 {
				data[y*m.Width+x] = 255
			}
		}
	}
	mat, err := gocv.NewMatFromBytes(m.Height, m.Width, gocv.MatTypeCV8UC1, data)
	if err != nil {
		slog.Warn("gocv mat conversion failed", "error", err)
		return nil
	}
	defer mat.Close()

	pvs := gocv.FindContours(mat, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer pvs.Close()

	out := make([]Contour, 0, pvs.Size())
	for i := 0; i < pvs.Size(); i++ {
		pts := pvs.At(i).ToPoints()
		c := make(Contour, len(pts))
		for j, p := range pts {
			c[j] = image.Point{X: p.X, Y: p.Y}
		}
		out = append(out, c)
	}
	// Each contour starts at its region's first pixel in raster order, so
	// sorting on the start point restores discovery order.
	slices.SortStableFunc(out, func(a, b Contour) int {
		if len(a) == 0 || len(b) == 0 {
			return cmp.Compare(len(b), len(a))
		}
		if c := cmp.Compare(a[0].Y, b[0].Y); c != 0 {
			return c
		}
		return cmp.Compare(a[0].X, b[0].X)
	})
	return out
}
