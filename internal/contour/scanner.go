package contour

import (
	"image"

	"github.com/MeKo-Tech/peoplecount/internal/mempool"
)

// Cell markers written into the label plane while following borders.
const (
	cellForeground int8 = 1
	cellBorder     int8 = 2
	// cellRightBorder marks border pixels whose right neighbour is background.
	cellRightBorder int8 = cellBorder | -128
)

// chainDeltas are the 8-neighbour moves in Freeman order, starting east and
// turning counter-clockwise in image coordinates.
var chainDeltas = [8]image.Point{
	{1, 0}, {1, -1}, {0, -1}, {-1, -1}, {-1, 0}, {-1, 1}, {0, 1}, {1, 1},
}

// scanner holds a padded label plane. The one pixel border of zeros lets the
// follower probe neighbours without bounds checks.
type scanner struct {
	plane  []int8
	stride int
	width  int
	height int
	// offsets are chainDeltas as plane index steps, repeated so a search can
	// run past direction 7 without wrapping.
	offsets [16]int
}

func newScanner(m *Mask) *scanner {
	stride := m.Width + 2
	s := &scanner{
		plane:  mempool.GetInt8(stride * (m.Height + 2)),
		stride: stride,
		width:  m.Width + 1,
		height: m.Height + 1,
	}
	for y := 0; y < m.Height; y++ {
		src := m.Pix[y*m.Stride : y*m.Stride+m.Width]
		dst := s.plane[(y+1)*stride+1:]
		for x, v := range src {
			if v != 0 {
				dst[x] = cellForeground
			}
		}
	}
	for i, d := range chainDeltas {
		s.offsets[i] = d.Y*stride + d.X
		s.offsets[i+8] = s.offsets[i]
	}
	return s
}

func (s *scanner) release() {
	mempool.PutInt8(s.plane)
	s.plane = nil
}

// findExternal returns the outer borders of all 8-connected foreground
// regions in raster order of their first pixel. Regions nested inside holes
// of another region are skipped. Each border keeps only the points where the
// chain direction changes.
func findExternal(m *Mask) []Contour {
	if m.Width == 0 || m.Height == 0 {
		return nil
	}
	s := newScanner(m)
	defer s.release()

	var out []Contour
	for y := 1; y < s.height; y++ {
		row := y * s.stride
		// lastBorder is the column of the most recent border cell on this row.
		lastBorder := 0
		prev := int8(0)
		for x := 1; x < s.width; x++ {
			p := s.plane[row+x]
			if p == prev {
				continue
			}
			if prev == 0 && p == cellForeground && s.plane[row+lastBorder] <= 0 {
				out = append(out, s.follow(row+x, image.Point{X: x - 1, Y: y - 1}))
				lastBorder = x
				prev = s.plane[row+x]
				continue
			}
			prev = p
			if prev&^1 != 0 {
				lastBorder = x
			}
		}
	}
	return out
}

// follow traces one outer border starting at plane index start, marking the
// visited cells so the scan does not pick the region up again.
func (s *scanner) follow(start int, pt image.Point) Contour {
	dir := 4
	endDir := dir
	var i1 int
	for {
		dir = (dir - 1) & 7
		i1 = start + s.offsets[dir]
		if s.plane[i1] != 0 || dir == endDir {
			break
		}
	}

	// The west neighbour of an outer start is always background, so a full
	// turn back to it means the region is a single pixel.
	if dir == endDir {
		s.plane[start] = cellRightBorder
		return Contour{pt}
	}

	var c Contour
	i3 := start
	prevDir := dir ^ 4
	for {
		endDir = dir
		var i4 int
		for dir < 15 {
			dir++
			i4 = i3 + s.offsets[dir]
			if s.plane[i4] != 0 {
				break
			}
		}
		dir &= 7

		if uint(dir-1) < uint(endDir) {
			s.plane[i3] = cellRightBorder
		} else if s.plane[i3] == cellForeground {
			s.plane[i3] = cellBorder
		}

		if dir != prevDir {
			c = append(c, pt)
			prevDir = dir
		}
		pt = pt.Add(chainDeltas[dir])

		if i4 == start && i3 == i1 {
			break
		}
		i3 = i4
		dir = (dir + 4) & 7
	}
	return c
}
