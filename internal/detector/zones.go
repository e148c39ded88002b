package detector

import "fmt"

// Zone is a horizontal band of rows [Start, End) with its own area scale.
type Zone struct {
	Index     int     `json:"index"`
	Start     int     `json:"start"`
	End       int     `json:"end"`
	AreaScale float64 `json:"area_scale"`
}

// Rows returns the number of rows in the zone.
func (z Zone) Rows() int { return z.End - z.Start }

// Accepts reports whether a contour area passes the zone's filter:
// minArea*AreaScale <= area <= maxArea.
func (z Zone) Accepts(area, minArea, maxArea float64) bool {
	return minArea*z.AreaScale <= area && area <= maxArea
}

func (z Zone) String() string {
	return fmt.Sprintf("zone%d[%d,%d)x%g", z.Index, z.Start, z.End, z.AreaScale)
}

// Zones partitions [0, height) into three contiguous bands at the configured
// boundaries. Boundaries past the mask are clamped, which leaves the lower
// zones empty.
func Zones(height int, cfg Config) ([]Zone, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if height < 0 {
		height = 0
	}
	x1 := min(cfg.FirstBoundary, height)
	x2 := min(cfg.SecondBoundary, height)
	bounds := [4]int{0, x1, x2, height}

	zones := make([]Zone, 3)
	for i := range zones {
		zones[i] = Zone{
			Index:     i,
			Start:     bounds[i],
			End:       bounds[i+1],
			AreaScale: cfg.Scales[i],
		}
	}
	return zones, nil
}
