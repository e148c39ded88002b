package detector

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/MeKo-Tech/peoplecount/internal/contour"
)

// Detector finds person-sized blobs in a binary mask using zone-dependent
// area limits.
type Detector struct {
	config Config
	finder contour.Finder
}

// NewDetector creates a detector with the given configuration.
func NewDetector(config Config) (*Detector, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	finder, err := contour.NewFinder(config.Backend)
	if err != nil {
		return nil, err
	}

	slog.Debug("Initializing detector",
		"first_boundary", config.FirstBoundary,
		"second_boundary", config.SecondBoundary,
		"scales", config.Scales,
		"min_area", config.MinArea,
		"max_area", config.MaxArea,
		"backend", finder.Name())

	return &Detector{config: config, finder: finder}, nil
}

// GetConfig returns a copy of the detector's configuration.
func (d *Detector) GetConfig() Config { return d.config }

// Backend returns the name of the contour backend in use.
func (d *Detector) Backend() string { return d.finder.Name() }

// zoneContours holds the kept contours of one zone in discovery order.
type zoneContours struct {
	stats    ZoneStats
	contours []contour.Contour
	areas    []float64
}

// ExtractContours returns the contours that pass their zone's area filter, in
// full-image coordinates, ordered by zone and then by discovery within the zone.
func (d *Detector) ExtractContours(m *contour.Mask) ([]contour.Contour, error) {
	res, err := d.extract(m)
	if err != nil {
		return nil, err
	}
	var out []contour.Contour
	for _, z := range res {
		out = append(out, z.contours...)
	}
	return out, nil
}

func (d *Detector) extract(m *contour.Mask) ([]zoneContours, error) {
	zones, err := Zones(m.Height, d.config)
	if err != nil {
		return nil, err
	}

	results := make([]zoneContours, len(zones))
	if d.config.ParallelZones {
		var wg sync.WaitGroup
		for i, z := range zones {
			wg.Add(1)
			go func(i int, z Zone) {
				defer wg.Done()
				results[i] = d.extractZone(m, z)
			}(i, z)
		}
		wg.Wait()
	} else {
		for i, z := range zones {
			results[i] = d.extractZone(m, z)
		}
	}

	for _, r := range results {
		slog.Debug("Zone extracted",
			"zone", r.stats.Zone.String(),
			"found", r.stats.Found,
			"kept", r.stats.Kept)
	}
	return results, nil
}

func (d *Detector) extractZone(m *contour.Mask, z Zone) zoneContours {
	out := zoneContours{stats: ZoneStats{Zone: z}}
	if z.Rows() == 0 {
		return out
	}
	found := d.finder.FindExternal(m.Rows(z.Start, z.End))
	out.stats.Found = len(found)
	for _, c := range found {
		c = c.Translate(0, z.Start)
		area := contour.Area(c)
		if !z.Accepts(area, d.config.MinArea, d.config.MaxArea) {
			continue
		}
		out.contours = append(out.contours, c)
		out.areas = append(out.areas, area)
	}
	out.stats.Kept = len(out.contours)
	return out
}

// Detect runs extraction and builds labels and the people count.
func (d *Detector) Detect(m *contour.Mask) (*Result, error) {
	if m == nil {
		return nil, errors.New("detector: nil mask")
	}

	res := &Result{Width: m.Width, Height: m.Height}
	if d.config.ClosingKernel > 1 {
		// Closing is reported only; contours always come from the unmodified mask.
		closed := Close(m, d.config.ClosingKernel)
		res.ClosingDelta = ChangedPixels(m, closed)
		slog.Debug("Closing diagnostic", "changed_pixels", res.ClosingDelta)
	}

	zones, err := d.extract(m)
	if err != nil {
		return nil, err
	}
	for _, z := range zones {
		res.Zones = append(res.Zones, z.stats)
		res.Contours = append(res.Contours, z.contours...)
		res.Areas = append(res.Areas, z.areas...)
	}
	res.Labels, res.Count = BuildDetections(res.Contours, d.config.AreaThreshold)

	slog.Debug("Detection complete",
		"contours", len(res.Contours),
		"labels", len(res.Labels),
		"count", res.Count)
	return res, nil
}
