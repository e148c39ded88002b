package pipeline

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/MeKo-Tech/peoplecount/internal/utils"
)

// DefaultOverlayColor is the contour colour used when none is configured.
const DefaultOverlayColor = "#FF0000"

// OverlayOptions controls RenderOverlay.
type OverlayOptions struct {
	// Color draws contours and centroid crosses.
	Color color.Color
	// TruthColor draws ground-truth circles; defaults to the complement of Color.
	TruthColor color.Color
	// Truth points are drawn as circles of radius TruthRadius when set.
	Truth       []utils.Point
	TruthRadius int
	Thickness   int
	MarkerSize  int
}

// ParseOverlayColor parses a "#RRGGBB" colour. An empty string selects
// DefaultOverlayColor.
func ParseOverlayColor(hex string) (colorful.Color, error) {
	if hex == "" {
		hex = DefaultOverlayColor
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return colorful.Color{}, fmt.Errorf("overlay color %q: %w", hex, err)
	}
	return c, nil
}

// Complement rotates the hue of c by 180 degrees.
func Complement(c color.Color) color.Color {
	cf, ok := colorful.MakeColor(c)
	if !ok {
		return color.White
	}
	h, s, v := cf.Hsv()
	return colorful.Hsv(math.Mod(h+180, 360), s, v).Clamped()
}

// RenderOverlay draws detected contours, centroid crosses and optional
// ground-truth circles over a copy of img.
func RenderOverlay(img image.Image, res *DetectionResult, opts OverlayOptions) *image.RGBA {
	if img == nil {
		return nil
	}
	dst := utils.ToRGBA(img)
	if res == nil {
		return dst
	}

	if opts.Color == nil {
		c, _ := ParseOverlayColor("")
		opts.Color = c
	}
	if opts.TruthColor == nil {
		opts.TruthColor = Complement(opts.Color)
	}
	if opts.Thickness <= 0 {
		opts.Thickness = 1
	}
	if opts.MarkerSize <= 0 {
		opts.MarkerSize = 3
	}
	if opts.TruthRadius <= 0 {
		opts.TruthRadius = 5
	}

	for _, c := range res.Contours {
		utils.DrawPolygon(dst, c, opts.Color, opts.Thickness)
	}
	for _, l := range res.Labels {
		utils.DrawCross(dst, image.Pt(l.X, l.Y), opts.MarkerSize, opts.Color, opts.Thickness)
	}
	for _, p := range opts.Truth {
		utils.DrawCircle(dst, p.Round(), opts.TruthRadius, opts.TruthColor, opts.Thickness)
	}
	return dst
}
