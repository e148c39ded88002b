package detector

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/peoplecount/internal/contour"
)

// Reference geometry for a camera looking down a corridor: rows further from
// the camera appear smaller, so nearer bands require a larger minimum area.
const (
	DefaultFirstBoundary  = 580
	DefaultSecondBoundary = 650
	DefaultMinArea        = 10.0
	DefaultMaxArea        = 100.0
	DefaultAreaThreshold  = 20.0
	DefaultClosingKernel  = 3
)

// DefaultScales are the per-zone multipliers applied to MinArea, top to bottom.
var DefaultScales = [3]float64{1, 15, 30}

// ErrInvalidZones reports unusable zone boundaries or scales.
var ErrInvalidZones = errors.New("detector: invalid zone configuration")

// Config holds detection parameters.
type Config struct {
	FirstBoundary  int        // First row of the middle zone
	SecondBoundary int        // First row of the bottom zone
	Scales         [3]float64 // MinArea multiplier per zone
	MinArea        float64    // Base minimum contour area
	MaxArea        float64    // Maximum contour area, shared by all zones
	AreaThreshold  float64    // Area a contour must exceed to be counted
	ClosingKernel  int        // Kernel size of the closing diagnostic; 0 disables it
	ParallelZones  bool       // Extract zones concurrently
	Backend        string     // Contour backend name
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	return Config{
		FirstBoundary:  DefaultFirstBoundary,
		SecondBoundary: DefaultSecondBoundary,
		Scales:         DefaultScales,
		MinArea:        DefaultMinArea,
		MaxArea:        DefaultMaxArea,
		AreaThreshold:  DefaultAreaThreshold,
		ClosingKernel:  DefaultClosingKernel,
		Backend:        contour.BackendNative,
	}
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if c.FirstBoundary < 0 || c.SecondBoundary < 0 {
		return fmt.Errorf("%w: boundaries must be non-negative, got %d and %d",
			ErrInvalidZones, c.FirstBoundary, c.SecondBoundary)
	}
	if c.FirstBoundary >= c.SecondBoundary {
		return fmt.Errorf("%w: first boundary %d must be below second boundary %d",
			ErrInvalidZones, c.FirstBoundary, c.SecondBoundary)
	}
	for i, s := range c.Scales {
		if s <= 0 {
			return fmt.Errorf("%w: scale %d must be positive, got %v", ErrInvalidZones, i, s)
		}
		if i > 0 && s < c.Scales[i-1] {
			return fmt.Errorf("%w: scales must be non-decreasing, got %v", ErrInvalidZones, c.Scales)
		}
	}
	if c.MinArea < 0 {
		return fmt.Errorf("min area must be non-negative, got %v", c.MinArea)
	}
	if c.MaxArea < c.MinArea {
		return fmt.Errorf("max area %v must not be below min area %v", c.MaxArea, c.MinArea)
	}
	if c.ClosingKernel < 0 {
		return fmt.Errorf("closing kernel must be non-negative, got %d", c.ClosingKernel)
	}
	return nil
}
