package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/peoplecount/internal/config"
)

// addDetectionFlags registers the flags that tune preprocessing and detection.
// Defaults come from the configuration; a flag only applies when set.
func addDetectionFlags(cmd *cobra.Command) {
	d := config.DefaultConfig()
	f := cmd.Flags()
	f.String("method", d.Preprocess.Method, "preprocessing method (canny, histeq, laplacian, none)")
	f.Float64("canny-low", d.Preprocess.CannyLow, "canny hysteresis low threshold")
	f.Float64("canny-high", d.Preprocess.CannyHigh, "canny hysteresis high threshold")
	f.Int("binary-threshold", d.Preprocess.Threshold, "binary threshold for histeq and laplacian masks")
	f.Int("first-boundary", d.Zones.FirstBoundary, "first row of the middle zone")
	f.Int("second-boundary", d.Zones.SecondBoundary, "first row of the bottom zone")
	f.Float64Slice("scales", d.Zones.Scales, "min-area multipliers for the top, middle and bottom zones")
	f.Float64("min-area", d.Detection.MinArea, "base minimum contour area")
	f.Float64("max-area", d.Detection.MaxArea, "maximum contour area")
	f.Float64("area-threshold", d.Detection.AreaThreshold, "area a contour must exceed to be counted")
	f.String("backend", d.Detection.Backend, "contour backend (native, gocv)")
	f.Bool("parallel-zones", false, "extract zones concurrently")
}

// addOutputFlags registers output selection flags.
func addOutputFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("format", "f", "text", "output format (text, json, csv)")
	f.StringP("output", "o", "", "output file (default: stdout)")
	f.String("overlay-dir", "", "directory to write overlay images")
	f.String("overlay-color", "", "overlay contour color (hex, default #FF0000)")
}

// applyDetectionFlags copies changed detection flags onto cfg.
func applyDetectionFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("method") {
		cfg.Preprocess.Method, _ = f.GetString("method")
	}
	if f.Changed("canny-low") {
		cfg.Preprocess.CannyLow, _ = f.GetFloat64("canny-low")
	}
	if f.Changed("canny-high") {
		cfg.Preprocess.CannyHigh, _ = f.GetFloat64("canny-high")
	}
	if f.Changed("binary-threshold") {
		cfg.Preprocess.Threshold, _ = f.GetInt("binary-threshold")
	}
	if f.Changed("first-boundary") {
		cfg.Zones.FirstBoundary, _ = f.GetInt("first-boundary")
	}
	if f.Changed("second-boundary") {
		cfg.Zones.SecondBoundary, _ = f.GetInt("second-boundary")
	}
	if f.Changed("scales") {
		cfg.Zones.Scales, _ = f.GetFloat64Slice("scales")
	}
	if f.Changed("min-area") {
		cfg.Detection.MinArea, _ = f.GetFloat64("min-area")
	}
	if f.Changed("max-area") {
		cfg.Detection.MaxArea, _ = f.GetFloat64("max-area")
	}
	if f.Changed("area-threshold") {
		cfg.Detection.AreaThreshold, _ = f.GetFloat64("area-threshold")
	}
	if f.Changed("backend") {
		cfg.Detection.Backend, _ = f.GetString("backend")
	}
	if f.Changed("parallel-zones") {
		cfg.Detection.ParallelZones, _ = f.GetBool("parallel-zones")
	}
}

// applyOutputFlags copies changed output flags onto cfg.
func applyOutputFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("format") {
		cfg.Output.Format, _ = f.GetString("format")
	}
	if f.Changed("output") {
		cfg.Output.File, _ = f.GetString("output")
	}
	if f.Changed("overlay-dir") {
		cfg.Output.OverlayDir, _ = f.GetString("overlay-dir")
	}
	if f.Changed("overlay-color") {
		cfg.Output.OverlayColor, _ = f.GetString("overlay-color")
	}
}

// openOutput returns the command's stdout or a created file.
func openOutput(cmd *cobra.Command, file string) (io.Writer, func() error, error) {
	if file == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	if dir := filepath.Dir(file); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, nil, fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.Create(file) //nolint:gosec // G304: user-provided output path
	if err != nil {
		return nil, nil, fmt.Errorf("create output file: %w", err)
	}
	return f, f.Close, nil
}
