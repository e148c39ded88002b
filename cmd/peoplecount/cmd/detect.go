package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/peoplecount/internal/batch"
	"github.com/MeKo-Tech/peoplecount/internal/config"
	"github.com/MeKo-Tech/peoplecount/internal/pipeline"
	"github.com/MeKo-Tech/peoplecount/internal/utils"
)

func newDetectCommand(st *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect [images...]",
		Short: "Detect and count people in images",
		Long: `Detect people in one or more images and print their centroid labels
and the contour count.

The count and the number of labels can differ: labels come from every
contour inside its zone's area range, the count only includes contours
larger than the area threshold.

Supported formats: JPEG, PNG, BMP

Examples:
  peoplecount detect frame.png
  peoplecount detect frame.png --format csv --output labels.csv
  peoplecount detect *.jpg --method none --overlay-dir overlays/`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := st.config()
			if err != nil {
				return err
			}
			applyDetectionFlags(cmd, cfg)
			applyOutputFlags(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid options: %w", err)
			}
			return runDetect(cmd, cfg, args)
		},
	}
	addDetectionFlags(cmd)
	addOutputFlags(cmd)
	return cmd
}

func runDetect(cmd *cobra.Command, cfg *config.Config, images []string) error {
	pl, err := pipeline.NewBuilder().WithConfig(cfg.ToPipelineConfig()).Build()
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}

	var opts pipeline.OverlayOptions
	if cfg.Output.OverlayDir != "" {
		col, err := pipeline.ParseOverlayColor(cfg.Output.OverlayColor)
		if err != nil {
			return err
		}
		opts.Color = col
	}

	out, closeOut, err := openOutput(cmd, cfg.Output.File)
	if err != nil {
		return err
	}
	defer func() { _ = closeOut() }()

	for _, path := range images {
		if err := detectOne(pl, path, cfg, opts, out); err != nil {
			return err
		}
	}
	return nil
}

func detectOne(pl *pipeline.Pipeline, path string, cfg *config.Config, opts pipeline.OverlayOptions,
	out io.Writer) error {
	img, _, err := utils.LoadImage(path)
	if err != nil {
		return fmt.Errorf("failed to load image %s: %w", path, err)
	}
	res, err := pl.DetectImage(img)
	if err != nil {
		return fmt.Errorf("failed to detect %s: %w", path, err)
	}
	res.ImageID = filepath.Base(path)

	text, err := batch.FormatDetection(res, cfg.Output.Format)
	if err != nil {
		return fmt.Errorf("failed to format result: %w", err)
	}
	if _, err := io.WriteString(out, text); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}

	if cfg.Output.OverlayDir != "" {
		dst := batch.OverlayPath(cfg.Output.OverlayDir, path)
		if err := utils.SaveImage(pipeline.RenderOverlay(img, res, opts), dst); err != nil {
			return fmt.Errorf("failed to write overlay for %s: %w", path, err)
		}
		slog.Info("Overlay written", "file", dst)
	}
	slog.Debug("Detection complete", "image", path, "count", res.Count, "labels", len(res.Labels))
	return nil
}
