package batch

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/peoplecount/internal/groundtruth"
	"github.com/MeKo-Tech/peoplecount/internal/pipeline"
	"github.com/MeKo-Tech/peoplecount/internal/utils"
)

// OverlayPath returns dir/<base>_overlay.png for an input image.
func OverlayPath(dir, imagePath string) string {
	base := filepath.Base(imagePath)
	return filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+"_overlay.png")
}

// writeOverlays draws detections and ground truth for every scored image.
// Images are decoded again so the pool never holds more than one per worker.
func writeOverlays(results []*pipeline.EvaluationResult, files []string,
	truth groundtruth.Set, config *Config) error {
	col, err := pipeline.ParseOverlayColor(config.OverlayColor)
	if err != nil {
		return err
	}
	for i, r := range results {
		if !r.Scored() {
			continue
		}
		img, _, err := utils.LoadImage(files[i])
		if err != nil {
			slog.Warn("Skipping overlay", "file", files[i], "error", err)
			continue
		}
		ov := pipeline.RenderOverlay(img, r.Detection, pipeline.OverlayOptions{
			Color: col,
			Truth: truth.Points(r.ImageID),
		})
		out := OverlayPath(config.OverlayDir, files[i])
		if err := utils.SaveImage(ov, out); err != nil {
			return fmt.Errorf("write overlay for %s: %w", files[i], err)
		}
		slog.Debug("Overlay written", "file", out)
	}
	return nil
}
