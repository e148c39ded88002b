package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"net/http"
	"strconv"
	"time"

	"github.com/MeKo-Tech/peoplecount/internal/batch"
	"github.com/MeKo-Tech/peoplecount/internal/detector"
	"github.com/MeKo-Tech/peoplecount/internal/groundtruth"
	"github.com/MeKo-Tech/peoplecount/internal/matching"
	"github.com/MeKo-Tech/peoplecount/internal/metrics"
	"github.com/MeKo-Tech/peoplecount/internal/pipeline"
	"github.com/MeKo-Tech/peoplecount/internal/utils"
)

// detectHandler runs detection on an uploaded image.
func (s *Server) detectHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	img, name, err := s.parseImageUpload(w, r)
	if err != nil {
		requestsTotal.WithLabelValues("detect", "error").Inc()
		return
	}

	res, ok := s.runDetection(w, r, "detect", name, img)
	if !ok {
		return
	}

	switch requestFormat(r) {
	case formatOverlay:
		s.writeOverlay(w, r, img, res, nil)
	case formatCSV:
		s.writeFormatted(w, res, batch.FormatCSV, "text/csv")
	case formatText:
		s.writeFormatted(w, res, batch.FormatText, "text/plain; charset=utf-8")
	default:
		writeJSON(w, http.StatusOK, DetectResponse{Success: true, Result: res})
	}
}

// evaluateHandler detects people in an uploaded image and scores them
// against the "truth" form field, a JSON array of labels.
func (s *Server) evaluateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	img, name, err := s.parseImageUpload(w, r)
	if err != nil {
		requestsTotal.WithLabelValues("evaluate", "error").Inc()
		return
	}

	truth, err := parseTruthLabels(r.FormValue("truth"))
	if err != nil {
		requestsTotal.WithLabelValues("evaluate", "error").Inc()
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	threshold, err := s.parseThreshold(r.FormValue("threshold"))
	if err != nil {
		requestsTotal.WithLabelValues("evaluate", "error").Inc()
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, ok := s.runDetection(w, r, "evaluate", name, img)
	if !ok {
		return
	}

	set := groundtruth.Set{}
	set.Add(name, truth...)
	report, match, evalErr := metrics.Evaluate(detector.LabelPoints(res.Labels), set, name, threshold)
	recordMatch(match)

	if requestFormat(r) == formatOverlay {
		s.writeOverlay(w, r, img, res, set.Points(name))
		return
	}

	resp := EvaluateResponse{
		Success:   evalErr == nil,
		Detection: res,
		Match:     &match,
		Report:    &report,
		Threshold: threshold,
	}
	status := http.StatusOK
	if evalErr != nil {
		resp.Error = evalErr.Error()
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, resp)
}

// runDetection runs the pipeline under the request timeout and records
// metrics. On failure the error response has already been written.
func (s *Server) runDetection(w http.ResponseWriter, r *http.Request, kind, name string,
	img image.Image) (*pipeline.DetectionResult, bool) {
	if s.pipeline == nil {
		requestsTotal.WithLabelValues(kind, "error").Inc()
		s.writeErrorResponse(w, "Detection pipeline not initialized", http.StatusServiceUnavailable)
		return nil, false
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	start := time.Now()
	res, err := s.pipeline.DetectImageContext(ctx, img)
	duration := time.Since(start)
	if err != nil {
		requestsTotal.WithLabelValues(kind, "error").Inc()
		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		s.writeErrorResponse(w, fmt.Sprintf("Detection failed: %v", err), status)
		return nil, false
	}
	res.ImageID = name

	requestsTotal.WithLabelValues(kind, "success").Inc()
	processingDuration.WithLabelValues(kind).Observe(duration.Seconds())
	peopleDetected.WithLabelValues(kind).Observe(float64(res.Count))
	return res, true
}

func (s *Server) writeFormatted(w http.ResponseWriter, res *pipeline.DetectionResult, format, contentType string) {
	out, err := batch.FormatDetection(res, format)
	if err != nil {
		http.Error(w, fmt.Sprintf("formatting failed: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write([]byte(out))
}

// writeOverlay renders the detection over img as PNG. The "color" form value
// overrides the configured contour colour.
func (s *Server) writeOverlay(w http.ResponseWriter, r *http.Request, img image.Image,
	res *pipeline.DetectionResult, truth []utils.Point) {
	col := s.overlayColor
	if hex := r.FormValue("color"); hex != "" {
		c, err := pipeline.ParseOverlayColor(hex)
		if err != nil {
			s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
			return
		}
		col = c
	}

	ov := pipeline.RenderOverlay(img, res, pipeline.OverlayOptions{Color: col, Truth: truth})
	if ov == nil {
		http.Error(w, "overlay failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_ = utils.EncodePNG(w, ov)
}

// parseTruthLabels decodes a JSON array of labels. An empty field is an
// empty ground truth.
func parseTruthLabels(raw string) ([]groundtruth.Label, error) {
	if raw == "" {
		return nil, nil
	}
	var labels []groundtruth.Label
	if err := json.Unmarshal([]byte(raw), &labels); err != nil {
		return nil, fmt.Errorf("invalid truth labels: %w", err)
	}
	return labels, nil
}

// parseThreshold reads an optional matching distance, defaulting to the
// pipeline's configured threshold.
func (s *Server) parseThreshold(raw string) (float64, error) {
	if raw == "" {
		if s.pipeline == nil {
			return matching.DefaultThreshold, nil
		}
		return s.pipeline.Config().MatchThreshold, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid threshold %q: must be a positive number", raw)
	}
	return v, nil
}

func recordMatch(m matching.Result) {
	matchOutcomes.WithLabelValues("tp").Add(float64(m.TruePositives))
	matchOutcomes.WithLabelValues("fp").Add(float64(m.FalsePositives))
	matchOutcomes.WithLabelValues("fn").Add(float64(m.FalseNegatives))
}
