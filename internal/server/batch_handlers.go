package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/MeKo-Tech/peoplecount/internal/groundtruth"
	"github.com/MeKo-Tech/peoplecount/internal/metrics"
	"github.com/MeKo-Tech/peoplecount/internal/pipeline"
	"github.com/MeKo-Tech/peoplecount/internal/utils"
)

// BatchEvaluateRequest is the JSON body of POST /evaluate/batch. Image data
// is base64 encoded; Truth maps image names to their labels.
type BatchEvaluateRequest struct {
	Images    []BatchImage                   `json:"images"`
	Truth     map[string][]groundtruth.Label `json:"truth,omitempty"`
	Threshold float64                        `json:"threshold,omitempty"`
}

// BatchImage is a single image in a batch request.
type BatchImage struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

// BatchEvaluateResponse is the response of a batch evaluation.
type BatchEvaluateResponse struct {
	Success bool                         `json:"success"`
	Results []*pipeline.EvaluationResult `json:"results,omitempty"`
	Summary *metrics.Summary             `json:"summary,omitempty"`
	Report  *metrics.Report              `json:"report,omitempty"`
	Stats   *pipeline.ParallelStats      `json:"stats,omitempty"`
	Error   string                       `json:"error,omitempty"`
}

// evaluateBatchHandler evaluates several images against one ground-truth set.
func (s *Server) evaluateBatchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadMB*1024*1024)
	var req BatchEvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		requestsTotal.WithLabelValues("batch", "error").Inc()
		s.writeErrorResponse(w, fmt.Sprintf("Failed to parse JSON request: %v", err), http.StatusBadRequest)
		return
	}

	if len(req.Images) == 0 {
		s.writeErrorResponse(w, "No images provided in batch request", http.StatusBadRequest)
		return
	}
	if len(req.Images) > s.maxBatchSize {
		s.writeErrorResponse(w, fmt.Sprintf("Batch size too large (maximum %d items)", s.maxBatchSize),
			http.StatusBadRequest)
		return
	}
	if s.pipeline == nil {
		s.writeErrorResponse(w, "Detection pipeline not initialized", http.StatusServiceUnavailable)
		return
	}
	if req.Threshold < 0 {
		s.writeErrorResponse(w, "threshold must be positive", http.StatusBadRequest)
		return
	}

	items := make([]pipeline.Item, len(req.Images))
	for i, bi := range req.Images {
		if bi.Name == "" {
			bi.Name = fmt.Sprintf("image-%d", i)
		}
		img, err := utils.DecodeImageBytes(bi.Data)
		if err != nil {
			s.writeErrorResponse(w, fmt.Sprintf("Failed to decode image %s: %v", bi.Name, err), http.StatusBadRequest)
			return
		}
		items[i] = pipeline.Item{ID: bi.Name, Image: img}
	}

	truth := groundtruth.Set{}
	for name, labels := range req.Truth {
		truth.Add(name, labels...)
	}

	pl := s.pipeline
	if req.Threshold > 0 && req.Threshold != pl.Config().MatchThreshold {
		var err error
		pl, err = pipeline.NewBuilder().WithConfig(pl.Config()).WithMatchThreshold(req.Threshold).Build()
		if err != nil {
			s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	start := time.Now()
	results, err := pl.EvaluateImagesParallel(ctx, items, truth, pipeline.ParallelConfig{MaxWorkers: s.workers})
	duration := time.Since(start)
	if ctxErr := ctx.Err(); ctxErr != nil {
		requestsTotal.WithLabelValues("batch", "error").Inc()
		s.writeErrorResponse(w, fmt.Sprintf("Batch evaluation aborted: %v", ctxErr), http.StatusGatewayTimeout)
		return
	}
	if err != nil && results == nil {
		requestsTotal.WithLabelValues("batch", "error").Inc()
		s.writeErrorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}

	summary := pipeline.Summarize(results)
	stats := pipeline.CalculateParallelStats(results, duration, min(max(s.workers, 1), len(items)))
	resp := BatchEvaluateResponse{
		Success: summary.Failed == 0,
		Results: results,
		Summary: summary,
		Stats:   &stats,
	}
	if rep, repErr := summary.Report(); repErr != nil {
		resp.Error = repErr.Error()
	} else {
		resp.Report = &rep
	}

	for _, res := range results {
		if res.Scored() {
			recordMatch(res.Match)
			peopleDetected.WithLabelValues("batch").Observe(float64(res.Detection.Count))
		}
	}
	requestsTotal.WithLabelValues("batch", "success").Inc()
	processingDuration.WithLabelValues("batch").Observe(duration.Seconds())

	writeJSON(w, http.StatusOK, resp)
}
