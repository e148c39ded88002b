package server

import (
	"fmt"
	"image/color"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/peoplecount/internal/matching"
	"github.com/MeKo-Tech/peoplecount/internal/metrics"
	"github.com/MeKo-Tech/peoplecount/internal/pipeline"
)

// DefaultMaxBatchSize caps the number of images in one batch request.
const DefaultMaxBatchSize = 10

// Server holds the HTTP server state and dependencies.
type Server struct {
	pipeline     *pipeline.Pipeline
	corsOrigin   string
	maxUploadMB  int64
	timeoutSec   int
	overlayColor color.Color
	maxBatchSize int
	workers      int
}

// Config holds server configuration.
type Config struct {
	Host           string
	Port           int
	CORSOrigin     string
	MaxUploadMB    int64
	TimeoutSec     int
	PipelineConfig pipeline.Config
	OverlayColor   string
	MaxBatchSize   int
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Backend string `json:"backend,omitempty"`
	Time    string `json:"time"`
	// Pipeline describes the active preprocessing and zone settings.
	Pipeline map[string]any `json:"pipeline,omitempty"`
}

// DetectResponse is the JSON body of POST /detect.
type DetectResponse struct {
	Success bool                      `json:"success"`
	Result  *pipeline.DetectionResult `json:"result,omitempty"`
	Error   string                    `json:"error,omitempty"`
}

// EvaluateResponse is the JSON body of POST /evaluate. Report is filled even
// when Error reports undefined accuracy.
type EvaluateResponse struct {
	Success   bool                      `json:"success"`
	Detection *pipeline.DetectionResult `json:"detection,omitempty"`
	Match     *matching.Result          `json:"match,omitempty"`
	Report    *metrics.Report           `json:"report,omitempty"`
	Threshold float64                   `json:"threshold,omitempty"`
	Error     string                    `json:"error,omitempty"`
}

// ErrorResponse is written for failed requests.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// NewServer builds the detection pipeline and a server around it.
func NewServer(config Config) (*Server, error) {
	pl, err := pipeline.NewBuilder().WithConfig(config.PipelineConfig).Build()
	if err != nil {
		return nil, err
	}
	return newServerWithPipeline(pl, config)
}

func newServerWithPipeline(pl *pipeline.Pipeline, config Config) (*Server, error) {
	col, err := pipeline.ParseOverlayColor(config.OverlayColor)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}
	if config.MaxUploadMB <= 0 {
		config.MaxUploadMB = 50
	}
	if config.MaxBatchSize <= 0 {
		config.MaxBatchSize = DefaultMaxBatchSize
	}
	return &Server{
		pipeline:     pl,
		corsOrigin:   config.CORSOrigin,
		maxUploadMB:  config.MaxUploadMB,
		timeoutSec:   config.TimeoutSec,
		overlayColor: col,
		maxBatchSize: config.MaxBatchSize,
		workers:      config.PipelineConfig.Parallel.MaxWorkers,
	}, nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/detect", s.corsMiddleware(s.detectHandler))
	mux.HandleFunc("/evaluate", s.corsMiddleware(s.evaluateHandler))
	mux.HandleFunc("/evaluate/batch", s.corsMiddleware(s.evaluateBatchHandler))
	mux.HandleFunc("/ws/detect", s.detectWebSocketHandler)
	mux.Handle("/metrics", promhttp.Handler())
}

// Handler returns a mux with all routes installed.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}
