package server

import (
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/peoplecount/internal/detector"
	"github.com/MeKo-Tech/peoplecount/internal/pipeline"
)

func TestServer_HealthHandler(t *testing.T) {
	server := newTestServer(t)

	tests := []struct {
		name           string
		method         string
		expectedStatus int
	}{
		{"GET request success", http.MethodGet, http.StatusOK},
		{"POST request not allowed", http.MethodPost, http.StatusMethodNotAllowed},
		{"PUT request not allowed", http.MethodPut, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/health", nil)
			w := httptest.NewRecorder()

			server.healthHandler(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus != http.StatusOK {
				return
			}
			var response HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, "healthy", response.Status)
			assert.Equal(t, "native", response.Backend)
			assert.Equal(t, "none", response.Pipeline["preprocess"])
			assert.NotEmpty(t, response.Time)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		})
	}
}

func TestServer_DetectHandler_JSON(t *testing.T) {
	server := newTestServer(t)

	req := newUploadRequest(t, "/detect", "scene.png", scenePNG(t), nil)
	w := httptest.NewRecorder()
	server.detectHandler(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp DetectResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Result)
	assert.Equal(t, "scene.png", resp.Result.ImageID)
	assert.Equal(t, 3, resp.Result.Count)
	assert.ElementsMatch(t, []detector.Label{
		{Name: detector.PersonLabel, X: 8, Y: 8},
		{Name: detector.PersonLabel, X: 33, Y: 13},
		{Name: detector.PersonLabel, X: 15, Y: 33},
	}, resp.Result.Labels)
	assert.Len(t, resp.Result.Zones, 3)
}

func TestServer_DetectHandler_Formats(t *testing.T) {
	server := newTestServer(t)

	tests := []struct {
		format      string
		contentType string
		contains    string
	}{
		{"csv", "text/csv", "label_name,label_x,label_y"},
		{"text", "text/plain; charset=utf-8", "count: 3"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			req := newUploadRequest(t, "/detect", "scene.png", scenePNG(t), map[string]string{"format": tt.format})
			w := httptest.NewRecorder()
			server.detectHandler(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.contentType, w.Header().Get("Content-Type"))
			assert.Contains(t, w.Body.String(), tt.contains)
		})
	}

	t.Run("format from query", func(t *testing.T) {
		req := newUploadRequest(t, "/detect?format=csv", "scene.png", scenePNG(t), nil)
		w := httptest.NewRecorder()
		server.detectHandler(w, req)
		assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	})
}

func TestServer_DetectHandler_Overlay(t *testing.T) {
	server := newTestServer(t)

	req := newUploadRequest(t, "/detect", "scene.png", scenePNG(t),
		map[string]string{"format": "overlay", "color": "#00FF00"})
	w := httptest.NewRecorder()
	server.detectHandler(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	img, err := png.Decode(w.Body)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())

	// Centroid cross in green over the white blob.
	r, g, b, _ := img.At(8, 8).RGBA()
	assert.Zero(t, r)
	assert.Equal(t, uint32(0xffff), g)
	assert.Zero(t, b)
}

func TestServer_DetectHandler_Errors(t *testing.T) {
	server := newTestServer(t)

	t.Run("method not allowed", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.detectHandler(w, httptest.NewRequest(http.MethodGet, "/detect", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})

	t.Run("not multipart", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.detectHandler(w, httptest.NewRequest(http.MethodPost, "/detect", strings.NewReader("x")))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Failed to parse form data")
	})

	t.Run("missing image", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.detectHandler(w, newUploadRequest(t, "/detect", "", nil, map[string]string{"format": "json"}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "No image file provided")
	})

	t.Run("invalid image", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.detectHandler(w, newUploadRequest(t, "/detect", "x.png", []byte("not an image"), nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid image format")
	})

	t.Run("invalid overlay color", func(t *testing.T) {
		req := newUploadRequest(t, "/detect", "scene.png", scenePNG(t),
			map[string]string{"format": "overlay", "color": "green"})
		w := httptest.NewRecorder()
		server.detectHandler(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("upload too large", func(t *testing.T) {
		small := *server
		small.maxUploadMB = 0
		w := httptest.NewRecorder()
		small.detectHandler(w, newUploadRequest(t, "/detect", "scene.png", scenePNG(t), nil))
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("pipeline not initialized", func(t *testing.T) {
		empty := &Server{maxUploadMB: 1}
		w := httptest.NewRecorder()
		empty.detectHandler(w, newUploadRequest(t, "/detect", "scene.png", scenePNG(t), nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestServer_EvaluateHandler(t *testing.T) {
	server := newTestServer(t)
	perfect := `[{"label_name":"Person","label_x":8,"label_y":8},` +
		`{"label_name":"Person","label_x":33,"label_y":13},` +
		`{"label_name":"Person","label_x":15,"label_y":33}]`

	t.Run("perfect match", func(t *testing.T) {
		req := newUploadRequest(t, "/evaluate", "scene.png", scenePNG(t), map[string]string{"truth": perfect})
		w := httptest.NewRecorder()
		server.evaluateHandler(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp EvaluateResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		require.NotNil(t, resp.Report)
		assert.Equal(t, 3, resp.Report.TruePositives)
		assert.InDelta(t, 1.0, resp.Report.Accuracy, 1e-9)
		assert.InDelta(t, 5.0, resp.Threshold, 1e-9)
	})

	t.Run("threshold decides matches", func(t *testing.T) {
		shifted := `[{"label_name":"Person","label_x":11,"label_y":12}]`
		req := newUploadRequest(t, "/evaluate", "scene.png", scenePNG(t),
			map[string]string{"truth": shifted, "threshold": "5"})
		w := httptest.NewRecorder()
		server.evaluateHandler(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp EvaluateResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Match)
		assert.Equal(t, 1, resp.Match.TruePositives)
		assert.Equal(t, 2, resp.Match.FalsePositives)
		assert.Equal(t, 0, resp.Match.FalseNegatives)
	})

	t.Run("empty truth leaves accuracy undefined", func(t *testing.T) {
		req := newUploadRequest(t, "/evaluate", "scene.png", scenePNG(t), nil)
		w := httptest.NewRecorder()
		server.evaluateHandler(w, req)

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		var resp EvaluateResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Contains(t, resp.Error, "zero")
		require.NotNil(t, resp.Detection)
		assert.Equal(t, 3, resp.Detection.Count)
	})

	t.Run("invalid truth", func(t *testing.T) {
		req := newUploadRequest(t, "/evaluate", "scene.png", scenePNG(t), map[string]string{"truth": "{"})
		w := httptest.NewRecorder()
		server.evaluateHandler(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid truth labels")
	})

	t.Run("invalid threshold", func(t *testing.T) {
		for _, th := range []string{"abc", "0", "-3"} {
			req := newUploadRequest(t, "/evaluate", "scene.png", scenePNG(t), map[string]string{"threshold": th})
			w := httptest.NewRecorder()
			server.evaluateHandler(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code, th)
		}
	})

	t.Run("overlay with truth", func(t *testing.T) {
		req := newUploadRequest(t, "/evaluate", "scene.png", scenePNG(t),
			map[string]string{"truth": perfect, "format": "overlay"})
		w := httptest.NewRecorder()
		server.evaluateHandler(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	})
}

func TestParseTruthLabels(t *testing.T) {
	labels, err := parseTruthLabels("")
	require.NoError(t, err)
	assert.Empty(t, labels)

	labels, err = parseTruthLabels(`[{"label_name":"Person","label_x":1.5,"label_y":2}]`)
	require.NoError(t, err)
	require.Len(t, labels, 1)
	assert.InDelta(t, 1.5, labels[0].X, 1e-9)
}

func TestNewServer(t *testing.T) {
	cfg := Config{PipelineConfig: pipeline.DefaultConfig()}
	s, err := NewServer(cfg)
	require.NoError(t, err)
	assert.Equal(t, int64(50), s.maxUploadMB)
	assert.Equal(t, DefaultMaxBatchSize, s.maxBatchSize)

	cfg.OverlayColor = "nope"
	_, err = NewServer(cfg)
	require.Error(t, err)

	cfg.OverlayColor = ""
	cfg.PipelineConfig.MatchThreshold = 0
	_, err = NewServer(cfg)
	require.Error(t, err)
}

func TestServer_Routes(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
