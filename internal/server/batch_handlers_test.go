package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/peoplecount/internal/groundtruth"
	"github.com/MeKo-Tech/peoplecount/internal/testutil"
)

func sceneLabels() []groundtruth.Label {
	var labels []groundtruth.Label
	for _, p := range testutil.DefaultScene().Centroids() {
		labels = append(labels, groundtruth.Label{Name: "Person", X: p.X, Y: p.Y})
	}
	return labels
}

func postBatch(t *testing.T, s *Server, req BatchEvaluateRequest) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	s.evaluateBatchHandler(w, httptest.NewRequest(http.MethodPost, "/evaluate/batch", bytes.NewReader(body)))
	return w
}

func TestServer_EvaluateBatchHandler(t *testing.T) {
	server := newTestServer(t)
	data := scenePNG(t)

	w := postBatch(t, server, BatchEvaluateRequest{
		Images: []BatchImage{{Name: "a.png", Data: data}, {Name: "b.png", Data: data}},
		Truth:  map[string][]groundtruth.Label{"a.png": sceneLabels(), "b.png": sceneLabels()},
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp BatchEvaluateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "a.png", resp.Results[0].ImageID)
	assert.Equal(t, "b.png", resp.Results[1].ImageID)
	require.NotNil(t, resp.Summary)
	assert.Equal(t, 2, resp.Summary.Images)
	assert.Equal(t, 6, resp.Summary.TruePositives)
	require.NotNil(t, resp.Report)
	assert.InDelta(t, 1.0, resp.Report.F1, 1e-9)
	require.NotNil(t, resp.Stats)
	assert.Equal(t, 2, resp.Stats.TotalImages)
}

func TestServer_EvaluateBatchHandler_PartialFailure(t *testing.T) {
	server := newTestServer(t)
	data := scenePNG(t)

	// b.png has no annotations, so its accuracy is undefined.
	w := postBatch(t, server, BatchEvaluateRequest{
		Images: []BatchImage{{Name: "a.png", Data: data}, {Name: "b.png", Data: data}},
		Truth:  map[string][]groundtruth.Label{"a.png": sceneLabels()},
	})

	require.Equal(t, http.StatusOK, w.Code)
	var resp BatchEvaluateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Empty(t, resp.Results[0].Error)
	assert.Contains(t, resp.Results[1].Error, "accuracy undefined")
	assert.Equal(t, 1, resp.Summary.Failed)
}

func TestServer_EvaluateBatchHandler_Threshold(t *testing.T) {
	server := newTestServer(t)
	shifted := []groundtruth.Label{{Name: "Person", X: 8, Y: 16}}

	w := postBatch(t, server, BatchEvaluateRequest{
		Images:    []BatchImage{{Name: "a.png", Data: scenePNG(t)}},
		Truth:     map[string][]groundtruth.Label{"a.png": shifted},
		Threshold: 10,
	})

	require.Equal(t, http.StatusOK, w.Code)
	var resp BatchEvaluateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Results[0].Match.TruePositives)
}

func TestServer_EvaluateBatchHandler_Errors(t *testing.T) {
	server := newTestServer(t)

	t.Run("method not allowed", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.evaluateBatchHandler(w, httptest.NewRequest(http.MethodGet, "/evaluate/batch", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})

	t.Run("invalid json", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.evaluateBatchHandler(w, httptest.NewRequest(http.MethodPost, "/evaluate/batch", strings.NewReader("{")))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("no images", func(t *testing.T) {
		w := postBatch(t, server, BatchEvaluateRequest{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "No images")
	})

	t.Run("too many images", func(t *testing.T) {
		images := make([]BatchImage, DefaultMaxBatchSize+1)
		w := postBatch(t, server, BatchEvaluateRequest{Images: images})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Batch size too large")
	})

	t.Run("undecodable image", func(t *testing.T) {
		w := postBatch(t, server, BatchEvaluateRequest{Images: []BatchImage{{Name: "x.png", Data: []byte("nope")}}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "x.png")
	})

	t.Run("negative threshold", func(t *testing.T) {
		w := postBatch(t, server, BatchEvaluateRequest{
			Images:    []BatchImage{{Name: "a.png", Data: scenePNG(t)}},
			Threshold: -1,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
