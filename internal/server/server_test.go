package server

import (
	"bytes"
	"image"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/peoplecount/internal/pipeline"
	"github.com/MeKo-Tech/peoplecount/internal/preprocess"
	"github.com/MeKo-Tech/peoplecount/internal/testutil"
	"github.com/MeKo-Tech/peoplecount/internal/utils"
)

// newTestServer returns a server whose pipeline treats uploads as masks.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	pl, err := pipeline.NewBuilder().WithPreprocessMethod(preprocess.MethodNone).WithParallelWorkers(2).Build()
	require.NoError(t, err)
	s, err := newServerWithPipeline(pl, Config{CORSOrigin: "*", TimeoutSec: 10, PipelineConfig: pl.Config()})
	require.NoError(t, err)
	return s
}

// scenePNG encodes the default test scene.
func scenePNG(t *testing.T) []byte {
	t.Helper()
	return encodePNG(t, testutil.RenderScene(testutil.DefaultScene()))
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, utils.EncodePNG(&buf, img))
	return buf.Bytes()
}

// newUploadRequest builds a multipart POST with an "image" file and extra fields.
func newUploadRequest(t *testing.T, target, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if data != nil {
		fw, err := mw.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}
