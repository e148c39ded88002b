package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/peoplecount/internal/testutil"
)

func TestEvaluateCommand_PerfectMatch(t *testing.T) {
	dir := isolate(t)
	_, truth := writeSceneFiles(t, dir)

	out, _, err := execute(t, "evaluate", dir, "--ground-truth", truth, "--method", "none")
	require.NoError(t, err)
	assert.Contains(t, out, "scene.png")
	assert.Contains(t, out, "tp=3 fp=0 fn=0")
	assert.Contains(t, out, "== summary: 1 images, 0 failed")
	assert.Contains(t, out, "accuracy=1.000")
}

func TestEvaluateCommand_JSON(t *testing.T) {
	dir := isolate(t)
	img, truth := writeSceneFiles(t, dir)

	out, _, err := execute(t, "evaluate", img, "-g", truth, "--method", "none", "--format", "json")
	require.NoError(t, err)

	var res struct {
		Images []struct {
			File       string `json:"file"`
			Evaluation struct {
				Report struct {
					F1 float64 `json:"f1"`
				} `json:"report"`
			} `json:"evaluation"`
		} `json:"images"`
		Summary struct {
			Images int `json:"images"`
			TP     int `json:"tp"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Images, 1)
	assert.InDelta(t, 1.0, res.Images[0].Evaluation.Report.F1, 1e-9)
	assert.Equal(t, 1, res.Summary.Images)
	assert.Equal(t, 3, res.Summary.TP)
}

func TestEvaluateCommand_Threshold(t *testing.T) {
	dir := isolate(t)
	img := testutil.WriteScene(t, dir, "scene.png", testutil.DefaultScene())
	// (11,12) is 5 away from (8,8); the other two points have no truth.
	truth := testutil.WriteGroundTruth(t, dir, map[string][]testutil.TruthLabel{
		"scene.png": {{Name: "Person", X: 11, Y: 12}},
	})

	out, _, err := execute(t, "evaluate", img, "-g", truth, "--method", "none", "--format", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, ",3,3,1,2,0,")

	out, _, err = execute(t, "evaluate", img, "-g", truth, "--method", "none", "--format", "csv",
		"--threshold", "4.9")
	require.NoError(t, err)
	assert.Contains(t, out, ",3,3,0,3,1,")
}

func TestEvaluateCommand_UndefinedAccuracy(t *testing.T) {
	dir := isolate(t)
	scene := testutil.DefaultScene()
	testutil.WriteScene(t, dir, "scene.png", scene)
	testutil.WriteScene(t, dir, "empty.png", testutil.Scene{Width: 64, Height: 48})
	truth := testutil.WriteGroundTruth(t, dir, map[string][]testutil.TruthLabel{
		"scene.png": testutil.SceneTruth(scene),
	})

	_, _, err := execute(t, "evaluate", dir, "-g", truth, "--method", "none")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accuracy undefined")

	out, _, err := execute(t, "evaluate", dir, "-g", truth, "--method", "none", "--continue-on-error")
	require.NoError(t, err)
	assert.Contains(t, out, "== summary: 2 images, 1 failed")
	assert.Contains(t, out, "tp=3 fp=0 fn=0")
}

func TestEvaluateCommand_OutputAndStats(t *testing.T) {
	dir := isolate(t)
	img, truth := writeSceneFiles(t, dir)
	outFile := filepath.Join(dir, "out", "report.csv")

	stdout, stderr, err := execute(t, "evaluate", img, "-g", truth, "--method", "none",
		"--format", "csv", "--output", outFile, "--stats", "--workers", "2")
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "Processing Statistics:")
	assert.Contains(t, stderr, "Workers: 2")

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "file,count,labels,tp"))
}

func TestEvaluateCommand_Errors(t *testing.T) {
	dir := isolate(t)
	img, truth := writeSceneFiles(t, dir)
	badTruth := filepath.Join(dir, "truth.txt")
	require.NoError(t, os.WriteFile(badTruth, []byte("x"), 0o600))

	tests := []struct {
		name     string
		args     []string
		contains string
	}{
		{"no truth", []string{"evaluate", img}, "--ground-truth is required"},
		{"unsupported truth", []string{"evaluate", img, "-g", badTruth}, "unsupported file format"},
		{"missing truth", []string{"evaluate", img, "-g", filepath.Join(dir, "nope.json")}, "open ground truth"},
		{"zero threshold", []string{"evaluate", img, "-g", truth, "--threshold", "0"}, "matching.threshold"},
		{"zero workers", []string{"evaluate", img, "-g", truth, "--workers", "0"}, "invalid batch workers"},
		{"no images", []string{"evaluate", filepath.Join(dir, "empty"), "-g", truth}, "evaluation failed"},
	}
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "empty"), 0o750))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}
