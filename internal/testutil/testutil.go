// Package testutil holds helpers shared by tests: temp paths, synthetic
// crowd scenes and ground-truth files.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// CreateTempDir creates a temporary directory removed at test end.
func CreateTempDir(t *testing.T) string {
	t.Helper()
	return t.TempDir()
}

// EnsureDir creates a directory if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o750)
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// DirExists checks if a directory exists.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// TruthLabel is one annotated head as written to ground-truth JSON.
type TruthLabel struct {
	Name string  `json:"label_name"`
	X    float64 `json:"label_x"`
	Y    float64 `json:"label_y"`
}

// WriteGroundTruth writes a JSON object mapping image names to labels and
// returns its path.
func WriteGroundTruth(t *testing.T, dir string, truth map[string][]TruthLabel) string {
	t.Helper()
	data, err := json.MarshalIndent(truth, "", "  ")
	require.NoError(t, err)
	path := filepath.Join(dir, "truth.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// SceneTruth converts a scene's expected centroids to ground-truth labels.
func SceneTruth(s Scene) []TruthLabel {
	pts := s.Centroids()
	out := make([]TruthLabel, len(pts))
	for i, p := range pts {
		out[i] = TruthLabel{Name: "Person", X: p.X, Y: p.Y}
	}
	return out
}
