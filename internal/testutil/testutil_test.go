package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(CreateTempDir(t), "a", "b")
	require.NoError(t, EnsureDir(dir))
	assert.True(t, DirExists(dir))
	assert.False(t, DirExists(filepath.Join(dir, "missing")))
}

func TestWriteGroundTruth(t *testing.T) {
	dir := CreateTempDir(t)
	path := WriteGroundTruth(t, dir, map[string][]TruthLabel{
		"a.png": SceneTruth(DefaultScene()),
	})

	data, err := os.ReadFile(path) //nolint:gosec // test file
	require.NoError(t, err)

	var raw map[string][]map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw["a.png"], 3)
	assert.Equal(t, "Person", raw["a.png"][0]["label_name"])
	assert.InDelta(t, 8.0, raw["a.png"][0]["label_x"], 1e-9)
}
