package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/peoplecount/internal/testutil"
)

// isolate moves the test into an empty working directory with its own home so
// no configuration file from the machine is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, ".config"))
	return dir
}

// execute runs a fresh command tree and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

// writeSceneFiles writes the default scene and its ground truth into dir.
func writeSceneFiles(t *testing.T, dir string) (string, string) {
	t.Helper()
	scene := testutil.DefaultScene()
	img := testutil.WriteScene(t, dir, "scene.png", scene)
	truth := testutil.WriteGroundTruth(t, dir, map[string][]testutil.TruthLabel{
		"scene.png": testutil.SceneTruth(scene),
	})
	return img, truth
}

func TestRootCommand(t *testing.T) {
	root := NewRootCommand()
	assert.Equal(t, "peoplecount", root.Use)
	assert.NotEmpty(t, root.Short)
	assert.NotEmpty(t, root.Long)

	names := make([]string, 0, len(root.Commands()))
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, expected := range []string{"detect", "evaluate", "match", "serve", "config"} {
		assert.Contains(t, names, expected, "Expected subcommand '%s' not found", expected)
	}
}

func TestRootCommandHelp(t *testing.T) {
	isolate(t)
	out, _, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "Detect and count people")
	assert.Contains(t, out, "Available Commands:")
	assert.Contains(t, out, "Usage:")
}

func TestRootCommandVersion(t *testing.T) {
	isolate(t)
	out, _, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "peoplecount version")
	assert.Contains(t, out, "commit")
}

func TestRootCommandInvalidFlag(t *testing.T) {
	isolate(t)
	_, _, err := execute(t, "--no-such-flag")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag")
}

func TestRootCommandConfigErrors(t *testing.T) {
	dir := isolate(t)

	t.Run("missing file", func(t *testing.T) {
		_, _, err := execute(t, "--config", filepath.Join(dir, "missing.yaml"), "config", "show")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error loading configuration")
	})

	t.Run("invalid values", func(t *testing.T) {
		file := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(file, []byte("log_level: loud\n"), 0o600))
		_, _, err := execute(t, "--config", file, "config", "show")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("invalid log level flag", func(t *testing.T) {
		_, _, err := execute(t, "--log-level", "loud", "config", "show")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}

func TestRootCommandLogsToStderr(t *testing.T) {
	dir := isolate(t)
	img, _ := writeSceneFiles(t, dir)

	out, errOut, err := execute(t, "--verbose", "detect", img, "--method", "none", "--format", "csv")
	require.NoError(t, err)
	assert.NotContains(t, out, `"level"`)
	assert.Contains(t, errOut, `"level":"DEBUG"`)
}
