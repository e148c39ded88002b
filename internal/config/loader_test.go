package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ConfigFileName+".yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	require.NotNil(t, loader)
	assert.Same(t, viper.GetViper(), loader.GetViper())
}

func TestLoadWithFile(t *testing.T) {
	path := writeConfigFile(t, `
log_level: debug
verbose: true
zones:
  first_boundary: 100
  second_boundary: 200
  scales: [1, 2, 4]
detection:
  min_area: 4
  max_area: 60
matching:
  threshold: 8
output:
  format: json
server:
  port: 9090
`)

	loader := NewLoaderWithViper(viper.New())
	cfg, err := loader.LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, 100, cfg.Zones.FirstBoundary)
	assert.Equal(t, 200, cfg.Zones.SecondBoundary)
	assert.Equal(t, []float64{1, 2, 4}, cfg.Zones.Scales)
	assert.InDelta(t, 4.0, cfg.Detection.MinArea, 1e-9)
	assert.InDelta(t, 60.0, cfg.Detection.MaxArea, 1e-9)
	assert.InDelta(t, 8.0, cfg.Matching.Threshold, 1e-9)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, 9090, cfg.Server.Port)

	// Untouched keys fall back to defaults.
	assert.InDelta(t, 20.0, cfg.Detection.AreaThreshold, 1e-9)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, path, loader.GetConfigFileUsed())
}

func TestLoadWithFile_Missing(t *testing.T) {
	loader := NewLoaderWithViper(viper.New())
	_, err := loader.LoadWithFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestLoadWithFile_InvalidYAML(t *testing.T) {
	path := writeConfigFile(t, "zones: [unclosed\n")
	loader := NewLoaderWithViper(viper.New())
	_, err := loader.LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoadWithFile_ValidationFailure(t *testing.T) {
	path := writeConfigFile(t, "log_level: loud\n")

	_, err := NewLoaderWithViper(viper.New()).LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")

	cfg, err := NewLoaderWithViper(viper.New()).LoadWithFileWithoutValidation(path)
	require.NoError(t, err)
	assert.Equal(t, "loud", cfg.LogLevel)
}

func TestLoad_NoConfigFile(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)

	cfg, err := NewLoaderWithViper(viper.New()).Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Zones, cfg.Zones)
	assert.Equal(t, infoLevel, cfg.LogLevel)
}

func TestLoad_SearchesWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "peoplecount.yaml"),
		[]byte("matching:\n  threshold: 3\n"), 0o600))

	cfg, err := NewLoaderWithViper(viper.New()).Load()
	require.NoError(t, err)
	assert.InDelta(t, 3.0, cfg.Matching.Threshold, 1e-9)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("PEOPLECOUNT_LOG_LEVEL", "warn")
	t.Setenv("PEOPLECOUNT_ZONES_FIRST_BOUNDARY", "500")
	t.Setenv("PEOPLECOUNT_MATCHING_THRESHOLD", "7.5")
	t.Setenv("PEOPLECOUNT_SERVER_PORT", "9999")

	path := writeConfigFile(t, "log_level: debug\n")
	cfg, err := NewLoaderWithViper(viper.New()).LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 500, cfg.Zones.FirstBoundary)
	assert.InDelta(t, 7.5, cfg.Matching.Threshold, 1e-9)
	assert.Equal(t, 9999, cfg.Server.Port)
}

func TestLoader_GetSet(t *testing.T) {
	loader := NewLoaderWithViper(viper.New())
	loader.Set("matching.threshold", 11.0)
	assert.Equal(t, 11.0, loader.Get("matching.threshold"))

	path := writeConfigFile(t, "")
	cfg, err := loader.LoadWithFile(path)
	require.NoError(t, err)
	assert.InDelta(t, 11.0, cfg.Matching.Threshold, 1e-9)

	settings := loader.GetResolvedConfig()
	assert.Contains(t, settings, "zones")
}

func TestGenerateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "generated.yaml")
	require.NoError(t, GenerateDefaultConfigFile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var parsed Config
	require.NoError(t, yaml.Unmarshal(raw, &parsed))
	assert.Equal(t, DefaultConfig().Zones, parsed.Zones)
	assert.Equal(t, DefaultConfig().Server.Port, parsed.Server.Port)

	cfg, err := NewLoaderWithViper(viper.New()).LoadWithFile(path)
	require.NoError(t, err)
	assert.InDelta(t, DefaultConfig().Detection.MinArea, cfg.Detection.MinArea, 1e-9)

	// Existing files are left alone.
	require.Error(t, GenerateDefaultConfigFile(path))
}

func TestGetConfigSearchPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	paths := GetConfigSearchPaths()
	require.NotEmpty(t, paths)
	assert.Equal(t, ".", paths[0])
	assert.Contains(t, paths, filepath.Join("/xdg", ConfigFileName))
	assert.Equal(t, "/etc/peoplecount", paths[len(paths)-1])
}
