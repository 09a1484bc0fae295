package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timeseer-ai/kukur-go/internal/registry"
)

func namesOf(sources []registry.NamedSourceConfig) []string {
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = s.Name
	}
	return names
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "kukur.yaml", `
data_dir: /tmp/kukur-data
source:
  plant:
    type: memory
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Flight.Host)
	assert.Equal(t, 8081, cfg.Flight.Port)
	assert.Equal(t, "basic", cfg.Flight.Authentication)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, []string{"plant"}, namesOf(cfg.Registry.Sources))
}

func TestLoadConfigPreservesSourceOrder(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "kukur.yaml", `
data_dir: /tmp/kukur-data
source:
  zeta:
    type: memory
  alpha:
    type: memory
  mid:
    type: memory
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, namesOf(cfg.Registry.Sources))
}

func TestLoadConfigResolvesIncludeGlob(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "extra.yaml", `
source:
  extra:
    type: memory
logging:
  level: debug
`)
	path := writeFile(t, dir, "kukur.yaml", `
data_dir: /tmp/kukur-data
source:
  plant:
    type: memory
logging:
  level: info
include:
  glob:
    - "extra.yaml"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"plant", "extra"}, namesOf(cfg.Registry.Sources))
	// The included file is merged after the root document, so its scalar
	// overwrites the root's per the include.glob merge rule.
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfigEnvironmentOverride(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "kukur.yaml", `
data_dir: /tmp/kukur-data
source:
  plant:
    type: memory
`)
	t.Setenv("KUKUR_FLIGHT_PORT", "9000")
	t.Setenv("KUKUR_LOG_LEVEL", "debug")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Flight.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfigRejectsBadPort(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "kukur.yaml", `
data_dir: /tmp/kukur-data
flight:
  port: 70000
source:
  plant:
    type: memory
`)
	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfigRejectsUnknownAuthentication(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "kukur.yaml", `
data_dir: /tmp/kukur-data
flight:
  authentication: token
source:
  plant:
    type: memory
`)
	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfigAppliesMetricsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "kukur.yaml", `
data_dir: /tmp/kukur-data
source:
  plant:
    type: memory
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "0.0.0.0", cfg.Metrics.Host)
	assert.Equal(t, 9090, cfg.Metrics.Port)
}

func TestLoadConfigRejectsMetricsPortCollidingWithFlight(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "kukur.yaml", `
data_dir: /tmp/kukur-data
flight:
  port: 9090
metrics:
  port: 9090
source:
  plant:
    type: memory
`)
	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfigMetricsCanBeDisabled(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "kukur.yaml", `
data_dir: /tmp/kukur-data
metrics:
  enabled: false
source:
  plant:
    type: memory
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestApiKeyDatabasePath(t *testing.T) {
	cfg := &Config{DataDir: "/var/lib/kukur"}
	assert.Equal(t, "/var/lib/kukur/api_key.sqlite", cfg.ApiKeyDatabasePath())
}

func TestMergeConfigTreesScalarsOverwrite(t *testing.T) {
	dst := map[string]interface{}{"a": 1, "b": map[string]interface{}{"x": 1}}
	src := map[string]interface{}{"a": 2, "b": map[string]interface{}{"y": 2}}
	merged := mergeConfigTrees(dst, src)
	assert.Equal(t, 2, merged["a"])
	assert.Equal(t, map[string]interface{}{"x": 1, "y": 2}, merged["b"])
}

func TestMergeConfigTreesListsConcatenate(t *testing.T) {
	dst := map[string]interface{}{"glob": []interface{}{"a.yaml"}}
	src := map[string]interface{}{"glob": []interface{}{"b.yaml"}}
	merged := mergeConfigTrees(dst, src)
	assert.Equal(t, []interface{}{"a.yaml", "b.yaml"}, merged["glob"])
}

func TestNormalizeYAMLConvertsNestedInterfaceMaps(t *testing.T) {
	raw := map[interface{}]interface{}{
		"outer": map[interface{}]interface{}{"inner": "value"},
	}
	normalized := normalizeYAML(raw)
	typed, ok := normalized.(map[string]interface{})
	require.True(t, ok)
	inner, ok := typed["outer"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "value", inner["inner"])
}
