package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ".", cfg.OutputDir)
	assert.Equal(t, []string{"logiqx"}, cfg.Formats)
	assert.Equal(t, 0, cfg.Workers)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestConfig_GetWorkers(t *testing.T) {
	tests := []struct {
		name     string
		workers  int
		expected int
	}{
		{"configured", 3, 3},
		{"default", 0, runtime.NumCPU()},
		{"negative", -1, runtime.NumCPU()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Workers: tt.workers}
			assert.Equal(t, tt.expected, cfg.GetWorkers())
		})
	}
}

func TestLoad_FromEnvPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `output_dir: /tmp/out
workers: 4
formats: [clrmamepro, sfv]
cache_path: /tmp/cache.db
logging:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("DATMAN_CONFIG", path)
	t.Setenv("DATMAN_OUTPUT_DIR", "")
	t.Setenv("DATMAN_WORKERS", "")
	t.Setenv("DATMAN_CACHE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/out", cfg.OutputDir)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, []string{"clrmamepro", "sfv"}, cfg.Formats)
	assert.Equal(t, "/tmp/cache.db", cfg.GetCachePath())
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, path, cfg.Path)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 2\n"), 0o600))
	t.Setenv("DATMAN_CONFIG", path)
	t.Setenv("DATMAN_OUTPUT_DIR", "/override")
	t.Setenv("DATMAN_WORKERS", "9")
	t.Setenv("DATMAN_CACHE", "/cache.db")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/override", cfg.OutputDir)
	assert.Equal(t, 9, cfg.Workers)
	assert.Equal(t, "/cache.db", cfg.CachePath)
}

func TestLoad_InvalidWorkers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o600))
	t.Setenv("DATMAN_CONFIG", path)
	t.Setenv("DATMAN_WORKERS", "many")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: [\n"), 0o600))
	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestSave_RoundTrip(t *testing.T) {
	t.Setenv("DATMAN_OUTPUT_DIR", "")
	t.Setenv("DATMAN_WORKERS", "")
	t.Setenv("DATMAN_CACHE", "")

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Workers = 6
	cfg.Formats = []string{"romcenter"}
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 6, loaded.Workers)
	assert.Equal(t, []string{"romcenter"}, loaded.Formats)
}

func TestGetOutputDir_Default(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, ".", cfg.GetOutputDir())
	assert.Empty(t, cfg.GetCachePath())
}
