package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/pdf-compressor/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultSettings(), cfg.Settings())
	assert.True(t, cfg.Compression.ObjectStreams)
	assert.Equal(t, "0.0.0.0:8090", cfg.Addr())
	assert.Equal(t, 2, cfg.Server.MaxConcurrentJobs)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
compression:
  quality: 65
  scale: 1.2
  yield_delay: 5ms
  object_streams: false
server:
  port: 9000
  max_upload_size: 1048576
observability:
  log_level: debug
  log_format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, domain.CompressionSettings{Quality: 65, Scale: 1.2}, cfg.Settings())
	assert.Equal(t, 5*time.Millisecond, cfg.Compression.YieldDelay)
	assert.False(t, cfg.Compression.ObjectStreams)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxUploadSize)
	assert.Equal(t, "json", cfg.Observability.LogFormat)
	assert.Equal(t, 5*time.Minute, cfg.Server.WriteTimeout, "unset keys keep defaults")
}

func TestPresetOverridesQualityAndScale(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Compression.Preset = "clarity"
	cfg.Compression.Quality = 10

	assert.Equal(t, domain.CompressionSettings{Quality: 80, Scale: 2.0}, cfg.Settings())
}

func TestSettingsAreClamped(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Compression.Quality = 400
	cfg.Compression.Scale = 0.1

	assert.Equal(t, domain.CompressionSettings{Quality: 100, Scale: 0.5}, cfg.Settings())
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, "compression:\n  preset: max\n")
	t.Setenv("PDFC_QUALITY", "55")
	t.Setenv("PDFC_YIELD_DELAY", "10ms")
	t.Setenv("SERVER_PORT", "7000")
	t.Setenv("MAX_CONCURRENT_JOBS", "4")
	t.Setenv("LOG_FORMAT", "JSON")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Empty(t, cfg.Compression.Preset, "explicit quality clears the preset")
	assert.Equal(t, 55, cfg.Settings().Quality)
	assert.Equal(t, 10*time.Millisecond, cfg.Compression.YieldDelay)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Server.MaxConcurrentJobs)
	assert.Equal(t, "json", cfg.Observability.LogFormat)
}

func TestEnvPreset(t *testing.T) {
	t.Setenv("PDFC_PRESET", "max")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, domain.CompressionSettings{Quality: 20, Scale: 0.8}, cfg.Settings())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(t.TempDir(), "nope.yaml")},
		{"bad yaml", writeConfig(t, "compression: [")},
		{"unknown preset", writeConfig(t, "compression:\n  preset: turbo\n")},
		{"bad port", writeConfig(t, "server:\n  port: 70000\n")},
		{"bad format", writeConfig(t, "observability:\n  log_format: xml\n")},
		{"no jobs", writeConfig(t, "server:\n  max_concurrent_jobs: 0\n")},
		{"negative delay", writeConfig(t, "compression:\n  yield_delay: -1s\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.path)
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.True(t, domain.IsType(err, domain.ErrorTypeConfig))
		})
	}
}
