package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "release", cfg.Server.Mode)
	require.Equal(t, 10, cfg.Server.MaxBodySizeMB)
	require.True(t, cfg.Database.AutoMigrate)
	require.Equal(t, "postgres", cfg.Reference.SourceType)
	require.Equal(t, 5*time.Minute, cfg.Reference.EffectiveCacheTTL())
	require.Empty(t, cfg.OCR.Endpoint)
	require.Empty(t, cfg.Notify.Endpoint)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vitalog.yaml")
	raw := []byte(`
server:
  port: 9090
  mode: debug
reference:
  source_type: filesystem
  path: /etc/vitalog/catalog
  cache_ttl: 30s
ocr:
  endpoint: http://ocr.internal/extract
  deadline: 10s
`)
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.Mode)
	require.Equal(t, "filesystem", cfg.Reference.SourceType)
	require.Equal(t, "/etc/vitalog/catalog", cfg.Reference.Path)
	require.Equal(t, 30*time.Second, cfg.Reference.EffectiveCacheTTL())
	require.Equal(t, "http://ocr.internal/extract", cfg.OCR.Endpoint)

	// Keys the file does not mention keep their defaults.
	require.Equal(t, 25, cfg.Database.MaxOpenConns)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vitalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o600))

	t.Setenv("VITALOG_SERVER__PORT", "7070")
	t.Setenv("VITALOG_NOTIFY__ENDPOINT", "http://hooks.internal/measurements")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, "http://hooks.internal/measurements", cfg.Notify.Endpoint)
}

func TestLoad_MissingFileErrors(t *testing.T) {
	_, err := Load("/nonexistent/vitalog.yaml")
	require.Error(t, err)
}

func TestEffectiveCacheTTL_Malformed(t *testing.T) {
	c := ReferenceConfig{CacheTTL: "not-a-duration"}
	require.Equal(t, 5*time.Minute, c.EffectiveCacheTTL())
}
