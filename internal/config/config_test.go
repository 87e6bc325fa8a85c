package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.Dir)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultWatchSchedule, cfg.WatchSchedule)
	assert.Empty(t, cfg.APIURL)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	content := "api_url: https://tasks.example.com/\ntimeout: 3s\nlog_format: json\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte(content), 0600))
	t.Setenv("TASKDECK_LOG_LEVEL", "debug")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "https://tasks.example.com", cfg.APIURL)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte("api_url: http://file\n"), 0600))
	t.Setenv("TASKDECK_API_URL", "http://env")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "http://env", cfg.APIURL)
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte("api_url: [unterminated\n"), 0600))

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestDefaultConfigDir_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	assert.Equal(t, filepath.Join("/tmp/xdg", AppName), DefaultConfigDir())
}

func TestSessionHelpers(t *testing.T) {
	cfg, err := New(filepath.Join(t.TempDir(), "nested"))
	require.NoError(t, err)

	assert.False(t, cfg.HasSession())
	require.NoError(t, cfg.EnsureDir())
	require.NoError(t, os.WriteFile(cfg.SessionPath(), []byte("{}"), 0600))
	assert.True(t, cfg.HasSession())
	require.NoError(t, cfg.RemoveSession())
	assert.False(t, cfg.HasSession())
}

func TestYAML(t *testing.T) {
	cfg, err := New(t.TempDir())
	require.NoError(t, err)
	cfg.APIURL = "http://localhost:3000"

	out, err := cfg.YAML()
	require.NoError(t, err)
	assert.Contains(t, out, "api_url: http://localhost:3000")
	assert.Contains(t, out, "@every 30s")
	assert.Contains(t, out, "timeout: 10s")
	assert.NotContains(t, out, "metrics_file")
}
