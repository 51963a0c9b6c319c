package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathsUnder(t *testing.T) {
	p := PathsUnder("/opt/pulse")

	assert.Equal(t, "/opt/pulse", p.ExecutableDir)
	assert.Equal(t, filepath.Join("/opt/pulse", "data"), p.DataDir)
	assert.Equal(t, filepath.Join("/opt/pulse", "data", "uploads"), p.UploadsDir)
	assert.Equal(t, filepath.Join("/opt/pulse", "data", "reports"), p.ReportsDir)
	assert.Equal(t, filepath.Join("/opt/pulse", "logs"), p.LogsDir)
	assert.Equal(t, filepath.Join("/opt/pulse", "web"), p.WebDir)
	assert.Equal(t, filepath.Join("/opt/pulse", "data", "runs.db"), p.DatabaseFile)
}

func TestPathsConfig_Under(t *testing.T) {
	t.Run("relative directories resolve against the root", func(t *testing.T) {
		pc := PathsConfig{DataDir: "var/data", LogsDir: "var/logs"}
		p := pc.Under("/opt/pulse")

		assert.Equal(t, filepath.Join("/opt/pulse", "var", "data"), p.DataDir)
		assert.Equal(t, filepath.Join("/opt/pulse", "var", "data", "uploads"), p.UploadsDir)
		assert.Equal(t, filepath.Join("/opt/pulse", "var", "logs"), p.LogsDir)
		assert.Equal(t, filepath.Join("/opt/pulse", "web"), p.WebDir)
	})

	t.Run("absolute directories are kept", func(t *testing.T) {
		pc := PathsConfig{DataDir: "/srv/pulse-data"}
		p := pc.Under("/opt/pulse")

		assert.Equal(t, "/srv/pulse-data", p.DataDir)
		assert.Equal(t, filepath.Join("/srv/pulse-data", "runs.db"), p.DatabaseFile)
	})
}

func TestConfig_GetPaths(t *testing.T) {
	cfg := &Config{Paths: PathsConfig{
		ExecutableDir: "/opt/pulse",
		DataDir:       "data",
	}}

	p, err := cfg.GetPaths()
	require.NoError(t, err)
	assert.Equal(t, "/opt/pulse", p.ExecutableDir)
	assert.Equal(t, filepath.Join("/opt/pulse", "data"), p.DataDir)
}

func TestConfig_GetPathsFromYAML(t *testing.T) {
	clearEnv(t)

	content := `
paths:
  executable_dir: /opt/pulse
  data_dir: /srv/pulse-data
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	p, err := cfg.GetPaths()
	require.NoError(t, err)
	assert.Equal(t, "/srv/pulse-data", p.DataDir)
	assert.Equal(t, filepath.Join("/opt/pulse", "logs"), p.LogsDir)
}

func TestPaths_EnsureDirectories(t *testing.T) {
	p := PathsUnder(t.TempDir())
	require.NoError(t, p.EnsureDirectories())

	for _, dir := range []string{p.DataDir, p.UploadsDir, p.ReportsDir, p.LogsDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	// Idempotent.
	require.NoError(t, p.EnsureDirectories())
}

func TestPaths_Helpers(t *testing.T) {
	p := PathsUnder("/opt/pulse")

	assert.Equal(t, filepath.Join(p.UploadsDir, "input.csv"), p.GetUploadPath("input.csv"))
	assert.Equal(t, filepath.Join(p.ReportsDir, "out.xlsx"), p.GetReportPath("out.xlsx"))
	assert.Equal(t, filepath.Join(p.LogsDir, "pulse.log"), p.GetLogPath("pulse.log"))
	assert.Equal(t, filepath.Join(p.WebDir, "index.html"), p.GetWebFilePath("index.html"))
}

func TestPaths_GetReportPathForRun(t *testing.T) {
	p := PathsUnder("/opt/pulse")
	started := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

	got := p.GetReportPathForRun("abc123", started)
	assert.Equal(t, filepath.Join(p.ReportsDir, "pulse_20260314_150926_abc123.xlsx"), got)
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "present.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	assert.True(t, FileExists(path))
	assert.False(t, FileExists(filepath.Join(dir, "absent.txt")))
}
