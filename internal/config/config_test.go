package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, again)
}

func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
listen: 0.0.0.0:9000
grid:
  width: 1400
  lane_height: 20
ics:
  - url: https://example.com/work.ics
    name: Work
    color: "#ff8800"
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:9000", cfg.Listen)
	require.Equal(t, defaultTimezone, cfg.Timezone)
	require.Equal(t, 1400.0, cfg.Grid.Width)
	require.Equal(t, float64(defaultGridHeight), cfg.Grid.Height)
	require.Equal(t, 20.0, cfg.Grid.LaneHeight)
	require.Equal(t, 25.0, cfg.Grid.HeaderHeight)
	require.Len(t, cfg.ICS, 1)
	require.Equal(t, "Work", cfg.ICS[0].CalendarID())
	require.NoError(t, cfg.Validate())
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unterminated"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.ICS = append(cfg.ICS, ICSConfig{ID: "home", URL: "https://example.com/home.ics"})
	cfg.BasicAuth = &BasicAuthConfig{Username: "u", Password: "p"}
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, got)

	require.Error(t, Save("", cfg))
	require.Error(t, Save(path, nil))
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RefreshCron = "not a schedule"
	cfg.ICS = []ICSConfig{
		{ID: "a", URL: "https://example.com/a.ics"},
		{ID: "a", URL: "https://example.com/b.ics"},
		{ID: "c"},
		{ID: "d", URL: "https://example.com/d.ics", Color: "blue"},
	}

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "refresh")
	require.Contains(t, err.Error(), "duplicate calendar id")
	require.Contains(t, err.Error(), "url is empty")
	require.Contains(t, err.Error(), "invalid color")
}

func TestCalendarIDFallback(t *testing.T) {
	require.Equal(t, "x", ICSConfig{ID: "x", Name: "n", URL: "u"}.CalendarID())
	require.Equal(t, "n", ICSConfig{Name: "n", URL: "u"}.CalendarID())
	require.Equal(t, "u", ICSConfig{URL: "u"}.CalendarID())
}

func TestLocation(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, "Asia/Seoul", cfg.Location().String())

	cfg.Timezone = "Not/AZone"
	require.Equal(t, time.Local, cfg.Location())

	cfg.Timezone = ""
	require.Equal(t, time.Local, cfg.Location())
}
