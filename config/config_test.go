package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anxuanzi/bua-dom/dom"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// TestLoad_Defaults verifies an empty load yields the defaults.
func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DriverRod, cfg.Driver)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, dom.DefaultOptions().ViewportExpansion, cfg.Snapshot.ViewportExpansion)
	assert.True(t, cfg.Snapshot.HighlightElements)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, cfg.Browser.Viewport, cfg.Playwright.Viewport)
}

// TestLoad_YAML verifies file values override defaults and unset keys keep them.
func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "domsnap.yaml", `
driver: playwright
log_level: debug
browser:
  headless: false
  navigation_timeout: 45s
  viewport:
    width: 1024
    height: 768
  stealth:
    enabled: false
snapshot:
  viewport_expansion: -1
  focus_highlight_index: 3
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DriverPlaywright, cfg.Driver)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 45*time.Second, cfg.Browser.NavigationTimeout)
	assert.Equal(t, dom.Viewport{Width: 1024, Height: 768}, cfg.Browser.Viewport)
	assert.False(t, cfg.Browser.Stealth.EnableStealth)
	assert.NotEmpty(t, cfg.Browser.Stealth.UserAgent, "unset keys keep defaults")
	assert.Equal(t, -1, cfg.Snapshot.ViewportExpansion)
	require.NotNil(t, cfg.Snapshot.FocusHighlightIndex)
	assert.Equal(t, 3, *cfg.Snapshot.FocusHighlightIndex)
	assert.True(t, cfg.Snapshot.HighlightElements)
}

// TestLoad_Env verifies environment variables override the file.
func TestLoad_Env(t *testing.T) {
	path := writeFile(t, "domsnap.yaml", "log_level: warn\n")
	t.Setenv("DOMSNAP_LOG_LEVEL", "error")
	t.Setenv("DOMSNAP_VIEWPORT_EXPANSION", "250")
	t.Setenv("DOMSNAP_HIGHLIGHT", "false")
	t.Setenv("DOMSNAP_HEADLESS", "false")
	t.Setenv("DOMSNAP_NAVIGATION_TIMEOUT", "5s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, 250, cfg.Snapshot.ViewportExpansion)
	assert.False(t, cfg.Snapshot.HighlightElements)
	assert.False(t, cfg.Browser.Headless)
	assert.False(t, cfg.Playwright.Headless)
	assert.Equal(t, 5*time.Second, cfg.Browser.NavigationTimeout)
}

// TestLoad_EnvFile verifies .env files feed the overrides without
// replacing variables that are already set.
func TestLoad_EnvFile(t *testing.T) {
	env := writeFile(t, ".env", "DOMSNAP_REMOTE_URL=ws://127.0.0.1:9222/devtools\nDOMSNAP_DRIVER=playwright\n")
	t.Setenv("DOMSNAP_DRIVER", "rod")
	t.Cleanup(func() { os.Unsetenv("DOMSNAP_REMOTE_URL") })

	cfg, err := Load("", env, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "ws://127.0.0.1:9222/devtools", cfg.Browser.RemoteURL)
	assert.Equal(t, DriverRod, cfg.Driver)
}

// TestLoad_Errors verifies bad files and values are rejected.
func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.yaml", "driver: [unclosed"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "driver.yaml", "driver: selenium\n"))
	assert.ErrorContains(t, err, "unknown driver")

	t.Setenv("DOMSNAP_VIEWPORT_EXPANSION", "wide")
	_, err = Load("")
	assert.ErrorContains(t, err, "DOMSNAP_VIEWPORT_EXPANSION")
}

// TestNewLogger verifies the logger honors the configured level.
func TestNewLogger(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "warn"
	l, err := cfg.NewLogger()
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(-1))
	assert.True(t, l.Core().Enabled(1))

	cfg.LogLevel = "loud"
	_, err = cfg.NewLogger()
	assert.Error(t, err)
}
