package browser

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anxuanzi/bua-dom/dom"
)

// TestConfig_Defaults verifies zero values are filled in.
func TestConfig_Defaults(t *testing.T) {
	var cfg Config
	cfg.defaults()
	assert.Equal(t, dom.Viewport{Width: 1280, Height: 720}, cfg.Viewport)
	assert.Equal(t, 30*time.Second, cfg.NavigationTimeout)
	assert.NotNil(t, cfg.Logger)

	cfg = Config{Viewport: dom.Viewport{Width: 800, Height: 600}, NavigationTimeout: time.Second}
	cfg.defaults()
	assert.Equal(t, dom.Viewport{Width: 800, Height: 600}, cfg.Viewport)
	assert.Equal(t, time.Second, cfg.NavigationTimeout)
}

// TestDefaultConfig verifies the default configuration is headless and stealthy.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.Headless)
	assert.True(t, cfg.Stealth.EnableStealth)
	assert.False(t, cfg.Stealth.HumanLikeDelays)
	assert.Less(t, cfg.Stealth.MinDelay, cfg.Stealth.MaxDelay)
}

// TestStealthLaunchFlags verifies callers get a private copy.
func TestStealthLaunchFlags(t *testing.T) {
	flags := StealthLaunchFlags()
	require.NotEmpty(t, flags)
	assert.Equal(t, "disable-blink-features=AutomationControlled", flags[0])
	for _, f := range flags {
		assert.False(t, strings.HasPrefix(f, "-"), f)
	}

	flags[0] = "mutated"
	assert.NotEqual(t, "mutated", StealthLaunchFlags()[0])
}

// TestHumanDelay verifies delays are bounded and cancellable.
func TestHumanDelay(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, humanDelay(ctx, 0, 100))
	assert.NoError(t, humanDelay(ctx, 50, 50))

	start := time.Now()
	require.NoError(t, humanDelay(ctx, 5, 10))
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, humanDelay(cancelled, 1000, 2000), context.Canceled)
}

// TestWebGLScript verifies the override is parameterized by vendor and renderer.
func TestWebGLScript(t *testing.T) {
	assert.Contains(t, webglScript, "37445")
	assert.Contains(t, webglScript, "37446")
}

// TestManager_Closed verifies a closed manager refuses work.
func TestManager_Closed(t *testing.T) {
	m := NewManager(Config{})
	require.NoError(t, m.Close())
	assert.ErrorIs(t, m.Start(context.Background()), ErrClosed)
	_, err := m.NewPage(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

// TestManager_NotStarted verifies pages need a running browser.
func TestManager_NotStarted(t *testing.T) {
	m := NewManager(Config{})
	_, err := m.NewPage(context.Background())
	assert.Error(t, err)
}
