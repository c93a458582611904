package browser

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// StealthConfig configures anti-detection measures.
type StealthConfig struct {
	// EnableStealth opens pages through go-rod/stealth.
	EnableStealth bool `yaml:"enabled"`

	// UserAgent overrides the browser user agent.
	UserAgent string `yaml:"user_agent"`

	// Locale sets the Accept-Language sent with the user agent (e.g., "en-US").
	Locale string `yaml:"locale"`

	// Timezone sets the browser timezone (e.g., "America/New_York").
	Timezone string `yaml:"timezone"`

	// WebGLVendor spoofs the WebGL vendor.
	WebGLVendor string `yaml:"webgl_vendor"`

	// WebGLRenderer spoofs the WebGL renderer.
	WebGLRenderer string `yaml:"webgl_renderer"`

	// HumanLikeDelays adds random delays before element actions.
	HumanLikeDelays bool `yaml:"human_like_delays"`

	// MinDelay minimum delay between actions (ms).
	MinDelay int `yaml:"min_delay_ms"`

	// MaxDelay maximum delay between actions (ms).
	MaxDelay int `yaml:"max_delay_ms"`
}

// DefaultStealthConfig returns sensible stealth defaults.
func DefaultStealthConfig() StealthConfig {
	return StealthConfig{
		EnableStealth:   true,
		UserAgent:       "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		Locale:          "en-US",
		Timezone:        "America/Los_Angeles",
		WebGLVendor:     "Google Inc. (Apple)",
		WebGLRenderer:   "ANGLE (Apple, ANGLE Metal Renderer: Apple M2 Pro, Unspecified Version)",
		HumanLikeDelays: false,
		MinDelay:        50,
		MaxDelay:        150,
	}
}

// newPage opens a blank page, through go-rod/stealth when enabled.
func newPage(b *rod.Browser, cfg StealthConfig) (*rod.Page, error) {
	if cfg.EnableStealth {
		return stealth.Page(b)
	}
	return b.Page(proto.TargetCreateTarget{URL: ""})
}

// webglScript overrides the unmasked vendor and renderer parameters.
const webglScript = `(vendor, renderer) => {
	for (const proto of [WebGLRenderingContext.prototype, WebGL2RenderingContext.prototype]) {
		const getParameter = proto.getParameter;
		proto.getParameter = function (parameter) {
			if (parameter === 37445) return vendor;
			if (parameter === 37446) return renderer;
			return getParameter.call(this, parameter);
		};
	}
}`

// applyStealthMode sets the overrides go-rod/stealth does not cover.
func applyStealthMode(page *rod.Page, cfg StealthConfig) error {
	if !cfg.EnableStealth {
		return nil
	}

	if cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      cfg.UserAgent,
			AcceptLanguage: cfg.Locale,
		}); err != nil {
			return fmt.Errorf("failed to set user agent: %w", err)
		}
	}

	if cfg.Timezone != "" {
		if err := (proto.EmulationSetTimezoneOverride{TimezoneID: cfg.Timezone}).Call(page); err != nil {
			return fmt.Errorf("failed to set timezone: %w", err)
		}
	}

	if cfg.WebGLVendor != "" || cfg.WebGLRenderer != "" {
		js := fmt.Sprintf("(%s)(%q, %q)", webglScript, cfg.WebGLVendor, cfg.WebGLRenderer)
		if _, err := page.EvalOnNewDocument(js); err != nil {
			return fmt.Errorf("failed to inject webgl override: %w", err)
		}
	}

	return nil
}

// humanDelay waits a random duration in [minMs, maxMs) or until ctx is done.
func humanDelay(ctx context.Context, minMs, maxMs int) error {
	if minMs <= 0 || maxMs <= minMs {
		return nil
	}

	delay := time.Duration(minMs) * time.Millisecond
	if n, err := rand.Int(rand.Reader, big.NewInt(int64(maxMs-minMs))); err == nil {
		delay += time.Duration(n.Int64()) * time.Millisecond
	}

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Additional launch flags for stealth mode.
var stealthLaunchFlags = []string{
	"disable-blink-features=AutomationControlled", // Most important: hides webdriver
	"disable-infobars",                            // Remove "Chrome is being controlled" bar
	"disable-dev-shm-usage",                       // Prevent shared memory issues
	"disable-renderer-backgrounding",
	"disable-backgrounding-occluded-windows",
	"disable-background-timer-throttling",
}

// StealthLaunchFlags returns Chrome flags for stealth mode.
func StealthLaunchFlags() []string {
	return append([]string(nil), stealthLaunchFlags...)
}
