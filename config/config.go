// Package config loads domsnap configuration from YAML, .env files and
// DOMSNAP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/anxuanzi/bua-dom/browser"
	"github.com/anxuanzi/bua-dom/dom"
	"github.com/anxuanzi/bua-dom/pwpage"
	"github.com/anxuanzi/bua-dom/screenshot"
)

// Drivers.
const (
	DriverRod        = "rod"
	DriverPlaywright = "playwright"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DOMSNAP_"

// Config is the top-level domsnap configuration.
type Config struct {
	// Driver selects the browser backend: rod or playwright.
	Driver     string                      `yaml:"driver"`
	Browser    browser.Config              `yaml:"browser"`
	Playwright pwpage.Config               `yaml:"playwright"`
	Snapshot   dom.Options                 `yaml:"snapshot"`
	Annotation screenshot.AnnotationConfig `yaml:"annotation"`
	LogLevel   string                      `yaml:"log_level"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Driver:     DriverRod,
		Browser:    browser.DefaultConfig(),
		Playwright: pwpage.Config{Headless: true},
		Snapshot:   dom.DefaultOptions(),
		Annotation: screenshot.DefaultAnnotationConfig(),
		LogLevel:   "info",
	}
}

// Load builds a configuration from defaults, the YAML file at path (if
// non-empty), the given .env files and the environment, in that order.
// Missing .env files are ignored; variables already set win over them.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", f, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Driver == "" {
		c.Driver = DriverRod
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Browser.Viewport.Width <= 0 || c.Browser.Viewport.Height <= 0 {
		c.Browser.Viewport = dom.Viewport{Width: 1280, Height: 720}
	}
	if c.Browser.NavigationTimeout <= 0 {
		c.Browser.NavigationTimeout = 30 * time.Second
	}
	if c.Playwright.Viewport.Width <= 0 || c.Playwright.Viewport.Height <= 0 {
		c.Playwright.Viewport = c.Browser.Viewport
	}
	if c.Annotation.BorderWidth <= 0 {
		c.Annotation.BorderWidth = 2
	}
}

// Validate reports settings that cannot be used.
func (c *Config) Validate() error {
	switch c.Driver {
	case DriverRod, DriverPlaywright:
	default:
		return fmt.Errorf("config: unknown driver %q", c.Driver)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: log level: %w", err)
	}
	if c.Browser.Stealth.HumanLikeDelays && c.Browser.Stealth.MaxDelay < c.Browser.Stealth.MinDelay {
		return fmt.Errorf("config: stealth max delay %dms below min delay %dms",
			c.Browser.Stealth.MaxDelay, c.Browser.Stealth.MinDelay)
	}
	return nil
}

// applyEnv applies DOMSNAP_* overrides read through lookup.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}
	setBool := func(name string, dst *bool) {
		if v, ok := get(name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}
	setString := func(name string, dst *string) {
		if v, ok := get(name); ok {
			*dst = v
		}
	}

	setString("DRIVER", &c.Driver)
	setString("LOG_LEVEL", &c.LogLevel)
	setString("REMOTE_URL", &c.Browser.RemoteURL)
	setString("CHROME_BIN", &c.Browser.Bin)
	setString("USER_AGENT", &c.Browser.Stealth.UserAgent)
	setBool("HEADLESS", &c.Browser.Headless)
	setBool("STEALTH", &c.Browser.Stealth.EnableStealth)
	setBool("HIGHLIGHT", &c.Snapshot.HighlightElements)
	setBool("DYNAMIC_ATTRS", &c.Snapshot.IncludeDynamicAttributes)

	if v, ok := get("HEADLESS"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Playwright.Headless = b
		}
	}
	if v, ok := get("VIEWPORT_EXPANSION"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: %sVIEWPORT_EXPANSION: %w", EnvPrefix, err))
		} else {
			c.Snapshot.ViewportExpansion = n
		}
	}
	if v, ok := get("NAVIGATION_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: %sNAVIGATION_TIMEOUT: %w", EnvPrefix, err))
		} else {
			c.Browser.NavigationTimeout = d
		}
	}
	return errors.Join(errs...)
}

// NewLogger builds a console logger at the configured level.
func (c *Config) NewLogger() (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("config: log level: %w", err)
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.DisableStacktrace = true
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}
