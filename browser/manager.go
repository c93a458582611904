// Package browser drives Chrome through go-rod and exposes pages as
// snapshot sources, highlighters and search contexts.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/anxuanzi/bua-dom/dom"
)

// ErrClosed is returned by a closed Manager.
var ErrClosed = errors.New("browser: manager is closed")

// Config configures the browser manager.
type Config struct {
	// RemoteURL is the DevTools WebSocket URL of a running Chrome.
	// Empty launches a local Chrome.
	RemoteURL string `yaml:"remote_url"`

	// Headless runs a launched Chrome without a window.
	Headless bool `yaml:"headless"`

	// Bin is the Chrome binary. Empty lets the launcher find or download one.
	Bin string `yaml:"bin"`

	// Viewport is the page size in CSS pixels.
	Viewport dom.Viewport `yaml:"viewport"`

	// NavigationTimeout bounds Navigate. Default: 30s.
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`

	Stealth StealthConfig `yaml:"stealth"`

	Logger *zap.Logger `yaml:"-"`
}

// DefaultConfig returns a headless configuration with stealth enabled.
func DefaultConfig() Config {
	return Config{
		Headless:          true,
		Viewport:          dom.Viewport{Width: 1280, Height: 720},
		NavigationTimeout: 30 * time.Second,
		Stealth:           DefaultStealthConfig(),
	}
}

func (c *Config) defaults() {
	if c.Viewport.Width <= 0 || c.Viewport.Height <= 0 {
		c.Viewport = dom.Viewport{Width: 1280, Height: 720}
	}
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// Manager owns one Chrome process or remote connection.
type Manager struct {
	cfg     Config
	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

// NewManager creates a Manager. Call Start to launch Chrome.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// Start launches Chrome, or connects to RemoteURL.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if m.browser != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	log := m.cfg.Logger
	wsURL := m.cfg.RemoteURL
	if wsURL != "" {
		log.Info("browser: connecting to remote", zap.String("url", wsURL))
	} else {
		l := launcher.New().Headless(m.cfg.Headless)
		if m.cfg.Bin != "" {
			l = l.Bin(m.cfg.Bin)
		}
		if m.cfg.Stealth.EnableStealth {
			for _, f := range StealthLaunchFlags() {
				name, value, _ := strings.Cut(f, "=")
				if value == "" {
					l = l.Set(flags.Flag(name))
				} else {
					l = l.Set(flags.Flag(name), value)
				}
			}
		}
		u, err := l.Launch()
		if err != nil {
			return fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		log.Info("browser: launched local chrome", zap.String("url", wsURL), zap.Bool("headless", m.cfg.Headless))
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		_ = m.cleanup()
		return fmt.Errorf("browser: connect: %w", err)
	}
	m.browser = b
	return nil
}

// NewPage opens a tab sized to the configured viewport.
func (m *Manager) NewPage(ctx context.Context) (*Page, error) {
	m.mu.Lock()
	b := m.browser
	closed := m.closed
	m.mu.Unlock()

	if closed {
		return nil, ErrClosed
	}
	if b == nil {
		return nil, fmt.Errorf("browser: not started")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, err := newPage(b, m.cfg.Stealth)
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}
	if err := applyStealthMode(p, m.cfg.Stealth); err != nil {
		m.cfg.Logger.Warn("browser: stealth overrides failed", zap.Error(err))
	}
	if err := p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             int(m.cfg.Viewport.Width),
		Height:            int(m.cfg.Viewport.Height),
		DeviceScaleFactor: 1,
	}); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("browser: set viewport: %w", err)
	}
	return newRodPage(p, m.cfg), nil
}

// Close shuts Chrome down.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return m.cleanup()
}

func (m *Manager) cleanup() error {
	var err error
	if m.browser != nil {
		err = m.browser.Close()
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	return err
}
