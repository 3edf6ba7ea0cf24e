package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/samber/lo"
	"github.com/stockscan/cli/internal/scan"
)

// ErrNoVisibleTab is returned when the browser has no tab in the foreground.
var ErrNoVisibleTab = errors.New("no visible tab to capture")

// ChromeConfig configures the Chrome capture backend.
type ChromeConfig struct {
	// ControlURL is the DevTools endpoint of a running Chrome: a ws:// URL,
	// an http://host:port address or a bare port. Empty means discover it
	// from DevToolsActivePort in UserDataDir.
	ControlURL string

	// UserDataDir is the Chrome user data directory used for discovery.
	// Empty means the OS default.
	UserDataDir string

	// Launch starts a private Chrome instead of attaching to a running one,
	// opens StartURL and captures it.
	Launch   bool
	Headless bool
	StartURL string

	// Timeout bounds the whole capture, including tab inspection. Zero means
	// no bound beyond the caller's context.
	Timeout time.Duration

	Logger *slog.Logger
}

// ChromeCapturer captures the foreground tab of a Chrome browser over the
// DevTools protocol.
type ChromeCapturer struct {
	cfg ChromeConfig
	log *slog.Logger
}

var _ scan.Capturer = (*ChromeCapturer)(nil)

func NewChromeCapturer(cfg ChromeConfig) *ChromeCapturer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ChromeCapturer{cfg: cfg, log: logger.With("component", "chrome-capture")}
}

// Capture takes a PNG screenshot of the visible viewport of the active tab.
func (c *ChromeCapturer) Capture(ctx context.Context) (scan.Snapshot, error) {
	ctx, cancel := c.captureContext(ctx)
	defer cancel()

	var (
		page    *rod.Page
		cleanup func()
		err     error
	)
	if c.cfg.Launch {
		page, cleanup, err = c.launch(ctx)
	} else {
		page, cleanup, err = c.attach(ctx)
	}
	if err != nil {
		return "", err
	}
	defer cleanup()

	data, err := page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("screenshot: timed out after %s: %w", c.cfg.Timeout, err)
		}
		return "", fmt.Errorf("screenshot: %w", err)
	}
	c.log.Debug("chrome: captured tab", "bytes", len(data))

	return EncodeDataURI(data)
}

func (c *ChromeCapturer) captureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.cfg.Timeout)
}

func (c *ChromeCapturer) attach(ctx context.Context) (*rod.Page, func(), error) {
	wsURL, err := c.resolveControlURL()
	if err != nil {
		return nil, nil, err
	}
	c.log.Info("chrome: connecting", "url", wsURL)

	b := rod.New().ControlURL(wsURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return nil, nil, fmt.Errorf("chrome: connect: %w", err)
	}

	page, err := c.activePage(b)
	if err != nil {
		return nil, nil, err
	}
	// The browser belongs to the user; leave it running.
	return page, func() {}, nil
}

func (c *ChromeCapturer) launch(ctx context.Context) (*rod.Page, func(), error) {
	if c.cfg.StartURL == "" {
		return nil, nil, fmt.Errorf("chrome: a URL to open is required when launching a browser")
	}

	l := launcher.New().Context(ctx).Headless(c.cfg.Headless)
	wsURL, err := l.Launch()
	if err != nil {
		return nil, nil, fmt.Errorf("chrome: launch: %w", err)
	}
	c.log.Info("chrome: launched local chrome", "url", wsURL, "headless", c.cfg.Headless)

	b := rod.New().ControlURL(wsURL).Context(ctx)
	cleanup := func() {
		if err := b.Close(); err != nil {
			c.log.Debug("chrome: close", "error", err)
		}
		l.Cleanup()
	}
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, nil, fmt.Errorf("chrome: connect: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: c.cfg.StartURL})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("chrome: open %s: %w", c.cfg.StartURL, err)
	}
	if err := page.WaitLoad(); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("chrome: wait for %s: %w", c.cfg.StartURL, err)
	}
	return page, cleanup, nil
}

func (c *ChromeCapturer) resolveControlURL() (string, error) {
	u := strings.TrimSpace(c.cfg.ControlURL)
	if u == "" {
		return DiscoverDevToolsURL(c.cfg.UserDataDir)
	}
	if strings.HasPrefix(u, "ws://") || strings.HasPrefix(u, "wss://") {
		return u, nil
	}
	resolved, err := launcher.ResolveURL(u)
	if err != nil {
		return "", fmt.Errorf("chrome: resolve %s: %w", u, err)
	}
	return resolved, nil
}

// tabState is what is known about one open page when choosing what to capture.
type tabState struct {
	URL     string
	Visible bool
	Focused bool
}

const tabStateJS = `() => ({visible: document.visibilityState === "visible", focused: document.hasFocus()})`

func (c *ChromeCapturer) activePage(b *rod.Browser) (*rod.Page, error) {
	pages, err := b.Pages()
	if err != nil {
		return nil, fmt.Errorf("chrome: list tabs: %w", err)
	}

	states := make([]tabState, len(pages))
	for i, p := range pages {
		if info, err := p.Info(); err == nil {
			states[i].URL = info.URL
		}
		res, err := p.Eval(tabStateJS)
		if err != nil {
			c.log.Debug("chrome: tab state unavailable", "url", states[i].URL, "error", err)
			continue
		}
		states[i].Visible = res.Value.Get("visible").Bool()
		states[i].Focused = res.Value.Get("focused").Bool()
	}

	idx, err := pickTab(states)
	if err != nil {
		return nil, err
	}
	c.log.Debug("chrome: selected tab", "url", states[idx].URL, "focused", states[idx].Focused)
	return pages[idx], nil
}

// pickTab prefers the visible tab of the focused window, then any visible tab.
func pickTab(tabs []tabState) (int, error) {
	if len(tabs) == 0 {
		return 0, fmt.Errorf("chrome: no open tabs")
	}
	capturable := func(t tabState) bool {
		return t.Visible && !strings.HasPrefix(t.URL, "devtools://")
	}

	if _, idx, ok := lo.FindIndexOf(tabs, func(t tabState) bool { return capturable(t) && t.Focused }); ok {
		return idx, nil
	}
	if _, idx, ok := lo.FindIndexOf(tabs, capturable); ok {
		return idx, nil
	}
	return 0, ErrNoVisibleTab
}
