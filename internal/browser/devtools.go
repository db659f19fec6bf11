// Package browser captures the focused element of a running Chromium-based
// browser through its remote debugging endpoint.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/byteowlz/subtxt/internal/focus"
)

// ErrNoPage is returned when the browser has no regular page open.
var ErrNoPage = errors.New("browser: no open page")

type BrowserType string

const (
	BrowserChrome  BrowserType = "chrome"
	BrowserEdge    BrowserType = "msedge"
	BrowserBrave   BrowserType = "brave"
	BrowserOpera   BrowserType = "opera"
	BrowserVivaldi BrowserType = "vivaldi"
	BrowserFirefox BrowserType = "firefox"
)

// DevTools reads focus state from a browser started with
// --remote-debugging-port.
type DevTools struct {
	url     string
	app     BrowserType
	timeout time.Duration
	logger  *slog.Logger
}

// NewDevTools connects to the endpoint at url (http:// or ws://). A non-empty
// app overrides the browser name derived from the version string.
func NewDevTools(url, app string, timeout time.Duration, logger *slog.Logger) *DevTools {
	if logger == nil {
		logger = slog.Default()
	}
	return &DevTools{
		url:     url,
		app:     BrowserType(strings.ToLower(strings.TrimSpace(app))),
		timeout: timeout,
		logger:  logger,
	}
}

// Focus snapshots the focused element of the active tab. The tab itself is
// left open and untouched.
func (d *DevTools) Focus(ctx context.Context) (focus.Element, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	allocCtx, cancelAlloc := chromedp.NewRemoteAllocator(ctx, d.url)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	targets, err := chromedp.Targets(browserCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to list browser targets at %s: %w", d.url, err)
	}
	page := pickPage(targets)
	if page == nil {
		return nil, ErrNoPage
	}

	app := &focus.Application{AppName: string(d.app), URL: page.URL}
	if app.AppName == "" {
		app.AppName = string(d.detect(browserCtx))
	}
	d.logger.Debug("attached to browser", "app", app.AppName, "target", page.TargetID, "url", page.URL)

	snap, err := d.snapshot(browserCtx, page.TargetID)
	if err != nil {
		// The tab URL alone is still useful.
		d.logger.Debug("focus snapshot failed", "error", err)
		return &focus.Node{Application: app}, nil
	}
	return snap.element(app), nil
}

func (d *DevTools) detect(browserCtx context.Context) BrowserType {
	c := chromedp.FromContext(browserCtx)
	if c == nil || c.Browser == nil {
		return BrowserChrome
	}
	_, product, _, userAgent, _, err := browser.GetVersion().Do(cdp.WithExecutor(browserCtx, c.Browser))
	if err != nil {
		d.logger.Debug("browser version lookup failed", "error", err)
		return BrowserChrome
	}
	return DetectBrowser(product, userAgent)
}

func (d *DevTools) snapshot(browserCtx context.Context, id target.ID) (*focusSnapshot, error) {
	tabCtx, cancelTab := chromedp.NewContext(browserCtx, chromedp.WithTargetID(id))
	defer func() {
		// Forget the attached target so cancelling detaches without
		// closing the user's tab.
		if c := chromedp.FromContext(tabCtx); c != nil {
			c.Target = nil
		}
		cancelTab()
	}()

	var snap focusSnapshot
	if err := chromedp.Run(tabCtx, chromedp.Evaluate(focusScript, &snap)); err != nil {
		return nil, err
	}
	return &snap, nil
}

// DetectBrowser maps a DevTools product and user agent to an application name.
func DetectBrowser(product, userAgent string) BrowserType {
	s := strings.ToLower(product + " " + userAgent)
	switch {
	case strings.Contains(s, "edg/"):
		return BrowserEdge
	case strings.Contains(s, "opr/"), strings.Contains(s, "opera"):
		return BrowserOpera
	case strings.Contains(s, "vivaldi"):
		return BrowserVivaldi
	case strings.Contains(s, "brave"):
		return BrowserBrave
	case strings.Contains(s, "firefox"):
		return BrowserFirefox
	default:
		return BrowserChrome
	}
}

// pickPage returns the first regular web page target.
func pickPage(targets []*target.Info) *target.Info {
	for _, t := range targets {
		if t == nil || t.Type != "page" {
			continue
		}
		if strings.HasPrefix(t.URL, "chrome://") || strings.HasPrefix(t.URL, "devtools://") ||
			strings.HasPrefix(t.URL, "edge://") || strings.HasPrefix(t.URL, "chrome-extension://") {
			continue
		}
		return t
	}
	return nil
}
