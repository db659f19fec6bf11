package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

type FetchMode string

const (
	FetchModeAuto   FetchMode = "auto"
	FetchModeStatic FetchMode = "static"
	FetchModeJS     FetchMode = "javascript"
)

// ParseMode maps the [provider] javascript setting (auto, always, never) to
// a fetch mode.
func ParseMode(s string) (FetchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FetchModeAuto, nil
	case "always", string(FetchModeJS):
		return FetchModeJS, nil
	case "never", string(FetchModeStatic):
		return FetchModeStatic, nil
	default:
		return "", fmt.Errorf("unknown javascript mode %q (want auto, always or never)", s)
	}
}

type FetchOptions struct {
	Mode         FetchMode
	Timeout      time.Duration
	UserAgent    string
	BrowserAgent string
	// Marker must appear in a static response for auto mode to skip
	// rendering. Empty means any successful static response is enough.
	Marker string
	// Script, when set, is evaluated in the rendered page and its string
	// result stored in FetchResult.ScriptResult.
	Script string
}

type FetchResult struct {
	HTML         string
	URL          string
	UsedJS       bool
	ScriptResult string
}

type ContentFetcher struct {
	client          *http.Client
	userAgentSelect *UserAgentSelector
	logger          *slog.Logger
}

func NewContentFetcher(client *http.Client, logger *slog.Logger) *ContentFetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ContentFetcher{
		client:          client,
		userAgentSelect: NewUserAgentSelector(),
		logger:          logger,
	}
}

func (cf *ContentFetcher) Fetch(ctx context.Context, url string, opts FetchOptions) (*FetchResult, error) {
	switch opts.Mode {
	case FetchModeStatic:
		return cf.fetchStatic(ctx, url, opts)
	case FetchModeJS:
		return cf.fetchWithJS(ctx, url, opts)
	}

	// Auto mode: try static first, render only when the marker is missing
	result, err := cf.fetchStatic(ctx, url, opts)
	if err != nil {
		return nil, err
	}
	if opts.Marker == "" || strings.Contains(result.HTML, opts.Marker) {
		return result, nil
	}

	cf.logger.Debug("static page lacks marker, rendering with browser", "url", url, "marker", opts.Marker)
	rendered, err := cf.fetchWithJS(ctx, url, opts)
	if err != nil {
		cf.logger.Warn("javascript rendering failed, using static page", "url", url, "error", err)
		return result, nil
	}
	return rendered, nil
}

// Get performs a browser-like GET and returns the open response body. The
// caller must close it.
func (cf *ContentFetcher) Get(ctx context.Context, url string, opts FetchOptions) (io.ReadCloser, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		body, err := cf.get(ctx, url, opts)
		if err != nil {
			cancel()
			return nil, err
		}
		return &cancelCloser{ReadCloser: body, cancel: cancel}, nil
	}
	return cf.get(ctx, url, opts)
}

func (cf *ContentFetcher) get(ctx context.Context, url string, opts FetchOptions) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Custom user agent takes precedence, then the browser agent type
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = cf.userAgentSelect.GetUserAgent(opts.BrowserAgent)
	}
	req.Header.Set("User-Agent", userAgent)

	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "none")
	// Skips the EU consent interstitial on YouTube
	req.AddCookie(&http.Cookie{Name: "CONSENT", Value: "YES+1"})

	resp, err := cf.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}
	return resp.Body, nil
}

type cancelCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelCloser) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}

func (cf *ContentFetcher) fetchStatic(ctx context.Context, url string, opts FetchOptions) (*FetchResult, error) {
	body, err := cf.Get(ctx, url, opts)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &FetchResult{
		HTML: string(data),
		URL:  url,
	}, nil
}

func (cf *ContentFetcher) fetchWithJS(ctx context.Context, url string, opts FetchOptions) (*FetchResult, error) {
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = cf.userAgentSelect.GetUserAgent(opts.BrowserAgent)
	}
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.UserAgent(userAgent))
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()

	chromeCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	if opts.Timeout > 0 {
		chromeCtx, cancel = context.WithTimeout(chromeCtx, opts.Timeout)
		defer cancel()
	}

	var html, scriptResult string
	tasks := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &html),
	}
	if opts.Script != "" {
		tasks = append(tasks, chromedp.Evaluate(opts.Script, &scriptResult))
	}

	if err := chromedp.Run(chromeCtx, tasks...); err != nil {
		return nil, fmt.Errorf("failed to run Chrome tasks: %w", err)
	}

	return &FetchResult{
		HTML:         html,
		URL:          url,
		UsedJS:       true,
		ScriptResult: scriptResult,
	}, nil
}
