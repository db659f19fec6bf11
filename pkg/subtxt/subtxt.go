// Package subtxt turns the captions of an online video into a plain-text
// transcript. It is the library entry point behind the subtxt command.
package subtxt

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/byteowlz/subtxt/internal/browser"
	"github.com/byteowlz/subtxt/internal/clipboard"
	"github.com/byteowlz/subtxt/internal/config"
	"github.com/byteowlz/subtxt/internal/focus"
	"github.com/byteowlz/subtxt/internal/notify"
	"github.com/byteowlz/subtxt/internal/prompt"
	"github.com/byteowlz/subtxt/internal/provider"
	"github.com/byteowlz/subtxt/internal/resolver"
	"github.com/byteowlz/subtxt/internal/session"
)

// Errors returned by Transcript. Match them with errors.Is.
var (
	ErrNoVideoURL          = session.ErrNoVideoURL
	ErrProviderUnavailable = session.ErrProviderUnavailable
	ErrInProgress          = session.ErrInProgress
	ErrMetadata            = session.ErrMetadata
	ErrNoSubtitles         = session.ErrNoSubtitles
	ErrNoUsableFormat      = session.ErrNoUsableFormat
	ErrPrompt              = session.ErrPrompt
	ErrPromptCancelled     = session.ErrPromptCancelled
	ErrDownload            = session.ErrDownload
	ErrLocate              = session.ErrLocate
	ErrConversion          = session.ErrConversion
)

// FocusSource captures the user's current application context.
type FocusSource interface {
	Focus(ctx context.Context) (focus.Element, error)
}

type Result struct {
	session.Result
	// Source is how the URL was found; empty when the caller passed one.
	Source         resolver.Source
	ProcessingTime time.Duration
}

type Client struct {
	config    *config.Config
	logger    *slog.Logger
	notifier  notify.Notifier
	prompter  session.Prompter
	backend   provider.Backend
	runner    provider.CommandRunner
	focus     FocusSource
	clipboard resolver.Clipboard
	session   *session.Session
}

type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithNotifier receives the user-facing status lines. The default drops them.
func WithNotifier(n notify.Notifier) Option {
	return func(c *Client) { c.notifier = n }
}

// WithPrompter is asked when several languages remain. The default takes the
// first offered language.
func WithPrompter(p session.Prompter) Option {
	return func(c *Client) { c.prompter = p }
}

// WithBackend replaces the provider selected by the configuration.
func WithBackend(b provider.Backend) Option {
	return func(c *Client) { c.backend = b }
}

// WithRunner replaces the process runner used by the yt-dlp backend.
func WithRunner(r provider.CommandRunner) Option {
	return func(c *Client) { c.runner = r }
}

func WithFocus(f FocusSource) Option {
	return func(c *Client) { c.focus = f }
}

func WithClipboard(cb resolver.Clipboard) Option {
	return func(c *Client) { c.clipboard = cb }
}

// New wires a client from cfg. A nil cfg means config.Default().
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	c := &Client{
		config:    cfg,
		logger:    slog.Default(),
		notifier:  notify.Noop{},
		prompter:  prompt.Fixed(""),
		clipboard: clipboard.System{},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.focus == nil {
		c.focus = browser.NewDevTools(cfg.Browser.DevToolsURL, cfg.Browser.App, cfg.BrowserTimeout(), c.logger)
	}
	if c.backend == nil {
		backend, err := provider.New(cfg.Provider.Backend, provider.Options{
			YtDlpPath:    cfg.Provider.YtDlpPath,
			Timeout:      cfg.ProviderTimeout(),
			AutoCaptions: cfg.Provider.AutoCaptions,
			JavaScript:   cfg.Provider.JavaScript,
			UserAgent:    cfg.Provider.UserAgent,
			BrowserAgent: cfg.Provider.BrowserAgent,
			Runner:       c.runner,
			Logger:       c.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create provider: %w", err)
		}
		c.backend = backend
	}

	c.session = session.New(c.backend, c.prompter, c.notifier,
		session.NewGate(cfg.Session.LockFile),
		session.Options{
			OutputDir:          cfg.Output.Dir,
			KeepCaptions:       cfg.Output.KeepCaptions,
			PreferredLanguages: cfg.Session.PreferredLanguages,
		},
		c.logger,
	)
	return c, nil
}

func (c *Client) Backend() provider.Backend { return c.backend }

// Resolve finds the URL of the video in the active browser tab, falling back
// to the clipboard. It returns "" when nothing plausible was found.
func (c *Client) Resolve(ctx context.Context) (string, resolver.Source) {
	el, err := c.focus.Focus(ctx)
	if err != nil {
		c.logger.Debug("no focus context, using clipboard only", "error", err)
		el = focus.Detached()
	}
	url, src := resolver.Resolve(el, c.clipboard)
	c.logger.Debug("url resolution finished", "url", url, "source", src)
	return url, src
}

// Transcript downloads the captions of url in lang and reduces them to a
// .txt file. An empty url is resolved from the current context; an empty lang
// selects automatically or asks the prompter.
//
// When only the reduction fails, the returned Result points at the kept
// caption file and the error matches ErrConversion.
func (c *Client) Transcript(ctx context.Context, url, lang string) (*Result, error) {
	start := time.Now()
	out := &Result{}

	req := session.Request{URL: url, Language: lang}
	if url == "" {
		req.Resolve = func() string {
			resolved, src := c.Resolve(ctx)
			out.Source = src
			return resolved
		}
	}

	res, err := c.session.Run(ctx, req)
	if res == nil {
		return nil, err
	}
	out.Result = *res
	out.ProcessingTime = time.Since(start)
	return out, err
}

// Tracks lists the caption tracks of url without downloading anything.
func (c *Client) Tracks(ctx context.Context, url string) (*provider.VideoInfo, error) {
	if !c.backend.IsAvailable() {
		return nil, &session.UnavailableError{Backend: c.backend.Name()}
	}
	info, err := c.backend.Metadata(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMetadata, err)
	}
	return info, nil
}
