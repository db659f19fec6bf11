// Package provider lists and downloads caption tracks for a video URL.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/byteowlz/subtxt/internal/captions"
	"github.com/byteowlz/subtxt/internal/fetcher"
)

const (
	BackendYtDlp     = "ytdlp"
	BackendWatchPage = "watchpage"
)

// ErrUnknownBackend is returned by New for an unrecognized backend name.
var ErrUnknownBackend = errors.New("unknown provider backend")

// VideoInfo is what a backend knows about a video before anything is downloaded.
type VideoInfo struct {
	// URL is the provider's canonical page address when it reports one.
	URL     string
	Title   string
	Channel string
	Tracks  captions.TrackSet
}

// DownloadRequest selects one caption track to write into Dir.
type DownloadRequest struct {
	URL      string
	Title    string
	Language string
	Dir      string
	// Format is a preference; backends may fall back to another accepted format.
	Format captions.Format
}

// Backend is a caption provider.
type Backend interface {
	// Name returns the unique identifier for this backend
	Name() string

	// IsAvailable reports whether the backend can run on this machine
	IsAvailable() bool

	// Metadata returns the title and caption tracks without downloading video
	Metadata(ctx context.Context, url string) (*VideoInfo, error)

	// Download writes the requested track as <title>.<lang>.<ext> and returns its path
	Download(ctx context.Context, req DownloadRequest) (string, error)
}

// Options configures the backends built by New.
type Options struct {
	YtDlpPath    string
	Timeout      time.Duration
	AutoCaptions bool
	JavaScript   string
	UserAgent    string
	BrowserAgent string
	Runner       CommandRunner
	Fetcher      *fetcher.ContentFetcher
	Logger       *slog.Logger
}

// New builds the backend called name.
func New(name string, opts Options) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", BackendYtDlp:
		return NewYtDlpBackend(opts), nil
	case BackendWatchPage:
		return NewWatchPageBackend(opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
}

// Names lists the registered backends.
func Names() []string {
	return []string{BackendYtDlp, BackendWatchPage}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
