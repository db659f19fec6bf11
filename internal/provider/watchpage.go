package provider

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sync"

	"github.com/byteowlz/subtxt/internal/captions"
	"github.com/byteowlz/subtxt/internal/fetcher"
	"github.com/byteowlz/subtxt/internal/output"
	"github.com/byteowlz/subtxt/internal/processor"
)

const playerResponseVar = "ytInitialPlayerResponse"

// playerResponseScript reads the player response after client-side rendering.
const playerResponseScript = `JSON.stringify(window.ytInitialPlayerResponse || null)`

// timedtextFormats are the fmt values the timedtext endpoint serves.
var timedtextFormats = []captions.Format{
	captions.FormatVTT, captions.FormatSRV3, captions.FormatSRV2, captions.FormatSRV1, captions.FormatTTML,
}

// ErrNoPlayerResponse means the watch page did not carry caption data.
var ErrNoPlayerResponse = errors.New("watch page has no player response")

// WatchPageBackend reads caption tracks straight from a YouTube watch page.
type WatchPageBackend struct {
	fetcher      *fetcher.ContentFetcher
	processor    *processor.ContentProcessor
	fetchOpts    fetcher.FetchOptions
	autoCaptions bool
	logger       *slog.Logger

	mu    sync.Mutex
	pages map[string]*watchPage
}

type watchPage struct {
	title     string
	channel   string
	canonical string
	langs     []string
	tracks    map[string]captionTrack
}

func (p *watchPage) order() []captionTrack {
	out := make([]captionTrack, 0, len(p.langs))
	for _, lang := range p.langs {
		out = append(out, p.tracks[lang])
	}
	return out
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
	Name         struct {
		SimpleText string `json:"simpleText"`
		Runs       []struct {
			Text string `json:"text"`
		} `json:"runs"`
	} `json:"name"`
}

func (t captionTrack) displayName() string {
	if t.Name.SimpleText != "" {
		return t.Name.SimpleText
	}
	if len(t.Name.Runs) > 0 {
		return t.Name.Runs[0].Text
	}
	return ""
}

type playerResponse struct {
	Captions struct {
		Renderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
	VideoDetails struct {
		VideoID string `json:"videoId"`
		Title   string `json:"title"`
	} `json:"videoDetails"`
}

func NewWatchPageBackend(opts Options) (*WatchPageBackend, error) {
	mode, err := fetcher.ParseMode(opts.JavaScript)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	f := opts.Fetcher
	if f == nil {
		f = fetcher.NewContentFetcher(nil, logger)
	}
	return &WatchPageBackend{
		fetcher:   f,
		processor: processor.NewContentProcessor(),
		fetchOpts: fetcher.FetchOptions{
			Mode:         mode,
			Timeout:      opts.Timeout,
			UserAgent:    opts.UserAgent,
			BrowserAgent: opts.BrowserAgent,
			Marker:       playerResponseVar,
			Script:       playerResponseScript,
		},
		autoCaptions: opts.AutoCaptions,
		logger:       logger.With("backend", BackendWatchPage),
		pages:        make(map[string]*watchPage),
	}, nil
}

func (b *WatchPageBackend) Name() string { return BackendWatchPage }

func (b *WatchPageBackend) IsAvailable() bool { return b.fetcher != nil }

func (b *WatchPageBackend) Metadata(ctx context.Context, pageURL string) (*VideoInfo, error) {
	page, err := b.load(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	var tracks []captions.Track
	for _, t := range page.order() {
		tracks = append(tracks, captions.Track{
			Language:  t.LanguageCode,
			Name:      t.displayName(),
			Formats:   timedtextFormats,
			Automatic: t.Kind == "asr",
		})
	}

	return &VideoInfo{
		URL:     cmp.Or(page.canonical, pageURL),
		Title:   page.title,
		Channel: page.channel,
		Tracks:  captions.NewTrackSet(tracks...),
	}, nil
}

func (b *WatchPageBackend) load(ctx context.Context, pageURL string) (*watchPage, error) {
	ctx, cancel := withTimeout(ctx, b.fetchOpts.Timeout)
	defer cancel()

	result, err := b.fetcher.Fetch(ctx, pageURL, b.fetchOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch watch page: %w", err)
	}

	raw := []byte(result.ScriptResult)
	if len(raw) == 0 || string(raw) == "null" {
		raw, err = b.processor.EmbeddedJSON(result.HTML, playerResponseVar)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoPlayerResponse, err)
		}
	}

	var pr playerResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return nil, fmt.Errorf("decode %s: %w", playerResponseVar, err)
	}

	page := &watchPage{tracks: make(map[string]captionTrack)}
	if meta, err := b.processor.Metadata(result.HTML, pageURL); err == nil {
		page.title = meta.Title
		page.channel = meta.Channel
		page.canonical = meta.CanonicalURL
	}
	if page.title == "" {
		page.title = pr.VideoDetails.Title
	}

	for _, t := range pr.Captions.Renderer.CaptionTracks {
		if t.LanguageCode == "" || t.BaseURL == "" {
			continue
		}
		if t.Kind == "asr" && !b.autoCaptions {
			continue
		}
		existing, ok := page.tracks[t.LanguageCode]
		// Manual tracks win over speech recognition for the same language
		if ok && !(existing.Kind == "asr" && t.Kind != "asr") {
			continue
		}
		page.tracks[t.LanguageCode] = t
		if !ok {
			page.langs = append(page.langs, t.LanguageCode)
		}
	}

	b.logger.Debug("parsed watch page", "url", pageURL, "js", result.UsedJS, "tracks", len(page.langs))

	b.mu.Lock()
	b.pages[pageURL] = page
	b.mu.Unlock()
	return page, nil
}

func (b *WatchPageBackend) cached(pageURL string) *watchPage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pages[pageURL]
}

func (b *WatchPageBackend) Download(ctx context.Context, req DownloadRequest) (string, error) {
	page := b.cached(req.URL)
	if page == nil {
		var err error
		if page, err = b.load(ctx, req.URL); err != nil {
			return "", err
		}
	}

	track, ok := page.tracks[req.Language]
	if !ok {
		return "", fmt.Errorf("no caption track for language %q", req.Language)
	}

	format := req.Format
	if format == "" || !format.Accepted() {
		format = captions.FormatVTT
	}
	trackURL, err := withFormat(req.URL, track.BaseURL, format)
	if err != nil {
		return "", err
	}

	body, err := b.fetcher.Get(ctx, trackURL, b.fetchOpts)
	if err != nil {
		return "", fmt.Errorf("failed to download captions: %w", err)
	}
	defer body.Close()

	title := req.Title
	if title == "" {
		title = page.title
	}
	path := output.CaptionPath(req.Dir, title, req.Language, format)
	if err := output.WriteFile(path, func(w io.Writer) error {
		_, err := io.Copy(w, body)
		return err
	}); err != nil {
		return "", err
	}
	return path, nil
}

// withFormat resolves baseURL against the page and sets its fmt parameter.
func withFormat(pageURL, baseURL string, format captions.Format) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid caption url: %w", err)
	}
	if page, err := url.Parse(pageURL); err == nil {
		u = page.ResolveReference(u)
	}
	q := u.Query()
	q.Set("fmt", string(format))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
