package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/byteowlz/subtxt/internal/captions"
	"github.com/byteowlz/subtxt/internal/notify"
	"github.com/byteowlz/subtxt/internal/output"
	"github.com/byteowlz/subtxt/internal/prompt"
	"github.com/byteowlz/subtxt/internal/provider"
)

const sampleVTT = "WEBVTT\n\n1\n00:00:01.000 --> 00:00:02.000\n<v Speaker>Hello <i>world</i>\n"

type fakeBackend struct {
	unavailable bool
	info        *provider.VideoInfo
	metaErr     error
	downloadErr error
	// ext of the file written by Download; empty writes nothing
	ext     captions.Format
	content string
	// hint overrides the returned path
	hint string

	mu       sync.Mutex
	requests []provider.DownloadRequest
}

var _ provider.Backend = (*fakeBackend)(nil)

func (f *fakeBackend) Name() string      { return "fake" }
func (f *fakeBackend) IsAvailable() bool { return !f.unavailable }

func (f *fakeBackend) Metadata(ctx context.Context, url string) (*provider.VideoInfo, error) {
	if f.metaErr != nil {
		return nil, f.metaErr
	}
	return f.info, nil
}

func (f *fakeBackend) Download(ctx context.Context, req provider.DownloadRequest) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.downloadErr != nil {
		return "", f.downloadErr
	}
	path := ""
	if f.ext != "" {
		path = output.CaptionPath(req.Dir, req.Title, req.Language, f.ext)
		if err := os.WriteFile(path, []byte(f.content), 0o644); err != nil {
			return "", err
		}
	}
	if f.hint != "" {
		return f.hint, nil
	}
	return path, nil
}

type fakePrompter struct {
	answer string
	err    error
	calls  [][]string
}

func (p *fakePrompter) Choose(ctx context.Context, languages []string) (string, error) {
	p.calls = append(p.calls, languages)
	return p.answer, p.err
}

func info(title string, tracks ...captions.Track) *provider.VideoInfo {
	return &provider.VideoInfo{URL: "https://www.youtube.com/watch?v=abc", Title: title, Tracks: captions.NewTrackSet(tracks...)}
}

func vtt(lang string) captions.Track {
	return captions.Track{Language: lang, Formats: []captions.Format{captions.FormatVTT}}
}

type harness struct {
	dir      string
	backend  *fakeBackend
	prompter *fakePrompter
	rec      *notify.Recorder
	session  *Session
}

func newHarness(t *testing.T, backend *fakeBackend, opts Options) *harness {
	t.Helper()
	h := &harness{
		dir:      t.TempDir(),
		backend:  backend,
		prompter: &fakePrompter{},
		rec:      &notify.Recorder{},
	}
	if opts.OutputDir == "" {
		opts.OutputDir = h.dir
	}
	h.session = New(backend, h.prompter, h.rec, NewGate(""), opts, nil)
	return h
}

func (h *harness) run(t *testing.T, req Request) (*Result, error) {
	t.Helper()
	if req.URL == "" && req.Resolve == nil {
		req.URL = "https://www.youtube.com/watch?v=abc"
	}
	return h.session.Run(context.Background(), req)
}

func TestRun_SingleLanguage(t *testing.T) {
	h := newHarness(t, &fakeBackend{info: info(`Q&A: "Live"?`, vtt("en")), ext: captions.FormatVTT, content: sampleVTT}, Options{})

	res, err := h.run(t, Request{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := filepath.Join(h.dir, `Q&A_ _Live__.en.txt`)
	if res.Path != want || !res.Converted || res.Language != "en" {
		t.Errorf("unexpected result %+v", res)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "Hello world\n" {
		t.Errorf("unexpected transcript %q", data)
	}
	if _, err := os.Stat(filepath.Join(h.dir, `Q&A_ _Live__.en.vtt`)); !os.IsNotExist(err) {
		t.Error("intermediate caption file should be removed")
	}
	if len(h.prompter.calls) != 0 {
		t.Error("prompt shown for a single language")
	}

	wantMsgs := []string{
		"Attempting to download subtitles...",
		"Found subtitles in: en",
		"Downloading subtitles for language: en",
		`Subtitles downloaded and saved as TXT: Q&A_ _Live__.en.txt`,
	}
	if got := h.rec.Messages(); !slices.Equal(got, wantMsgs) {
		t.Errorf("messages:\n got %q\nwant %q", got, wantMsgs)
	}
}

func TestRun_KeepCaptions(t *testing.T) {
	h := newHarness(t, &fakeBackend{info: info("t", vtt("en")), ext: captions.FormatVTT, content: sampleVTT}, Options{KeepCaptions: true})
	if _, err := h.run(t, Request{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(h.dir, "t.en.vtt")); err != nil {
		t.Errorf("caption file should be kept: %v", err)
	}
}

func TestRun_CreatesDownloadsFolder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Downloads")
	h := newHarness(t, &fakeBackend{info: info("t", vtt("en")), ext: captions.FormatVTT, content: sampleVTT}, Options{OutputDir: dir})
	if _, err := h.run(t, Request{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := h.rec.Messages(); len(got) < 2 || got[1] != "Created Downloads folder." {
		t.Errorf("unexpected messages %q", got)
	}
}

func TestRun_PromptsForMultipleLanguages(t *testing.T) {
	backend := &fakeBackend{
		info: info("t",
			vtt("en"),
			captions.Track{Language: "fr", Formats: []captions.Format{captions.FormatTTML}},
			captions.Track{Language: "de", Formats: []captions.Format{captions.FormatOther}},
		),
		ext:     captions.FormatTTML,
		content: "plain line\n",
	}
	h := newHarness(t, backend, Options{})
	h.prompter.answer = "fr"

	res, err := h.run(t, Request{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(h.prompter.calls) != 1 || !slices.Equal(h.prompter.calls[0], []string{"en", "fr"}) {
		t.Errorf("prompt got %v", h.prompter.calls)
	}
	if res.Language != "fr" || res.Format != captions.FormatTTML {
		t.Errorf("unexpected result %+v", res)
	}
	if backend.requests[0].Format != captions.FormatTTML {
		t.Errorf("expected ttml to be requested, got %q", backend.requests[0].Format)
	}
	if slices.Contains(h.rec.Messages(), "Found subtitles in: fr") {
		t.Error("found message is for automatic selection only")
	}
}

func TestRun_LanguageSelectionWithoutPrompt(t *testing.T) {
	tests := []struct {
		name      string
		req       Request
		preferred []string
		want      string
		prompted  bool
	}{
		{name: "requested", req: Request{Language: "fr"}, want: "fr"},
		{name: "preferred", preferred: []string{"ja", "fr"}, want: "fr"},
		{name: "requested missing falls back to preferred", req: Request{Language: "ja"}, preferred: []string{"en"}, want: "en"},
		{name: "nothing matches", req: Request{Language: "ja"}, preferred: []string{"ko"}, want: "en", prompted: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{info: info("t", vtt("en"), vtt("fr")), ext: captions.FormatVTT, content: sampleVTT}
			h := newHarness(t, backend, Options{PreferredLanguages: tt.preferred})
			h.prompter.answer = "en"

			res, err := h.run(t, tt.req)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if res.Language != tt.want {
				t.Errorf("got %q, want %q", res.Language, tt.want)
			}
			if prompted := len(h.prompter.calls) > 0; prompted != tt.prompted {
				t.Errorf("prompted = %v, want %v", prompted, tt.prompted)
			}
		})
	}
}

func TestRun_Failures(t *testing.T) {
	tests := []struct {
		name     string
		backend  *fakeBackend
		req      Request
		prompter *fakePrompter
		err      error
		msg      string
	}{
		{
			name:    "no url",
			backend: &fakeBackend{},
			req:     Request{Resolve: func() string { return "" }},
			err:     ErrNoVideoURL,
			msg:     "Could not detect a video URL in the current context.",
		},
		{
			name:    "provider unavailable",
			backend: &fakeBackend{unavailable: true},
			err:     ErrProviderUnavailable,
			msg:     "Subtitle provider is not available: fake",
		},
		{
			name:    "metadata",
			backend: &fakeBackend{metaErr: errors.New("HTTP Error 403")},
			err:     ErrMetadata,
			msg:     "Download Error: Could not retrieve subtitle information.",
		},
		{
			name:    "no subtitles",
			backend: &fakeBackend{info: info("t")},
			err:     ErrNoSubtitles,
			msg:     "No subtitles found for this video.",
		},
		{
			name:    "no usable format",
			backend: &fakeBackend{info: info("t", captions.Track{Language: "de", Formats: []captions.Format{captions.FormatOther}})},
			err:     ErrNoUsableFormat,
			msg:     "No suitable subtitle formats found (VTT, SRV, TTML).",
		},
		{
			name:     "prompt cancelled",
			backend:  &fakeBackend{info: info("t", vtt("en"), vtt("fr"))},
			prompter: &fakePrompter{err: prompt.ErrCancelled},
			err:      ErrPromptCancelled,
			msg:      "Subtitle download cancelled.",
		},
		{
			name:     "prompt broken",
			backend:  &fakeBackend{info: info("t", vtt("en"), vtt("fr"))},
			prompter: &fakePrompter{err: prompt.ErrNotInteractive},
			err:      ErrPrompt,
			msg:      "Error showing language selection dialog.",
		},
		{
			name:     "prompt answers something else",
			backend:  &fakeBackend{info: info("t", vtt("en"), vtt("fr"))},
			prompter: &fakePrompter{answer: "ja"},
			err:      ErrPrompt,
			msg:      "Error showing language selection dialog.",
		},
		{
			name:    "download",
			backend: &fakeBackend{info: info("t", vtt("en")), downloadErr: errors.New("HTTP Error 429")},
			err:     ErrDownload,
			msg:     "Download Error: Could not download selected subtitle.",
		},
		{
			name:    "locate",
			backend: &fakeBackend{info: info("t", vtt("en"))},
			err:     ErrLocate,
			msg:     "Failed to locate downloaded subtitle file.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.backend, Options{})
			if tt.prompter != nil {
				h.prompter = tt.prompter
				h.session.prompter = tt.prompter
			}

			res, err := h.run(t, tt.req)
			if !errors.Is(err, tt.err) {
				t.Fatalf("expected %v, got %v", tt.err, err)
			}
			if res != nil {
				t.Errorf("expected no result, got %+v", res)
			}
			msgs := h.rec.Messages()
			if len(msgs) == 0 || msgs[len(msgs)-1] != tt.msg {
				t.Errorf("expected final message %q, got %q", tt.msg, msgs)
			}
			if h.session.gate.Busy() {
				t.Error("gate not released")
			}
		})
	}
}

func TestRun_ConversionFailureKeepsCaptions(t *testing.T) {
	backend := &fakeBackend{info: info("t", vtt("en")), ext: captions.FormatVTT, content: sampleVTT}
	h := newHarness(t, backend, Options{})
	// A directory where the transcript should go makes the final rename fail.
	if err := os.Mkdir(filepath.Join(h.dir, "t.en.txt"), 0o755); err != nil {
		t.Fatal(err)
	}

	res, err := h.run(t, Request{})
	if !errors.Is(err, ErrConversion) {
		t.Fatalf("expected ErrConversion, got %v", err)
	}
	captionPath := filepath.Join(h.dir, "t.en.vtt")
	if res == nil || res.Path != captionPath || res.Converted {
		t.Fatalf("unexpected result %+v", res)
	}
	if _, err := os.Stat(captionPath); err != nil {
		t.Errorf("caption file should be kept: %v", err)
	}

	msgs := h.rec.Messages()
	tail := msgs[len(msgs)-2:]
	if !slices.Equal(tail, []string{"Error converting subtitle to TXT.", "Subtitle saved in VTT format: t.en.vtt"}) {
		t.Errorf("unexpected messages %q", msgs)
	}
}

func TestRun_LocateFallsBackToSearch(t *testing.T) {
	backend := &fakeBackend{
		info:    info("t", vtt("en")),
		ext:     captions.FormatVTT,
		content: sampleVTT,
		hint:    "/nonexistent/t.en.vtt",
	}
	h := newHarness(t, backend, Options{})

	res, err := h.run(t, Request{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.Converted {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestRun_DefaultTitle(t *testing.T) {
	h := newHarness(t, &fakeBackend{info: info("", vtt("en")), ext: captions.FormatVTT, content: sampleVTT}, Options{})
	res, err := h.run(t, Request{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if filepath.Base(res.Path) != "video.en.txt" {
		t.Errorf("unexpected path %q", res.Path)
	}
}

func TestRun_ResolveOnlyAfterGate(t *testing.T) {
	h := newHarness(t, &fakeBackend{info: info("t", vtt("en")), ext: captions.FormatVTT, content: sampleVTT}, Options{})

	release, err := h.session.gate.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	resolved := false
	_, err = h.run(t, Request{Resolve: func() string { resolved = true; return "https://x" }})
	release()

	if !errors.Is(err, ErrInProgress) {
		t.Fatalf("expected ErrInProgress, got %v", err)
	}
	if resolved {
		t.Error("resolver ran while another download was in progress")
	}
	if got := h.rec.Messages(); !slices.Equal(got, []string{"Subtitle download already in progress."}) {
		t.Errorf("unexpected messages %q", got)
	}
}

func TestRun_HoldsGateDuringPrompt(t *testing.T) {
	backend := &fakeBackend{info: info("t", vtt("en"), vtt("fr")), ext: captions.FormatVTT, content: sampleVTT}
	h := newHarness(t, backend, Options{})

	var busyDuringPrompt bool
	h.session.prompter = promptFunc(func(ctx context.Context, langs []string) (string, error) {
		busyDuringPrompt = h.session.gate.Busy()
		return "fr", nil
	})

	if _, err := h.run(t, Request{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !busyDuringPrompt {
		t.Error("gate released while waiting for the user")
	}
}

type promptFunc func(ctx context.Context, langs []string) (string, error)

func (f promptFunc) Choose(ctx context.Context, langs []string) (string, error) { return f(ctx, langs) }

func TestMessages_Unknown(t *testing.T) {
	if got := Messages(errors.New("boom")); !slices.Equal(got, []string{"An unexpected error occurred during download."}) {
		t.Errorf("got %q", got)
	}
	if Messages(nil) != nil {
		t.Error("nil error should have no messages")
	}
}
