// Package session runs the subtitle pipeline: find the video, list its
// caption tracks, pick a language, download the track and reduce it to a
// transcript.
//
// A run is split in two worker phases around the language prompt. Phase one
// fetches metadata and either settles on a language or hands back the list
// to choose from. The prompt runs on the caller's goroutine. Phase two
// downloads and converts with the chosen language. Every failure is reported
// once through the notifier and returned wrapped in one of the sentinel
// errors.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/byteowlz/subtxt/internal/captions"
	"github.com/byteowlz/subtxt/internal/notify"
	"github.com/byteowlz/subtxt/internal/output"
	"github.com/byteowlz/subtxt/internal/prompt"
	"github.com/byteowlz/subtxt/internal/provider"
	"github.com/byteowlz/subtxt/internal/transcript"
)

const defaultTitle = "video"

// Prompter asks the user to pick one language. It must return
// prompt.ErrCancelled when the user backs out.
type Prompter interface {
	Choose(ctx context.Context, languages []string) (string, error)
}

type Options struct {
	// OutputDir defaults to ~/Downloads.
	OutputDir    string
	KeepCaptions bool
	// PreferredLanguages are picked automatically, in order, when offered.
	PreferredLanguages []string
}

// Request describes one run. When URL is empty, Resolve is called once the
// gate is held.
type Request struct {
	URL      string
	Resolve  func() string
	Language string
}

// Result describes the delivered artifact.
type Result struct {
	URL      string
	Title    string
	Language string
	// Path is the transcript, or the caption file when Converted is false.
	Path      string
	Format    captions.Format
	Converted bool
}

type Session struct {
	backend  provider.Backend
	prompter Prompter
	notifier notify.Notifier
	gate     *Gate
	opts     Options
	logger   *slog.Logger
}

func New(backend provider.Backend, prompter Prompter, notifier notify.Notifier, gate *Gate, opts Options, logger *slog.Logger) *Session {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	if gate == nil {
		gate = NewGate("")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		backend:  backend,
		prompter: prompter,
		notifier: notifier,
		gate:     gate,
		opts:     opts,
		logger:   logger,
	}
}

// phaseOne is the outcome of the metadata phase: either language is set or
// choices lists what the user must pick from.
type phaseOne struct {
	dir      string
	title    string
	language string
	choices  []string
	tracks   captions.TrackSet
	err      error
}

type phaseTwo struct {
	result *Result
	err    error
}

// Run executes the whole pipeline. On a conversion failure it returns both a
// Result pointing at the kept caption file and an error matching ErrConversion.
func (s *Session) Run(ctx context.Context, req Request) (*Result, error) {
	release, err := s.gate.Acquire()
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	defer release()

	url := req.URL
	if url == "" && req.Resolve != nil {
		url = req.Resolve()
	}
	if url == "" {
		return nil, s.fail(ctx, ErrNoVideoURL)
	}
	if s.backend == nil || !s.backend.IsAvailable() {
		name := "none"
		if s.backend != nil {
			name = s.backend.Name()
		}
		return nil, s.fail(ctx, &UnavailableError{Backend: name})
	}

	logger := s.logger.With("url", url, "backend", s.backend.Name())

	first := make(chan phaseOne, 1)
	go func() { first <- s.metadataPhase(ctx, logger, url, req.Language) }()
	p1 := <-first
	if p1.err != nil {
		return nil, s.fail(ctx, p1.err)
	}

	lang := p1.language
	if lang == "" {
		if s.prompter == nil {
			return nil, s.fail(ctx, fmt.Errorf("%w: no prompter configured", ErrPrompt))
		}
		lang, err = s.prompter.Choose(ctx, p1.choices)
		switch {
		case errors.Is(err, prompt.ErrCancelled):
			return nil, s.fail(ctx, fmt.Errorf("%w: %w", ErrPromptCancelled, err))
		case err != nil:
			return nil, s.fail(ctx, fmt.Errorf("%w: %w", ErrPrompt, err))
		case !slices.Contains(p1.choices, lang):
			return nil, s.fail(ctx, fmt.Errorf("%w: %q was not offered", ErrPrompt, lang))
		}
	}
	logger.Debug("language selected", "language", lang)

	second := make(chan phaseTwo, 1)
	go func() {
		res, err := s.downloadPhase(ctx, logger, url, p1, lang)
		second <- phaseTwo{result: res, err: err}
	}()
	p2 := <-second
	if p2.err != nil {
		return p2.result, s.fail(ctx, p2.err)
	}
	return p2.result, nil
}

func (s *Session) metadataPhase(ctx context.Context, logger *slog.Logger, url, requested string) phaseOne {
	s.notifier.Notify(ctx, "Attempting to download subtitles...")

	dir, created, err := output.DownloadsDir(s.opts.OutputDir)
	if err != nil {
		return phaseOne{err: fmt.Errorf("%w: %w", ErrUnexpected, err)}
	}
	if created {
		s.notifier.Notify(ctx, "Created Downloads folder.")
	}

	info, err := s.backend.Metadata(ctx, url)
	if err != nil {
		logger.Warn("metadata lookup failed", "error", err)
		return phaseOne{err: fmt.Errorf("%w: %w", ErrMetadata, err)}
	}
	if info.Tracks.Empty() {
		return phaseOne{err: ErrNoSubtitles}
	}
	usable := info.Tracks.Usable()
	if usable.Empty() {
		return phaseOne{err: ErrNoUsableFormat}
	}

	title := info.Title
	if title == "" {
		title = defaultTitle
	}
	out := phaseOne{dir: dir, title: title, tracks: usable}

	languages := usable.Languages()
	logger.Debug("caption tracks found", "title", title, "languages", languages)

	if lang := pick(languages, requested, s.opts.PreferredLanguages, logger); lang != "" {
		out.language = lang
		s.notifier.Notify(ctx, "Found subtitles in: "+lang)
		return out
	}
	out.choices = languages
	return out
}

// pick returns the language to use without asking, or "" when the user has
// to choose.
func pick(languages []string, requested string, preferred []string, logger *slog.Logger) string {
	if len(languages) == 1 {
		return languages[0]
	}
	if requested != "" {
		if slices.Contains(languages, requested) {
			return requested
		}
		logger.Warn("requested language not available", "language", requested, "available", languages)
	}
	for _, p := range preferred {
		if slices.Contains(languages, p) {
			return p
		}
	}
	return ""
}

func (s *Session) downloadPhase(ctx context.Context, logger *slog.Logger, url string, p1 phaseOne, lang string) (*Result, error) {
	s.notifier.Notify(ctx, "Downloading subtitles for language: "+lang)

	var format captions.Format
	if track, ok := p1.tracks.Track(lang); ok {
		format, _ = track.Preferred()
	}

	hint, err := s.backend.Download(ctx, provider.DownloadRequest{
		URL:      url,
		Title:    p1.title,
		Language: lang,
		Dir:      p1.dir,
		Format:   format,
	})
	if err != nil {
		logger.Warn("subtitle download failed", "language", lang, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrDownload, err)
	}

	captionPath, captionFormat, err := output.Locate(p1.dir, p1.title, lang, hint)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLocate, err)
	}

	txtPath := output.TranscriptPath(p1.dir, p1.title, lang)
	result := &Result{
		URL:      url,
		Title:    p1.title,
		Language: lang,
		Format:   captionFormat,
	}

	if err := transcript.ConvertFile(captionPath, txtPath); err != nil {
		logger.Warn("transcript conversion failed", "file", captionPath, "error", err)
		result.Path = captionPath
		return result, &ConversionError{Format: captionFormat, File: captionPath, Err: err}
	}

	if !s.opts.KeepCaptions {
		if err := os.Remove(captionPath); err != nil {
			logger.Debug("failed to remove caption file", "file", captionPath, "error", err)
		}
	}

	result.Path = txtPath
	result.Converted = true
	s.notifier.Notify(ctx, "Subtitles downloaded and saved as TXT: "+filepath.Base(txtPath))
	return result, nil
}

func (s *Session) fail(ctx context.Context, err error) error {
	for _, msg := range Messages(err) {
		s.notifier.Notify(ctx, msg)
	}
	return err
}
