package provider

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/byteowlz/subtxt/internal/captions"
	"github.com/byteowlz/subtxt/internal/output"
)

// CommandRunner runs an external program and returns its standard output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%s: %w: %s", name, err, lastLine(msg))
		}
		return out, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// YtDlpBackend drives the yt-dlp command line tool.
type YtDlpBackend struct {
	path         string
	runner       CommandRunner
	autoCaptions bool
	opts         Options
	logger       *slog.Logger
	lookPath     func(string) (string, error)
}

func NewYtDlpBackend(opts Options) *YtDlpBackend {
	path := opts.YtDlpPath
	if path == "" {
		path = "yt-dlp"
	}
	runner := opts.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &YtDlpBackend{
		path:         path,
		runner:       runner,
		autoCaptions: opts.AutoCaptions,
		opts:         opts,
		logger:       logger.With("backend", BackendYtDlp),
		lookPath:     exec.LookPath,
	}
}

func (b *YtDlpBackend) Name() string { return BackendYtDlp }

func (b *YtDlpBackend) IsAvailable() bool {
	_, err := b.lookPath(b.path)
	return err == nil
}

type ytdlpInfo struct {
	Title             string          `json:"title"`
	WebpageURL        string          `json:"webpage_url"`
	Channel           string          `json:"channel"`
	Uploader          string          `json:"uploader"`
	Subtitles         json.RawMessage `json:"subtitles"`
	AutomaticCaptions json.RawMessage `json:"automatic_captions"`
}

type ytdlpSubtitle struct {
	Ext  string `json:"ext"`
	Name string `json:"name"`
}

func (b *YtDlpBackend) Metadata(ctx context.Context, url string) (*VideoInfo, error) {
	ctx, cancel := withTimeout(ctx, b.opts.Timeout)
	defer cancel()

	args := []string{"--dump-single-json", "--skip-download", "--no-warnings", "--no-playlist", url}
	b.logger.Debug("fetching metadata", "args", args)

	out, err := b.runner.Run(ctx, b.path, args...)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp metadata: %w", err)
	}

	var info ytdlpInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("failed to parse yt-dlp output: %w", err)
	}

	tracks, err := decodeSubtitles(info.Subtitles, false)
	if err != nil {
		return nil, err
	}
	if b.autoCaptions {
		auto, err := decodeSubtitles(info.AutomaticCaptions, true)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, auto...)
	}

	vi := &VideoInfo{
		URL:     url,
		Title:   info.Title,
		Channel: cmp.Or(info.Channel, info.Uploader),
		Tracks:  captions.NewTrackSet(tracks...),
	}
	if info.WebpageURL != "" {
		vi.URL = info.WebpageURL
	}
	return vi, nil
}

// decodeSubtitles reads a yt-dlp language → formats object keeping the key
// order yt-dlp printed.
func decodeSubtitles(raw json.RawMessage, automatic bool) ([]captions.Track, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to parse subtitles: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("failed to parse subtitles: unexpected %v", tok)
	}

	var tracks []captions.Track
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to parse subtitles: %w", err)
		}
		lang, _ := tok.(string)

		var entries []ytdlpSubtitle
		if err := dec.Decode(&entries); err != nil {
			return nil, fmt.Errorf("failed to parse subtitles for %s: %w", lang, err)
		}

		track := captions.Track{Language: lang, Automatic: automatic}
		for _, e := range entries {
			if track.Name == "" {
				track.Name = e.Name
			}
			track.Formats = append(track.Formats, captions.ParseFormat(e.Ext))
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}

func (b *YtDlpBackend) Download(ctx context.Context, req DownloadRequest) (string, error) {
	ctx, cancel := withTimeout(ctx, b.opts.Timeout)
	defer cancel()

	formats := make([]string, 0, 6)
	if req.Format != "" && req.Format.Accepted() {
		formats = append(formats, string(req.Format))
	}
	for _, f := range captions.AcceptedFormats() {
		if f != req.Format {
			formats = append(formats, string(f))
		}
	}
	formats = append(formats, "best")

	base := output.SanitizeTitle(req.Title)
	template := strings.ReplaceAll(base, "%", "%%") + ".%(ext)s"

	args := []string{"--skip-download", "--write-subs"}
	if b.autoCaptions {
		args = append(args, "--write-auto-subs")
	}
	args = append(args,
		"--sub-langs", req.Language,
		"--sub-format", strings.Join(formats, "/"),
		"--no-warnings",
		"--no-playlist",
		"-P", req.Dir,
		"-o", template,
		req.URL,
	)
	b.logger.Debug("downloading subtitles", "args", args)

	if _, err := b.runner.Run(ctx, b.path, args...); err != nil {
		return "", fmt.Errorf("yt-dlp download: %w", err)
	}

	for _, f := range captions.AcceptedFormats() {
		path := output.CaptionPath(req.Dir, req.Title, req.Language, f)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	// Let the caller search the directory.
	return output.CaptionPath(req.Dir, req.Title, req.Language, captions.FormatVTT), nil
}
