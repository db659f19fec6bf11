// Package output owns the download folder: where files go, what they are
// called, and how they are written.
package output

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/byteowlz/subtxt/internal/captions"
)

// ErrNotFound is returned by Locate when no caption file matches.
var ErrNotFound = errors.New("output: caption file not found")

// DownloadsDir returns dir, or ~/Downloads when dir is empty, creating it if
// needed. created reports whether the directory was made by this call.
func DownloadsDir(dir string) (path string, created bool, err error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", false, fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, "Downloads")
	} else if strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", false, fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, dir[2:])
	}

	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		return dir, false, nil
	case err == nil:
		return "", false, fmt.Errorf("%s exists and is not a directory", dir)
	case !errors.Is(err, os.ErrNotExist):
		return "", false, fmt.Errorf("failed to stat %s: %w", dir, err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", false, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return dir, true, nil
}

var unsafeChars = strings.NewReplacer(
	`\`, "_",
	"/", "_",
	"*", "_",
	"?", "_",
	`"`, "_",
	":", "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// SanitizeTitle replaces characters that are invalid in file names with "_".
// Nothing else is changed.
func SanitizeTitle(title string) string {
	return unsafeChars.Replace(title)
}

// TranscriptPath returns <dir>/<sanitized title>.<lang>.txt.
func TranscriptPath(dir, title, lang string) string {
	return filepath.Join(dir, SanitizeTitle(title)+"."+lang+".txt")
}

// CaptionPath returns <dir>/<sanitized title>.<lang>.<format>.
func CaptionPath(dir, title, lang string, format captions.Format) string {
	return filepath.Join(dir, SanitizeTitle(title)+"."+lang+"."+string(format))
}

// Locate finds the caption file for lang in dir. hint, when it exists, wins.
// Otherwise the directory is searched for a name containing title and ending
// in .<lang>.<ext>, trying accepted formats in preference order.
func Locate(dir, title, lang, hint string) (string, captions.Format, error) {
	if hint != "" {
		if info, err := os.Stat(hint); err == nil && !info.IsDir() {
			return hint, captions.ParseFormat(filepath.Ext(hint)), nil
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", "", fmt.Errorf("failed to read %s: %w", dir, err)
	}

	safeTitle := SanitizeTitle(title)
	for _, format := range captions.AcceptedFormats() {
		suffix := "." + lang + "." + string(format)
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || !strings.HasSuffix(name, suffix) {
				continue
			}
			if title != "" && !strings.Contains(name, title) && !strings.Contains(name, safeTitle) {
				continue
			}
			return filepath.Join(dir, name), format, nil
		}
	}
	return "", "", fmt.Errorf("%w: %s in %s", ErrNotFound, lang, dir)
}

// WriteFile atomically replaces path with whatever fn writes: the data goes
// to a temp file in the same directory which is renamed over path on success.
func WriteFile(path string, fn func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".subtxt-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	_ = os.Chmod(tmpPath, 0o644)

	cleanup := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	bw := bufio.NewWriterSize(tmp, 64*1024)
	if err := fn(bw); err != nil {
		return cleanup(err)
	}
	if err := bw.Flush(); err != nil {
		return cleanup(fmt.Errorf("failed to write %s: %w", path, err))
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(fmt.Errorf("failed to sync %s: %w", path, err))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename into %s: %w", path, err)
	}
	return nil
}
