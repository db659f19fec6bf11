package session

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/byteowlz/subtxt/internal/captions"
)

var (
	ErrNoVideoURL          = errors.New("no video url detected")
	ErrProviderUnavailable = errors.New("subtitle provider not available")
	ErrInProgress          = errors.New("subtitle download already in progress")
	ErrMetadata            = errors.New("could not retrieve subtitle information")
	ErrNoSubtitles         = errors.New("no subtitles found")
	ErrNoUsableFormat      = errors.New("no suitable subtitle formats")
	ErrPrompt              = errors.New("language selection failed")
	ErrPromptCancelled     = errors.New("language selection cancelled")
	ErrDownload            = errors.New("could not download selected subtitle")
	ErrLocate              = errors.New("downloaded subtitle file not found")
	ErrConversion          = errors.New("subtitle conversion failed")
	ErrUnexpected          = errors.New("unexpected failure")
)

var messages = []struct {
	err error
	msg string
}{
	{ErrNoVideoURL, "Could not detect a video URL in the current context."},
	{ErrInProgress, "Subtitle download already in progress."},
	{ErrMetadata, "Download Error: Could not retrieve subtitle information."},
	{ErrNoSubtitles, "No subtitles found for this video."},
	{ErrNoUsableFormat, "No suitable subtitle formats found (VTT, SRV, TTML)."},
	{ErrPrompt, "Error showing language selection dialog."},
	{ErrPromptCancelled, "Subtitle download cancelled."},
	{ErrDownload, "Download Error: Could not download selected subtitle."},
	{ErrLocate, "Failed to locate downloaded subtitle file."},
	{ErrUnexpected, "An unexpected error occurred during download."},
}

// UnavailableError names the backend that cannot run.
type UnavailableError struct {
	Backend string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: %s", ErrProviderUnavailable, e.Backend)
}

func (e *UnavailableError) Is(target error) bool { return target == ErrProviderUnavailable }

// ConversionError carries the caption file kept after a failed reduction.
type ConversionError struct {
	Format captions.Format
	File   string
	Err    error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrConversion, e.File, e.Err)
}

func (e *ConversionError) Is(target error) bool { return target == ErrConversion }

func (e *ConversionError) Unwrap() error { return e.Err }

// Messages returns the user-facing lines for err, most specific first.
// Unknown errors map to the generic unexpected-failure line.
func Messages(err error) []string {
	if err == nil {
		return nil
	}

	var unavailable *UnavailableError
	if errors.As(err, &unavailable) {
		return []string{"Subtitle provider is not available: " + unavailable.Backend}
	}
	var conv *ConversionError
	if errors.As(err, &conv) {
		return []string{
			"Error converting subtitle to TXT.",
			fmt.Sprintf("Subtitle saved in %s format: %s", strings.ToUpper(string(conv.Format)), filepath.Base(conv.File)),
		}
	}
	for _, m := range messages {
		if errors.Is(err, m.err) {
			return []string{m.msg}
		}
	}
	return []string{"An unexpected error occurred during download."}
}
