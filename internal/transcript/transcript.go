// Package transcript reduces timed caption text to the plain spoken lines.
//
// Each input line is trimmed and discarded when it is empty, the WEBVTT
// header, a cue timing line (contains "-->") or a bare cue number. Inline tags
// are then stripped. NOTE and STYLE blocks are not recognized and pass
// through like any other text.
package transcript

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"regexp"
	"strings"
	"unicode"

	"github.com/byteowlz/subtxt/internal/output"
)

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// Lines yields the transcript lines of text. The sequence is single pass and
// lazy; range over it again to restart.
func Lines(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for line := range strings.Lines(text) {
			if out, ok := reduceLine(line); ok {
				if !yield(out) {
					return
				}
			}
		}
	}
}

// Reduce streams r through the reducer and writes each kept line to w
// followed by a newline. Lines may be of any length; only read and write
// failures are returned.
func Reduce(w io.Writer, r io.Reader) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			if out, ok := reduceLine(line); ok {
				if _, werr := io.WriteString(w, out+"\n"); werr != nil {
					return fmt.Errorf("write transcript: %w", werr)
				}
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read captions: %w", err)
		}
	}
}

// ConvertFile reduces the caption file src into dst. dst is replaced
// atomically and left untouched on failure.
func ConvertFile(src, dst string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open captions: %w", err)
	}
	defer f.Close()

	return output.WriteFile(dst, func(w io.Writer) error {
		return Reduce(w, f)
	})
}

func reduceLine(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if discard(line) {
		return "", false
	}
	line = strings.TrimSpace(tagPattern.ReplaceAllString(line, ""))
	// Tag-only lines and tags wrapping a cue number would come back as
	// different output on a second pass.
	if discard(line) {
		return "", false
	}
	return line, true
}

func discard(line string) bool {
	return line == "" || line == "WEBVTT" || strings.Contains(line, "-->") || allDigits(line)
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
