// Package prompt asks the user to pick a caption language on the terminal.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

var (
	// ErrCancelled is returned when the user backs out of the selection.
	ErrCancelled = errors.New("prompt: selection cancelled")
	// ErrNotInteractive is returned when there is no terminal to ask on.
	ErrNotInteractive = errors.New("prompt: input is not a terminal")
	// ErrNoChoices is returned for an empty language list.
	ErrNoChoices = errors.New("prompt: nothing to choose from")
)

// Terminal shows a numbered list and reads the answer from a line-based input.
// One reader goroutine serves every Choose call, so lines typed after a
// cancelled prompt are kept for the next one.
type Terminal struct {
	in  io.Reader
	out io.Writer
	// Interactive gates Choose; NewTerminal sets it from isatty.
	Interactive bool

	start sync.Once
	lines chan string
}

// NewTerminal prompts on out and reads from in.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: in, out: out, Interactive: isTerminal(in)}
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// LanguageName returns the English display name of a language code, or ""
// when the code is not a known BCP 47 tag.
func LanguageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return ""
	}
	return display.English.Tags().Name(tag)
}

// Choose lists languages and returns the one picked. An empty answer picks
// the first entry; "q", end of input or ctx cancellation return ErrCancelled.
func (t *Terminal) Choose(ctx context.Context, languages []string) (string, error) {
	if len(languages) == 0 {
		return "", ErrNoChoices
	}
	if !t.Interactive {
		return "", ErrNotInteractive
	}

	fmt.Fprintln(t.out, t.render(languages))
	lines := t.input()

	for {
		fmt.Fprintf(t.out, "Select subtitle language [1-%d, q to cancel]: ", len(languages))
		select {
		case <-ctx.Done():
			fmt.Fprintln(t.out)
			return "", ErrCancelled
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(t.out)
				return "", ErrCancelled
			}
			choice, matched, err := parseAnswer(line, languages)
			if matched {
				return choice, err
			}
			fmt.Fprintf(t.out, "Invalid selection %q.\n", strings.TrimSpace(line))
		}
	}
}

// input starts the reader on first use. The goroutine lives until in reaches
// end of input.
func (t *Terminal) input() <-chan string {
	t.start.Do(func() {
		t.lines = make(chan string)
		go func() {
			defer close(t.lines)
			sc := bufio.NewScanner(t.in)
			for sc.Scan() {
				t.lines <- sc.Text()
			}
		}()
	})
	return t.lines
}

func parseAnswer(line string, languages []string) (choice string, done bool, err error) {
	answer := strings.TrimSpace(line)
	switch strings.ToLower(answer) {
	case "":
		return languages[0], true, nil
	case "q", "quit", "cancel":
		return "", true, ErrCancelled
	}
	if n, err := strconv.Atoi(answer); err == nil {
		if n >= 1 && n <= len(languages) {
			return languages[n-1], true, nil
		}
		return "", false, nil
	}
	if slices.Contains(languages, answer) {
		return answer, true, nil
	}
	return "", false, nil
}

func (t *Terminal) render(languages []string) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle("Select Subtitle Language")
	tw.AppendHeader(table.Row{"#", "Code", "Language"})
	for i, code := range languages {
		tw.AppendRow(table.Row{i + 1, code, LanguageName(code)})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 3, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

// Fixed always answers with a preset language. It backs non-interactive use.
type Fixed string

func (f Fixed) Choose(_ context.Context, languages []string) (string, error) {
	if len(languages) == 0 {
		return "", ErrNoChoices
	}
	if f == "" {
		return languages[0], nil
	}
	if !slices.Contains(languages, string(f)) {
		return "", fmt.Errorf("%w: language %q not offered", ErrCancelled, string(f))
	}
	return string(f), nil
}
