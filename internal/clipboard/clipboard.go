// Package clipboard reads text from the system clipboard.
package clipboard

import (
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
)

// ErrUnavailable means no clipboard utility was found (e.g. xclip/xsel on Linux).
var ErrUnavailable = errors.New("clipboard: not available on this system")

// System reads the desktop clipboard.
type System struct{}

func (System) ReadText() (string, error) {
	if clipboard.Unsupported {
		return "", ErrUnavailable
	}
	text, err := clipboard.ReadAll()
	if err != nil {
		return "", fmt.Errorf("read clipboard: %w", err)
	}
	return text, nil
}

// Static returns fixed text. Used for --url and by library callers.
type Static string

func (s Static) ReadText() (string, error) { return string(s), nil }
