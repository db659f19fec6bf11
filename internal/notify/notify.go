// Package notify tells the user what happened.
//
// Messages are fire-and-forget: delivery problems are logged and never
// change the outcome of a run.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/gen2brain/beeep"
)

const appName = "subtxt"

// Notifier delivers one user-visible message.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// Console writes each message as a line to w.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Notify(_ context.Context, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, message)
}

// Desktop shows a native desktop notification.
type Desktop struct {
	send   func(title, message string, icon any) error
	logger *slog.Logger
}

func NewDesktop(logger *slog.Logger) *Desktop {
	if logger == nil {
		logger = slog.Default()
	}
	beeep.AppName = appName
	return &Desktop{send: beeep.Notify, logger: logger}
}

func (d *Desktop) Notify(ctx context.Context, message string) {
	if ctx.Err() != nil {
		return
	}
	if err := d.send(appName, message, ""); err != nil {
		d.logger.Debug("desktop notification failed", "error", err)
	}
}

// Multi fans a message out to several notifiers in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, message string) {
	for _, n := range m {
		n.Notify(ctx, message)
	}
}

// Noop drops every message.
type Noop struct{}

func (Noop) Notify(context.Context, string) {}

// New builds the notifier for the enabled channels. With none enabled a
// Noop is returned.
func New(console io.Writer, desktop bool, logger *slog.Logger) Notifier {
	var m Multi
	if console != nil {
		m = append(m, NewConsole(console))
	}
	if desktop {
		m = append(m, NewDesktop(logger))
	}
	switch len(m) {
	case 0:
		return Noop{}
	case 1:
		return m[0]
	default:
		return m
	}
}

// Recorder keeps every message. Useful for library callers and tests.
type Recorder struct {
	mu       sync.Mutex
	messages []string
}

func (r *Recorder) Notify(_ context.Context, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
}

// Messages returns a copy of what was recorded.
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}
