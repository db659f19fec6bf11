// Package resolver finds the web address of the video the user is looking at.
//
// Resolution is an ordered, short-circuiting chain of strategies over the
// focus capabilities of the active application, ending with the clipboard.
// The first candidate that starts with http:// or https:// wins.
package resolver

import (
	"strings"

	"github.com/byteowlz/subtxt/internal/focus"
)

// Source names the strategy that produced a URL.
type Source string

const (
	SourceNone           Source = ""
	SourceBrowser        Source = "browser"
	SourceDocument       Source = "document"
	SourceParentDocument Source = "parent-document"
	SourceEditable       Source = "editable"
	SourceAncestor       Source = "ancestor"
	SourceClipboard      Source = "clipboard"
)

// MaxAncestorHops bounds the upward document search.
const MaxAncestorHops = 5

// browsers is the fixed set of application names treated as web browsers.
var browsers = map[string]struct{}{
	"firefox": {},
	"chrome":  {},
	"msedge":  {},
	"brave":   {},
	"opera":   {},
	"vivaldi": {},
}

// Clipboard reads the current text clipboard.
type Clipboard interface {
	ReadText() (string, error)
}

// IsBrowser reports whether name is a recognized browser application.
// The match is exact and case-sensitive.
func IsBrowser(name string) bool {
	_, ok := browsers[name]
	return ok
}

// Browsers returns the recognized browser application names.
func Browsers() []string {
	return []string{"firefox", "chrome", "msedge", "brave", "opera", "vivaldi"}
}

// IsWebURL is the only validity check applied to candidates.
func IsWebURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Resolve returns the first plausible URL for el, or ("", SourceNone).
// el and cb may be nil. Capability failures, including panics raised by a
// host adapter, only make the current strategy produce nothing.
func Resolve(el focus.Element, cb Clipboard) (string, Source) {
	if el != nil && IsBrowser(appName(el)) {
		for _, s := range strategies {
			if url := attempt(func() string { return s.fn(el) }); IsWebURL(url) {
				return url, s.source
			}
		}
	}

	if cb != nil {
		url := attempt(func() string {
			text, err := cb.ReadText()
			if err != nil {
				return ""
			}
			return text
		})
		if url != "" && IsWebURL(url) {
			return url, SourceClipboard
		}
	}
	return "", SourceNone
}

type strategy struct {
	source Source
	fn     func(focus.Element) string
}

var strategies = []strategy{
	{SourceBrowser, browserURL},
	{SourceDocument, documentURL},
	{SourceParentDocument, parentDocumentURL},
	{SourceEditable, editableValue},
	{SourceAncestor, ancestorDocumentURL},
}

func appName(el focus.Element) string {
	return attempt(func() string {
		app := el.App()
		if app == nil {
			return ""
		}
		return app.Name()
	})
}

func browserURL(el focus.Element) string {
	app := el.App()
	if app == nil {
		return ""
	}
	return value(app.BrowserURL())
}

func documentURL(el focus.Element) string {
	return value(el.DocumentURL())
}

func parentDocumentURL(el focus.Element) string {
	parent := el.Parent()
	if parent == nil {
		return ""
	}
	return value(parent.DocumentURL())
}

func editableValue(el focus.Element) string {
	if el.Role() != focus.RoleEditableText {
		return ""
	}
	return value(el.Value())
}

func ancestorDocumentURL(el focus.Element) string {
	node := el.Parent()
	for hop := 0; hop < MaxAncestorHops && node != nil; hop++ {
		if node.Role() == focus.RoleDocument {
			if url := attempt(func() string { return value(node.DocumentURL()) }); IsWebURL(url) {
				return url
			}
		}
		node = node.Parent()
	}
	return ""
}

func value(s string, err error) string {
	if err != nil {
		return ""
	}
	return s
}

// attempt runs fn and converts a panic into an empty result.
func attempt(fn func() string) (out string) {
	defer func() {
		if recover() != nil {
			out = ""
		}
	}()
	return fn()
}
