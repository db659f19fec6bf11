// Package focus models the user's active application context as a small set of
// capability interfaces. Host adapters (see internal/browser) implement them;
// the URL resolver only ever talks to these interfaces.
package focus

import "errors"

// ErrUnsupported is returned by a capability accessor the host cannot serve.
var ErrUnsupported = errors.New("focus: capability not supported")

// Role tags an element the way accessibility trees do.
type Role string

const (
	RoleUnknown      Role = ""
	RoleDocument     Role = "document"
	RoleEditableText Role = "editabletext"
)

// App is the application-level handle owning the focused element.
type App interface {
	// Name is the application identifier, e.g. "firefox" or "chrome".
	Name() string
	// BrowserURL returns the URL of the browser's current page.
	BrowserURL() (string, error)
}

// Element is one node of the focus hierarchy.
type Element interface {
	App() App
	Role() Role
	// DocumentURL returns the URL of the document the element belongs to.
	DocumentURL() (string, error)
	// Value returns the element's editable text value.
	Value() (string, error)
	// Parent returns nil at the root. Traversal only; callers must not retain it.
	Parent() Element
}
