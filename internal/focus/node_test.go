package focus

import (
	"errors"
	"testing"
)

func TestChain(t *testing.T) {
	app := &Application{AppName: "chrome", URL: "https://a.example/"}
	top := &Node{NodeRole: RoleDocument, DocURL: "https://b.example/"}
	el := Chain(app, &Node{NodeRole: RoleEditableText, Text: "typed", HasText: true}, top)

	if el.App().Name() != "chrome" {
		t.Errorf("unexpected app %q", el.App().Name())
	}
	if v, err := el.Value(); err != nil || v != "typed" {
		t.Errorf("Value() = %q, %v", v, err)
	}
	parent := el.Parent()
	if parent == nil || parent.Role() != RoleDocument {
		t.Fatalf("unexpected parent %#v", parent)
	}
	if parent.App().Name() != "chrome" {
		t.Error("parent should share the application")
	}
	if parent.Parent() != nil {
		t.Error("root must have no parent")
	}
}

func TestChain_Empty(t *testing.T) {
	if Chain(&Application{}) != nil {
		t.Error("expected nil for no nodes")
	}
}

func TestMissingCapabilities(t *testing.T) {
	el := Detached()

	if el.App().Name() != "" {
		t.Error("detached element has no application")
	}
	if _, err := el.App().BrowserURL(); !errors.Is(err, ErrUnsupported) {
		t.Errorf("BrowserURL() error = %v", err)
	}
	if _, err := el.DocumentURL(); !errors.Is(err, ErrUnsupported) {
		t.Errorf("DocumentURL() error = %v", err)
	}
	if _, err := el.Value(); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Value() error = %v", err)
	}
	if el.Role() != RoleUnknown || el.Parent() != nil {
		t.Error("detached element should be an unknown root")
	}
}

func TestValue_EmptyButPresent(t *testing.T) {
	n := &Node{HasText: true}
	if v, err := n.Value(); err != nil || v != "" {
		t.Errorf("Value() = %q, %v", v, err)
	}
}
