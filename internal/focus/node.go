package focus

// Application is a static App snapshot.
type Application struct {
	AppName string
	URL     string
}

// Name returns the application identifier.
func (a *Application) Name() string {
	if a == nil {
		return ""
	}
	return a.AppName
}

// BrowserURL returns the recorded page URL or ErrUnsupported when none was captured.
func (a *Application) BrowserURL() (string, error) {
	if a == nil || a.URL == "" {
		return "", ErrUnsupported
	}
	return a.URL, nil
}

// Node is a static Element snapshot. Empty fields mean the capability is absent.
type Node struct {
	Application *Application
	NodeRole    Role
	DocURL      string
	Text        string
	HasText     bool
	Up          *Node
}

var (
	_ App     = (*Application)(nil)
	_ Element = (*Node)(nil)
)

// App returns the owning application; a nil Application reports an empty name.
func (n *Node) App() App {
	if n.Application == nil {
		return (*Application)(nil)
	}
	return n.Application
}

func (n *Node) Role() Role { return n.NodeRole }

func (n *Node) DocumentURL() (string, error) {
	if n.DocURL == "" {
		return "", ErrUnsupported
	}
	return n.DocURL, nil
}

func (n *Node) Value() (string, error) {
	if !n.HasText {
		return "", ErrUnsupported
	}
	return n.Text, nil
}

func (n *Node) Parent() Element {
	if n.Up == nil {
		return nil
	}
	return n.Up
}

// Chain links nodes bottom-up: nodes[0] is the focused element and each
// following node becomes the parent of the previous one. All nodes share app.
func Chain(app *Application, nodes ...*Node) *Node {
	if len(nodes) == 0 {
		return nil
	}
	for i, n := range nodes {
		n.Application = app
		if i+1 < len(nodes) {
			n.Up = nodes[i+1]
		}
	}
	return nodes[0]
}

// Detached returns an element with no application and no capabilities. It is
// used when no host context could be captured at all.
func Detached() Element {
	return &Node{}
}
