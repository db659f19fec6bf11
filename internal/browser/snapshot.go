package browser

import "github.com/byteowlz/subtxt/internal/focus"

// focusScript walks from the active element up to the top document,
// entering same-origin frames on the way down and leaving them through
// frameElement on the way up.
const focusScript = `(() => {
  let doc = document;
  let el = doc.activeElement;
  while (el && (el.tagName === "IFRAME" || el.tagName === "FRAME")) {
    let inner = null;
    try { inner = el.contentDocument; } catch (e) {}
    if (!inner || !inner.activeElement) break;
    doc = inner;
    el = inner.activeElement;
  }
  const editable = (n) => {
    if (n.isContentEditable || n.tagName === "TEXTAREA") return true;
    if (n.tagName !== "INPUT") return false;
    return ["", "text", "url", "search", "email"].includes((n.getAttribute("type") || "").toLowerCase());
  };
  const role = (n) => {
    if (n.nodeType === 9) return "document";
    if (n.nodeType !== 1) return "";
    if (editable(n)) return "editabletext";
    return n.getAttribute("role") === "document" ? "document" : "";
  };
  const nodes = [];
  let n = el || doc;
  while (n && nodes.length < 64) {
    const owner = n.nodeType === 9 ? n : n.ownerDocument;
    const item = { role: role(n), url: owner ? owner.URL : "" };
    if (n.nodeType === 1 && typeof n.value === "string") {
      item.value = n.value;
      item.hasValue = true;
    } else if (n.nodeType === 1 && n.isContentEditable) {
      item.value = n.innerText;
      item.hasValue = true;
    }
    nodes.push(item);
    if (n.parentNode) n = n.parentNode;
    else if (n.nodeType === 9 && n.defaultView && n.defaultView.frameElement) n = n.defaultView.frameElement;
    else n = null;
  }
  return { nodes };
})()`

type focusSnapshot struct {
	Nodes []snapshotNode `json:"nodes"`
}

type snapshotNode struct {
	Role     string `json:"role"`
	URL      string `json:"url"`
	Value    string `json:"value"`
	HasValue bool   `json:"hasValue"`
}

// element converts the snapshot, focused node first, into a focus chain.
func (s *focusSnapshot) element(app *focus.Application) focus.Element {
	if s == nil || len(s.Nodes) == 0 {
		return &focus.Node{Application: app}
	}
	nodes := make([]*focus.Node, len(s.Nodes))
	for i, n := range s.Nodes {
		nodes[i] = &focus.Node{
			NodeRole: focus.Role(n.Role),
			DocURL:   n.URL,
			Text:     n.Value,
			HasText:  n.HasValue,
		}
	}
	return focus.Chain(app, nodes...)
}
