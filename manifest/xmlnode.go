package manifest

import (
	"encoding/xml"
	"io"

	"github.com/pkg/errors"
)

// node is a minimal parsed XML tree: enough to answer the "anywhere in
// document" queries the two manifest formats need, without pulling in an
// XPath engine.
type node struct {
	Name     string
	Attrs    map[string]string
	Children []*node
	text     string
}

// parseDocument reads all of r into a node tree rooted at a synthetic
// document node whose only child is the root element.
func parseDocument(r io.Reader) (*node, error) {
	dec := xml.NewDecoder(r)
	root := &node{Name: "#document"}
	stack := []*node{root}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "manifest: malformed XML")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{Name: t.Name.Local, Attrs: map[string]string{}}
			for _, a := range t.Attr {
				n.Attrs[a.Name.Local] = a.Value
			}
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, n)
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			cur := stack[len(stack)-1]
			cur.text += string(t)
		}
	}
	if len(root.Children) == 0 {
		return nil, errors.New("manifest: document has no root element")
	}
	return root, nil
}

// elementsNamed returns, in document order, every descendant element of n
// (n included) whose local name is one of names.
func elementsNamed(n *node, names ...string) []*node {
	want := make(map[string]bool, len(names))
	for _, s := range names {
		want[s] = true
	}
	var out []*node
	var walk func(*node)
	walk = func(cur *node) {
		if want[cur.Name] {
			out = append(out, cur)
		}
		for _, c := range cur.Children {
			walk(c)
		}
	}
	walk(n)
	return out
}

// firstElementNamed returns the first descendant element named name in
// document order, or ok=false if there is none.
func firstElementNamed(n *node, name string) (*node, bool) {
	all := elementsNamed(n, name)
	if len(all) == 0 {
		return nil, false
	}
	return all[0], true
}

// attr returns the value of attribute name on n.
func (n *node) attr(name string) (string, bool) {
	v, ok := n.Attrs[name]
	return v, ok
}

// text returns the direct character data of n.
func (n *node) text() string {
	return n.text
}

// textOfFirst finds the first element named name anywhere in doc and
// returns its text content.
func textOfFirst(doc *node, name string) (string, bool) {
	e, ok := firstElementNamed(doc, name)
	if !ok {
		return "", false
	}
	return e.text(), true
}
