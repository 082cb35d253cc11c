package graph

import (
	"strings"

	"github.com/agentic-research/autoinit/api"
)

// FromModule adds every binding of m to target. Top-level bindings become
// roots; children are listed in name order.
func FromModule(target Target, m api.Module) {
	for _, name := range m.Keys() {
		target.AddRoot(nodeOf(target, "", name, m[name]))
	}
}

func nodeOf(target Target, parent, name string, v any) *Node {
	id := segment(name)
	if parent != "" {
		id = parent + "/" + id
	}
	n := &Node{ID: id, Parent: parent, Name: name}

	switch x := v.(type) {
	case api.Module:
		n.Kind = KindModule
		for _, k := range x.Keys() {
			child := nodeOf(target, id, k, x[k])
			target.AddNode(child)
			n.Children = append(n.Children, child.ID)
		}
	case api.Func:
		n.Kind = KindFunc
	default:
		n.Kind = KindValue
		n.Value = v
	}
	return n
}

// segment keeps a name containing "/" from being read as two path elements.
func segment(name string) string {
	return strings.ReplaceAll(name, "/", "%2F")
}
