package snapshot

import (
	"errors"
	"sort"
)

// NameAttr is the attribute children are keyed by
const NameAttr = "name"

// ErrNoName is returned when attaching a child without a name attribute
var ErrNoName = errors.New("child has no name attribute")

// Node is a tagged tree node with attributes and named children
type Node struct {
	Tag      string
	attrs    map[string]string
	children map[string]*Node
}

// New returns an empty node with the given tag
func New(tag string) *Node {
	return &Node{
		Tag:      tag,
		attrs:    make(map[string]string),
		children: make(map[string]*Node),
	}
}

// Set sets an attribute
func (n *Node) Set(key, value string) {
	n.attrs[key] = value
}

// Get returns an attribute and whether it exists
func (n *Node) Get(key string) (string, bool) {
	v, ok := n.attrs[key]
	return v, ok
}

// Attr returns an attribute or "" when absent
func (n *Node) Attr(key string) string {
	return n.attrs[key]
}

// Name returns the name attribute
func (n *Node) Name() string {
	return n.attrs[NameAttr]
}

// Attrs returns a copy of all attributes
func (n *Node) Attrs() map[string]string {
	out := make(map[string]string, len(n.attrs))
	for k, v := range n.attrs {
		out[k] = v
	}
	return out
}

// AddChild attaches child under its name, replacing a same-named child.
// A child without a name is not attached.
func (n *Node) AddChild(child *Node) error {
	name, ok := child.Get(NameAttr)
	if !ok {
		return ErrNoName
	}
	n.children[name] = child
	return nil
}

// Child returns the child with the given name, or nil
func (n *Node) Child(name string) *Node {
	return n.children[name]
}

// Children returns the children sorted by name
func (n *Node) Children() []*Node {
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*Node, 0, len(names))
	for _, name := range names {
		out = append(out, n.children[name])
	}
	return out
}

// Len returns the number of children
func (n *Node) Len() int {
	return len(n.children)
}

// Merge folds other into n: attributes of other overwrite, children with the
// same name are merged recursively and new children are copied in.
func (n *Node) Merge(other *Node) {
	if other == nil {
		return
	}
	for k, v := range other.attrs {
		n.attrs[k] = v
	}
	for name, child := range other.children {
		if mine, ok := n.children[name]; ok {
			mine.Merge(child)
			continue
		}
		n.children[name] = child.Clone()
	}
}

// Clone returns a deep copy
func (n *Node) Clone() *Node {
	c := New(n.Tag)
	for k, v := range n.attrs {
		c.attrs[k] = v
	}
	for name, child := range n.children {
		c.children[name] = child.Clone()
	}
	return c
}

// Equal reports whether both trees have the same tags, attributes and children
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	if n.Tag != other.Tag || len(n.attrs) != len(other.attrs) || len(n.children) != len(other.children) {
		return false
	}
	for k, v := range n.attrs {
		if ov, ok := other.attrs[k]; !ok || ov != v {
			return false
		}
	}
	for name, child := range n.children {
		if !child.Equal(other.children[name]) {
			return false
		}
	}
	return true
}
