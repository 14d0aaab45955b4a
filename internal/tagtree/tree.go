// Package tagtree models the hierarchical tag taxonomy used to structure progress
// reports. A tree is supplied by the handout site; it is parsed once into Leaf and
// Group nodes and never inspected by shape afterwards.
package tagtree

import (
	"bytes"
	"encoding/json"
	"strings"
)

// PathSeparator joins slugs into tag group paths such as "python/if".
const PathSeparator = "/"

// Kind distinguishes leaves from groups.
type Kind int

const (
	// KindLeaf is a tag without children.
	KindLeaf Kind = iota
	// KindGroup is a tag that nests other tags.
	KindGroup
)

// Node is either a leaf (display name only) or a group (display name and ordered children).
type Node struct {
	Kind     Kind
	Name     string
	Children Tree
}

// Entry binds a slug to its node.
type Entry struct {
	Slug string
	Node Node
}

// Tree is an ordered sequence of top-level entries.
type Tree []Entry

// Leaf builds a leaf node.
func Leaf(name string) Node {
	return Node{Kind: KindLeaf, Name: name}
}

// Group builds a group node with the given children.
func Group(name string, children ...Entry) Node {
	if children == nil {
		children = Tree{}
	}
	return Node{Kind: KindGroup, Name: name, Children: children}
}

// IsGroup reports whether the node nests other tags.
func (n Node) IsGroup() bool {
	return n.Kind == KindGroup
}

// Join appends slug to a group path.
func Join(parent, slug string) string {
	if parent == "" {
		return slug
	}
	return parent + PathSeparator + slug
}

// Walk visits every entry depth-first, parents before children, in declaration order.
func (t Tree) Walk(fn func(path string, entry Entry, depth int)) {
	t.walk("", 0, fn)
}

func (t Tree) walk(parent string, depth int, fn func(string, Entry, int)) {
	for _, entry := range t {
		path := Join(parent, entry.Slug)
		fn(path, entry, depth)
		if entry.Node.IsGroup() {
			entry.Node.Children.walk(path, depth+1, fn)
		}
	}
}

// Paths lists every tag group path in walk order.
func (t Tree) Paths() []string {
	paths := make([]string, 0, len(t))
	t.Walk(func(path string, _ Entry, _ int) {
		paths = append(paths, path)
	})
	return paths
}

// NameFor returns the display name declared for slug at its first occurrence.
func (t Tree) NameFor(slug string) (string, bool) {
	name, found := "", false
	t.Walk(func(_ string, entry Entry, _ int) {
		if !found && entry.Slug == slug {
			name, found = entry.Node.Name, true
		}
	})
	return name, found
}

// ListTags collects every slug referenced at any depth, leaf or group, without duplicates.
func ListTags(t Tree) []string {
	seen := make(map[string]struct{})
	slugs := make([]string, 0)
	t.Walk(func(_ string, entry Entry, _ int) {
		if _, ok := seen[entry.Slug]; ok {
			return
		}
		seen[entry.Slug] = struct{}{}
		slugs = append(slugs, entry.Slug)
	})
	return slugs
}

// MarshalJSON renders the tree back into its input shape, keeping declaration order.
func (t Tree) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	t.encode(&buf)
	return buf.Bytes(), nil
}

// UnmarshalJSON parses the input shape.
func (t *Tree) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t Tree) encode(buf *bytes.Buffer) {
	buf.WriteByte('{')
	for i, entry := range t {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeString(buf, entry.Slug)
		buf.WriteByte(':')
		if !entry.Node.IsGroup() {
			writeString(buf, entry.Node.Name)
			continue
		}
		buf.WriteString(`{"name":`)
		writeString(buf, entry.Node.Name)
		buf.WriteString(`,"children":`)
		entry.Node.Children.encode(buf)
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
}

func writeString(buf *bytes.Buffer, value string) {
	// strings always marshal
	encoded, _ := json.Marshal(value)
	buf.Write(encoded)
}

func validSlug(slug string) bool {
	return strings.TrimSpace(slug) != "" && !strings.Contains(slug, PathSeparator)
}
