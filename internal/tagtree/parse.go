package tagtree

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrInvalidTagTree is returned when the input does not have the tag tree shape.
var ErrInvalidTagTree = errors.New("invalid tag tree")

const (
	groupNameKey     = "name"
	groupChildrenKey = "children"
)

// Parse reads a tag tree from JSON or YAML. The root must be a mapping from slug to
// either a display name (leaf) or a {name, children} mapping (group). Empty input and
// a null document yield an empty tree.
func Parse(data []byte) (Tree, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Tree{}, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTagTree, err)
	}

	root := &doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return Tree{}, nil
		}
		root = root.Content[0]
	}
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return Tree{}, nil
	}

	return parseMapping(root, "")
}

// UnmarshalYAML lets a Tree be embedded in larger YAML documents.
func (t *Tree) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := parseMapping(value, "")
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func parseMapping(n *yaml.Node, path string) (Tree, error) {
	if n.Kind != yaml.MappingNode {
		return nil, invalid(path, "expected a mapping of slugs")
	}

	tree := make(Tree, 0, len(n.Content)/2)
	seen := make(map[string]struct{}, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, value := n.Content[i], n.Content[i+1]
		if key.Kind != yaml.ScalarNode || !validSlug(key.Value) {
			return nil, invalid(path, fmt.Sprintf("invalid slug %q", key.Value))
		}
		if _, dup := seen[key.Value]; dup {
			return nil, invalid(path, fmt.Sprintf("duplicate slug %q", key.Value))
		}
		seen[key.Value] = struct{}{}

		node, err := parseNode(value, Join(path, key.Value))
		if err != nil {
			return nil, err
		}
		tree = append(tree, Entry{Slug: key.Value, Node: node})
	}

	return tree, nil
}

func parseNode(n *yaml.Node, path string) (Node, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return Node{}, invalid(path, "leaf requires a display name")
		}
		return Leaf(n.Value), nil
	case yaml.MappingNode:
		var name, children *yaml.Node
		for i := 0; i+1 < len(n.Content); i += 2 {
			switch n.Content[i].Value {
			case groupNameKey:
				name = n.Content[i+1]
			case groupChildrenKey:
				children = n.Content[i+1]
			default:
				return Node{}, invalid(path, fmt.Sprintf("unexpected group key %q", n.Content[i].Value))
			}
		}
		if name == nil || name.Kind != yaml.ScalarNode || name.Tag == "!!null" {
			return Node{}, invalid(path, "group requires a name")
		}
		if children == nil {
			return Node{}, invalid(path, "group requires children")
		}
		kids, err := parseMapping(children, path)
		if err != nil {
			return Node{}, err
		}
		return Group(name.Value, kids...), nil
	default:
		return Node{}, invalid(path, "expected a display name or a group")
	}
}

func invalid(path, reason string) error {
	if path == "" {
		return fmt.Errorf("%w: %s", ErrInvalidTagTree, reason)
	}
	return fmt.Errorf("%w at %q: %s", ErrInvalidTagTree, path, reason)
}
