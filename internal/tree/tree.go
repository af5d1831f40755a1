// Package tree aggregates the flat namespace listing of a metadata reader
// into a hierarchy of namespace nodes.
package tree

import (
	"sort"
	"strings"

	"winmdgen/internal/errors"
	"winmdgen/internal/logger"
	"winmdgen/internal/metadata"
)

const separator = "."

// Node is one namespace segment. The root has an empty Namespace and never
// owns types. Nodes are not modified once Build returns.
type Node struct {
	// Namespace is the fully qualified name, e.g. Windows.Win32.Foundation.
	Namespace string
	// Name is the last segment of Namespace.
	Name   string
	Nested map[string]*Node
	// Types declared directly in Namespace, ordered by name.
	Types []metadata.TypeDef
}

func newNode(namespace, name string) *Node {
	return &Node{Namespace: namespace, Name: name, Nested: make(map[string]*Node)}
}

// Children returns the nested nodes sorted by segment name.
func (n *Node) Children() []*Node {
	names := make([]string, 0, len(n.Nested))
	for name := range n.Nested {
		names = append(names, name)
	}
	sort.Strings(names)

	children := make([]*Node, len(names))
	for i, name := range names {
		children[i] = n.Nested[name]
	}
	return children
}

// Walk visits n and its descendants depth first, children in sorted order.
// A non-nil error from visit stops the walk.
func (n *Node) Walk(visit func(*Node) error) error {
	if err := visit(n); err != nil {
		return err
	}
	for _, child := range n.Children() {
		if err := child.Walk(visit); err != nil {
			return err
		}
	}
	return nil
}

// Find returns the node of a fully qualified namespace.
func (n *Node) Find(namespace string) (*Node, bool) {
	if namespace == "" {
		return n, true
	}
	node := n
	for _, segment := range strings.Split(namespace, separator) {
		child, ok := node.Nested[segment]
		if !ok {
			return nil, false
		}
		node = child
	}
	return node, true
}

// Segments splits a namespace into its segments. The empty namespace has
// none.
func Segments(namespace string) []string {
	if namespace == "" {
		return nil
	}
	return strings.Split(namespace, separator)
}

// Build creates the namespace tree of every definition accepted by filter.
// Namespaces without accepted definitions are left out.
func Build(reader metadata.Reader, filter metadata.Filter) (*Node, error) {
	root := newNode("", "")
	seen := make(map[string]bool)
	var count int

	for _, namespace := range reader.Namespaces() {
		if seen[namespace] {
			return nil, errors.Wrapf(errors.ErrMalformedNamespace, "namespace %q listed twice", namespace)
		}
		seen[namespace] = true

		types := reader.NamespaceTypes(namespace, filter)
		if len(types) == 0 || namespace == "" {
			continue
		}

		node, err := insert(root, namespace)
		if err != nil {
			return nil, err
		}
		if err := attach(reader, node, types); err != nil {
			return nil, err
		}
		count += len(types)
	}

	logger.Logger.Debugw("Namespace tree built", logger.FieldCount, count)
	return root, nil
}

func insert(root *Node, namespace string) (*Node, error) {
	node := root
	segments := strings.Split(namespace, separator)
	for i, segment := range segments {
		if segment == "" {
			return nil, errors.Wrapf(errors.ErrMalformedNamespace, "namespace %q has an empty segment", namespace)
		}
		child, ok := node.Nested[segment]
		if !ok {
			child = newNode(strings.Join(segments[:i+1], separator), segment)
			node.Nested[segment] = child
		}
		node = child
	}
	return node, nil
}

func attach(reader metadata.Reader, node *Node, types []metadata.TypeDef) error {
	if len(node.Types) > 0 {
		return errors.Wrapf(errors.ErrMalformedNamespace, "namespace %q populated twice", node.Namespace)
	}

	sorted := append([]metadata.TypeDef(nil), types...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return reader.TypeDefName(sorted[i]) < reader.TypeDefName(sorted[j])
	})
	for i := 1; i < len(sorted); i++ {
		if reader.TypeDefName(sorted[i]) == reader.TypeDefName(sorted[i-1]) {
			return errors.Wrapf(errors.ErrMalformedNamespace, "type %s.%s declared twice", node.Namespace, reader.TypeDefName(sorted[i]))
		}
	}
	node.Types = sorted
	return nil
}
