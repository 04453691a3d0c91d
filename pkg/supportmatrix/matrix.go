// Package supportmatrix records which languages provide which resources.
//
// The matrix is a tree keyed by resource path segment. Leaves hold the
// ordered list of language codes providing that resource; inner nodes are
// categories. It serializes to nested JSON objects with arrays at the leaves
// (supported.json) and is treated as immutable once built or loaded.
package supportmatrix

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"git.home.luguber.info/inful/langdocs/pkg/foundation"
)

var (
	// ErrInvalidPath is returned for empty paths or paths with empty segments.
	ErrInvalidPath = errors.New("invalid resource path")
	// ErrPathConflict is returned when a path would turn a leaf into a
	// category or a category into a leaf.
	ErrPathConflict = errors.New("resource path conflicts with existing entry")
)

// Node is a read-only view of one matrix node.
type Node struct {
	langs    []string
	children map[string]*Node
}

// IsLeaf reports whether the node is a concrete resource.
func (n Node) IsLeaf() bool { return n.children == nil }

// Languages returns a copy of the leaf's language list (nil for categories).
func (n Node) Languages() []string {
	if !n.IsLeaf() {
		return nil
	}
	return slices.Clone(n.langs)
}

// Keys returns the sorted child keys of a category (nil for leaves).
func (n Node) Keys() []string {
	if n.IsLeaf() {
		return nil
	}
	keys := make([]string, 0, len(n.children))
	for k := range n.children {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether lang is listed on this leaf.
func (n Node) Has(lang string) bool {
	return n.IsLeaf() && slices.Contains(n.langs, lang)
}

func newCategory() *Node {
	return &Node{children: map[string]*Node{}}
}

func (n *Node) clone() *Node {
	if n.IsLeaf() {
		return &Node{langs: slices.Clone(n.langs)}
	}
	c := newCategory()
	for k, child := range n.children {
		c.children[k] = child.clone()
	}
	return c
}

// SplitPath splits a resource path into segments, rejecting empty ones.
func SplitPath(path string) ([]string, error) {
	if path == "" {
		return nil, ErrInvalidPath
	}
	segments := strings.Split(path, "/")
	for _, s := range segments {
		if s == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return segments, nil
}

// Builder accumulates (resource, language) pairs.
type Builder struct {
	root *Node
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{root: newCategory()}
}

// Add records that lang provides the resource at path. Intermediate
// categories are created as needed; languages keep insertion order and
// duplicates are ignored.
func (b *Builder) Add(path, lang string) error {
	if lang == "" {
		return fmt.Errorf("%w: empty language for %q", ErrInvalidPath, path)
	}
	segments, err := SplitPath(path)
	if err != nil {
		return err
	}
	cursor := b.root
	for i, seg := range segments[:len(segments)-1] {
		next, ok := cursor.children[seg]
		if !ok {
			next = newCategory()
			cursor.children[seg] = next
		} else if next.IsLeaf() {
			return fmt.Errorf("%w: %q is a resource", ErrPathConflict, strings.Join(segments[:i+1], "/"))
		}
		cursor = next
	}
	last := segments[len(segments)-1]
	leaf, ok := cursor.children[last]
	switch {
	case !ok:
		cursor.children[last] = &Node{langs: []string{lang}}
	case !leaf.IsLeaf():
		return fmt.Errorf("%w: %q is a category", ErrPathConflict, path)
	case !slices.Contains(leaf.langs, lang):
		leaf.langs = append(leaf.langs, lang)
	}
	return nil
}

// Matrix returns an immutable snapshot of everything added so far.
func (b *Builder) Matrix() *Matrix {
	return &Matrix{root: b.root.clone()}
}

// Matrix is the immutable support matrix.
type Matrix struct {
	root *Node
}

// Empty returns a matrix with no resources.
func Empty() *Matrix {
	return &Matrix{root: newCategory()}
}

// Lookup walks path and returns the node it reaches, or None when any
// segment is missing.
func (m *Matrix) Lookup(path string) foundation.Option[Node] {
	segments, err := SplitPath(path)
	if err != nil || m == nil || m.root == nil {
		return foundation.None[Node]()
	}
	cursor := m.root
	for _, seg := range segments {
		if cursor.IsLeaf() {
			return foundation.None[Node]()
		}
		next, ok := cursor.children[seg]
		if !ok {
			return foundation.None[Node]()
		}
		cursor = next
	}
	return foundation.Some(*cursor)
}

// Supports reports whether lang provides the resource at path. Categories
// and unknown paths are never supported.
func (m *Matrix) Supports(path, lang string) bool {
	node, ok := m.Lookup(path).Get()
	return ok && node.Has(lang)
}

// Available lists the direct child resources of a category that lang
// provides, sorted by key. It returns None when path is unknown, is a
// resource, or is a category without children. Child categories are not
// listed.
func (m *Matrix) Available(category, lang string) foundation.Option[[]string] {
	node, ok := m.Lookup(category).Get()
	if !ok || node.IsLeaf() || len(node.children) == 0 {
		return foundation.None[[]string]()
	}
	keys := []string{}
	for _, k := range node.Keys() {
		if node.children[k].Has(lang) {
			keys = append(keys, k)
		}
	}
	return foundation.Some(keys)
}

// Languages returns every language mentioned anywhere in the matrix, sorted.
func (m *Matrix) Languages() []string {
	seen := map[string]struct{}{}
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.IsLeaf() {
			for _, l := range n.langs {
				seen[l] = struct{}{}
			}
			return
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	if m != nil && m.root != nil {
		walk(m.root)
	}
	out := make([]string, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Resources lists every leaf path provided by lang, sorted.
func (m *Matrix) Resources(lang string) []string {
	var out []string
	var walk func(prefix string, n *Node)
	walk = func(prefix string, n *Node) {
		if n.IsLeaf() {
			if slices.Contains(n.langs, lang) {
				out = append(out, prefix)
			}
			return
		}
		for _, k := range n.Keys() {
			p := k
			if prefix != "" {
				p = prefix + "/" + k
			}
			walk(p, n.children[k])
		}
	}
	if m != nil && m.root != nil {
		walk("", m.root)
	}
	return out
}
