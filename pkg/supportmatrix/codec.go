package supportmatrix

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MarshalJSON writes leaves as arrays and categories as objects. Object keys
// are sorted by encoding/json, which keeps output stable across builds.
func (n *Node) MarshalJSON() ([]byte, error) {
	if n.IsLeaf() {
		langs := n.langs
		if langs == nil {
			langs = []string{}
		}
		return json.Marshal(langs)
	}
	return json.Marshal(n.children)
}

// UnmarshalJSON accepts either an array of language codes or an object.
func (n *Node) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("supportmatrix: empty node")
	}
	switch trimmed[0] {
	case '[':
		var langs []string
		if err := json.Unmarshal(trimmed, &langs); err != nil {
			return fmt.Errorf("supportmatrix: decode languages: %w", err)
		}
		if langs == nil {
			langs = []string{}
		}
		n.langs = langs
		n.children = nil
		return nil
	case '{':
		children := map[string]*Node{}
		if err := json.Unmarshal(trimmed, &children); err != nil {
			return err
		}
		for k, c := range children {
			if k == "" || c == nil {
				return fmt.Errorf("supportmatrix: invalid entry %q", k)
			}
		}
		n.langs = nil
		n.children = children
		return nil
	default:
		return fmt.Errorf("supportmatrix: unexpected node %s", string(trimmed[:1]))
	}
}

// MarshalJSON encodes the whole matrix.
func (m *Matrix) MarshalJSON() ([]byte, error) {
	if m == nil || m.root == nil {
		return []byte("{}"), nil
	}
	return m.root.MarshalJSON()
}

// Parse decodes supported.json. The top level must be an object.
func Parse(data []byte) (*Matrix, error) {
	root := &Node{}
	if err := root.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	if root.IsLeaf() {
		return nil, fmt.Errorf("supportmatrix: top level must be an object")
	}
	return &Matrix{root: root}, nil
}
