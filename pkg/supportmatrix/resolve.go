package supportmatrix

// Kind classifies what a path resolved to.
type Kind string

const (
	KindUnsupported Kind = "unsupported"
	KindResource    Kind = "resource"
	KindCategory    Kind = "category"
)

// Resolution is the combined answer for a path/language query.
//
// For resources, Supported reports membership of the language. For
// categories, Keys holds the child resources the language provides and
// Supported is true when there is at least one.
type Resolution struct {
	Kind      Kind     `json:"kind"`
	Supported bool     `json:"supported"`
	Keys      []string `json:"keys,omitempty"`
}

// Resolve answers both "is this resource available in lang" and "what is
// available under this category in lang" depending on what path reaches.
func (m *Matrix) Resolve(path, lang string) Resolution {
	node, ok := m.Lookup(path).Get()
	if !ok {
		return Resolution{Kind: KindUnsupported}
	}
	if node.IsLeaf() {
		return Resolution{Kind: KindResource, Supported: node.Has(lang)}
	}
	keys, ok := m.Available(path, lang).Get()
	if !ok {
		return Resolution{Kind: KindUnsupported}
	}
	return Resolution{Kind: KindCategory, Supported: len(keys) > 0, Keys: keys}
}
