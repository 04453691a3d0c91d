package foundation

import (
	"fmt"
	"slices"
	"strings"
)

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Normalizer maps loosely formatted strings onto a fixed set of enum values.
type Normalizer[T comparable] struct {
	values       map[string]T
	defaultValue T
}

// NewNormalizer builds a normalizer; keys are matched case-insensitively
// after trimming.
func NewNormalizer[T comparable](values map[string]T, defaultValue T) *Normalizer[T] {
	normalized := make(map[string]T, len(values))
	for k, v := range values {
		normalized[normalizeKey(k)] = v
	}
	return &Normalizer[T]{values: normalized, defaultValue: defaultValue}
}

// Normalize returns the matching value, or the default for unknown input.
func (n *Normalizer[T]) Normalize(raw string) T {
	if v, ok := n.values[normalizeKey(raw)]; ok {
		return v
	}
	return n.defaultValue
}

// Lookup returns the matching value without falling back to the default.
func (n *Normalizer[T]) Lookup(raw string) Option[T] {
	v, ok := n.values[normalizeKey(raw)]
	return FromComma(v, ok)
}

// NormalizeWithError is Normalize that rejects unknown input.
func (n *Normalizer[T]) NormalizeWithError(raw string) (T, error) {
	if v, ok := n.values[normalizeKey(raw)]; ok {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid value %q (valid: %s)", raw, strings.Join(n.Keys(), ", "))
}

// Keys lists the accepted inputs in sorted order.
func (n *Normalizer[T]) Keys() []string {
	keys := make([]string, 0, len(n.values))
	for k := range n.values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
