// Package normalization maps loosely formatted configuration strings onto typed enums.
package normalization

import (
	"slices"
	"strings"

	ferrors "git.home.luguber.info/inful/apierror/internal/foundation/errors"
)

// Normalizer converts case-insensitive, whitespace-tolerant input to an enum value.
type Normalizer[T comparable] struct {
	name         string
	values       map[string]T
	defaultValue T
	keys         []string
}

// NewNormalizer creates a normalizer for the enum called name. Keys are folded
// the same way as input.
func NewNormalizer[T comparable](name string, values map[string]T, defaultValue T) *Normalizer[T] {
	folded := make(map[string]T, len(values))
	keys := make([]string, 0, len(values))
	for k, v := range values {
		k = fold(k)
		folded[k] = v
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return &Normalizer[T]{name: name, values: folded, defaultValue: defaultValue, keys: keys}
}

// Normalize returns the matching value, or the default for empty or unknown input.
func (n *Normalizer[T]) Normalize(raw string) T {
	if v, ok := n.values[fold(raw)]; ok {
		return v
	}
	return n.defaultValue
}

// Parse returns the matching value. Empty input yields the default; unknown
// input is a validation error listing the accepted values.
func (n *Normalizer[T]) Parse(raw string) (T, error) {
	cleaned := fold(raw)
	if cleaned == "" {
		return n.defaultValue, nil
	}
	if v, ok := n.values[cleaned]; ok {
		return v, nil
	}
	var zero T
	return zero, ferrors.ValidationError("invalid "+n.name).
		WithContext("value", raw).
		WithContext("valid", strings.Join(n.keys, ", ")).
		Build()
}

// Keys returns the accepted inputs in sorted order.
func (n *Normalizer[T]) Keys() []string {
	return slices.Clone(n.keys)
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
