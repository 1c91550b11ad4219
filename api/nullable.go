package api

import (
	"gopkg.in/yaml.v3"
)

// Nullable distinguishes an absent key from a key explicitly set to null.
// The zero value is absent.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// Some returns a present, non-null value.
func Some[T any](v T) Nullable[T] {
	return Nullable[T]{Set: true, Value: &v}
}

// Null returns a present value that serializes as null.
func Null[T any]() Nullable[T] {
	return Nullable[T]{Set: true}
}

// IsNull reports whether the key is present with a null value.
func (n Nullable[T]) IsNull() bool {
	return n.Set && n.Value == nil
}

// IsZero lets omitempty drop absent values.
func (n Nullable[T]) IsZero() bool {
	return !n.Set
}

// MarshalYAML implements yaml.Marshaler.
func (n Nullable[T]) MarshalYAML() (any, error) {
	if n.Value == nil {
		return nil, nil
	}
	return *n.Value, nil
}

// UnmarshalYAML implements yaml.Unmarshaler. yaml.v3 never calls it for an
// explicit null; the owning struct marks those with markNull.
func (n *Nullable[T]) UnmarshalYAML(node *yaml.Node) error {
	var v T
	if err := node.Decode(&v); err != nil {
		return err
	}
	n.Set = true
	n.Value = &v
	return nil
}

// markNull sets n to an explicit null when the mapping node holds key: null.
func markNull[T any](node *yaml.Node, key string, n *Nullable[T]) {
	if v := mappingValue(node, key); v != nil && v.Kind == yaml.ScalarNode && v.ShortTag() == "!!null" {
		*n = Null[T]()
	}
}

// mappingValue returns the value node stored under key, or nil.
func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}
