package model

import (
	"iter"
	"slices"
)

// Keyed is an insertion ordered map with unique string keys.
// The zero value is ready to use.
type Keyed[V any] struct {
	keys   []string
	values map[string]V
}

// Add inserts v under key. It returns false and leaves the map unchanged if key already exists.
func (k *Keyed[V]) Add(key string, v V) bool {
	if k.values == nil {
		k.values = make(map[string]V)
	}

	if _, ok := k.values[key]; ok {
		return false
	}

	k.keys = append(k.keys, key)
	k.values[key] = v

	return true
}

// Replace overwrites the value stored under an existing key.
func (k *Keyed[V]) Replace(key string, v V) bool {
	if _, ok := k.values[key]; !ok {
		return false
	}

	k.values[key] = v

	return true
}

func (k *Keyed[V]) Get(key string) (V, bool) {
	v, ok := k.values[key]

	return v, ok
}

func (k *Keyed[V]) Has(key string) bool {
	_, ok := k.values[key]

	return ok
}

func (k *Keyed[V]) Len() int {
	return len(k.keys)
}

// Keys returns the keys in insertion order.
func (k *Keyed[V]) Keys() []string {
	return slices.Clone(k.keys)
}

// All iterates over the entries in insertion order.
func (k *Keyed[V]) All() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		for _, key := range k.keys {
			if !yield(key, k.values[key]) {
				return
			}
		}
	}
}

// Clone copies the map, applying cloneFn to every value.
func (k *Keyed[V]) Clone(cloneFn func(V) V) *Keyed[V] {
	out := &Keyed[V]{
		keys:   slices.Clone(k.keys),
		values: make(map[string]V, len(k.values)),
	}
	for key, v := range k.values {
		out.values[key] = cloneFn(v)
	}

	return out
}
