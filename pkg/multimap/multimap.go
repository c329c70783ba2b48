// Package multimap implements a key to value-set map in which every value
// belongs to at most one key.
package multimap

import "iter"

// UniqueMultiMap maps keys to sets of values. Each value is associated
// with at most one key at a time: inserting it under a new key moves it.
//
// A reverse index from value to key keeps Insert and Remove O(1).
// UniqueMultiMap is not safe for concurrent use.
type UniqueMultiMap[K comparable, V comparable] struct {
	forward map[K]map[V]struct{}
	reverse map[V]K
}

// New creates an empty UniqueMultiMap.
func New[K comparable, V comparable]() *UniqueMultiMap[K, V] {
	return &UniqueMultiMap[K, V]{
		forward: make(map[K]map[V]struct{}),
		reverse: make(map[V]K),
	}
}

// Insert associates v with key, first dropping any association v had
// with a different key. Inserting an existing pair is a no-op.
func (m *UniqueMultiMap[K, V]) Insert(key K, v V) {
	if old, ok := m.reverse[v]; ok {
		if old == key {
			return
		}
		m.unlink(old, v)
	}

	bucket, ok := m.forward[key]
	if !ok {
		bucket = make(map[V]struct{})
		m.forward[key] = bucket
	}
	bucket[v] = struct{}{}
	m.reverse[v] = key
}

// Get returns a copy of the values associated with key. The set is empty,
// not nil, when nothing maps to key.
func (m *UniqueMultiMap[K, V]) Get(key K) Set[V] {
	bucket := m.forward[key]
	out := make(Set[V], len(bucket))
	for v := range bucket {
		out[v] = struct{}{}
	}
	return out
}

// Count returns how many values are associated with key.
func (m *UniqueMultiMap[K, V]) Count(key K) int {
	return len(m.forward[key])
}

// KeyOf returns the key v is currently associated with.
func (m *UniqueMultiMap[K, V]) KeyOf(v V) (K, bool) {
	key, ok := m.reverse[v]
	return key, ok
}

// Remove drops v from the map and returns the key it was associated with.
func (m *UniqueMultiMap[K, V]) Remove(v V) (K, bool) {
	key, ok := m.reverse[v]
	if !ok {
		return key, false
	}
	m.unlink(key, v)
	delete(m.reverse, v)
	return key, true
}

// Len returns the number of values in the map.
func (m *UniqueMultiMap[K, V]) Len() int {
	return len(m.reverse)
}

// KeyCount returns the number of keys with at least one value.
func (m *UniqueMultiMap[K, V]) KeyCount() int {
	return len(m.forward)
}

// Keys iterates the keys that currently have values, in no particular order.
func (m *UniqueMultiMap[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for k := range m.forward {
			if !yield(k) {
				return
			}
		}
	}
}

// Clear removes every association.
func (m *UniqueMultiMap[K, V]) Clear() {
	clear(m.forward)
	clear(m.reverse)
}

// unlink removes v from key's bucket and drops the bucket once it is empty.
// The reverse entry is left to the caller.
func (m *UniqueMultiMap[K, V]) unlink(key K, v V) {
	bucket := m.forward[key]
	delete(bucket, v)
	if len(bucket) == 0 {
		delete(m.forward, key)
	}
}
