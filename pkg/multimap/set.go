package multimap

import "iter"

// Set is an unordered set of values. Sets returned by UniqueMultiMap are
// copies and may be modified by the caller.
type Set[V comparable] map[V]struct{}

// NewSet builds a set holding vs.
func NewSet[V comparable](vs ...V) Set[V] {
	s := make(Set[V], len(vs))
	for _, v := range vs {
		s[v] = struct{}{}
	}
	return s
}

func (s Set[V]) Len() int {
	return len(s)
}

func (s Set[V]) Contains(v V) bool {
	_, ok := s[v]
	return ok
}

// All iterates the set in no particular order.
func (s Set[V]) All() iter.Seq[V] {
	return func(yield func(V) bool) {
		for v := range s {
			if !yield(v) {
				return
			}
		}
	}
}

// Slice returns the members in no particular order.
func (s Set[V]) Slice() []V {
	out := make([]V, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	return out
}
