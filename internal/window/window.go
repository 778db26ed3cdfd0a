// Package window provides a copy-on-write map that retains only the most
// recently inserted keys.
//
// State snapshots use it for results keyed by action or call id. Those
// results are read once by whoever is waiting on the id, so keeping every
// one of them for the life of an instance only grows each snapshot.
package window

import (
	"maps"
	"slices"
)

// DefaultLimit is the capacity of a Map built without an explicit limit.
const DefaultLimit = 4096

// Map is an immutable map holding at most Limit keys. The zero value is an
// empty Map with DefaultLimit capacity.
type Map[K comparable, V any] struct {
	limit int
	items map[K]V
	order []K // insertion order of the keys in items
}

// New returns an empty Map holding at most limit keys. A limit below one
// selects DefaultLimit.
func New[K comparable, V any](limit int) Map[K, V] {
	return Map[K, V]{limit: limit}
}

// Limit returns the capacity of m.
func (m Map[K, V]) Limit() int {
	if m.limit < 1 {
		return DefaultLimit
	}
	return m.limit
}

// Len returns the number of keys in m.
func (m Map[K, V]) Len() int {
	return len(m.items)
}

// Get returns the value stored under k.
func (m Map[K, V]) Get(k K) (V, bool) {
	v, ok := m.items[k]
	return v, ok
}

// With returns a copy of m with k set to v. Replacing an existing key keeps
// its position; inserting into a full Map drops the oldest key. m is not
// modified.
func (m Map[K, V]) With(k K, v V) Map[K, V] {
	next := Map[K, V]{limit: m.limit, items: make(map[K]V, len(m.items)+1)}
	maps.Copy(next.items, m.items)
	next.order = m.order

	if _, ok := m.items[k]; !ok {
		next.order = append(slices.Clip(m.order), k)
		if over := len(next.order) - m.Limit(); over > 0 {
			for _, old := range next.order[:over] {
				delete(next.items, old)
			}
			next.order = next.order[over:]
		}
	}
	next.items[k] = v
	return next
}

// Without returns a copy of m without k. m is returned unchanged when it
// does not hold k.
func (m Map[K, V]) Without(k K) Map[K, V] {
	if _, ok := m.items[k]; !ok {
		return m
	}
	next := Map[K, V]{limit: m.limit, items: maps.Clone(m.items)}
	delete(next.items, k)
	next.order = slices.DeleteFunc(slices.Clone(m.order), func(o K) bool { return o == k })
	return next
}
