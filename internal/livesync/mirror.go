package livesync

import "sort"

// Mirror is a subscription's local copy of its result set, kept sorted.
type Mirror[T any] struct {
	items []T
	key   func(T) string
	less  func(a, b T) bool
}

func newMirror[T any](key func(T) string, less func(a, b T) bool) *Mirror[T] {
	return &Mirror[T]{key: key, less: less}
}

// Replace swaps the contents wholesale.
func (m *Mirror[T]) Replace(items []T) {
	m.items = append(make([]T, 0, len(items)), items...)
	m.sort()
}

// Upsert replaces the item with the same key or adds it.
func (m *Mirror[T]) Upsert(item T) {
	k := m.key(item)
	for i := range m.items {
		if m.key(m.items[i]) == k {
			m.items[i] = item
			m.sort()
			return
		}
	}
	m.items = append(m.items, item)
	m.sort()
}

// Remove drops the item with key k and reports whether it was present.
func (m *Mirror[T]) Remove(k string) bool {
	for i := range m.items {
		if m.key(m.items[i]) == k {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return true
		}
	}
	return false
}

// Items returns a copy safe to hand to consumers.
func (m *Mirror[T]) Items() []T {
	return append(make([]T, 0, len(m.items)), m.items...)
}

func (m *Mirror[T]) Len() int {
	return len(m.items)
}

func (m *Mirror[T]) sort() {
	if m.less == nil {
		return
	}
	sort.SliceStable(m.items, func(i, j int) bool { return m.less(m.items[i], m.items[j]) })
}
