// Package keyed implements the reference-counted keyed slice state that lives
// inside the shared container.
//
// A State maps keys to slices and tracks how many live instances observe each
// key. It is an immutable value: Reduce never mutates its input and returns a
// fresh snapshot for every successful operation.
//
// Three operations exist:
//   - Mount: create the slice on first mount, otherwise bump the refcount.
//     The first mounter's value stays authoritative for the lifetime of the key.
//   - Unmount: drop the refcount, removing the slice when it reaches zero.
//   - Apply: replace the slice with reducer(slice, action).
//
// Unmount and Apply on a key that is not mounted are programmer errors and
// fail with ErrNotMounted.
package keyed

import "sort"

// State is an immutable snapshot of all keyed slices and their refcounts.
//
// A key is present in the refcount table iff it is present in the slice
// table, and every refcount is at least 1.
type State struct {
	meta   map[string]int
	slices map[string]any
}

// Empty returns a state with no mounted keys.
func Empty() State {
	return State{}
}

// RefCount returns the number of live instances mounted at key (0 if none).
func (s State) RefCount(key string) int {
	return s.meta[key]
}

// Slice returns the slice stored at key.
func (s State) Slice(key string) (any, bool) {
	v, ok := s.slices[key]
	return v, ok
}

// Has reports whether key is mounted.
func (s State) Has(key string) bool {
	_, ok := s.meta[key]
	return ok
}

// Len returns the number of mounted keys.
func (s State) Len() int {
	return len(s.meta)
}

// Keys returns the mounted keys in sorted order.
func (s State) Keys() []string {
	keys := make([]string, 0, len(s.meta))
	for k := range s.meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// References returns the sum of all refcounts.
func (s State) References() int {
	total := 0
	for _, n := range s.meta {
		total += n
	}
	return total
}

// clone copies both tables so the receiver can be left untouched.
func (s State) clone() State {
	meta := make(map[string]int, len(s.meta)+1)
	for k, v := range s.meta {
		meta[k] = v
	}
	slices := make(map[string]any, len(s.slices)+1)
	for k, v := range s.slices {
		slices[k] = v
	}
	return State{meta: meta, slices: slices}
}
