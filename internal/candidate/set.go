// Package candidate manages the set of column tuples eligible to
// become indexes: the initial seed drawn from referenced columns, and
// its growth by prefix extension as indexes are accepted.
package candidate

import "indexadvisor/internal/schema"

// Set is an insertion-ordered collection of index identifiers.
// Insertion order is preserved for Ordered() so the engine's outer
// loop scans candidates in a fixed, deterministic sequence across
// rounds.
type Set struct {
	order   []schema.IndexIdentifier
	present map[string]struct{}
}

func NewSet() *Set {
	return &Set{present: make(map[string]struct{})}
}

// Add inserts id if its key is not already present. Returns true if
// the set changed. Re-adding an existing key is a no-op, satisfying
// the no-duplicate property. A key dropped by Remove can be added
// again; the engine keeps accepted tuples out by never re-adding them.
func (s *Set) Add(id schema.IndexIdentifier) bool {
	key := id.Key()
	if _, ok := s.present[key]; ok {
		return false
	}
	s.present[key] = struct{}{}
	s.order = append(s.order, id)
	return true
}

// Remove drops id from the set, if present.
func (s *Set) Remove(id schema.IndexIdentifier) {
	key := id.Key()
	if _, ok := s.present[key]; !ok {
		return
	}
	delete(s.present, key)
	for i, existing := range s.order {
		if existing.Key() == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *Set) Contains(id schema.IndexIdentifier) bool {
	_, ok := s.present[id.Key()]
	return ok
}

// Ordered returns a snapshot of the set's current members in
// insertion order. Because it is a copy, it is safe to range over
// while calling Add or Remove from the same goroutine; Set has no
// locking. Callers that need the live order should re-fetch after
// mutating.
func (s *Set) Ordered() []schema.IndexIdentifier {
	out := make([]schema.IndexIdentifier, len(s.order))
	copy(out, s.order)
	return out
}

func (s *Set) Len() int { return len(s.order) }
