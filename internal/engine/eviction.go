package engine

import (
	"sort"

	"indexadvisor/internal/schema"
)

// evictionQueue holds existing real indexes ordered by ascending
// num_uses/size: the least valuable per byte are considered for
// eviction first. Sorted once on construction and kept sorted by
// removing in place, rather than re-sorted on every mutation.
type evictionQueue struct {
	items []*schema.Index
}

func newEvictionQueue(indexes []*schema.Index) *evictionQueue {
	items := append([]*schema.Index(nil), indexes...)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].UsesPerByte() < items[j].UsesPerByte()
	})
	return &evictionQueue{items: items}
}

// Ordered returns the queue's current ascending-ratio order. Callers
// must not mutate the returned slice.
func (q *evictionQueue) Ordered() []*schema.Index {
	return q.items
}

func (q *evictionQueue) Remove(key string) {
	for i, it := range q.items {
		if it.Identifier.Key() == key {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return
		}
	}
}

func (q *evictionQueue) Len() int { return len(q.items) }
