// Package listcalc keeps a sorted, optionally bounded, in-memory projection of a
// collection and turns change-lists into positional edits for list renderers.
//
// Edits follow the batch-update convention: updates and deletes carry their index in
// the list as it was before Apply, inserts carry their index in the resulting list.
package listcalc

import (
	"sort"
	"sync"

	"syncstore/core/reconcile"
)

// Difference is a positional edit of the projection.
type Difference struct {
	Kind  reconcile.ChangeKind `json:"kind"`
	Index int                  `json:"index"`
	ID    string               `json:"id"`
}

// Calculator applies change-lists to a sorted projection. It is safe for concurrent use.
type Calculator[M reconcile.Identifiable] struct {
	less func(a, b M) bool

	mu    sync.RWMutex
	limit int
	items []M
	last  []Difference
}

// New creates a calculator ordered by less and holding at most limit items (0 means
// unbounded). initial is sorted and truncated without reporting differences.
func New[M reconcile.Identifiable](less func(a, b M) bool, limit int, initial []M) *Calculator[M] {
	if limit < 0 {
		limit = 0
	}
	items := make([]M, len(initial))
	copy(items, initial)
	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return &Calculator[M]{less: less, limit: limit, items: items}
}

// AllItems returns a copy of the projection.
func (c *Calculator[M]) AllItems() []M {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]M, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of items in the projection.
func (c *Calculator[M]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Limit returns the current bound, 0 when unbounded.
func (c *Calculator[M]) Limit() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.limit
}

// LastDifferences returns the edits produced by the most recent Apply or SetLimit.
func (c *Calculator[M]) LastDifferences() []Difference {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Difference, len(c.last))
	copy(out, c.last)
	return out
}

// Apply applies changes in the fixed order update, delete, insert and returns the
// resulting edits. An insert for a known identifier replaces the item, an update for an
// unknown identifier is ignored. Inserts re-sort the projection; items pushed past the
// limit are reported as deletes.
func (c *Calculator[M]) Apply(changes []reconcile.Change[M]) []Difference {
	c.mu.Lock()
	defer c.mu.Unlock()

	index := make(map[string]int, len(c.items))
	for i, item := range c.items {
		index[item.Identifier()] = i
	}

	updates, deletes, inserts := reconcile.Partition(changes)

	removed := make(map[string]struct{}, len(deletes))
	for _, d := range deletes {
		if _, ok := index[d.ID]; ok {
			removed[d.ID] = struct{}{}
		}
	}

	var fresh []M
	freshAt := make(map[string]int, len(inserts))
	for _, ins := range inserts {
		if _, known := index[ins.ID]; known {
			updates = append(updates, reconcile.Updated(ins.Item))
			continue
		}
		if i, dup := freshAt[ins.ID]; dup {
			fresh[i] = ins.Item
			continue
		}
		freshAt[ins.ID] = len(fresh)
		fresh = append(fresh, ins.Item)
	}

	var diffs []Difference

	items := make([]M, len(c.items))
	copy(items, c.items)
	updated := make(map[string]struct{}, len(updates))
	for _, u := range updates {
		i, ok := index[u.ID]
		if !ok {
			continue
		}
		if _, gone := removed[u.ID]; gone {
			continue
		}
		items[i] = u.Item
		if _, seen := updated[u.ID]; !seen {
			updated[u.ID] = struct{}{}
			diffs = append(diffs, Difference{Kind: reconcile.Update, Index: i, ID: u.ID})
		}
	}

	kept := items[:0:0]
	for i, item := range items {
		id := item.Identifier()
		if _, gone := removed[id]; gone {
			diffs = append(diffs, Difference{Kind: reconcile.Delete, Index: i, ID: id})
			continue
		}
		kept = append(kept, item)
	}

	if len(fresh) == 0 {
		c.items = kept
		c.last = diffs
		return c.snapshotLast()
	}

	inserted := make(map[string]struct{}, len(fresh))
	for _, item := range fresh {
		inserted[item.Identifier()] = struct{}{}
	}
	kept = append(kept, fresh...)
	sort.SliceStable(kept, func(i, j int) bool { return c.less(kept[i], kept[j]) })

	if c.limit > 0 && len(kept) > c.limit {
		evicted := make(map[string]struct{})
		for _, item := range kept[c.limit:] {
			id := item.Identifier()
			if _, isNew := inserted[id]; isNew {
				delete(inserted, id)
				continue
			}
			evicted[id] = struct{}{}
		}
		// An evicted item is reported as a delete only, even when it was also updated.
		if len(evicted) > 0 {
			filtered := diffs[:0]
			for _, d := range diffs {
				if _, gone := evicted[d.ID]; gone && d.Kind == reconcile.Update {
					continue
				}
				filtered = append(filtered, d)
			}
			diffs = filtered
			for _, item := range kept[c.limit:] {
				id := item.Identifier()
				if _, gone := evicted[id]; gone {
					diffs = append(diffs, Difference{Kind: reconcile.Delete, Index: index[id], ID: id})
				}
			}
		}
		kept = kept[:c.limit]
	}

	for i, item := range kept {
		id := item.Identifier()
		if _, isNew := inserted[id]; isNew {
			diffs = append(diffs, Difference{Kind: reconcile.Insert, Index: i, ID: id})
		}
	}

	c.items = kept
	c.last = diffs
	return c.snapshotLast()
}

// SetLimit changes the bound. Lowering it evicts the tail and reports the evicted
// items as deletes. Raising it or removing it (0) only affects later applies: evicted
// items are not re-admitted.
func (c *Calculator[M]) SetLimit(limit int) []Difference {
	c.mu.Lock()
	defer c.mu.Unlock()

	if limit < 0 {
		limit = 0
	}
	c.limit = limit
	c.last = nil
	if limit == 0 || len(c.items) <= limit {
		return nil
	}

	for i := limit; i < len(c.items); i++ {
		c.last = append(c.last, Difference{Kind: reconcile.Delete, Index: i, ID: c.items[i].Identifier()})
	}
	c.items = c.items[:limit:limit]
	return c.snapshotLast()
}

func (c *Calculator[M]) snapshotLast() []Difference {
	out := make([]Difference, len(c.last))
	copy(out, c.last)
	return out
}
