package listcalc

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"syncstore/core/reconcile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	ID    string
	Score int
}

func (e entry) Identifier() string { return e.ID }

// byScore puts the highest score first.
func byScore(a, b entry) bool { return a.Score > b.Score }

func ids(items []entry) []string {
	out := make([]string, 0, len(items))
	for _, e := range items {
		out = append(out, e.ID)
	}
	return out
}

func TestNew_SortsAndTruncates(t *testing.T) {
	c := New(byScore, 2, []entry{{"a", 1}, {"b", 3}, {"c", 2}})
	assert.Equal(t, []string{"b", "c"}, ids(c.AllItems()))
	assert.Empty(t, c.LastDifferences())
}

func TestApply_LimitEvictsLowestPriority(t *testing.T) {
	seed := []entry{{"o1", 50}, {"o2", 40}, {"o3", 30}, {"o4", 20}, {"o5", 10}}
	c := New(byScore, 5, seed)

	diffs := c.Apply([]reconcile.Change[entry]{
		reconcile.Inserted(entry{"n1", 100}),
		reconcile.Inserted(entry{"n2", 90}),
		reconcile.Inserted(entry{"n3", 80}),
	})

	assert.Equal(t, 5, c.Len())
	assert.Equal(t, []string{"n1", "n2", "n3", "o1", "o2"}, ids(c.AllItems()))

	var deleted, inserted []Difference
	for _, d := range diffs {
		switch d.Kind {
		case reconcile.Delete:
			deleted = append(deleted, d)
		case reconcile.Insert:
			inserted = append(inserted, d)
		}
	}
	assert.Equal(t, []Difference{
		{Kind: reconcile.Delete, Index: 2, ID: "o3"},
		{Kind: reconcile.Delete, Index: 3, ID: "o4"},
		{Kind: reconcile.Delete, Index: 4, ID: "o5"},
	}, deleted)
	assert.Equal(t, []Difference{
		{Kind: reconcile.Insert, Index: 0, ID: "n1"},
		{Kind: reconcile.Insert, Index: 1, ID: "n2"},
		{Kind: reconcile.Insert, Index: 2, ID: "n3"},
	}, inserted)
	assert.Equal(t, diffs, c.LastDifferences())
}

func TestApply_InsertedPastLimitIsNotReported(t *testing.T) {
	c := New(byScore, 2, []entry{{"a", 10}, {"b", 9}})
	diffs := c.Apply([]reconcile.Change[entry]{reconcile.Inserted(entry{"low", 1})})
	assert.Empty(t, diffs)
	assert.Equal(t, []string{"a", "b"}, ids(c.AllItems()))
}

func TestApply_UpdatedThenEvictedIsOnlyDeleted(t *testing.T) {
	c := New(byScore, 2, []entry{{"a", 10}, {"b", 9}})
	diffs := c.Apply([]reconcile.Change[entry]{
		reconcile.Updated(entry{"b", 1}),
		reconcile.Inserted(entry{"x", 5}),
	})

	assert.Equal(t, []Difference{
		{Kind: reconcile.Delete, Index: 1, ID: "b"},
		{Kind: reconcile.Insert, Index: 1, ID: "x"},
	}, diffs)
	assert.Equal(t, []string{"a", "x"}, ids(c.AllItems()))
}

func TestApply_UpdateDeleteIndexing(t *testing.T) {
	c := New(byScore, 0, []entry{{"a", 4}, {"b", 3}, {"c", 2}, {"d", 1}})

	diffs := c.Apply([]reconcile.Change[entry]{
		reconcile.Deleted[entry]("b"),
		reconcile.Updated(entry{"c", 2}),
		reconcile.Updated(entry{"unknown", 7}),
	})

	assert.Equal(t, []Difference{
		{Kind: reconcile.Update, Index: 2, ID: "c"},
		{Kind: reconcile.Delete, Index: 1, ID: "b"},
	}, diffs)
	assert.Equal(t, []string{"a", "c", "d"}, ids(c.AllItems()))
}

func TestApply_UpdateDoesNotResortAlone(t *testing.T) {
	c := New(byScore, 0, []entry{{"a", 3}, {"b", 2}, {"c", 1}})
	c.Apply([]reconcile.Change[entry]{reconcile.Updated(entry{"c", 99})})
	assert.Equal(t, []string{"a", "b", "c"}, ids(c.AllItems()))

	c.Apply([]reconcile.Change[entry]{reconcile.Inserted(entry{"d", 0})})
	assert.Equal(t, []string{"c", "a", "b", "d"}, ids(c.AllItems()))
}

func TestApply_InsertOfKnownIDIsUpsert(t *testing.T) {
	c := New(byScore, 0, []entry{{"a", 2}, {"b", 1}})
	diffs := c.Apply([]reconcile.Change[entry]{reconcile.Inserted(entry{"b", 1})})

	assert.Equal(t, []Difference{{Kind: reconcile.Update, Index: 1, ID: "b"}}, diffs)
	assert.Equal(t, 2, c.Len())
}

func TestSetLimit(t *testing.T) {
	c := New(byScore, 0, []entry{{"a", 4}, {"b", 3}, {"c", 2}, {"d", 1}})

	diffs := c.SetLimit(2)
	assert.Equal(t, []Difference{
		{Kind: reconcile.Delete, Index: 2, ID: "c"},
		{Kind: reconcile.Delete, Index: 3, ID: "d"},
	}, diffs)
	assert.Equal(t, []string{"a", "b"}, ids(c.AllItems()))

	// Raising the bound does not bring evicted items back.
	assert.Empty(t, c.SetLimit(10))
	assert.Equal(t, 2, c.Len())
	assert.Empty(t, c.SetLimit(0))
	assert.Equal(t, 0, c.Limit())

	c.Apply([]reconcile.Change[entry]{reconcile.Inserted(entry{"e", 0}), reconcile.Inserted(entry{"f", -1})})
	assert.Equal(t, []string{"a", "b", "e", "f"}, ids(c.AllItems()))
}

func TestApply_CountProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		var seed []entry
		for i := 0; i < 20; i++ {
			seed = append(seed, entry{ID: fmt.Sprintf("s%d", i), Score: rng.Intn(100)})
		}
		c := New(byScore, 0, seed)
		before := c.AllItems()

		var changes []reconcile.Change[entry]
		deleted := map[string]bool{}
		inserts, deletes := 0, 0
		for i, e := range before {
			switch i % 4 {
			case 0:
				changes = append(changes, reconcile.Deleted[entry](e.ID))
				deleted[e.ID] = true
				deletes++
			case 1:
				changes = append(changes, reconcile.Updated(entry{ID: e.ID, Score: e.Score}))
			}
		}
		n := rng.Intn(10)
		for i := 0; i < n; i++ {
			changes = append(changes, reconcile.Inserted(entry{ID: fmt.Sprintf("r%d-%d", round, i), Score: rng.Intn(100)}))
			inserts++
		}
		rng.Shuffle(len(changes), func(i, j int) { changes[i], changes[j] = changes[j], changes[i] })

		c.Apply(changes)
		after := c.AllItems()
		require.Len(t, after, len(before)+inserts-deletes)

		assert.True(t, sort.SliceIsSorted(after, func(i, j int) bool { return byScore(after[i], after[j]) }))

		// Survivors keep their relative order.
		var survivors []string
		for _, e := range before {
			if !deleted[e.ID] {
				survivors = append(survivors, e.ID)
			}
		}
		var kept []string
		for _, e := range after {
			if e.ID[0] == 's' {
				kept = append(kept, e.ID)
			}
		}
		assert.Equal(t, survivors, kept)
	}
}
