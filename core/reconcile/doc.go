// Package reconcile computes the difference between a freshly fetched source view and
// the current repository view of a collection.
//
// Both views are indexed by entity identifier, so a full diff is linear in the size of
// the two views:
//
//   - an id present only in the source becomes an Insert carrying the new item;
//   - an id present in both with a structurally different value becomes an Update;
//   - an id present only in the repository becomes a Delete carrying only the id.
//
// Every changed identifier appears exactly once in the resulting change-list.
//
// # Single values
//
// DiffOne is the degenerate form used by single-value providers: at most one logical
// item under a fixed identifier. A missing source value with a cached value present
// synthesizes a Delete.
//
// # Usage
//
//	changes := reconcile.Diff(fresh, cached, reconcile.Equal[Item])
//	updates, deletes := reconcile.Split(changes)
//	_, err := repo.Save(ctx, updates, deletes)
package reconcile
