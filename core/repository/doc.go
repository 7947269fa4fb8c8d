// Package repository is the typed facade over the storage engine.
//
// A Repository binds a model type to one domain partition of the records table and
// converts between models and records through a Mapper. Every operation runs on the
// engine's access queue; Save and Replace are transactional, so a failure while mapping
// or writing any item leaves the partition untouched.
//
//	repo := repository.New[furniture.Item](engine, "furniture", repository.JSONMapper[furniture.Item]{})
//	n, err := repo.Save(ctx, updated, deletedIDs)
//
// The *Task methods wrap the same operations in task units so they can take part in a
// dependency graph run by the scheduler.
package repository
