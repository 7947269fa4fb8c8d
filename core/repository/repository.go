package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"syncstore/core/database"
	"syncstore/core/reconcile"

	"gorm.io/gorm"
)

// Repository gives typed access to one domain partition of the storage engine.
type Repository[M reconcile.Identifiable] struct {
	engine *database.Engine
	domain string
	mapper Mapper[M]
}

// New binds a repository to domain.
func New[M reconcile.Identifiable](engine *database.Engine, domain string, mapper Mapper[M]) *Repository[M] {
	return &Repository[M]{engine: engine, domain: domain, mapper: mapper}
}

// Domain returns the partition name.
func (r *Repository[M]) Domain() string {
	return r.domain
}

// Engine returns the storage engine the repository runs on.
func (r *Repository[M]) Engine() *database.Engine {
	return r.engine
}

// Decode maps a record of this partition back to a model.
func (r *Repository[M]) Decode(record database.Record) (M, error) {
	item, err := r.mapper.FromRecord(record)
	if err != nil {
		return item, fmt.Errorf("%w: %v", ErrUndefinedFetch, err)
	}
	return item, nil
}

func (r *Repository[M]) scope(db *gorm.DB) *gorm.DB {
	return db.Model(&database.Record{}).Where("domain = ?", r.domain)
}

func (r *Repository[M]) decodeAll(records []database.Record) ([]M, error) {
	items := make([]M, 0, len(records))
	for _, rec := range records {
		item, err := r.Decode(rec)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// FetchByID returns the item with the given identifier or ErrNoResult.
func (r *Repository[M]) FetchByID(ctx context.Context, id string) (M, error) {
	var rec database.Record
	err := r.engine.Perform(ctx, func(db *gorm.DB) error {
		return r.scope(db).Where("id = ?", id).Take(&rec).Error
	})
	if err != nil {
		var zero M
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return zero, fmt.Errorf("%w: %s/%s", ErrNoResult, r.domain, id)
		}
		return zero, err
	}
	return r.Decode(rec)
}

// FetchByIDs returns the stored items among ids. Unknown identifiers are skipped.
func (r *Repository[M]) FetchByIDs(ctx context.Context, ids []string) ([]M, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var records []database.Record
	err := r.engine.Perform(ctx, func(db *gorm.DB) error {
		for start := 0; start < len(ids); start += database.BatchSize {
			end := min(start+database.BatchSize, len(ids))
			var chunk []database.Record
			if err := r.scope(db).Where("id IN ?", ids[start:end]).Find(&chunk).Error; err != nil {
				return err
			}
			records = append(records, chunk...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].SortKey != records[j].SortKey {
			return records[i].SortKey < records[j].SortKey
		}
		return records[i].ID < records[j].ID
	})
	return r.decodeAll(records)
}

// FetchAll returns every item of the partition ordered by sort key then identifier.
func (r *Repository[M]) FetchAll(ctx context.Context) ([]M, error) {
	return r.FetchSlice(ctx, 0, 0, false)
}

// FetchSlice returns count items starting at offset in sort order, or in reverse sort
// order when reversed is set. A non-positive count returns everything past offset.
func (r *Repository[M]) FetchSlice(ctx context.Context, offset, count int, reversed bool) ([]M, error) {
	var records []database.Record
	err := r.engine.Perform(ctx, func(db *gorm.DB) error {
		q := r.scope(db)
		if reversed {
			q = q.Order("sort_key DESC").Order("id DESC")
		} else {
			q = q.Order("sort_key ASC").Order("id ASC")
		}
		if offset > 0 {
			q = q.Offset(offset)
		}
		if count > 0 {
			q = q.Limit(count)
		}
		return q.Find(&records).Error
	})
	if err != nil {
		return nil, err
	}
	return r.decodeAll(records)
}

// Count returns the number of items in the partition.
func (r *Repository[M]) Count(ctx context.Context) (int, error) {
	var n int64
	err := r.engine.Perform(ctx, func(db *gorm.DB) error {
		return r.scope(db).Count(&n).Error
	})
	return int(n), err
}

// Save writes update and removes deleteIDs in one transaction and returns the number
// of touched items. Any mapping or write failure rolls the whole save back.
func (r *Repository[M]) Save(ctx context.Context, update []M, deleteIDs []string) (int, error) {
	var touched int
	err := r.engine.Write(ctx, func(tx *database.WriteTx) error {
		n, err := r.write(tx, update, deleteIDs)
		touched = n
		return err
	})
	if err != nil {
		return 0, err
	}
	return touched, nil
}

// Replace atomically swaps the content of the partition for items.
func (r *Repository[M]) Replace(ctx context.Context, items []M) error {
	return r.engine.Write(ctx, func(tx *database.WriteTx) error {
		if _, err := tx.DeleteDomain(r.domain); err != nil {
			return err
		}
		_, err := r.write(tx, items, nil)
		return err
	})
}

// DeleteAll empties the partition.
func (r *Repository[M]) DeleteAll(ctx context.Context) error {
	return r.engine.Write(ctx, func(tx *database.WriteTx) error {
		_, err := tx.DeleteDomain(r.domain)
		return err
	})
}

func (r *Repository[M]) write(tx *database.WriteTx, update []M, deleteIDs []string) (int, error) {
	for _, item := range update {
		rec, err := r.mapper.ToRecord(item)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrCreateFailed, err)
		}
		rec.Domain = r.domain
		rec.ID = item.Identifier()
		if err := tx.Upsert(rec); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrCreateFailed, err)
		}
	}

	var removed int64
	if len(deleteIDs) > 0 {
		var err error
		if removed, err = tx.Delete(r.domain, deleteIDs...); err != nil {
			return 0, err
		}
	}
	return len(update) + int(removed), nil
}
