package repository

import (
	"context"

	"syncstore/core/task"
)

// FetchAllTask wraps FetchAll in a task unit.
func (r *Repository[M]) FetchAllTask() *task.Task[[]M] {
	return task.New(func(ctx context.Context) ([]M, error) {
		return r.FetchAll(ctx)
	})
}

// FetchSliceTask wraps FetchSlice in a task unit.
func (r *Repository[M]) FetchSliceTask(offset, count int, reversed bool) *task.Task[[]M] {
	return task.New(func(ctx context.Context) ([]M, error) {
		return r.FetchSlice(ctx, offset, count, reversed)
	})
}

// FetchByIDTask wraps FetchByID in a task unit.
func (r *Repository[M]) FetchByIDTask(id string) *task.Task[M] {
	return task.New(func(ctx context.Context) (M, error) {
		return r.FetchByID(ctx, id)
	})
}

// SaveTask wraps Save in a task unit. The arguments are read when the task runs, so
// they can be bound late through Configure.
func (r *Repository[M]) SaveTask(update *[]M, deleteIDs *[]string) *task.Task[int] {
	return task.New(func(ctx context.Context) (int, error) {
		return r.Save(ctx, *update, *deleteIDs)
	})
}

// ReplaceTask wraps Replace in a task unit.
func (r *Repository[M]) ReplaceTask(items []M) *task.Task[struct{}] {
	return task.New(func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.Replace(ctx, items)
	})
}
