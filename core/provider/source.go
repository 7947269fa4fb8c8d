package provider

import "context"

// Source fetches the full remote view of a collection.
type Source[M any] interface {
	Fetch(ctx context.Context) ([]M, error)
}

// ItemSource is implemented by sources that can fetch a single item.
type ItemSource[M any] interface {
	FetchByID(ctx context.Context, id string) (M, error)
}

// PageSource is implemented by sources that can fetch one page of the collection.
type PageSource[M any] interface {
	FetchPage(ctx context.Context, page int) ([]M, error)
}

// OneSource fetches the remote value of a single tracked item. A nil value means the
// item does not exist remotely.
type OneSource[M any] interface {
	FetchOne(ctx context.Context) (*M, error)
}

// HistorySource fetches a window of an append-mostly collection, newest first.
type HistorySource[M any] interface {
	FetchHistory(ctx context.Context, offset, count int) ([]M, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc[M any] func(ctx context.Context) ([]M, error)

// Fetch calls f(ctx).
func (f SourceFunc[M]) Fetch(ctx context.Context) ([]M, error) {
	return f(ctx)
}

// OneSourceFunc adapts a function to OneSource.
type OneSourceFunc[M any] func(ctx context.Context) (*M, error)

// FetchOne calls f(ctx).
func (f OneSourceFunc[M]) FetchOne(ctx context.Context) (*M, error) {
	return f(ctx)
}

// HistorySourceFunc adapts a function to HistorySource.
type HistorySourceFunc[M any] func(ctx context.Context, offset, count int) ([]M, error)

// FetchHistory calls f(ctx, offset, count).
func (f HistorySourceFunc[M]) FetchHistory(ctx context.Context, offset, count int) ([]M, error) {
	return f(ctx, offset, count)
}
