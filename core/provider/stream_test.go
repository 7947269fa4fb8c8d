package provider

import (
	"context"
	"testing"

	"syncstore/core/reconcile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func history(list []item) HistorySource[item] {
	return HistorySourceFunc[item](func(_ context.Context, offset, count int) ([]item, error) {
		if offset >= len(list) {
			return nil, nil
		}
		end := offset + count
		if count <= 0 || end > len(list) {
			end = len(list)
		}
		return list[offset:end], nil
	})
}

func newStream(t *testing.T, f *fixture, src Source[item], filter func(item) bool) *StreamProvider[item] {
	t.Helper()
	p := NewStream(StreamConfig[item]{
		Config: Config[item]{
			Repository: f.repo,
			Source:     src,
			Scheduler:  f.sched,
		},
		History:     history(items(10)),
		InitialSize: 3,
		Filter:      filter,
	})
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestStreamProvider_InitialLoadAndLoadMore(t *testing.T) {
	f := newFixture(t)
	p := newStream(t, f, newFakeSource(nil), nil)
	ctx := context.Background()

	rec := &recorder[Changes[item]]{}
	require.NoError(t, p.AddObserver(ctx, NewToken(), rec.observer(ObserverOptions{})))

	loaded, err := p.InitialLoad().Wait(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 3)

	require.Eventually(t, func() bool { return rec.updateCount() == 2 }, waitFor, tick)
	assert.Empty(t, rec.update(0))
	assert.Equal(t, []string{"01", "02", "03"}, ids(rec.update(1)))

	more, err := p.LoadMore(ctx, 3, 2)
	require.NoError(t, err)
	assert.Len(t, more, 2)
	require.Eventually(t, func() bool { return rec.updateCount() == 3 }, waitFor, tick)
	assert.Equal(t, []string{"04", "05"}, ids(rec.update(2)))
}

func TestStreamProvider_ForwardsStorageEvents(t *testing.T) {
	f := newFixture(t)
	p := newStream(t, f, newFakeSource(nil), func(i item) bool { return i.Name != "hidden" })
	ctx := context.Background()

	rec := &recorder[Changes[item]]{}
	require.NoError(t, p.AddObserver(ctx, NewToken(), rec.observer(ObserverOptions{})))
	_, err := p.InitialLoad().Wait(ctx)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return rec.updateCount() == 2 }, waitFor, tick)

	_, err = f.repo.Save(ctx, []item{{ID: "01", Name: "edited"}, {ID: "99", Name: "hidden"}}, []string{"02"})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return rec.updateCount() == 3 }, waitFor, tick)
	assert.Equal(t, Changes[item]{
		reconcile.Updated(item{ID: "01", Name: "edited"}),
		reconcile.Deleted[item]("02"),
	}, rec.update(2))
}

func TestStreamProvider_FilteredUpdates(t *testing.T) {
	f := newFixture(t)
	p := newStream(t, f, newFakeSource(nil), func(i item) bool { return i.Name != "hidden" })
	ctx := context.Background()

	rec := &recorder[Changes[item]]{}
	require.NoError(t, p.AddObserver(ctx, NewToken(), rec.observer(ObserverOptions{})))
	_, err := p.InitialLoad().Wait(ctx)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return rec.updateCount() == 2 }, waitFor, tick)

	// 01 leaves the filtered view.
	_, err = f.repo.Save(ctx, []item{{ID: "01", Name: "hidden"}}, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return rec.updateCount() == 3 }, waitFor, tick)
	assert.Equal(t, Changes[item]{reconcile.Deleted[item]("01")}, rec.update(2))

	// Still hidden, nothing to report.
	_, err = f.repo.Save(ctx, []item{{ID: "01", Name: "hidden"}}, nil)
	require.NoError(t, err)

	// 01 comes back.
	_, err = f.repo.Save(ctx, []item{{ID: "01", Name: "back"}}, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return rec.updateCount() == 4 }, waitFor, tick)
	assert.Equal(t, Changes[item]{reconcile.Inserted(item{ID: "01", Name: "back"})}, rec.update(3))
}

func TestStreamProvider_RefreshDeliversOnce(t *testing.T) {
	f := newFixture(t)
	src := newFakeSource(nil)
	p := newStream(t, f, src, nil)
	ctx := context.Background()

	rec := &recorder[Changes[item]]{}
	require.NoError(t, p.AddObserver(ctx, NewToken(), rec.observer(ObserverOptions{})))
	_, err := p.InitialLoad().Wait(ctx)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return rec.updateCount() == 2 }, waitFor, tick)

	always := &recorder[Changes[item]]{}
	require.NoError(t, p.AddObserver(ctx, NewToken(), always.observer(ObserverOptions{AlwaysNotifyOnRefresh: true})))
	require.Eventually(t, func() bool { return always.updateCount() == 1 }, waitFor, tick)
	assert.Equal(t, []string{"01", "02", "03"}, ids(always.update(0)))

	src.set(append(items(3), item{ID: "42", Name: "new"}), nil)
	_, err = p.Refresh().Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, rec.updateCount())
	assert.Equal(t, Changes[item]{reconcile.Inserted(item{ID: "42", Name: "new"})}, rec.update(2))
	require.Equal(t, 2, always.updateCount())

	_, err = p.Refresh().Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, rec.updateCount())
	require.Equal(t, 3, always.updateCount())
	assert.Empty(t, always.update(2))
}
