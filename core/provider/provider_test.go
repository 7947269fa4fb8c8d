package provider

import (
	"context"
	"errors"
	"testing"

	"syncstore/core/reconcile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_ReconcileRenameAndInsert(t *testing.T) {
	f := newFixture(t)
	f.seed(t, items(10))

	remote := items(11)
	remote[0].Name = "renamed"
	p := f.provider(t, newFakeSource(remote), TriggerNone)

	changes, err := p.Refresh().Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, reconcile.Summary{Inserts: 1, Updates: 1}, reconcile.Summarize[item](changes))

	all, err := f.repo.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 11)
	assert.Equal(t, "renamed", all[0].Name)
	assert.NoError(t, p.LastError())
}

func TestProvider_BackToBackRequestsAddOneRound(t *testing.T) {
	f := newFixture(t)
	src := newFakeSource(items(3))
	gate := src.hold()
	p := f.provider(t, src, TriggerNone)

	first := p.Refresh()
	waitStarted(t, src)

	second := p.Refresh()
	third := p.Refresh()
	assert.NotSame(t, first, second)
	assert.Same(t, second, third)

	close(gate)
	ctx := context.Background()
	_, err := first.Wait(ctx)
	require.NoError(t, err)
	changes, err := third.Wait(ctx)
	require.NoError(t, err)

	assert.Empty(t, changes, "the chained round reads what the first one persisted")
	assert.Equal(t, 2, src.callCount())
}

func TestProvider_RefreshAfterRoundStartsNewRound(t *testing.T) {
	f := newFixture(t)
	src := newFakeSource(items(2))
	p := f.provider(t, src, TriggerNone)
	ctx := context.Background()

	_, err := p.Refresh().Wait(ctx)
	require.NoError(t, err)
	src.set(items(3), nil)
	changes, err := p.Refresh().Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"03"}, ids(changes))
	assert.Equal(t, 2, src.callCount())
}

func TestProvider_DuplicateObserver(t *testing.T) {
	f := newFixture(t)
	p := f.provider(t, newFakeSource(nil), TriggerNone)
	ctx := context.Background()
	token := NewToken()

	first := &recorder[Changes[item]]{}
	second := &recorder[Changes[item]]{}
	require.NoError(t, p.AddObserver(ctx, token, first.observer(ObserverOptions{})))
	err := p.AddObserver(ctx, token, second.observer(ObserverOptions{}))

	assert.ErrorIs(t, err, ErrDuplicateObserver)
	require.Len(t, second.failures(), 1)
	assert.ErrorIs(t, second.failures()[0], ErrDuplicateObserver)
	assert.Empty(t, first.failures())
	assert.Equal(t, 1, p.Observers())

	require.NoError(t, p.RemoveObserver(token))
	assert.ErrorIs(t, p.RemoveObserver(token), ErrObserverNotFound)
	assert.Zero(t, p.Observers())
}

func TestProvider_ReleasedContextIsPruned(t *testing.T) {
	f := newFixture(t)
	p := f.provider(t, newFakeSource(nil), TriggerNone)
	token := NewToken()

	ctx, cancel := context.WithCancel(context.Background())
	rec := &recorder[Changes[item]]{}
	require.NoError(t, p.AddObserver(ctx, token, rec.observer(ObserverOptions{})))
	cancel()

	assert.Zero(t, p.Observers())
	assert.NoError(t, p.AddObserver(context.Background(), token, rec.observer(ObserverOptions{})))
	assert.Equal(t, 1, p.Observers())
}

func TestProvider_SnapshotThenChanges(t *testing.T) {
	f := newFixture(t)
	f.seed(t, items(2))
	src := newFakeSource(items(2))
	p := f.provider(t, src, TriggerNone)
	ctx := context.Background()

	rec := &recorder[Changes[item]]{}
	require.NoError(t, p.AddObserver(ctx, NewToken(), rec.observer(ObserverOptions{})))
	require.Eventually(t, func() bool { return rec.updateCount() == 1 }, waitFor, tick)

	snapshot := rec.update(0)
	assert.Equal(t, []string{"01", "02"}, ids(snapshot))
	for _, c := range snapshot {
		assert.Equal(t, reconcile.Insert, c.Kind)
	}

	src.set(items(1), nil)
	_, err := p.Refresh().Wait(ctx)
	require.NoError(t, err)

	require.Equal(t, 2, rec.updateCount())
	assert.Equal(t, Changes[item]{reconcile.Deleted[item]("02")}, rec.update(1))
}

func TestProvider_EmptySnapshot(t *testing.T) {
	f := newFixture(t)
	p := f.provider(t, newFakeSource(nil), TriggerNone)

	rec := &recorder[Changes[item]]{}
	require.NoError(t, p.AddObserver(context.Background(), NewToken(), rec.observer(ObserverOptions{})))
	require.Eventually(t, func() bool { return rec.updateCount() == 1 }, waitFor, tick)
	assert.Empty(t, rec.update(0))
}

func TestProvider_FailuresReachOnlyAlwaysNotify(t *testing.T) {
	f := newFixture(t)
	src := newFakeSource(nil)
	p := f.provider(t, src, TriggerNone)
	ctx := context.Background()

	always := &recorder[Changes[item]]{}
	quiet := &recorder[Changes[item]]{}
	require.NoError(t, p.AddObserver(ctx, NewToken(), always.observer(ObserverOptions{AlwaysNotifyOnRefresh: true})))
	require.NoError(t, p.AddObserver(ctx, NewToken(), quiet.observer(ObserverOptions{})))
	require.Eventually(t, func() bool { return always.updateCount() == 1 && quiet.updateCount() == 1 }, waitFor, tick)

	boom := errors.New("source down")
	src.set(nil, boom)
	_, err := p.Refresh().Wait(ctx)
	require.ErrorIs(t, err, boom)

	require.Len(t, always.failures(), 1)
	assert.ErrorIs(t, always.failures()[0], boom)
	assert.Empty(t, quiet.failures())
	assert.ErrorIs(t, p.LastError(), boom)

	// The provider stays usable and empty rounds reach only always-notify observers.
	src.set(nil, nil)
	_, err = p.Refresh().Wait(ctx)
	require.NoError(t, err)
	assert.NoError(t, p.LastError())
	assert.Equal(t, 2, always.updateCount())
	assert.Empty(t, always.update(1))
	assert.Equal(t, 1, quiet.updateCount())
}

func TestProvider_FailedRoundLeavesCacheUntouched(t *testing.T) {
	f := newFixture(t)
	f.seed(t, items(3))
	src := newFakeSource([]item{{ID: "x"}, {ID: "x"}})
	p := f.provider(t, src, TriggerNone)

	_, err := p.Refresh().Wait(context.Background())
	assert.ErrorIs(t, err, ErrUnexpectedResult)

	n, err := f.repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestProvider_WaitsInProgressSyncOnAdd(t *testing.T) {
	f := newFixture(t)
	src := newFakeSource(items(2))
	gate := src.hold()
	p := f.provider(t, src, TriggerNone)
	ctx := context.Background()

	round := p.Refresh()
	waitStarted(t, src)

	rec := &recorder[Changes[item]]{}
	require.NoError(t, p.AddObserver(ctx, NewToken(), rec.observer(ObserverOptions{WaitsInProgressSyncOnAdd: true})))
	close(gate)
	_, err := round.Wait(ctx)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return rec.updateCount() >= 1 }, waitFor, tick)
	p.Observers()
	require.Equal(t, 1, rec.updateCount(), "the in-flight round is part of the snapshot")
	assert.Equal(t, []string{"01", "02"}, ids(rec.update(0)))
}

func TestProvider_SnapshotBeforeInFlightRound(t *testing.T) {
	f := newFixture(t)
	src := newFakeSource(items(2))
	gate := src.hold()
	p := f.provider(t, src, TriggerNone)
	ctx := context.Background()

	round := p.Refresh()
	waitStarted(t, src)

	rec := &recorder[Changes[item]]{}
	require.NoError(t, p.AddObserver(ctx, NewToken(), rec.observer(ObserverOptions{})))
	require.Eventually(t, func() bool { return rec.updateCount() == 1 }, waitFor, tick)
	assert.Empty(t, rec.update(0))

	close(gate)
	_, err := round.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, rec.updateCount())
	assert.Equal(t, []string{"01", "02"}, ids(rec.update(1)))
}

func TestProvider_Triggers(t *testing.T) {
	f := newFixture(t)
	src := newFakeSource(items(3))
	p := f.provider(t, src, TriggerInit|TriggerAddObserver)
	ctx := context.Background()

	_, err := p.Refresh().Wait(ctx)
	require.NoError(t, err)
	n, err := f.repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	calls := src.callCount()
	require.NoError(t, p.AddObserver(ctx, NewToken(), (&recorder[Changes[item]]{}).observer(ObserverOptions{})))
	_, err = p.Refresh().Wait(ctx)
	require.NoError(t, err)
	assert.Greater(t, src.callCount(), calls)
}

func TestProvider_FetchByID(t *testing.T) {
	f := newFixture(t)
	src := newFakeSource(items(3))
	p := f.provider(t, src, TriggerNone)
	ctx := context.Background()

	rec := &recorder[Changes[item]]{}
	require.NoError(t, p.AddObserver(ctx, NewToken(), rec.observer(ObserverOptions{})))
	require.Eventually(t, func() bool { return rec.updateCount() == 1 }, waitFor, tick)

	got, err := p.FetchByID(ctx, "02")
	require.NoError(t, err)
	assert.Equal(t, item{ID: "02", Name: "n2"}, got)

	cached, err := f.repo.FetchByID(ctx, "02")
	require.NoError(t, err)
	assert.Equal(t, got, cached)

	require.Eventually(t, func() bool { return rec.updateCount() == 2 }, waitFor, tick)
	assert.Equal(t, Changes[item]{reconcile.Inserted(got)}, rec.update(1))

	_, err = p.FetchByID(ctx, "missing")
	assert.Error(t, err)
}

func TestProvider_FetchByIDUnsupported(t *testing.T) {
	f := newFixture(t)
	p := f.provider(t, SourceFunc[item](func(context.Context) ([]item, error) { return nil, nil }), TriggerNone)

	_, err := p.FetchByID(context.Background(), "1")
	assert.ErrorIs(t, err, ErrNoItemSource)
	_, err = p.FetchPage(context.Background(), 0)
	assert.ErrorIs(t, err, ErrNoPageSource)
}

func TestProvider_FetchPage(t *testing.T) {
	f := newFixture(t)
	f.seed(t, []item{{ID: "01", Name: "stale"}, {ID: "05", Name: "n5"}})
	src := newFakeSource(items(4))
	p := f.provider(t, src, TriggerNone)
	ctx := context.Background()

	page, err := p.FetchPage(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, items(2), page)

	all, err := f.repo.FetchAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []item{{ID: "01", Name: "n1"}, {ID: "02", Name: "n2"}, {ID: "05", Name: "n5"}}, all)
}

func TestProvider_Close(t *testing.T) {
	f := newFixture(t)
	p := New(Config[item]{Repository: f.repo, Source: newFakeSource(nil), Scheduler: f.sched})

	require.NoError(t, p.Close())
	assert.ErrorIs(t, p.Close(), ErrClosed)

	_, err := p.Refresh().Wait(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	err = p.AddObserver(context.Background(), NewToken(), Observer[Changes[item]]{})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestProvider_CloseCancelsQueuedRound(t *testing.T) {
	f := newFixture(t)
	src := newFakeSource(items(1))
	gate := src.hold()
	p := New(Config[item]{Repository: f.repo, Source: src, Scheduler: f.sched})

	first := p.Refresh()
	waitStarted(t, src)
	queued := p.Refresh()

	require.NoError(t, p.Close())
	close(gate)

	_, err := first.Wait(context.Background())
	assert.NoError(t, err)
	assert.True(t, queued.IsCancelled())
	assert.Equal(t, 1, src.callCount())
}
