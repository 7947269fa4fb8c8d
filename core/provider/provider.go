package provider

import (
	"context"
	"errors"
	"fmt"

	"syncstore/core/metrics"
	"syncstore/core/reconcile"
	"syncstore/core/repository"
	"syncstore/core/scheduler"
	"syncstore/core/task"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Changes is the payload delivered by collection providers.
type Changes[M any] []reconcile.Change[M]

// Config configures a collection provider.
type Config[M reconcile.Identifiable] struct {
	// Name labels logs and metrics. The repository domain is used when empty.
	Name       string
	Repository *repository.Repository[M]
	// Source is the remote view. It may also implement ItemSource and PageSource.
	Source Source[M]
	// Equal compares cached and remote values, reconcile.Equal when nil.
	Equal    reconcile.EqualFunc[M]
	Triggers Trigger
	// Scheduler runs the round tasks. The provider owns a private one when nil.
	Scheduler *scheduler.Scheduler
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

func (c Config[M]) machineConfig() machineConfig {
	name := c.Name
	if name == "" && c.Repository != nil {
		name = c.Repository.Domain()
	}
	return machineConfig{
		name:     name,
		log:      c.Logger,
		sched:    c.Scheduler,
		metrics:  c.Metrics,
		triggers: c.Triggers,
	}
}

// Provider keeps a repository partition in sync with a collection source.
type Provider[M reconcile.Identifiable] struct {
	*machine[Changes[M]]

	repo   *repository.Repository[M]
	source Source[M]
	equal  reconcile.EqualFunc[M]
	byID   singleflight.Group
}

// New creates a collection provider. A round starts right away when the trigger set
// contains TriggerInit.
func New[M reconcile.Identifiable](cfg Config[M]) *Provider[M] {
	p := newProvider(cfg)
	p.start()
	return p
}

func newProvider[M reconcile.Identifiable](cfg Config[M]) *Provider[M] {
	equal := cfg.Equal
	if equal == nil {
		equal = reconcile.Equal[M]
	}
	p := &Provider[M]{
		machine: newMachine[Changes[M]](cfg.machineConfig()),
		repo:    cfg.Repository,
		source:  cfg.Source,
		equal:   equal,
	}
	p.plan = p.roundPlan
	p.snapshot = p.takeSnapshot
	p.empty = func(c Changes[M]) bool { return len(c) == 0 }
	p.summarize = func(c Changes[M]) reconcile.Summary { return reconcile.Summarize[M](c) }
	return p
}

// Repository returns the backing repository.
func (p *Provider[M]) Repository() *repository.Repository[M] {
	return p.repo
}

func (p *Provider[M]) takeSnapshot(ctx context.Context) (Changes[M], error) {
	items, err := p.repo.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	return reconcile.Inserts(items), nil
}

func (p *Provider[M]) roundPlan() graph[Changes[M]] {
	fetchSource := task.New(func(ctx context.Context) ([]M, error) {
		items, err := p.source.Fetch(ctx)
		if err != nil {
			return nil, err
		}
		if err := checkUnique(items); err != nil {
			return nil, err
		}
		return items, nil
	})
	fetchCache := p.repo.FetchAllTask()

	diff := task.New(func(ctx context.Context) (Changes[M], error) {
		remote, err := dependent[[]M](fetchSource)
		if err != nil {
			return nil, err
		}
		cached, err := dependent[[]M](fetchCache)
		if err != nil {
			return nil, err
		}
		return reconcile.Diff(remote, cached, p.equal), nil
	})
	_ = diff.AddDependency(fetchSource)
	_ = diff.AddDependency(fetchCache)

	persist := task.New(func(ctx context.Context) (Changes[M], error) {
		changes, err := dependent[Changes[M]](diff)
		if err != nil {
			return nil, err
		}
		if len(changes) == 0 {
			return changes, nil
		}
		updates, deletes := reconcile.Split[M](changes)
		if _, err := p.repo.Save(ctx, updates, deletes); err != nil {
			return nil, err
		}
		return changes, nil
	})
	_ = persist.AddDependency(diff)

	return graph[Changes[M]]{
		fetches: []stage{fetchSource, fetchCache},
		diff:    diff,
		persist: persist,
	}
}

// FetchByID fetches one item from the source, stores it and notifies observers of the
// resulting change before returning it. Concurrent calls for the same id share one
// fetch.
func (p *Provider[M]) FetchByID(ctx context.Context, id string) (M, error) {
	var zero M
	src, ok := p.source.(ItemSource[M])
	if !ok {
		return zero, ErrNoItemSource
	}

	v, err, _ := p.byID.Do(id, func() (any, error) {
		t := task.New(func(ctx context.Context) (M, error) {
			item, err := src.FetchByID(ctx, id)
			if err != nil {
				return item, err
			}
			if item.Identifier() != id {
				return item, fmt.Errorf("%w: asked for %s, got %s", ErrUnexpectedResult, id, item.Identifier())
			}
			changes, err := p.merge(ctx, []M{item})
			if err != nil {
				return item, err
			}
			p.broadcast(changes)
			return item, nil
		})
		if err := p.sched.Enqueue(t, p.name+":fetch", scheduler.ModeDefault); err != nil {
			return zero, err
		}
		return t.Wait(ctx)
	})
	if err != nil {
		return zero, err
	}
	p.serial.Async(func() { p.trigger(TriggerFetchByID) })
	return v.(M), nil
}

// FetchPage fetches one page from the source, stores it and notifies observers of
// the resulting changes before returning it.
func (p *Provider[M]) FetchPage(ctx context.Context, page int) ([]M, error) {
	src, ok := p.source.(PageSource[M])
	if !ok {
		return nil, ErrNoPageSource
	}

	t := task.New(func(ctx context.Context) ([]M, error) {
		items, err := src.FetchPage(ctx, page)
		if err != nil {
			return nil, err
		}
		if err := checkUnique(items); err != nil {
			return nil, err
		}
		changes, err := p.merge(ctx, items)
		if err != nil {
			return nil, err
		}
		p.broadcast(changes)
		return items, nil
	})
	if err := p.sched.Enqueue(t, p.name+":fetch", scheduler.ModeDefault); err != nil {
		return nil, err
	}
	items, err := t.Wait(ctx)
	if err != nil {
		return nil, err
	}
	p.serial.Async(func() { p.trigger(TriggerFetchPage) })
	return items, nil
}

// merge stores a partial remote view. Items missing from it are left alone.
func (p *Provider[M]) merge(ctx context.Context, items []M) (Changes[M], error) {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.Identifier())
	}
	cached, err := p.repo.FetchByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	changes := reconcile.Diff(items, cached, p.equal)
	if len(changes) == 0 {
		return changes, nil
	}
	updates, _ := reconcile.Split[M](changes)
	if _, err := p.repo.Save(ctx, updates, nil); err != nil {
		return nil, err
	}
	return changes, nil
}

// dependent reads the value of a finished dependency.
func dependent[T any](u task.Unit) (T, error) {
	v, err := task.Value[T](u)
	if errors.Is(err, task.ErrUnexpectedDependentResult) {
		return v, fmt.Errorf("%w: %v", ErrUnexpectedResult, err)
	}
	return v, err
}

func checkUnique[M reconcile.Identifiable](items []M) error {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		id := item.Identifier()
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate identifier %s", ErrUnexpectedResult, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
