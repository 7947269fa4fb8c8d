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
)

// SingleConfig configures a SingleProvider.
type SingleConfig[M reconcile.Identifiable] struct {
	Name       string
	Repository *repository.Repository[M]
	Source     OneSource[M]
	// TargetID is the identifier of the tracked item.
	TargetID  string
	Equal     reconcile.EqualFunc[M]
	Triggers  Trigger
	Scheduler *scheduler.Scheduler
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

// SingleProvider keeps one cached item in sync with its remote value. Observers receive
// a nil change when nothing changed (only with AlwaysNotifyOnRefresh) and a snapshot
// that is nil when the item is not cached.
type SingleProvider[M reconcile.Identifiable] struct {
	*machine[*reconcile.Change[M]]

	repo   *repository.Repository[M]
	source OneSource[M]
	target string
	equal  reconcile.EqualFunc[M]
}

// NewSingle creates a single-value provider.
func NewSingle[M reconcile.Identifiable](cfg SingleConfig[M]) *SingleProvider[M] {
	name := cfg.Name
	if name == "" && cfg.Repository != nil {
		name = cfg.Repository.Domain() + "/" + cfg.TargetID
	}
	equal := cfg.Equal
	if equal == nil {
		equal = reconcile.Equal[M]
	}
	p := &SingleProvider[M]{
		machine: newMachine[*reconcile.Change[M]](machineConfig{
			name:     name,
			log:      cfg.Logger,
			sched:    cfg.Scheduler,
			metrics:  cfg.Metrics,
			triggers: cfg.Triggers,
		}),
		repo:   cfg.Repository,
		source: cfg.Source,
		target: cfg.TargetID,
		equal:  equal,
	}
	p.plan = p.roundPlan
	p.snapshot = p.takeSnapshot
	p.empty = func(c *reconcile.Change[M]) bool { return c == nil }
	p.summarize = func(c *reconcile.Change[M]) reconcile.Summary {
		if c == nil {
			return reconcile.Summary{}
		}
		return reconcile.Summarize([]reconcile.Change[M]{*c})
	}
	p.start()
	return p
}

// TargetID returns the identifier of the tracked item.
func (p *SingleProvider[M]) TargetID() string {
	return p.target
}

// Value returns the cached item, nil when it is not cached.
func (p *SingleProvider[M]) Value(ctx context.Context) (*M, error) {
	return p.cached(ctx)
}

func (p *SingleProvider[M]) cached(ctx context.Context) (*M, error) {
	item, err := p.repo.FetchByID(ctx, p.target)
	if errors.Is(err, repository.ErrNoResult) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (p *SingleProvider[M]) takeSnapshot(ctx context.Context) (*reconcile.Change[M], error) {
	item, err := p.cached(ctx)
	if err != nil || item == nil {
		return nil, err
	}
	c := reconcile.Inserted(*item)
	return &c, nil
}

func (p *SingleProvider[M]) roundPlan() graph[*reconcile.Change[M]] {
	fetchSource := task.New(func(ctx context.Context) (*M, error) {
		item, err := p.source.FetchOne(ctx)
		if err != nil {
			return nil, err
		}
		if item != nil && (*item).Identifier() != p.target {
			return nil, fmt.Errorf("%w: source returned %s for %s", ErrUnexpectedResult, (*item).Identifier(), p.target)
		}
		return item, nil
	})
	fetchCache := task.New(p.cached)

	diff := task.New(func(ctx context.Context) (*reconcile.Change[M], error) {
		remote, err := dependent[*M](fetchSource)
		if err != nil {
			return nil, err
		}
		cached, err := dependent[*M](fetchCache)
		if err != nil {
			return nil, err
		}
		return reconcile.DiffOne(p.target, remote, cached, p.equal), nil
	})
	_ = diff.AddDependency(fetchSource)
	_ = diff.AddDependency(fetchCache)

	persist := task.New(func(ctx context.Context) (*reconcile.Change[M], error) {
		change, err := dependent[*reconcile.Change[M]](diff)
		if err != nil || change == nil {
			return nil, err
		}
		if change.Kind == reconcile.Delete {
			_, err = p.repo.Save(ctx, nil, []string{change.ID})
		} else {
			_, err = p.repo.Save(ctx, []M{change.Item}, nil)
		}
		if err != nil {
			return nil, err
		}
		return change, nil
	})
	_ = persist.AddDependency(diff)

	return graph[*reconcile.Change[M]]{
		fetches: []stage{fetchSource, fetchCache},
		diff:    diff,
		persist: persist,
	}
}
