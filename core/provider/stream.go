package provider

import (
	"context"
	"sync"

	"syncstore/core/database"
	"syncstore/core/reconcile"
	"syncstore/core/scheduler"
	"syncstore/core/task"

	"go.uber.org/zap"
)

// StreamConfig configures a StreamProvider. Config.Source is still used by Refresh.
type StreamConfig[M reconcile.Identifiable] struct {
	Config[M]
	History HistorySource[M]
	// InitialSize bounds the history loaded on first subscription and the snapshot
	// handed to new observers. 0 loads nothing up front and snapshots everything.
	InitialSize int
	// Filter drops inserted and updated items from live notifications and snapshots.
	Filter func(M) bool
}

// StreamProvider is a collection provider fed by storage change events. Writes to its
// partition reach observers as soon as they commit, whoever made them; rounds only
// report failures and, with AlwaysNotifyOnRefresh, empty change-lists.
type StreamProvider[M reconcile.Identifiable] struct {
	*Provider[M]

	history     HistorySource[M]
	initialSize int
	filter      func(M) bool
	stop        func()

	loadOnce sync.Once
	initial  *task.Task[[]M]
}

// NewStream creates a streaming provider and starts observing its partition.
func NewStream[M reconcile.Identifiable](cfg StreamConfig[M]) *StreamProvider[M] {
	p := newProvider(cfg.Config)
	p.live = true
	s := &StreamProvider[M]{
		Provider:    p,
		history:     cfg.History,
		initialSize: cfg.InitialSize,
		filter:      cfg.Filter,
	}
	s.initial = task.New(func(ctx context.Context) ([]M, error) {
		if s.initialSize <= 0 {
			return nil, nil
		}
		return s.load(ctx, 0, s.initialSize)
	})
	p.snapshot = s.takeSnapshot

	domain := p.repo.Domain()
	s.stop = p.repo.Engine().Observe(func(ev database.Event) bool {
		return ev.Domain == domain
	}, s.onEvents)

	p.start()
	return s
}

// AddObserver registers obs. The first registration starts the bounded initial load
// once its snapshot was taken.
func (s *StreamProvider[M]) AddObserver(ctx context.Context, token Token, obs Observer[Changes[M]]) error {
	if err := s.Provider.AddObserver(ctx, token, obs); err != nil {
		return err
	}
	s.loadOnce.Do(func() {
		if err := s.sched.Enqueue(s.initial, s.name+":fetch", scheduler.ModeWaitBefore); err != nil {
			s.log.Warn("Failed to schedule initial load", zap.Error(err))
		}
	})
	return nil
}

// InitialLoad returns the join handle of the initial load. It completes once the first
// observer was added and the first InitialSize history items were stored.
func (s *StreamProvider[M]) InitialLoad() *task.Task[[]M] {
	return s.initial
}

// LoadMore fetches count history items starting at offset and stores them. Observers
// learn about them through storage events.
func (s *StreamProvider[M]) LoadMore(ctx context.Context, offset, count int) ([]M, error) {
	t := task.New(func(ctx context.Context) ([]M, error) {
		return s.load(ctx, offset, count)
	})
	if err := s.sched.Enqueue(t, s.name+":fetch", scheduler.ModeDefault); err != nil {
		return nil, err
	}
	return t.Wait(ctx)
}

func (s *StreamProvider[M]) load(ctx context.Context, offset, count int) ([]M, error) {
	items, err := s.history.FetchHistory(ctx, offset, count)
	if err != nil {
		return nil, err
	}
	if err := checkUnique(items); err != nil {
		return nil, err
	}
	if _, err := s.merge(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *StreamProvider[M]) takeSnapshot(ctx context.Context) (Changes[M], error) {
	items, err := s.repo.FetchSlice(ctx, 0, s.initialSize, false)
	if err != nil {
		return nil, err
	}
	changes := make(Changes[M], 0, len(items))
	for _, item := range items {
		if s.filter == nil || s.filter(item) {
			changes = append(changes, reconcile.Inserted(item))
		}
	}
	return changes, nil
}

// onEvents runs on the storage access queue and must not block on the engine. With a
// filter, an update is reported relative to the filtered view: leaving it is a delete
// and entering it is an insert.
func (s *StreamProvider[M]) onEvents(events []database.Event) {
	changes := make(Changes[M], 0, len(events))
	for _, ev := range events {
		if ev.Kind == database.EventDelete {
			changes = append(changes, reconcile.Deleted[M](ev.ID))
			continue
		}
		if ev.Record == nil {
			continue
		}
		item, err := s.repo.Decode(*ev.Record)
		if err != nil {
			s.log.Warn("Dropping undecodable storage event", zap.String("id", ev.ID), zap.Error(err))
			continue
		}
		visible := s.visible(item)
		wasVisible := false
		if ev.Kind == database.EventUpdate {
			wasVisible = s.wasVisible(ev)
		}
		switch {
		case visible && wasVisible:
			changes = append(changes, reconcile.Change[M]{Kind: reconcile.Update, ID: ev.ID, Item: item})
		case visible:
			changes = append(changes, reconcile.Change[M]{Kind: reconcile.Insert, ID: ev.ID, Item: item})
		case wasVisible:
			changes = append(changes, reconcile.Deleted[M](ev.ID))
		}
	}
	if len(changes) > 0 {
		s.broadcastLive(changes)
	}
}

func (s *StreamProvider[M]) visible(item M) bool {
	return s.filter == nil || s.filter(item)
}

// wasVisible reports whether the row replaced by an update passed the filter. An update
// without a usable previous row is treated as visible.
func (s *StreamProvider[M]) wasVisible(ev database.Event) bool {
	if s.filter == nil || ev.Previous == nil {
		return true
	}
	prev, err := s.repo.Decode(*ev.Previous)
	if err != nil {
		return true
	}
	return s.filter(prev)
}

// Close stops observing storage and closes the provider.
func (s *StreamProvider[M]) Close() error {
	s.stop()
	return s.Provider.Close()
}
