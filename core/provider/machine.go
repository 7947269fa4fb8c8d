package provider

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"syncstore/core/metrics"
	"syncstore/core/reconcile"
	"syncstore/core/scheduler"
	"syncstore/core/task"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// stage is a round task whose start can be delayed and observed.
type stage interface {
	task.Unit
	AddDependency(u task.Unit) error
	Configure(fn func(ctx context.Context) error) error
}

// graph is the task graph of one round, minus the notification.
type graph[C any] struct {
	fetches []stage
	diff    task.Unit
	persist *task.Task[C]
}

type round[C any] struct {
	seq     uint64
	id      string
	started atomic.Bool
	units   []task.Unit
	persist *task.Task[C]
	notify  *task.Task[C]
}

// machine is the reconciliation state machine shared by every provider variant.
// C is the change payload delivered to observers.
type machine[C any] struct {
	name      string
	log       *zap.Logger
	sched     *scheduler.Scheduler
	ownSched  bool
	serial    *scheduler.Serial
	metrics   *metrics.Metrics
	triggers  Trigger
	plan      func() graph[C]
	snapshot  func(ctx context.Context) (C, error)
	empty     func(C) bool
	summarize func(C) reconcile.Summary
	// live is set when non-empty changes reach observers through storage events.
	live bool

	// Confined to serial.
	observers map[Token]*registration[C]
	current   *round[C]
	seq       uint64
	closed    bool

	mu      sync.Mutex
	lastErr error
}

type machineConfig struct {
	name     string
	log      *zap.Logger
	sched    *scheduler.Scheduler
	metrics  *metrics.Metrics
	triggers Trigger
}

func newMachine[C any](cfg machineConfig) *machine[C] {
	log := cfg.log
	if log == nil {
		log = zap.NewNop()
	}
	m := &machine[C]{
		name:      cfg.name,
		log:       log.With(zap.String("provider", cfg.name)),
		sched:     cfg.sched,
		serial:    scheduler.NewSerial(),
		metrics:   cfg.metrics,
		triggers:  cfg.triggers,
		observers: make(map[Token]*registration[C]),
	}
	if m.sched == nil {
		m.sched = scheduler.New(0, log)
		m.ownSched = true
	}
	return m
}

// start fires the init trigger. Variants call it once their hooks are set.
func (m *machine[C]) start() {
	if m.triggers.Has(TriggerInit) {
		m.Refresh()
	}
}

// Refresh requests a reconciliation round and returns its join handle. The handle
// yields the persisted change payload once observers were notified.
func (m *machine[C]) Refresh() *task.Task[C] {
	var t *task.Task[C]
	if !m.serial.Sync(func() { t = m.dispatch() }) {
		return task.Failed[C](ErrClosed)
	}
	return t
}

// trigger requests a round when t is part of the trigger set. Must run on serial.
func (m *machine[C]) trigger(t Trigger) {
	if m.triggers.Has(t) {
		m.dispatch()
	}
}

// dispatch must run on serial.
func (m *machine[C]) dispatch() *task.Task[C] {
	if m.closed {
		return task.Failed[C](ErrClosed)
	}

	cur := m.current
	if cur != nil && !cur.started.Load() && !cur.notify.IsTerminal() {
		m.metrics.ReportCoalesced(m.name)
		m.log.Debug("Reconciliation coalesced", zap.String("round", cur.id))
		return cur.notify
	}

	var prev *round[C]
	if cur != nil && !cur.notify.IsTerminal() {
		prev = cur
	}
	r := m.schedule(prev)
	m.current = r
	return r.notify
}

func (m *machine[C]) schedule(prev *round[C]) *round[C] {
	m.seq++
	r := &round[C]{seq: m.seq, id: uuid.NewString()}
	p := m.plan()

	markStarted := func(context.Context) error {
		r.started.Store(true)
		return nil
	}
	for _, f := range p.fetches {
		if prev != nil {
			_ = f.AddDependency(prev.persist)
		}
		_ = f.Configure(markStarted)
		r.units = append(r.units, f)
	}
	r.units = append(r.units, p.diff, p.persist)
	r.persist = p.persist

	began := time.Now()
	r.notify = task.New(func(ctx context.Context) (C, error) {
		res, _ := p.persist.Result()
		m.finish(r, res.Value, res.Err, time.Since(began))
		return res.Value, res.Err
	})
	_ = r.notify.AddDependency(p.persist)
	if prev != nil {
		_ = r.notify.AddDependency(prev.notify)
	}
	r.units = append(r.units, r.notify)

	for _, u := range r.units {
		key := ""
		if u == task.Unit(p.persist) {
			key = m.name
		}
		if err := m.sched.Enqueue(u, key, scheduler.ModeDefault); err != nil {
			m.log.Warn("Failed to schedule reconciliation", zap.String("round", r.id), zap.Error(err))
		}
	}
	m.log.Debug("Reconciliation scheduled", zap.String("round", r.id), zap.Bool("chained", prev != nil))
	return r
}

// finish records the outcome of r and notifies observers. It runs on the pool.
func (m *machine[C]) finish(r *round[C], changes C, err error, took time.Duration) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
	m.metrics.ReportRound(m.name, took, err)

	if err != nil {
		m.log.Warn("Reconciliation failed", zap.String("round", r.id), zap.Error(err))
	} else {
		s := m.summarize(changes)
		m.metrics.ReportChanges(m.name, s)
		m.log.Debug("Reconciliation finished",
			zap.String("round", r.id),
			zap.Int("inserts", s.Inserts),
			zap.Int("updates", s.Updates),
			zap.Int("deletes", s.Deletes),
			zap.Duration("took", took))
	}

	m.serial.Sync(func() { m.deliver(r.seq, changes, err) })
}

// deliver fans a round outcome out to the registry. seq 0 marks changes that do not
// belong to a round. Must run on serial.
func (m *machine[C]) deliver(seq uint64, changes C, err error) {
	for _, reg := range m.observers {
		if reg.released() {
			continue
		}
		always := reg.obs.Options.AlwaysNotifyOnRefresh
		if err != nil {
			if always {
				reg.fail(err)
			}
			continue
		}
		if seq != 0 && seq <= reg.skipThrough {
			continue
		}
		if m.empty(changes) {
			if always && seq != 0 {
				reg.update(changes)
			}
			continue
		}
		if m.live {
			continue
		}
		reg.update(changes)
	}
}

// broadcast delivers changes produced outside of a round.
func (m *machine[C]) broadcast(changes C) {
	if m.empty(changes) || m.live {
		return
	}
	m.serial.Async(func() { m.deliver(0, changes, nil) })
}

// broadcastLive delivers changes observed on the storage engine.
func (m *machine[C]) broadcastLive(changes C) {
	m.serial.Async(func() {
		for _, reg := range m.observers {
			if !reg.released() {
				reg.update(changes)
			}
		}
	})
}

// LastError returns the failure of the latest finished round, nil if it succeeded.
func (m *machine[C]) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// AddObserver registers obs under token for as long as ctx is not done. Registering
// a token that is still live fails with ErrDuplicateObserver, which is also passed to
// obs.OnError.
func (m *machine[C]) AddObserver(ctx context.Context, token Token, obs Observer[C]) error {
	var err error
	if !m.serial.Sync(func() { err = m.add(ctx, token, obs) }) {
		err = ErrClosed
	}
	if err != nil && obs.OnError != nil {
		if obs.Executor != nil {
			obs.Executor.Execute(func() { obs.OnError(err) })
		} else {
			obs.OnError(err)
		}
	}
	return err
}

func (m *machine[C]) add(ctx context.Context, token Token, obs Observer[C]) error {
	if m.closed {
		return ErrClosed
	}
	m.prune()
	if _, dup := m.observers[token]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateObserver, token)
	}

	reg := newRegistration(ctx, token, obs)
	snap := task.New(m.snapshot)
	if cur := m.current; obs.Options.WaitsInProgressSyncOnAdd && cur != nil && !cur.notify.IsTerminal() {
		_ = snap.AddDependency(cur.persist)
		reg.skipThrough = cur.seq
	}
	m.observers[token] = reg
	m.metrics.ReportObservers(m.name, len(m.observers))

	task.WhenDone(snap, func() {
		m.serial.Async(func() { m.activate(reg, snap) })
	})
	if err := m.sched.Enqueue(snap, "", scheduler.ModeDefault); err != nil {
		m.log.Warn("Failed to schedule snapshot", zap.String("token", string(token)), zap.Error(err))
	}

	m.trigger(TriggerAddObserver)
	return nil
}

// activate must run on serial.
func (m *machine[C]) activate(reg *registration[C], snap *task.Task[C]) {
	if m.observers[reg.token] != reg {
		return
	}
	res, ok := snap.Result()
	if !ok {
		res.Err = task.ErrCancelled
	}
	if err := res.Err; err != nil {
		m.log.Debug("Snapshot failed", zap.String("token", string(reg.token)), zap.Error(err))
		reg.activate(func() {
			if reg.obs.OnError != nil {
				reg.obs.OnError(err)
			}
		})
		return
	}
	reg.activate(func() {
		if reg.obs.OnUpdate != nil {
			reg.obs.OnUpdate(res.Value)
		}
	})
}

// RemoveObserver drops the registration of token.
func (m *machine[C]) RemoveObserver(token Token) error {
	var err error
	if !m.serial.Sync(func() { err = m.remove(token) }) {
		return ErrClosed
	}
	return err
}

func (m *machine[C]) remove(token Token) error {
	if m.closed {
		return ErrClosed
	}
	m.prune()
	if _, ok := m.observers[token]; !ok {
		return fmt.Errorf("%w: %s", ErrObserverNotFound, token)
	}
	delete(m.observers, token)
	m.metrics.ReportObservers(m.name, len(m.observers))
	m.trigger(TriggerRemoveObserver)
	return nil
}

// prune drops released registrations. Must run on serial.
func (m *machine[C]) prune() {
	for token, reg := range m.observers {
		if reg.released() {
			delete(m.observers, token)
		}
	}
}

// Observers returns the number of live registrations.
func (m *machine[C]) Observers() int {
	n := 0
	m.serial.Sync(func() {
		for _, reg := range m.observers {
			if !reg.released() {
				n++
			}
		}
	})
	return n
}

// Close drops every registration, cancels a round that has not started yet and waits
// for the running one.
func (m *machine[C]) Close() error {
	var cur *round[C]
	already := false
	if !m.serial.Sync(func() {
		if m.closed {
			already = true
			return
		}
		m.closed = true
		cur = m.current
		m.observers = make(map[Token]*registration[C])
	}) || already {
		return ErrClosed
	}

	if cur != nil {
		if !cur.started.Load() {
			for _, u := range cur.units {
				u.Cancel()
			}
		}
		<-cur.notify.Done()
	}
	m.serial.Close()
	if m.ownSched {
		m.sched.Close()
	}
	m.metrics.ReportObservers(m.name, 0)
	return nil
}
