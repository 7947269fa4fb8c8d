package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"syncstore/core/scheduler"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type engineState int

const (
	stateInitializing engineState = iota
	stateReady
	stateFailed
	stateClosed
)

// Option customizes an Engine.
type Option func(*Engine)

// WithDB makes the engine use an already opened connection instead of Connect.
func WithDB(db *gorm.DB) Option {
	return func(e *Engine) {
		e.connect = func(Config) (*gorm.DB, error) { return db, nil }
	}
}

// WithConnector replaces Connect, mostly for tests.
func WithConnector(fn func(Config) (*gorm.DB, error)) Option {
	return func(e *Engine) {
		e.connect = fn
	}
}

// Engine is the storage engine: a gorm connection behind a single serial access queue.
// Every read and write runs on that queue; committed writes are published to observers
// as change events.
type Engine struct {
	cfg     Config
	log     *zap.Logger
	connect func(Config) (*gorm.DB, error)
	queue   *scheduler.Serial
	ready   chan struct{}

	// db and initErr are confined to the queue once initialization has run.
	db      *gorm.DB
	initErr error

	mu        sync.Mutex
	state     engineState
	observers map[uint64]*observer
	nextObs   uint64
}

type observer struct {
	filter  func(Event) bool
	handler func([]Event)
}

// Open creates the engine and starts its initialization (connect + migration) on the
// access queue. Work submitted before initialization completes waits for it.
func Open(cfg Config, log *zap.Logger, opts ...Option) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		cfg:       cfg,
		log:       log.With(zap.String("component", "storage")),
		connect:   Connect,
		queue:     scheduler.NewSerial(),
		ready:     make(chan struct{}),
		observers: make(map[uint64]*observer),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.queue.Async(e.initialize)
	return e
}

func (e *Engine) initialize() {
	defer close(e.ready)

	db, err := e.connect(e.cfg)
	if err == nil && !e.cfg.SkipMigrate {
		if mErr := db.AutoMigrate(&Record{}); mErr != nil {
			err = fmt.Errorf("failed to migrate records table: %w", mErr)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.initErr = err
		e.state = stateFailed
		e.log.Error("Storage initialization failed", zap.Error(err))
		return
	}
	e.db = db
	e.state = stateReady
	e.log.Debug("Storage ready", zap.String("driver", e.cfg.Driver))
}

// Ready blocks until initialization finished and returns its error.
func (e *Engine) Ready(ctx context.Context) error {
	select {
	case <-e.ready:
	case <-ctx.Done():
		return ctx.Err()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initErr
}

// PerformAsync schedules fn on the access queue. fn runs exactly once, with either a
// ready connection or the reason none is available, never both.
func (e *Engine) PerformAsync(fn func(db *gorm.DB, err error)) {
	if !e.queue.Async(func() { e.dispatch(fn) }) {
		go fn(nil, ErrClosed)
	}
}

func (e *Engine) dispatch(fn func(db *gorm.DB, err error)) {
	e.mu.Lock()
	db, err, state := e.db, e.initErr, e.state
	e.mu.Unlock()

	switch {
	case err != nil:
		fn(nil, err)
	case state == stateClosed || db == nil:
		fn(nil, ErrClosed)
	default:
		fn(db, nil)
	}
}

// Perform runs fn on the access queue and waits for it. This is the synchronous bridge
// between callers and the queue; it must not be called from the queue itself.
// A cancelled ctx abandons the job only while it is still queued; once it started,
// Perform reports its outcome.
func (e *Engine) Perform(ctx context.Context, fn func(db *gorm.DB) error) error {
	const (
		queued int32 = iota
		started
		abandoned
	)
	var state atomic.Int32
	errCh := make(chan error, 1)
	e.PerformAsync(func(db *gorm.DB, err error) {
		if !state.CompareAndSwap(queued, started) {
			return
		}
		if err != nil {
			errCh <- err
			return
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			errCh <- ctxErr
			return
		}
		errCh <- fn(db.WithContext(ctx))
	})

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		if state.CompareAndSwap(queued, abandoned) {
			return ctx.Err()
		}
		return <-errCh
	}
}

// Write runs fn inside a transaction on the access queue. Any error returned by fn
// rolls the whole transaction back. Change events recorded through the WriteTx are
// published after commit only.
func (e *Engine) Write(ctx context.Context, fn func(tx *WriteTx) error) error {
	return e.Perform(ctx, func(db *gorm.DB) error {
		var events []Event
		err := db.Transaction(func(gtx *gorm.DB) error {
			w := &WriteTx{tx: gtx}
			if err := fn(w); err != nil {
				return err
			}
			events = w.events
			return nil
		})
		if err != nil {
			return err
		}
		e.publish(events)
		return nil
	})
}

// Observe registers handler for committed change events accepted by filter (nil
// accepts everything). Handlers run on the access queue and must not block on the
// engine. The returned function removes the registration.
func (e *Engine) Observe(filter func(Event) bool, handler func([]Event)) (cancel func()) {
	e.mu.Lock()
	e.nextObs++
	id := e.nextObs
	e.observers[id] = &observer{filter: filter, handler: handler}
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.observers, id)
			e.mu.Unlock()
		})
	}
}

func (e *Engine) publish(events []Event) {
	if len(events) == 0 {
		return
	}
	e.mu.Lock()
	observers := make([]*observer, 0, len(e.observers))
	for _, o := range e.observers {
		observers = append(observers, o)
	}
	e.mu.Unlock()

	for _, o := range observers {
		matched := events
		if o.filter != nil {
			matched = make([]Event, 0, len(events))
			for _, ev := range events {
				if o.filter(ev) {
					matched = append(matched, ev)
				}
			}
		}
		if len(matched) > 0 {
			o.handler(matched)
		}
	}
}

// Close releases the connection once every queued job has run. It fails while the
// engine is still initializing.
func (e *Engine) Close() error {
	e.mu.Lock()
	switch e.state {
	case stateInitializing:
		e.mu.Unlock()
		return ErrInitializing
	case stateClosed:
		e.mu.Unlock()
		return ErrClosed
	}
	e.mu.Unlock()

	var closeErr error
	e.queue.Sync(func() {
		e.mu.Lock()
		db := e.db
		e.db = nil
		e.state = stateClosed
		e.observers = make(map[uint64]*observer)
		e.mu.Unlock()

		if db == nil {
			return
		}
		sqlDB, err := db.DB()
		if err != nil {
			closeErr = err
			return
		}
		closeErr = sqlDB.Close()
	})
	e.queue.Close()

	if closeErr != nil {
		return fmt.Errorf("failed to close storage: %w", closeErr)
	}
	e.log.Debug("Storage closed")
	return nil
}

// Drop erases the persisted data of a closed engine. Only file-backed sqlite stores
// can be erased; in-memory stores have nothing left to erase.
func (e *Engine) Drop() error {
	e.mu.Lock()
	state := e.state
	e.mu.Unlock()
	if state != stateClosed {
		return ErrNotClosed
	}

	switch {
	case e.cfg.IsMemory():
		return nil
	case e.cfg.Driver == DriverSQLite:
		if err := os.Remove(e.cfg.Name); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to drop storage: %w", err)
		}
		return nil
	default:
		return ErrDropUnsupported
	}
}
