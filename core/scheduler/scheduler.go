package scheduler

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"syncstore/core/task"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// ErrClosed is returned when enqueueing on a closed scheduler.
var ErrClosed = errors.New("scheduler closed")

// Mode widens the ordering of a task beyond its key.
type Mode uint8

const (
	// ModeDefault orders the task only after earlier tasks with the same key.
	ModeDefault Mode = 0
	// ModeWaitBefore makes the task wait for every task currently queued.
	ModeWaitBefore Mode = 1
	// ModeBlockAfter makes every task enqueued later wait for this one.
	ModeBlockAfter Mode = 2
	// ModeSync combines ModeWaitBefore and ModeBlockAfter.
	ModeSync = ModeWaitBefore | ModeBlockAfter
)

// Scheduler executes task units on a shared bounded pool.
type Scheduler struct {
	log    *zap.Logger
	sem    *semaphore.Weighted
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	tails    map[string]chan struct{}
	inflight map[uint64]task.Unit
	barrier  task.Unit
	closed   bool
	wg       sync.WaitGroup
}

// New creates a scheduler running at most poolSize tasks at once.
// A non-positive poolSize defaults to GOMAXPROCS.
func New(poolSize int, log *zap.Logger) *Scheduler {
	if poolSize <= 0 {
		poolSize = runtime.GOMAXPROCS(0)
	}
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		log:      log,
		sem:      semaphore.NewWeighted(int64(poolSize)),
		ctx:      ctx,
		cancel:   cancel,
		tails:    make(map[string]chan struct{}),
		inflight: make(map[uint64]task.Unit),
	}
}

// Enqueue schedules u. An empty key disables keyed serialization for the task.
// Every declared dependency of u must itself be enqueued (or already terminal),
// otherwise u never starts.
func (s *Scheduler) Enqueue(u task.Unit, key string, mode Mode) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		u.Cancel()
		return ErrClosed
	}

	var waits []task.Unit
	if s.barrier != nil && !s.barrier.IsTerminal() {
		waits = append(waits, s.barrier)
	}
	// Each keyed task closes its gate only after its predecessor's gate closed, so a
	// cancelled task in the middle of the chain still holds back its successors.
	var prev, gate chan struct{}
	if key != "" {
		prev = s.tails[key]
		gate = make(chan struct{})
		s.tails[key] = gate
	}
	if mode&ModeWaitBefore != 0 {
		for _, queued := range s.inflight {
			waits = append(waits, queued)
		}
	}
	if mode&ModeBlockAfter != 0 {
		s.barrier = u
	}
	s.inflight[u.ID()] = u
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(u, key, prev, gate, append(waits, u.Dependencies()...))
	return nil
}

func (s *Scheduler) run(u task.Unit, key string, prev, gate chan struct{}, waits []task.Unit) {
	defer s.wg.Done()
	defer s.forget(u, key, gate)
	defer func() {
		if gate == nil {
			return
		}
		if prev != nil {
			select {
			case <-prev:
			case <-s.ctx.Done():
			}
		}
		close(gate)
	}()

	if prev != nil {
		select {
		case <-prev:
		case <-u.Done():
			return
		case <-s.ctx.Done():
			u.Cancel()
			return
		}
	}
	for _, w := range waits {
		select {
		case <-w.Done():
		case <-u.Done():
			return
		case <-s.ctx.Done():
			u.Cancel()
			return
		}
	}
	if u.IsTerminal() {
		return
	}

	if err := s.sem.Acquire(s.ctx, 1); err != nil {
		u.Cancel()
		return
	}
	defer s.sem.Release(1)

	u.Run(s.ctx)
	if err := u.Err(); err != nil && !errors.Is(err, task.ErrCancelled) {
		s.log.Debug("Task failed", zap.Uint64("task", u.ID()), zap.String("key", key), zap.Error(err))
	}
}

func (s *Scheduler) forget(u task.Unit, key string, gate chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, u.ID())
	if key != "" && s.tails[key] == gate {
		delete(s.tails, key)
	}
	if s.barrier == u {
		s.barrier = nil
	}
}

// Submit wraps fn in a task and enqueues it under key.
func (s *Scheduler) Submit(key string, fn func(ctx context.Context) error) *task.Task[struct{}] {
	t := task.New(func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	_ = s.Enqueue(t, key, ModeDefault)
	return t
}

// RunSync enqueues u in ModeSync and blocks until it is terminal.
// It must not be called from a task running on this scheduler.
func (s *Scheduler) RunSync(ctx context.Context, u task.Unit, key string) error {
	if err := s.Enqueue(u, key, ModeSync); err != nil {
		return err
	}
	select {
	case <-u.Done():
		return u.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of enqueued tasks that have not completed yet.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight)
}

// Wait blocks until every enqueued task has completed.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Close cancels tasks that have not started, interrupts running ones through their
// context and waits for the pool to drain.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.cancel()
	s.mu.Unlock()
	s.wg.Wait()
}
