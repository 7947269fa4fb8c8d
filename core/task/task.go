package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	// ErrCancelled is returned by Wait when the task was cancelled before producing a result.
	ErrCancelled = errors.New("task cancelled")
	// ErrDependencyCancelled is the failure of a task whose prerequisite was cancelled.
	ErrDependencyCancelled = errors.New("dependency cancelled")
	// ErrUnexpectedDependentResult is returned when a dependency result has the wrong type
	// or is read before the dependency reached a terminal state.
	ErrUnexpectedDependentResult = errors.New("unexpected dependent result")
	// ErrAlreadyStarted is returned when a task is modified after it started.
	ErrAlreadyStarted = errors.New("task already started")
)

// State is the lifecycle state of a task.
type State int32

const (
	StatePending State = iota
	StateRunning
	StateFinished
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateFinished:
		return "finished"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Unit is the type-erased view of a task, used to build dependency graphs between
// tasks carrying different result types.
type Unit interface {
	ID() uint64
	Run(ctx context.Context)
	Cancel()
	Done() <-chan struct{}
	State() State
	IsCancelled() bool
	IsTerminal() bool
	Dependencies() []Unit
	Err() error
}

// Result is the terminal outcome of a task.
type Result[T any] struct {
	Value T
	Err   error
}

var lastID atomic.Uint64

// Task is a cancelable unit of work with a typed result.
type Task[T any] struct {
	id uint64
	fn func(ctx context.Context) (T, error)

	mu        sync.Mutex
	state     State
	deps      []Unit
	configure []func(ctx context.Context) error
	result    Result[T]
	cancel    context.CancelFunc
	done      chan struct{}
}

// New creates a pending task running fn.
func New[T any](fn func(ctx context.Context) (T, error)) *Task[T] {
	return &Task[T]{
		id:   lastID.Add(1),
		fn:   fn,
		done: make(chan struct{}),
	}
}

// Completed returns a task already finished with v.
func Completed[T any](v T) *Task[T] {
	t := New[T](nil)
	t.finish(Result[T]{Value: v})
	return t
}

// Failed returns a task already finished with err.
func Failed[T any](err error) *Task[T] {
	t := New[T](nil)
	t.finish(Result[T]{Err: err})
	return t
}

// ID returns the process-unique id of the task.
func (t *Task[T]) ID() uint64 {
	return t.id
}

// AddDependency declares u as a prerequisite. It must be called before the task starts.
func (t *Task[T]) AddDependency(u Unit) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StatePending {
		return ErrAlreadyStarted
	}
	t.deps = append(t.deps, u)
	return nil
}

// Configure registers fn to run right before the task body, after every dependency
// reached a terminal state. Configuration is discarded when the task is cancelled, and
// a configuration error fails the task without running its body.
func (t *Task[T]) Configure(fn func(ctx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StatePending {
		return ErrAlreadyStarted
	}
	t.configure = append(t.configure, fn)
	return nil
}

// Dependencies returns the declared prerequisites.
func (t *Task[T]) Dependencies() []Unit {
	t.mu.Lock()
	defer t.mu.Unlock()
	deps := make([]Unit, len(t.deps))
	copy(deps, t.deps)
	return deps
}

// Run executes the task on the calling goroutine. It waits for the declared
// dependencies first. Running a task that is not pending is a no-op.
func (t *Task[T]) Run(ctx context.Context) {
	t.mu.Lock()
	if t.state != StatePending {
		t.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.state = StateRunning
	deps := t.deps
	configure := t.configure
	t.configure = nil
	t.mu.Unlock()
	defer cancel()

	for _, d := range deps {
		select {
		case <-d.Done():
		case <-ctx.Done():
			t.finish(Result[T]{Err: ctx.Err()})
			return
		}
		if d.IsCancelled() {
			t.finish(Result[T]{Err: fmt.Errorf("%w: task %d", ErrDependencyCancelled, d.ID())})
			return
		}
	}

	for _, fn := range configure {
		if t.IsCancelled() {
			return
		}
		if err := fn(ctx); err != nil {
			t.finish(Result[T]{Err: err})
			return
		}
	}

	if t.IsCancelled() {
		return
	}
	if t.fn == nil {
		var zero T
		t.finish(Result[T]{Value: zero})
		return
	}
	v, err := t.fn(ctx)
	t.finish(Result[T]{Value: v, Err: err})
}

// finish records the terminal result unless the task is already terminal.
func (t *Task[T]) finish(r Result[T]) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateFinished || t.state == StateCancelled {
		return false
	}
	t.state = StateFinished
	t.result = r
	close(t.done)
	return true
}

// Cancel moves the task to the cancelled state. A finished task is left untouched.
func (t *Task[T]) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateFinished || t.state == StateCancelled {
		return
	}
	t.state = StateCancelled
	t.configure = nil
	if t.cancel != nil {
		t.cancel()
	}
	close(t.done)
}

// Done is closed once the task is finished or cancelled.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// State returns the current lifecycle state.
func (t *Task[T]) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// IsCancelled reports whether the task was cancelled.
func (t *Task[T]) IsCancelled() bool {
	return t.State() == StateCancelled
}

// IsTerminal reports whether the task is finished or cancelled.
func (t *Task[T]) IsTerminal() bool {
	s := t.State()
	return s == StateFinished || s == StateCancelled
}

// Result returns the terminal result. ok is false while the task is not finished,
// and for cancelled tasks.
func (t *Task[T]) Result() (Result[T], bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateFinished {
		return Result[T]{}, false
	}
	return t.result, true
}

// Err returns the failure of a finished task, ErrCancelled for a cancelled one and nil
// otherwise.
func (t *Task[T]) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.state {
	case StateFinished:
		return t.result.Err
	case StateCancelled:
		return ErrCancelled
	default:
		return nil
	}
}

// Wait blocks until the task is terminal or ctx is done.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
	r, ok := t.Result()
	if !ok {
		var zero T
		return zero, ErrCancelled
	}
	return r.Value, r.Err
}

// Value returns the value of a finished dependency as T.
func Value[T any](u Unit) (T, error) {
	var zero T
	typed, ok := u.(*Task[T])
	if !ok {
		return zero, fmt.Errorf("%w: task %d is %T", ErrUnexpectedDependentResult, u.ID(), u)
	}
	r, ok := typed.Result()
	if !ok {
		if typed.IsCancelled() {
			return zero, ErrCancelled
		}
		return zero, fmt.Errorf("%w: task %d is %s", ErrUnexpectedDependentResult, u.ID(), typed.State())
	}
	return r.Value, r.Err
}

// WhenDone calls fn on a new goroutine once u is terminal.
func WhenDone(u Unit, fn func()) {
	go func() {
		<-u.Done()
		fn()
	}()
}
