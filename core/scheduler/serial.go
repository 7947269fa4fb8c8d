package scheduler

import "sync"

// Executor runs callbacks on some execution context.
type Executor interface {
	Execute(fn func())
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(fn func())

// Execute calls f(fn).
func (f ExecutorFunc) Execute(fn func()) {
	f(fn)
}

// Immediate runs callbacks on the calling goroutine.
var Immediate Executor = ExecutorFunc(func(fn func()) { fn() })

// Serial is a FIFO execution context: functions submitted to it run one at a time,
// in submission order, on a goroutine owned by the queue. The goroutine exits when
// the queue is empty and is restarted by the next submission.
type Serial struct {
	mu      sync.Mutex
	idle    *sync.Cond
	queue   []func()
	running bool
	closed  bool
}

// NewSerial creates an empty serial queue.
func NewSerial() *Serial {
	q := &Serial{}
	q.idle = sync.NewCond(&q.mu)
	return q
}

// Async appends fn to the queue. It returns false once the queue is closed.
func (q *Serial) Async(fn func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.queue = append(q.queue, fn)
	if !q.running {
		q.running = true
		go q.drain()
	}
	return true
}

// Sync runs fn on the queue and waits for it. Calling Sync from a function already
// running on the same queue deadlocks.
func (q *Serial) Sync(fn func()) bool {
	done := make(chan struct{})
	if !q.Async(func() {
		defer close(done)
		fn()
	}) {
		return false
	}
	<-done
	return true
}

// Execute implements Executor.
func (q *Serial) Execute(fn func()) {
	q.Async(fn)
}

func (q *Serial) drain() {
	for {
		q.mu.Lock()
		if len(q.queue) == 0 {
			q.running = false
			q.idle.Broadcast()
			q.mu.Unlock()
			return
		}
		fn := q.queue[0]
		q.queue[0] = nil
		q.queue = q.queue[1:]
		q.mu.Unlock()

		fn()
	}
}

// Flush blocks until every function submitted so far has run.
func (q *Serial) Flush() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.running {
		q.idle.Wait()
	}
}

// Close rejects further submissions and waits for queued functions to run.
func (q *Serial) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.Flush()
}
