// Package scheduler runs task units on a bounded parallel pool with keyed serialization.
//
// Tasks enqueued under the same key run one after the other in FIFO order. Tasks under
// different keys run concurrently, bounded by the pool size. Two modes widen the
// ordering across keys:
//
//   - ModeWaitBefore: the task waits for everything currently queued.
//   - ModeBlockAfter: everything enqueued after the task waits for it.
//   - ModeSync: both of the above.
//
// Declared task dependencies are always awaited before a task takes a pool slot.
//
// The package also provides Serial, a FIFO mutually-exclusive execution context used
// to confine mutable bookkeeping (observer registries, in-flight round pointers) and to
// deliver observer callbacks in order.
package scheduler
