// Package task provides the generic task unit used by the scheduler, the repository
// and the providers.
//
// A Task carries exactly one terminal result (a value or an error), may declare other
// tasks as prerequisites, and may be configured late, right before its body runs,
// which is how a task picks up the results of the tasks it depends on.
//
// # Lifecycle
//
//	pending -> running -> finished
//	   \          \
//	    `----------`---> cancelled
//
// Cancelling a task prevents it from ever producing a result. A task whose declared
// prerequisite was cancelled fails with ErrDependencyCancelled instead of running.
//
// # Usage
//
//	fetch := task.New(func(ctx context.Context) ([]string, error) { return load(ctx) })
//	count := task.New(func(ctx context.Context) (int, error) { return n, nil })
//	count.AddDependency(fetch)
//	count.Configure(func(ctx context.Context) error {
//	    items, err := fetch.Wait(ctx)
//	    n = len(items)
//	    return err
//	})
package task
