package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"syncstore/core/database"
	"syncstore/core/reconcile"
	"syncstore/core/repository"
	"syncstore/core/scheduler"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (i item) Identifier() string { return i.ID }

func items(n int) []item {
	out := make([]item, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, item{ID: fmt.Sprintf("%02d", i), Name: fmt.Sprintf("n%d", i)})
	}
	return out
}

// fakeSource serves a mutable list. When gate is set, Fetch blocks until it is closed.
type fakeSource struct {
	mu      sync.Mutex
	items   []item
	err     error
	calls   int
	gate    chan struct{}
	started chan struct{}
}

func newFakeSource(list []item) *fakeSource {
	return &fakeSource{items: list, started: make(chan struct{}, 16)}
}

func (s *fakeSource) set(list []item, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = list
	s.err = err
}

func (s *fakeSource) hold() chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gate = make(chan struct{})
	return s.gate
}

func (s *fakeSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *fakeSource) Fetch(ctx context.Context) ([]item, error) {
	s.mu.Lock()
	s.calls++
	gate := s.gate
	s.mu.Unlock()

	s.started <- struct{}{}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]item, len(s.items))
	copy(out, s.items)
	return out, nil
}

func (s *fakeSource) FetchByID(_ context.Context, id string) (item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.ID == id {
			return it, nil
		}
	}
	return item{}, errors.New("not found: " + id)
}

func (s *fakeSource) FetchPage(_ context.Context, page int) ([]item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	const size = 2
	start := page * size
	if start >= len(s.items) {
		return nil, nil
	}
	end := start + size
	if end > len(s.items) {
		end = len(s.items)
	}
	out := make([]item, end-start)
	copy(out, s.items[start:end])
	return out, nil
}

// recorder collects the callbacks of one observer.
type recorder[C any] struct {
	mu      sync.Mutex
	updates []C
	errs    []error
}

func (r *recorder[C]) observer(opts ObserverOptions) Observer[C] {
	return Observer[C]{
		OnUpdate: func(c C) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.updates = append(r.updates, c)
		},
		OnError: func(err error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.errs = append(r.errs, err)
		},
		Executor: scheduler.Immediate,
		Options:  opts,
	}
}

func (r *recorder[C]) updateCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.updates)
}

func (r *recorder[C]) update(i int) C {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updates[i]
}

func (r *recorder[C]) failures() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

type fixture struct {
	engine *database.Engine
	repo   *repository.Repository[item]
	sched  *scheduler.Scheduler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	engine := database.Open(database.Config{Driver: database.DriverSQLite, Name: ":memory:"}, zap.NewNop())
	require.NoError(t, engine.Ready(context.Background()))
	t.Cleanup(func() { _ = engine.Close() })

	sched := scheduler.New(4, zap.NewNop())
	t.Cleanup(sched.Close)

	return &fixture{
		engine: engine,
		repo:   repository.New[item](engine, "items", repository.JSONMapper[item]{}),
		sched:  sched,
	}
}

func (f *fixture) seed(t *testing.T, list []item) {
	t.Helper()
	_, err := f.repo.Save(context.Background(), list, nil)
	require.NoError(t, err)
}

func (f *fixture) provider(t *testing.T, src Source[item], triggers Trigger) *Provider[item] {
	t.Helper()
	p := New(Config[item]{
		Repository: f.repo,
		Source:     src,
		Triggers:   triggers,
		Scheduler:  f.sched,
	})
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func waitStarted(t *testing.T, src *fakeSource) {
	t.Helper()
	select {
	case <-src.started:
	case <-time.After(waitFor):
		t.Fatal("source fetch did not start")
	}
}

func ids(changes []reconcile.Change[item]) []string {
	out := make([]string, 0, len(changes))
	for _, c := range changes {
		out = append(out, c.ID)
	}
	sort.Strings(out)
	return out
}
