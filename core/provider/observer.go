package provider

import (
	"context"

	"syncstore/core/scheduler"

	"github.com/google/uuid"
)

// Token identifies an observer registration.
type Token string

// NewToken returns a random token.
func NewToken() Token {
	return Token(uuid.NewString())
}

// Observer receives the change payloads C of a provider.
type Observer[C any] struct {
	OnUpdate func(changes C)
	OnError  func(err error)
	// Executor runs the callbacks. A serial queue per registration is used when nil.
	// Callbacks run inline by an executor must not call back into the provider.
	Executor scheduler.Executor
	Options  ObserverOptions
}

func (o Observer[C]) executor() scheduler.Executor {
	if o.Executor != nil {
		return o.Executor
	}
	return scheduler.NewSerial()
}

// registration is confined to the provider's serial queue.
type registration[C any] struct {
	token Token
	ctx   context.Context
	obs   Observer[C]
	exec  scheduler.Executor

	active  bool
	pending []func()
	// Rounds up to this sequence number are already part of the snapshot.
	skipThrough uint64
}

func newRegistration[C any](ctx context.Context, token Token, obs Observer[C]) *registration[C] {
	return &registration[C]{token: token, ctx: ctx, obs: obs, exec: obs.executor()}
}

func (r *registration[C]) released() bool {
	return r.ctx.Err() != nil
}

func (r *registration[C]) update(changes C) {
	r.post(func() {
		if r.obs.OnUpdate != nil {
			r.obs.OnUpdate(changes)
		}
	})
}

func (r *registration[C]) fail(err error) {
	r.post(func() {
		if r.obs.OnError != nil {
			r.obs.OnError(err)
		}
	})
}

// post buffers deliveries until the snapshot went out.
func (r *registration[C]) post(fn func()) {
	if !r.active {
		r.pending = append(r.pending, fn)
		return
	}
	r.exec.Execute(fn)
}

// activate delivers first, then everything buffered meanwhile.
func (r *registration[C]) activate(first func()) {
	r.exec.Execute(first)
	r.active = true
	for _, fn := range r.pending {
		r.exec.Execute(fn)
	}
	r.pending = nil
}
