package actorutil

import (
	"context"
	"errors"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/primetalk/goio/io"
)

// timeoutGrace lets a context aware task observe its own deadline before the
// outer timeout gives up on it.
const timeoutGrace = 500 * time.Millisecond

type SafeBackgroundTask[T any] struct {
	ctx     actor.Context
	fn      func(context.Context) (*T, error)
	timeout *time.Duration
	onError func(error)
	recover func(error) T
}

func NewBackgroundTask[T any](ctx actor.Context, fn func() (*T, error)) *SafeBackgroundTask[T] {
	return &SafeBackgroundTask[T]{
		ctx: ctx,
		fn: func(context.Context) (*T, error) {
			return fn()
		},
	}
}

// NewContextTask runs fn with a context that expires at the task timeout.
func NewContextTask[T any](ctx actor.Context, fn func(context.Context) (*T, error)) *SafeBackgroundTask[T] {
	return &SafeBackgroundTask[T]{
		ctx: ctx,
		fn:  fn,
	}
}

func (t *SafeBackgroundTask[T]) WithTimeout(timeout time.Duration) *SafeBackgroundTask[T] {
	t.timeout = &timeout
	return t
}

func (t *SafeBackgroundTask[T]) OnError(fn func(error)) *SafeBackgroundTask[T] {
	t.onError = fn
	return t
}

func (t *SafeBackgroundTask[T]) Recover(fn func(error) T) *SafeBackgroundTask[T] {
	t.recover = fn
	return t
}

// PipeTo runs the task off the actor goroutine and sends the result, or the
// recovered value, to pid.
func (t *SafeBackgroundTask[T]) PipeTo(pid *actor.PID) {
	system := t.ctx.ActorSystem()
	go t.run(func(value T) {
		system.Root.Send(pid, value)
	})
}

func (t *SafeBackgroundTask[T]) run(onSuccess func(T)) {
	taskCtx, cancel := context.Background(), func() {}
	if t.timeout != nil {
		taskCtx, cancel = context.WithTimeout(taskCtx, *t.timeout)
	}
	defer cancel()

	bg := io.Map(io.Eval(func() (*T, error) {
		return t.fn(taskCtx)
	}), func(a *T) T {
		if a != nil {
			return *a
		}
		panic(errors.New("result is nil"))
	})
	if t.timeout != nil {
		bg = io.WithTimeout[T](*t.timeout + timeoutGrace)(bg)
	}
	result := io.RunSync(bg)
	value := result.Value
	if result.Error != nil {
		switch {
		case t.recover != nil:
			value = t.recover(result.Error)
		case t.onError != nil:
			t.onError(result.Error)
			return
		default:
			return
		}
	}
	onSuccess(value)
}

func MapBackgroundTask[T, T2 any](bgt *SafeBackgroundTask[T], mapFn func(*T) *T2) *SafeBackgroundTask[T2] {
	return &SafeBackgroundTask[T2]{
		ctx: bgt.ctx,
		fn: func(ctx context.Context) (*T2, error) {
			r, err := bgt.fn(ctx)
			if err != nil {
				return nil, err
			}
			return mapFn(r), nil
		},
	}
}
