package lod

import "context"

// Result is the outcome of one asynchronous operation: exactly one of Value
// or Err is meaningful.
type Result[T any] struct {
	Value T
	Err   error
}

// OK reports whether the operation succeeded.
func (r Result[T]) OK() bool { return r.Err == nil }

// Async runs fn on its own goroutine and delivers its outcome on the returned
// channel, which receives exactly one Result and is then closed. Concurrent
// calls share nothing and complete in no particular order.
func Async[T any](ctx context.Context, fn func(context.Context) (T, error)) <-chan Result[T] {
	out := make(chan Result[T], 1)
	go func() {
		defer close(out)
		v, err := fn(ctx)
		out <- Result[T]{Value: v, Err: err}
	}()
	return out
}
