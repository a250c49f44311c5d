package sf

import "golang.org/x/sync/singleflight"

// Group collapses concurrent calls that share a key into one execution.
type Group[T any] struct {
	group singleflight.Group
}

// Do runs fn for key unless a call for key is already in flight, in which
// case it waits for that call and returns its result. shared reports whether
// the result was handed to more than one caller.
func (g *Group[T]) Do(key string, fn func() (T, error)) (v T, shared bool, err error) {
	res, err, shared := g.group.Do(key, func() (any, error) {
		return fn()
	})
	if res != nil {
		v = res.(T)
	}
	return v, shared, err
}

// Result is what DoChan delivers.
type Result[T any] struct {
	Val    T
	Err    error
	Shared bool
}

// DoChan is like Do but returns a channel that receives the result once it
// is ready. A caller that stops waiting does not stop fn.
func (g *Group[T]) DoChan(key string, fn func() (T, error)) <-chan Result[T] {
	out := make(chan Result[T], 1)
	ch := g.group.DoChan(key, func() (any, error) {
		return fn()
	})
	go func() {
		res := <-ch
		r := Result[T]{Err: res.Err, Shared: res.Shared}
		if res.Val != nil {
			r.Val = res.Val.(T)
		}
		out <- r
	}()
	return out
}

// Forget drops the in-flight call for key, so the next Do starts a new one.
func (g *Group[T]) Forget(key string) {
	g.group.Forget(key)
}
