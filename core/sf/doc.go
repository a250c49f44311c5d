// Package sf is a typed wrapper around golang.org/x/sync/singleflight.
//
// Concurrent callers of [Group.Do] with the same key share one execution of
// the function and all receive its result:
//
//	var g sf.Group[radio.PowerState]
//	state, _, err := g.Do("enable", func() (radio.PowerState, error) {
//	    return enable(ctx)
//	})
package sf
