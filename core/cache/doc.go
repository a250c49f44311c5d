// Package cache provides a small bounded key-value cache.
//
// [LRU] is an in-memory, mutex-guarded LRU cache safe for concurrent use;
// [Nop] disables caching behind the same [Cache] interface.
//
//	values := cache.NewLRU[event.Key, []byte](cache.LRUOpts{Size: 256})
//	values.Put(key, v)
//	if v, ok := values.Get(key); ok {
//	    // use v
//	}
package cache
