package cache

// Cache is a bounded key-value store. Implementations are safe for
// concurrent use.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Put(key K, val V)
	Delete(key K)
	// DeleteFunc removes every entry whose key satisfies del.
	DeleteFunc(del func(K) bool) int
	Len() int
}
