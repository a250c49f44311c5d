package cache

// Nop stores nothing.
type Nop[K comparable, V any] struct{}

func (Nop[K, V]) Get(K) (val V, ok bool)      { return val, false }
func (Nop[K, V]) Put(K, V)                    {}
func (Nop[K, V]) Delete(K)                    {}
func (Nop[K, V]) DeleteFunc(func(K) bool) int { return 0 }
func (Nop[K, V]) Len() int                    { return 0 }

func NewNop[K comparable, V any]() Nop[K, V] { return Nop[K, V]{} }

var _ Cache[string, any] = Nop[string, any]{}
