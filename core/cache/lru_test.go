package cache

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLRU_Basic(t *testing.T) {
	l := NewLRU[string, int](LRUOpts{Size: 2})

	l.Put("a", 1)
	l.Put("b", 2)

	val, ok := l.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, val)

	l.Put("c", 3) // evicts "b"

	_, ok = l.Get("b")
	require.False(t, ok)

	val, ok = l.Get("c")
	require.True(t, ok)
	require.Equal(t, 3, val)
	require.Equal(t, 2, l.Len())
}

func TestLRU_Update(t *testing.T) {
	l := NewLRU[string, int](LRUOpts{Size: 2})

	l.Put("a", 1)
	l.Put("a", 2)

	val, ok := l.Get("a")
	require.True(t, ok)
	require.Equal(t, 2, val)
	require.Equal(t, 1, l.Len())
}

func TestLRU_Promotion(t *testing.T) {
	l := NewLRU[string, int](LRUOpts{Size: 2})

	l.Put("a", 1)
	l.Put("b", 2)
	l.Get("a")
	l.Put("c", 3) // evicts "b", "a" was used more recently

	_, ok := l.Get("b")
	require.False(t, ok)
	_, ok = l.Get("a")
	require.True(t, ok)
}

func TestLRU_Delete(t *testing.T) {
	l := NewLRU[string, int](LRUOpts{})

	l.Put("p1/a", 1)
	l.Put("p1/b", 2)
	l.Put("p2/a", 3)

	l.Delete("p2/a")
	l.Delete("missing")
	require.Equal(t, 2, l.Len())

	n := l.DeleteFunc(func(k string) bool { return strings.HasPrefix(k, "p1/") })
	require.Equal(t, 2, n)
	require.Zero(t, l.Len())
}

func TestLRU_DefaultSize(t *testing.T) {
	l := NewLRU[int, int](LRUOpts{Size: -1})
	for i := range 200 {
		l.Put(i, i)
	}
	require.Equal(t, 128, l.Len())
}

func TestLRU_Concurrent(t *testing.T) {
	l := NewLRU[int, int](LRUOpts{Size: 64})

	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 1_000 {
				l.Put(g*1_000+i, i)
				l.Get(i)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 64, l.Len())
}
