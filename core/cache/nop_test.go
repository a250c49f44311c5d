package cache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNop(t *testing.T) {
	n := NewNop[string, string]()
	n.Put("key", "val")
	val, ok := n.Get("key")
	require.False(t, ok)
	require.Empty(t, val)

	n.Delete("key")
	require.Zero(t, n.DeleteFunc(func(string) bool { return true }))
	require.Zero(t, n.Len())
}
