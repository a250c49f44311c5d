package sf

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGroup_collapses_concurrent_calls(t *testing.T) {
	var (
		g     Group[int]
		calls atomic.Int32
		wg    sync.WaitGroup
	)
	release := make(chan struct{})
	started := make(chan struct{})

	results := make([]int, 10)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _, _ = g.Do("k", func() (int, error) {
			calls.Add(1)
			close(started)
			<-release
			return 42, nil
		})
	}()
	<-started

	for i := 1; i < len(results); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _, _ = g.Do("k", func() (int, error) {
				calls.Add(1)
				return -1, nil
			})
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), calls.Load())
	for _, v := range results {
		require.Equal(t, 42, v)
	}
}

func TestGroup_error(t *testing.T) {
	var g Group[string]
	errBoom := errors.New("boom")

	v, shared, err := g.Do("k", func() (string, error) { return "", errBoom })
	require.ErrorIs(t, err, errBoom)
	require.False(t, shared)
	require.Empty(t, v)
}

func TestGroup_sequential_calls_run_again(t *testing.T) {
	var (
		g     Group[int]
		calls int
	)
	for range 3 {
		v, _, err := g.Do("k", func() (int, error) {
			calls++
			return calls, nil
		})
		require.NoError(t, err)
		require.Equal(t, calls, v)
	}
	require.Equal(t, 3, calls)
}

func TestGroup_DoChan(t *testing.T) {
	var (
		g     Group[int]
		calls atomic.Int32
	)
	release := make(chan struct{})
	fn := func() (int, error) {
		calls.Add(1)
		<-release
		return 7, nil
	}

	first := g.DoChan("k", fn)
	second := g.DoChan("k", fn)
	close(release)

	for _, ch := range []<-chan Result[int]{first, second} {
		select {
		case r := <-ch:
			require.NoError(t, r.Err)
			require.Equal(t, 7, r.Val)
			require.True(t, r.Shared)
		case <-time.After(time.Second):
			t.Fatal("timeout")
		}
	}
	require.Equal(t, int32(1), calls.Load())
}
