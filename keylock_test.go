package rowkv

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKeyLocks_SameKeyRunsInOrder(t *testing.T) {
	kl := newKeyLocks()
	var mu sync.Mutex
	var order []int

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		i := i
		wg.Add(1)
		kl.enqueue("k", func() {
			defer wg.Done()
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}
	wg.Wait()

	require.Len(t, order, 20)
	for i, v := range order {
		require.Equal(t, i, v)
	}
}

func TestKeyLocks_DifferentKeysRunConcurrently(t *testing.T) {
	kl := newKeyLocks()
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	var wg sync.WaitGroup

	for _, k := range []string{"a", "b"} {
		k := k
		wg.Add(1)
		kl.enqueue(k, func() {
			defer wg.Done()
			started <- struct{}{}
			<-release
		})
	}

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("first key never started")
	}
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("both keys should run concurrently, second never started")
	}

	close(release)
	wg.Wait()
}

func TestKeyLocks_ChainIsPrunedAfterDraining(t *testing.T) {
	kl := newKeyLocks()
	var wg sync.WaitGroup
	wg.Add(1)
	kl.enqueue("k", func() { wg.Done() })
	wg.Wait()

	// Give the enqueue goroutine's deferred cleanup a moment to run.
	time.Sleep(10 * time.Millisecond)

	kl.mu.Lock()
	_, stillThere := kl.chains["k"]
	kl.mu.Unlock()
	require.False(t, stillThere)
}
