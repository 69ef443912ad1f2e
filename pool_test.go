package coro

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fibercrew/coro/pkg/io"
)

func TestWorkerPoolSubmit(t *testing.T) {
	pool := NewWorkerPool[string, string](4, func() io.IO[string, string] { return newFakeIO() })
	defer pool.Stop()

	var promises []*Promise[int]
	for i := 0; i < 20; i++ {
		n := i
		promises = append(promises, Submit[string, string, int](pool, func(c *Coroutine[string, string, int]) (int, error) {
			YieldExecution(c)
			return n * n, nil
		}))
	}

	for i, p := range promises {
		v, err := p.AwaitBlocking()
		require.NoError(t, err)
		assert.Equal(t, i*i, v)
	}
}

func TestWorkerPoolStopIdempotent(t *testing.T) {
	pool := NewWorkerPool[string, string](2, func() io.IO[string, string] { return newFakeIO() })
	pool.Stop()
	assert.NotPanics(t, pool.Stop)
}

func TestWorkerPoolIsolatesFacilityPerWorker(t *testing.T) {
	var mu sync.Mutex
	built := 0

	pool := NewWorkerPool[string, string](3, func() io.IO[string, string] {
		mu.Lock()
		defer mu.Unlock()
		built++
		return newFakeIO()
	})
	defer pool.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 9; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := Submit[string, string, struct{}](pool, func(c *Coroutine[string, string, struct{}]) (struct{}, error) {
				return struct{}{}, nil
			})
			_, _ = p.AwaitBlocking()
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, built)
}
