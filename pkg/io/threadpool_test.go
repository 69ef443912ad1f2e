package io

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func greet(name string) func() (string, error) {
	return func() (string, error) {
		return "Hello " + name, nil
	}
}

func TestThreadPoolIO(t *testing.T) {
	pool := NewThreadPoolIO[string](4, 100)
	defer pool.Shutdown()

	assert.NoError(t, pool.Register(0), "Register should be a no-op on the thread-pool backend")

	names := []string{"A", "B", "C", "D"}
	expected := map[string]string{
		"A": "Hello A", "B": "Hello B", "C": "Hello C", "D": "Hello D",
	}

	results := make(map[string]string)
	var mismatches []error

	for _, name := range names {
		n := name
		pool.Enqueue(&SQE[func() (string, error), string]{
			Value: greet(n),
			Callback: func(v string, err error) {
				if err != nil {
					mismatches = append(mismatches, err)
					return
				}
				results[n] = v
			},
		})
	}

	for range names {
		cqe := <-pool.Dequeue()
		cqe.Callback(cqe.Value, cqe.Error)
	}

	assert.Empty(t, mismatches)
	assert.Equal(t, expected, results)
}

func TestThreadPoolIOPropagatesError(t *testing.T) {
	pool := NewThreadPoolIO[int](2, 10)
	defer pool.Shutdown()

	boom := errors.New("boom")
	done := make(chan struct{})

	pool.Enqueue(&SQE[func() (int, error), int]{
		Value: func() (int, error) { return 0, boom },
		Callback: func(v int, err error) {
			assert.ErrorIs(t, err, boom)
			close(done)
		},
	})

	cqe := <-pool.Dequeue()
	cqe.Callback(cqe.Value, cqe.Error)
	<-done
}

func TestThreadPoolIOShutdownIdempotent(t *testing.T) {
	pool := NewThreadPoolIO[int](1, 1)
	pool.Shutdown()
	assert.NotPanics(t, pool.Shutdown)
}
