package coro

import (
	"sync"

	"github.com/fibercrew/coro/pkg/io"
)

/////////////////////////////////////////////////////////////////////
// Worker Pool
/////////////////////////////////////////////////////////////////////
//
// Each worker owns a private Scheduler (its own completion facility, its
// own ready/awaiting/timer state), pulls one task off a shared queue,
// spawns it, runs that Scheduler to completion, then loops for the next
// task. Task intake is an unbuffered channel with select against a
// shutdown signal — the idiomatic Go rendering of a producer/consumer
// handoff, needing no separate lock. Because it is unbuffered, Submit
// blocks until some worker is free to take the task.

type poolTask[I, O any] func(*Scheduler[I, O])

// WorkerPool is a fixed set of worker goroutines, each driving its own
// private Scheduler[I, O] to completion one submitted task at a time.
type WorkerPool[I, O any] struct {
	tasks       chan poolTask[I, O]
	newFacility func() io.IO[I, O]

	wg       sync.WaitGroup
	done     chan struct{}
	stopOnce sync.Once
}

// NewWorkerPool starts n worker goroutines. newFacility is called once per
// worker to build that worker's private completion facility — never
// shared across workers, so one worker's IO backend can't leak state into
// another's.
func NewWorkerPool[I, O any](n int, newFacility func() io.IO[I, O]) *WorkerPool[I, O] {
	if n < 1 {
		n = 1
	}

	wp := &WorkerPool[I, O]{
		tasks:       make(chan poolTask[I, O]),
		newFacility: newFacility,
		done:        make(chan struct{}),
	}

	for i := 0; i < n; i++ {
		wp.wg.Add(1)
		go wp.workerLoop()
	}

	return wp
}

func (wp *WorkerPool[I, O]) workerLoop() {
	defer wp.wg.Done()

	facility := wp.newFacility()
	defer facility.Shutdown()

	sched := NewWithClock(facility, 16, realClock{})

	for {
		select {
		case task, ok := <-wp.tasks:
			if !ok {
				return
			}
			task(sched)
		case <-wp.done:
			return
		}
	}
}

// Submit hands f to whichever worker picks it up next, spawning it as a
// coroutine on that worker's private Scheduler and running that Scheduler
// to completion before the worker looks at the next task. The returned
// Promise settles with f's result once that run finishes; a caller on any
// other goroutine can retrieve it with Get or block on AwaitBlocking.
func Submit[I, O, R any](wp *WorkerPool[I, O], f CoroutineFunc[I, O, R]) *Promise[R] {
	out := newPromise[R]()

	wp.tasks <- func(s *Scheduler[I, O]) {
		inner := Spawn(s, f)
		s.RunUntilComplete()

		v, err := Get(inner)
		out.complete(v, err)
	}

	return out
}

// Stop signals every worker to exit once its current task (if any)
// finishes, and waits for them to do so. Safe to call more than once.
func (wp *WorkerPool[I, O]) Stop() {
	wp.stopOnce.Do(func() {
		close(wp.done)
		wp.wg.Wait()
	})
}
