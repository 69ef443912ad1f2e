package io

import "sync"

/////////////////////////////////////////////////////////////////////
// ThreadPoolIO
/////////////////////////////////////////////////////////////////////

// ThreadPoolIO is the completion facility backend used for the kind of
// "asynchronous" work that isn't actually readiness-notifiable — regular
// file reads chief among them. Real async runtimes hit the same wall
// (libuv and .NET's IOCP-on-files both route plain file I/O through a
// thread pool rather than epoll/kqueue, because a regular file's fd is
// always "ready"), so a fixed pool of goroutines running blocking thunks
// is the faithful rendering of this backend, not a simplification of it.
//
// I is always instantiated as func() (O, error): the blocking operation to
// run off the Scheduler's own goroutine.
type ThreadPoolIO[O any] struct {
	sq chan *SQE[func() (O, error), O]
	cq chan *CQE[O]

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewThreadPoolIO starts a fixed pool of workers draining a submission
// queue of capacity size.
func NewThreadPoolIO[O any](workers, size int) *ThreadPoolIO[O] {
	if workers < 1 {
		workers = 1
	}

	t := &ThreadPoolIO[O]{
		sq: make(chan *SQE[func() (O, error), O], size),
		cq: make(chan *CQE[O], size),
	}

	for i := 0; i < workers; i++ {
		t.wg.Add(1)
		go t.worker()
	}

	return t
}

// Register is a no-op: a regular file descriptor has nothing to bind to a
// readiness facility, it is simply read on a worker goroutine on demand.
func (t *ThreadPoolIO[O]) Register(uintptr) error {
	return nil
}

func (t *ThreadPoolIO[O]) Enqueue(sqe *SQE[func() (O, error), O]) {
	t.sq <- sqe
}

func (t *ThreadPoolIO[O]) Dequeue() <-chan *CQE[O] {
	return t.cq
}

// Shutdown closes the submission queue and returns; a background goroutine
// waits for in-flight operations to drain, then closes the completion
// queue. Safe to call more than once.
func (t *ThreadPoolIO[O]) Shutdown() {
	t.closeOnce.Do(func() {
		close(t.sq)
		go func() {
			t.wg.Wait()
			close(t.cq)
		}()
	})
}

func (t *ThreadPoolIO[O]) worker() {
	defer t.wg.Done()
	for sqe := range t.sq {
		v, err := sqe.Value()
		t.cq <- &CQE[O]{
			Value:    v,
			Error:    err,
			Callback: sqe.Callback,
		}
	}
}
