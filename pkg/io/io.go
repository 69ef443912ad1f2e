// Package io defines the Scheduler's abstraction over "one concrete
// completion facility": a submission/completion queue pair plus a
// handle-registration hook. The Scheduler only ever depends on this
// interface, never on a concrete backend — pkg/reactor's epoll
// implementation and this package's own thread-pool implementation are
// the two backends this module ships, corresponding to readiness-based
// socket work and plain blocking work respectively.
package io

/////////////////////////////////////////////////////////////////////
// IO
/////////////////////////////////////////////////////////////////////

// IO is the completion facility a Scheduler drives its reactor wait
// against.
type IO[I, O any] interface {
	// Register binds an OS handle to the facility. Idempotent per handle.
	// Backends for which handle registration is meaningless (a plain
	// thread pool) accept and ignore it.
	Register(handle uintptr) error

	// Enqueue submits an operation (a submission queue entry).
	Enqueue(*SQE[I, O])

	// Dequeue exposes completions (completion queue entries) as they
	// arrive; the Scheduler drains it opportunistically every tick and
	// blocks on it, bounded by the timer heap's next wake time, when
	// there is nothing else runnable.
	Dequeue() <-chan *CQE[O]

	// Shutdown releases the facility's resources. Safe to call more than
	// once.
	Shutdown()
}

// SQE is a submission: a value describing the operation, and the callback
// (almost always a Promise's complete method) to invoke once it settles.
type SQE[I, O any] struct {
	Value    I
	Callback func(O, error)
}

// CQE is a completion: the settled value or error, carried alongside the
// callback it must be delivered to.
type CQE[O any] struct {
	Value    O
	Error    error
	Callback func(O, error)
}
