package coro

import "fmt"

/////////////////////////////////////////////////////////////////////
// Promise
/////////////////////////////////////////////////////////////////////

// PromiseState is the monotonic settlement state of a Promise.
type PromiseState int

const (
	Pending PromiseState = iota
	Ready
	Failed
)

func (s PromiseState) String() string {
	switch s {
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "pending"
	}
}

// ErrResultNotReady is returned by Get when called on a pending Promise
// from outside any coroutine.
var ErrResultNotReady = fmt.Errorf("coro: result not ready")

// Promise[T] is a one-shot result slot: state advances Pending → Ready or
// Pending → Failed exactly once, and both transitions are final. T may be
// struct{} for the void-like case.
type Promise[T any] struct {
	state PromiseState
	value T
	err   error

	// done unblocks any goroutine parked in AwaitBlocking() below, and the
	// Scheduler's watcher goroutine (see wait()) that pokes the loop; the
	// awaiting queue itself polls completed() from the Scheduler's own
	// goroutine.
	done chan struct{}

	// cancel is the flag shared with the owning Coroutine, set by newCoroutine.
	// Nil for a Promise that was never attached to a coroutine (e.g. one an
	// IO backend settles directly) — Cancel on such a Promise is a no-op.
	cancel *cancelFlag
}

func newPromise[T any]() *Promise[T] {
	return &Promise[T]{
		done: make(chan struct{}),
	}
}

// SetValue settles the promise with a value. Illegal on an already-settled
// promise.
func (p *Promise[T]) SetValue(v T) {
	if !p.pending() {
		panic("coro: SetValue called on an already-settled promise")
	}
	p.resolve(v)
}

// SetUnit settles a Promise[struct{}] with the unit value.
func (p *Promise[T]) SetUnit() {
	var zero T
	p.SetValue(zero)
}

// SetFailure settles the promise with a captured failure.
func (p *Promise[T]) SetFailure(err error) {
	if !p.pending() {
		panic("coro: SetFailure called on an already-settled promise")
	}
	p.reject(err)
}

// IsSettled reports whether the promise has left Pending.
func (p *Promise[T]) IsSettled() bool {
	return p.state != Pending
}

// State reports the promise's current settlement state.
func (p *Promise[T]) State() PromiseState {
	return p.state
}

// Value returns the settled value; zero value if not settled or failed.
func (p *Promise[T]) Value() T {
	return p.value
}

// Error returns the settled failure; nil if not settled or resolved.
func (p *Promise[T]) Error() error {
	return p.err
}

// Get is the outside-a-coroutine accessor: it never blocks. A pending
// promise fails immediately with ErrResultNotReady; a settled one returns
// its value or re-raises (as a Go error) its failure. Use Await from
// inside a coroutine, or the blocking AwaitBlocking below when
// synchronous cross-thread waiting is genuinely wanted.
func Get[T any](p *Promise[T]) (T, error) {
	if p.pending() {
		var zero T
		return zero, ErrResultNotReady
	}
	return p.value, p.err
}

// AwaitBlocking blocks the calling goroutine (which must not itself be a
// coroutine's trampoline goroutine mid-suspension-point) until the promise
// settles. This is what a caller that is not itself driving a cooperative
// loop uses to safely block on a result — a worker pool's Submit result,
// say — since the settling coroutine runs on its own goroutine and
// close(done) establishes the needed happens-before edge.
func (p *Promise[T]) AwaitBlocking() (T, error) {
	if p.pending() {
		<-p.done
	}
	return p.value, p.err
}

func (p *Promise[T]) resolve(v T) {
	p.state = Ready
	p.value = v
	close(p.done)
}

func (p *Promise[T]) reject(err error) {
	p.state = Failed
	p.err = err
	close(p.done)
}

// complete is the callback shape the IO backends and worker pool expect:
// func(T, error). It is what an SQE's Callback and a coroutine's on-done
// path both invoke to settle a Promise exactly once.
func (p *Promise[T]) complete(v T, err error) {
	if err != nil {
		p.reject(err)
	} else {
		p.resolve(v)
	}
}

// Cancel requests cancellation of the coroutine that owns this promise. It
// is fire-and-forget: the target observes the request only at its own
// next suspension point (Dispatch/Await/AsyncSleep/SuspendForIO), where it
// unwinds with a KindCancellation capsule instead of running to
// completion. Calling Cancel on a promise with no attached coroutine, or
// on one that has already settled, is a harmless no-op.
func Cancel[T any](p *Promise[T]) {
	if p.cancel != nil {
		p.cancel.requested.Store(true)
	}
}

func (p *Promise[T]) pending() bool {
	return p.state == Pending
}

// completed implements iCompletable, letting a Promise sit directly in the
// Scheduler's awaiting queue.
func (p *Promise[T]) completed() bool {
	return !p.pending()
}

// wait implements iWaitable: done is closed exactly once, by whichever of
// resolve/reject settles the promise.
func (p *Promise[T]) wait() <-chan struct{} {
	return p.done
}
