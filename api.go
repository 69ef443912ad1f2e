package coro

import (
	"sync"
	"sync/atomic"
	"time"
)

/////////////////////////////////////////////////////////////////////
// Public API
/////////////////////////////////////////////////////////////////////
//
// Every suspension point below takes the *Coroutine handle explicitly
// rather than relying on any implicit "current coroutine" lookup — that
// handle is also how "which Scheduler is this" gets threaded through
// without goroutine-local state (see the Scheduler doc comment).

// Spawn registers a new coroutine directly on a Scheduler from outside any
// coroutine. The returned Promise settles when the coroutine finishes.
func Spawn[T, TNext, TReturn any](s *Scheduler[T, TNext], f CoroutineFunc[T, TNext, TReturn]) *Promise[TReturn] {
	coroutine := newCoroutine(f)
	s.add(coroutine)

	return coroutine.p
}

// Add is Spawn's convenience form for a thunk whose result and failure the
// caller doesn't need to observe: it discards the Promise. The thunk still
// runs under the same fault-capture and cancellation machinery as any
// other coroutine; it just has no one listening for how it turned out.
func Add[T, TNext any](s *Scheduler[T, TNext], f func(*Coroutine[T, TNext, struct{}]) error) {
	Spawn(s, func(c *Coroutine[T, TNext, struct{}]) (struct{}, error) {
		return struct{}{}, f(c)
	})
}

// RegisterHandle binds an OS handle (a file descriptor, on the reactor
// backend) to a Scheduler's completion facility, so operations submitted
// against it can be delivered as completions. Idempotent per handle on
// backends where that's meaningful; a thread-pool backend accepts and
// ignores it, since a plain blocking read has no handle to register.
func RegisterHandle[I, O any](s *Scheduler[I, O], handle uintptr) error {
	return s.register(handle)
}

// CreateTask spawns a child coroutine from inside a running one. The
// restriction to in-coroutine callers is structural here, not checked at
// runtime: a *Coroutine handle only exists inside a coroutine body, so
// there is no outside-caller misuse to reject.
func CreateTask[T, TNext, TReturn, R any](c *Coroutine[T, TNext, TReturn], f CoroutineFunc[T, TNext, R]) *Promise[R] {
	c.checkCancelled()

	child := newCoroutine(f)

	c.c_o <- &yieldMsg[T, TNext, TReturn]{spawn: child}
	<-c.c_i

	return child.p
}

// Dispatch is the low-level "submit and keep running" primitive: it hands
// value off to the Scheduler's completion facility and returns immediately
// with a Promise for the eventual result, without parking the calling
// coroutine. This is what lets one coroutine fire off several concurrent
// operations before awaiting any of them. Most callers want SuspendForIO
// below, which adds the awaiting half.
func Dispatch[T, TNext, TReturn any](c *Coroutine[T, TNext, TReturn], value T) *Promise[TNext] {
	c.checkCancelled()

	p := newPromise[TNext]()

	c.c_o <- &yieldMsg[T, TNext, TReturn]{dispatch: &dispatch[T, TNext]{value: value, promise: p}}
	<-c.c_i

	return p
}

// SuspendForIO submits value to the completion facility and parks the
// calling coroutine until the result arrives: build the per-operation
// record (the value plus the callback that settles the operation's
// Promise), issue it, and block on that Promise. It is
// Dispatch immediately followed by Await.
func SuspendForIO[T, TNext, TReturn any](c *Coroutine[T, TNext, TReturn], value T) (TNext, error) {
	return Await(c, Dispatch(c, value))
}

// Await parks the calling coroutine until p settles, then returns its
// value or its error. A failure captured from a panic in the coroutine
// that owns p comes back as a *CapsuleError; an error that coroutine
// returned, or that an IO backend reported, comes back as is. Returns
// immediately if p has already settled.
func Await[T, TNext, TReturn, P any](c *Coroutine[T, TNext, TReturn], p *Promise[P]) (P, error) {
	c.checkCancelled()

	if p.pending() {
		c.c_o <- &yieldMsg[T, TNext, TReturn]{await: p}
		<-c.c_i
	}

	return p.value, p.err
}

// YieldExecution is a bare voluntary reschedule: the coroutine goes to the
// back of the ready queue and resumes once every coroutine queued ahead of
// it has had its turn (within the same Tick, since Tick drains the ready
// queue down to empty), carrying no payload and parking on nothing.
func YieldExecution[T, TNext, TReturn any](c *Coroutine[T, TNext, TReturn]) {
	c.checkCancelled()

	c.c_o <- &yieldMsg[T, TNext, TReturn]{reschedule: true}
	<-c.c_i
}

// AsyncSleep parks the calling coroutine in the Scheduler's timer wheel for
// at least d, per the Scheduler's own Clock — not the wall clock directly,
// so a virtual clock in tests can fire it without waiting.
func AsyncSleep[T, TNext, TReturn any](c *Coroutine[T, TNext, TReturn], d time.Duration) {
	c.checkCancelled()

	c.c_o <- &yieldMsg[T, TNext, TReturn]{sleepFor: &d}
	<-c.c_i
}

// ResumeToken is a manually-signalled completable, the vehicle for
// SuspendExecution below: park with no re-queue plan, caller arranges
// revival.
type ResumeToken struct {
	signaled  atomic.Bool
	ch        chan struct{}
	closeOnce sync.Once
}

func newResumeToken() *ResumeToken {
	return &ResumeToken{ch: make(chan struct{})}
}

// Signal marks the token complete and wakes the Scheduler that parked its
// owner on it, moving the coroutine back onto the ready queue on that
// Scheduler's next tick. Safe to call from any goroutine, including one
// outside the Scheduler entirely (e.g. a callback fired by an unrelated
// system that is arranging this coroutine's revival) — that's the whole
// point of SuspendExecution. Safe to call more than once.
func (t *ResumeToken) Signal() {
	t.closeOnce.Do(func() {
		t.signaled.Store(true)
		close(t.ch)
	})
}

func (t *ResumeToken) completed() bool {
	return t.signaled.Load()
}

func (t *ResumeToken) wait() <-chan struct{} {
	return t.ch
}

// SuspendExecution parks the calling coroutine with no automatic revival
// plan. onParked, if non-nil, receives the freshly-created ResumeToken
// synchronously, before the coroutine actually parks, so the caller can
// stash it somewhere an external event handler can reach — there is no
// other way to get a handle on a coroutine that is about to block.
func SuspendExecution[T, TNext, TReturn any](c *Coroutine[T, TNext, TReturn], onParked func(*ResumeToken)) {
	c.checkCancelled()

	token := newResumeToken()
	if onParked != nil {
		onParked(token)
	}

	c.c_o <- &yieldMsg[T, TNext, TReturn]{await: token}
	<-c.c_i
}
