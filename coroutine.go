package coro

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

/////////////////////////////////////////////////////////////////////
// Execution Context + Coroutine
/////////////////////////////////////////////////////////////////////
//
// A Coroutine's "execution context" is a goroutine paired
// with two unbuffered, unidirectional channels. That pairing is the
// idiomatic Go rendering of a switchable stack: the goroutine parks on
// a channel receive at every suspension point exactly the way a fiber
// parks mid-stack, and "switch" is a paired send/receive that hands
// control (and, on the way back, a description of why control was
// handed back) between the coroutine's goroutine and the driving
// Scheduler. The Scheduler's own goroutine plays the role of the main
// execution context — there is exactly one, it is never itself
// suspended, and every hop between coroutines is routed through it,
// never coroutine-to-coroutine.

// State is a Coroutine's position in its lifecycle state machine.
type State int

const (
	StateReady State = iota
	StateRunning
	StateSuspended
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateSuspended:
		return "suspended"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// iCoroutine is the Scheduler's type-erased-enough view of a Coroutine: it
// never needs to know T/TNext/TReturn, only how to resume one and inspect
// its bookkeeping fields.
type iCoroutine[I, O any] interface {
	resume() outcome[I, O]
	id() uuid.UUID
	getState() State
}

// iCompletable is anything the awaiting machinery can poll for readiness:
// a Promise, or a manually-signalled ResumeToken (see SuspendExecution).
type iCompletable interface {
	completed() bool
}

// iWaitable is the subset of completables that can also be blocked on via
// a channel close. Both Promise and ResumeToken satisfy it; the Scheduler
// uses it to wake its own select loop the instant something external
// settles an awaited value, instead of only rechecking on its next
// unrelated tick.
type iWaitable interface {
	wait() <-chan struct{}
}

// outcome is the fully-decoded reason a coroutine handed control back to
// the loop. Exactly one field is meaningful per call to resume(); the rest
// are zero. Kept as a struct rather than several bare return values
// because a fifth case — AsyncSleep — needed a place to live without the
// call site turning into an unreadable five-blank-return.
type outcome[I, O any] struct {
	dispatch *dispatch[I, O] // Dispatch (SuspendForIO's first half): submit a value, keep running
	spawn    iCoroutine[I, O]
	await    iCompletable   // Await(promise) / SuspendExecution(token)
	sleepFor *time.Duration // AsyncSleep, resolved to an absolute wake time by the loop's own Clock
	done     bool
}

// idle reports whether this outcome is a bare voluntary reschedule
// (YieldExecution): nothing to park on, just go to the back of the queue.
func (o outcome[I, O]) idle() bool {
	return o.dispatch == nil && o.spawn == nil && o.await == nil && o.sleepFor == nil && !o.done
}

// CoroutineFunc is the body of a coroutine: it receives the handle it must
// thread through every suspension point (Dispatch, Await, AsyncSleep, ...)
// and returns its result or an error, writing into its own Promise.
type CoroutineFunc[T, TNext, TReturn any] func(*Coroutine[T, TNext, TReturn]) (TReturn, error)

// Coroutine owns one execution context, one exception capsule, its
// lifecycle state, and the bound function.
type Coroutine[T, TNext, TReturn any] struct {
	f       CoroutineFunc[T, TNext, TReturn]
	p       *Promise[TReturn]
	capsule *capsule
	uid     uuid.UUID
	state   State
	cancel  *cancelFlag

	c_i chan interface{}
	c_o chan *yieldMsg[T, TNext, TReturn]
}

// cancelFlag is the shared cell a Promise's Cancel and its owning
// Coroutine's suspension points both touch: cancellation sets a pending
// flag observed at the coroutine's *next* suspension point, not delivered
// as an asynchronous interrupt. Cancel() can be called from any goroutine,
// so the flag itself is atomic.
type cancelFlag struct {
	requested atomic.Bool
}

func (c *Coroutine[T, TNext, TReturn]) checkCancelled() {
	if c.cancel != nil && c.cancel.requested.Load() {
		panic(cancelSignal{})
	}
}

// cancelSignal is the panic value recoverToCapsule recognizes as a
// cancellation rather than a user fault.
type cancelSignal struct{}

// yieldMsg is what a coroutine's goroutine sends the loop at a suspension
// point; exactly one of its non-bool fields is populated (or reschedule
// is set, or done is set) — the loop's Tick switches on which.
type yieldMsg[T, TNext, TReturn any] struct {
	dispatch   *dispatch[T, TNext] // Dispatch (SuspendForIO's first half): submit a value, keep running
	spawn      iCoroutine[T, TNext]
	await      iCompletable   // Await(promise) / SuspendExecution(token)
	sleepFor   *time.Duration // AsyncSleep
	reschedule bool           // bare YieldExecution: go to the back of the ready queue
	done       bool
}

// dispatch pairs a value submitted to the IO backend with the promise that
// the backend's completion callback will settle.
type dispatch[T, TNext any] struct {
	value   T
	promise *Promise[TNext]
}

func newCoroutine[T, TNext, TReturn any](f CoroutineFunc[T, TNext, TReturn]) *Coroutine[T, TNext, TReturn] {
	cancel := &cancelFlag{}
	p := newPromise[TReturn]()
	p.cancel = cancel

	c := &Coroutine[T, TNext, TReturn]{
		f:       f,
		p:       p,
		capsule: newCapsule(),
		uid:     uuid.New(),
		state:   StateReady,
		cancel:  cancel,
		c_i:     make(chan interface{}),
		c_o:     make(chan *yieldMsg[T, TNext, TReturn]),
	}

	go c.trampoline()

	return c
}

// trampoline is the entry stub: it runs the user thunk under recover(),
// marks the coroutine Finished, settles its Promise, and hands control
// back to the loop one last time.
func (c *Coroutine[T, TNext, TReturn]) trampoline() {
	<-c.c_i

	var result TReturn
	var err error

	func() {
		defer func() {
			if r := recover(); r != nil {
				recoverToCapsule(c.capsule, r)
			}
		}()
		result, err = c.f(c)
	}()

	close(c.c_i)
	c.state = StateFinished

	if c.capsule.hasFault() {
		c.p.complete(result, c.capsule.rethrow())
	} else {
		c.p.complete(result, err)
	}

	c.c_o <- &yieldMsg[T, TNext, TReturn]{done: true}
	close(c.c_o)
}

func (c *Coroutine[T, TNext, TReturn]) resume() outcome[T, TNext] {
	c.state = StateRunning
	c.c_i <- nil

	o := <-c.c_o
	if o.reschedule {
		if c.state != StateFinished {
			c.state = StateReady
		}
		return outcome[T, TNext]{}
	}
	// Dispatch does not actually park the coroutine — it returns
	// immediately with a promise handle and keeps running — so it is
	// deliberately excluded here; only a real suspension (await, sleep)
	// moves state to Suspended, while a dispatch moves it back to Ready.
	if (o.sleepFor != nil || o.await != nil) && c.state != StateFinished {
		c.state = StateSuspended
	}
	if o.dispatch != nil && c.state != StateFinished {
		c.state = StateReady
	}

	return outcome[T, TNext]{
		dispatch: o.dispatch,
		spawn:    o.spawn,
		await:    o.await,
		sleepFor: o.sleepFor,
		done:     o.done,
	}
}

func (c *Coroutine[T, TNext, TReturn]) id() uuid.UUID {
	return c.uid
}

func (c *Coroutine[T, TNext, TReturn]) getState() State {
	return c.state
}
