package coro

import (
	"sync"
	"time"

	"github.com/fibercrew/coro/pkg/io"
	"github.com/fibercrew/coro/pkg/q"
)

/////////////////////////////////////////////////////////////////////
// Scheduler
/////////////////////////////////////////////////////////////////////
//
// One Scheduler drives exactly one ready queue, one awaiting queue, one
// timer wheel, and one completion facility. Its own goroutine is the main
// execution context: it never itself suspends, and every transfer of
// control between coroutines is routed through its loop.
//
// A per-OS-thread singleton doesn't survive translation literally — Go
// gives no portable way to ask "what OS thread am I on", and goroutines
// aren't pinned to one anyway. What matters is non-reentrancy: a
// Scheduler's loop must never be entered twice concurrently. An embedded
// sync.Mutex gives that guarantee directly, and "which Scheduler is
// driving this coroutine" is threaded explicitly through every
// suspension-point call via the *Coroutine handle instead of any
// goroutine-local lookup.

type Scheduler[I, O any] struct {
	sync.Mutex

	io    io.IO[I, O]
	in    chan iCoroutine[I, O]
	clock Clock

	done chan struct{}
	poke chan struct{}

	runnable q.Queue[iCoroutine[I, O]]
	awaiting q.Queue[*awaitingCoroutine[I, O]]
	timers   *timerWheel[I, O]

	tracer *tracer
}

type awaitingCoroutine[I, O any] struct {
	coroutine iCoroutine[I, O]
	on        iCompletable
}

// New builds a Scheduler backed by the given completion facility, with a
// ready-queue intake buffer of the given size and the wall clock as its
// time source.
func New[I, O any](facility io.IO[I, O], size int) *Scheduler[I, O] {
	return NewWithClock(facility, size, realClock{})
}

// NewWithClock is New with an injectable Clock, so a virtual clock (see
// pkg/dst) can drive AsyncSleep deterministically in tests instead of
// waiting on the wall clock.
func NewWithClock[I, O any](facility io.IO[I, O], size int, clock Clock) *Scheduler[I, O] {
	return &Scheduler[I, O]{
		io:     facility,
		in:     make(chan iCoroutine[I, O], size),
		clock:  clock,
		done:   make(chan struct{}),
		poke:   make(chan struct{}, 1),
		timers: newTimerWheel[I, O](),
		tracer: newTracer(),
	}
}

func (s *Scheduler[I, O]) add(c iCoroutine[I, O]) {
	s.in <- c
}

// register binds an OS handle to the underlying completion facility. A
// thread-pool backend ignores it; an epoll-backed reactor does not. See
// RegisterHandle in api.go for the exported entry point.
func (s *Scheduler[I, O]) register(handle uintptr) error {
	return s.io.Register(handle)
}

// Run drives the loop indefinitely, until Shutdown is called. Suitable for
// long-running, single-threaded server-style use.
func (s *Scheduler[I, O]) Run() {
	s.Lock()
	defer s.Unlock()

	s.run(false)
}

// RunUntilComplete drives the loop until every owned coroutine has
// finished: nothing runnable, nothing awaiting, nothing asleep. This is
// the shape a worker pool thread uses to run one dispatched task's whole
// coroutine tree to completion before picking up the next.
func (s *Scheduler[I, O]) RunUntilComplete() {
	s.Lock()
	defer s.Unlock()

	s.run(true)
}

// RunUntilBlocked moves timers already due by the Clock onto the ready
// queue, processes exactly one wave of currently-ready work — no waiting on
// the completion facility or on a future timer — and returns. Useful for tests that want
// single-step control over the loop, and it is the only entry point that
// composes correctly with a virtual Clock (see pkg/dst): Run and
// RunUntilComplete both block on a real time.After when nothing else is
// ready, which elapses in real time no matter what a virtual Clock says
// "now" is. A deterministic test instead drives the loop by alternating
// RunUntilBlocked with the virtual clock's own Advance.
func (s *Scheduler[I, O]) RunUntilBlocked() {
	s.Lock()
	defer s.Unlock()

	s.wakeTimers()
	s.runUntilBlocked(nil, nil)
}

// Shutdown stops the loop. Safe to call once; a second call panics, same
// as closing any channel twice — callers that need idempotent shutdown
// should guard with sync.Once (see pool.go's WorkerPool.Stop).
func (s *Scheduler[I, O]) Shutdown() {
	close(s.done)
}

func (s *Scheduler[I, O]) run(breakOnComplete bool) {
	for {
		s.wakeTimers()

		select {
		case crt := <-s.in:
			s.runUntilBlocked(crt, nil)
		case cqe := <-s.io.Dequeue():
			s.runUntilBlocked(nil, cqe)
		case <-s.timerC():
			s.runUntilBlocked(nil, nil)
		case <-s.poke:
			s.runUntilBlocked(nil, nil)
		case <-s.done:
			return
		}

		invariant(s.runnable.Len() == 0, "runnable should be empty")

		if breakOnComplete && s.idle() {
			break
		}
	}
}

// idle reports whether every owned coroutine has finished: nothing left
// runnable (already asserted empty by the caller), nothing still waiting in
// the intake channel, nothing awaiting, and nothing parked in the timer
// wheel.
func (s *Scheduler[I, O]) idle() bool {
	return len(s.in) == 0 && s.awaiting.Len() == 0 && s.timers.len() == 0
}

// wakeTimers moves every timer-wheel entry whose wake time has arrived
// straight onto the ready queue; timer-parked coroutines never sit in the
// awaiting queue, so they bypass unblock() entirely.
func (s *Scheduler[I, O]) wakeTimers() {
	for _, c := range s.timers.drainExpired(s.clock.Now()) {
		s.tracer.log("timer fired", "coroutine", c.id())
		s.runnable.Enqueue(c)
	}
}

// timerC returns a channel that fires at the next wake time, or a nil
// channel (blocks forever, never selected) if nothing is asleep — this
// bounds the loop's wait by the timer wheel's earliest entry.
func (s *Scheduler[I, O]) timerC() <-chan time.Time {
	wake, ok := s.timers.nextWake()
	if !ok {
		return nil
	}

	d := wake.Sub(s.clock.Now())
	if d < 0 {
		d = 0
	}

	return time.After(d)
}

func (s *Scheduler[I, O]) runUntilBlocked(crt iCoroutine[I, O], cqe *io.CQE[O]) {
	invariant(crt == nil || cqe == nil, "one or both of crt/cqe should be nil")

	var cqes []*io.CQE[O]

	if crt != nil {
		s.runnable.Enqueue(crt)
	}

	if cqe != nil {
		cqes = append(cqes, cqe)
	}

	// exhaust in
	batch(s.in, 10, func(crt iCoroutine[I, O]) {
		s.runnable.Enqueue(crt)
	})

	// exhaust cq
	batch(s.io.Dequeue(), 10, func(cqe *io.CQE[O]) {
		cqes = append(cqes, cqe)
	})

	// tick
	for _, sqe := range s.Tick(cqes) {
		s.io.Enqueue(sqe)
	}

	invariant(s.runnable.Len() == 0, "runnable should be empty")
}

// Tick is one pass of the loop body: settle deliverable completions, move
// unblocked awaiters back onto the ready queue, then drain the ready
// queue down to empty, routing each resumption's outcome — dispatch,
// spawn, await, sleep, yield, or finish — to the right bookkeeping. A
// coroutine that re-enters the ready queue during the pass (yield,
// dispatch, spawn) is resumed again within the same pass.
func (s *Scheduler[I, O]) Tick(cqes []*io.CQE[O]) []*io.SQE[I, O] {
	var sqes []*io.SQE[I, O]

	for _, cqe := range cqes {
		invariant(cqe.Callback != nil, "callback should not be nil")
		cqe.Callback(cqe.Value, cqe.Error)
	}

	s.unblock()

	for coroutine := range s.runnable.Pop() {
		out := coroutine.resume()

		switch {
		case out.dispatch != nil:
			sqes = append(sqes, &io.SQE[I, O]{
				Value:    out.dispatch.value,
				Callback: out.dispatch.promise.complete,
			})
			// Dispatch does not block the caller: the coroutine's own call
			// returns immediately with the promise handle, so it goes right
			// back on the ready queue to keep running (fire-and-continue,
			// not fire-and-suspend). It only actually parks once it Awaits
			// that promise.
			s.runnable.Enqueue(coroutine)

		case out.spawn != nil:
			s.tracer.log("spawn", "parent", coroutine.id(), "child", out.spawn.id())
			s.runnable.Enqueue(out.spawn)
			s.runnable.Enqueue(coroutine)

		case out.sleepFor != nil:
			wakeAt := s.clock.Now().Add(*out.sleepFor)
			s.tracer.log("sleep", "coroutine", coroutine.id(), "wake_at", wakeAt)
			s.timers.park(wakeAt, coroutine)

		case out.await != nil:
			s.awaiting.Enqueue(&awaitingCoroutine[I, O]{
				coroutine: coroutine,
				on:        out.await,
			})
			s.watch(out.await)

		case out.done:
			s.tracer.log("finished", "coroutine", coroutine.id())
			s.unblock()

		case out.idle():
			// bare YieldExecution: back of the queue, no bookkeeping needed.
			s.runnable.Enqueue(coroutine)

		default:
			invariant(false, "unreachable")
		}
	}

	return sqes
}

// watch spins a goroutine that wakes the loop the instant on settles, if on
// supports it (iWaitable). Without this, a coroutine parked purely on an
// externally-signalled ResumeToken (see SuspendExecution) would never be
// revived: nothing else in the select loop has any reason to re-check the
// awaiting queue once Signal() flips its flag from a goroutine outside the
// Scheduler entirely. The watcher exits either when on settles or when the
// Scheduler itself shuts down.
func (s *Scheduler[I, O]) watch(on iCompletable) {
	w, ok := on.(iWaitable)
	if !ok {
		return
	}

	go func() {
		select {
		case <-w.wait():
			s.wake()
		case <-s.done:
		}
	}()
}

func (s *Scheduler[I, O]) wake() {
	select {
	case s.poke <- struct{}{}:
	default:
	}
}

func (s *Scheduler[I, O]) unblock() {
	i := 0
	for _, coroutine := range s.awaiting {
		if coroutine.on.completed() {
			s.runnable.Enqueue(coroutine.coroutine)
		} else {
			s.awaiting[i] = coroutine
			i++
		}
	}

	s.awaiting = s.awaiting[:i]
}

func invariant(cond bool, mesg string) {
	if !cond {
		panic(mesg)
	}
}

func batch[T any](c <-chan T, n int, f func(T)) {
	for i := 0; i < n; i++ {
		select {
		case e := <-c:
			f(e)
		default:
			return
		}
	}
}
