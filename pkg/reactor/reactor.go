// Package reactor is an epoll-backed completion facility: the backend for
// handle-registration-style completions, as opposed to pkg/io's
// thread-pool backend for plain blocking reads. It follows the classic
// completion-port shape — register a handle once, then block on one wait
// call that returns whichever handles became ready — translated to
// Linux's epoll.
package reactor

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/fibercrew/coro/pkg/io"
)

// Op is a submission against a registered file descriptor: which events to
// arm (unix.EPOLLIN, unix.EPOLLOUT, ...) on Fd.
type Op struct {
	Fd     int
	Events uint32
}

// Event is what a completion carries: the descriptor that became ready and
// which of the armed events fired.
type Event struct {
	Fd     int
	Events uint32
}

// Reactor implements io.IO[Op, Event] on top of a single epoll instance.
type Reactor struct {
	epfd int

	cq chan *io.CQE[Event]

	mu      sync.Mutex
	pending map[int]*io.SQE[Op, Event]

	done      chan struct{}
	closeOnce sync.Once
}

// New creates an epoll instance and starts its wait loop. size bounds how
// many undelivered completions may queue up before the wait loop (or an
// Enqueue whose re-arm fails) blocks delivering into a full cq.
func New(size int) (*Reactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("reactor: epoll_create1: %w", err)
	}

	r := &Reactor{
		epfd:    epfd,
		cq:      make(chan *io.CQE[Event], size),
		pending: make(map[int]*io.SQE[Op, Event]),
		done:    make(chan struct{}),
	}

	go r.loop()

	return r, nil
}

// Register arms fd on the epoll instance for readability, edge-triggered.
// Re-adding an already-added fd is an error at the syscall level (EEXIST),
// so Register treats that error as "already registered" and returns nil,
// which keeps it idempotent per handle. Register is the one-time ADD and
// Enqueue below re-arms via MOD.
func (r *Reactor) Register(handle uintptr) error {
	fd := int(handle)
	ev := unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLET, Fd: int32(fd)}

	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		if err == unix.EEXIST {
			return nil
		}
		return fmt.Errorf("reactor: epoll_ctl(ADD, %d): %w", fd, err)
	}

	return nil
}

// Enqueue arms the operation's event mask on its (already-Registered) fd
// and remembers the callback to invoke once epoll reports it ready.
func (r *Reactor) Enqueue(sqe *io.SQE[Op, Event]) {
	r.mu.Lock()
	r.pending[sqe.Value.Fd] = sqe
	r.mu.Unlock()

	ev := unix.EpollEvent{Events: sqe.Value.Events | unix.EPOLLET, Fd: int32(sqe.Value.Fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, sqe.Value.Fd, &ev); err != nil {
		r.mu.Lock()
		delete(r.pending, sqe.Value.Fd)
		r.mu.Unlock()

		r.deliver(&io.CQE[Event]{
			Error:    fmt.Errorf("reactor: epoll_ctl(MOD, %d): %w", sqe.Value.Fd, err),
			Callback: sqe.Callback,
		})
	}
}

func (r *Reactor) Dequeue() <-chan *io.CQE[Event] {
	return r.cq
}

// Shutdown stops the wait loop and closes the epoll descriptor. Safe to
// call more than once.
func (r *Reactor) Shutdown() {
	r.closeOnce.Do(func() {
		close(r.done)
		unix.Close(r.epfd)
	})
}

func (r *Reactor) loop() {
	events := make([]unix.EpollEvent, 64)

	for {
		select {
		case <-r.done:
			return
		default:
		}

		// Bounded wait so the done check above is revisited periodically
		// even with nothing ready — epoll_wait has no way to also select
		// on a Go channel.
		n, err := unix.EpollWait(r.epfd, events, 100)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			if err == unix.EBADF {
				return // epfd closed out from under us by Shutdown
			}
			continue
		}

		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)

			r.mu.Lock()
			sqe, ok := r.pending[fd]
			if ok {
				delete(r.pending, fd)
			}
			r.mu.Unlock()

			if !ok {
				continue
			}

			r.deliver(&io.CQE[Event]{
				Value:    Event{Fd: fd, Events: events[i].Events},
				Callback: sqe.Callback,
			})
		}
	}
}

func (r *Reactor) deliver(cqe *io.CQE[Event]) {
	select {
	case r.cq <- cqe:
	case <-r.done:
	}
}
