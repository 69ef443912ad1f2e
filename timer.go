package coro

import (
	"container/heap"
	"time"

	"github.com/google/uuid"
)

/////////////////////////////////////////////////////////////////////
// Timer Wheel
/////////////////////////////////////////////////////////////////////
//
// A min-heap of (wake-time, coroutine) entries. container/heap is the
// standard-library answer the wider Go ecosystem reaches for a priority
// queue this small and this intrusive to the Scheduler's own loop (it is,
// for instance, what time.Timer's own runtime implementation is built
// on), so pulling in a third-party priority-queue package would add a
// dependency without adding any capability this module needs.

type timerEntry[I, O any] struct {
	wakeAt    time.Time
	seq       uint64 // insertion order; ties are not otherwise observable
	coroutine iCoroutine[I, O]
}

type timerHeap[I, O any] []*timerEntry[I, O]

func (h timerHeap[I, O]) Len() int { return len(h) }

func (h timerHeap[I, O]) Less(i, j int) bool {
	if h[i].wakeAt.Equal(h[j].wakeAt) {
		return h[i].seq < h[j].seq
	}
	return h[i].wakeAt.Before(h[j].wakeAt)
}

func (h timerHeap[I, O]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timerHeap[I, O]) Push(x any) {
	*h = append(*h, x.(*timerEntry[I, O]))
}

func (h *timerHeap[I, O]) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// timerWheel bundles the heap with a Sleeping Set membership test, so the
// Scheduler's Suspended bookkeeping never has to guess whether a given
// coroutine is timer-parked.
type timerWheel[I, O any] struct {
	heap     timerHeap[I, O]
	sleeping map[uuid.UUID]struct{}
	seq      uint64
}

func newTimerWheel[I, O any]() *timerWheel[I, O] {
	return &timerWheel[I, O]{sleeping: make(map[uuid.UUID]struct{})}
}

func (w *timerWheel[I, O]) park(wakeAt time.Time, c iCoroutine[I, O]) {
	w.seq++
	heap.Push(&w.heap, &timerEntry[I, O]{wakeAt: wakeAt, seq: w.seq, coroutine: c})
	w.sleeping[c.id()] = struct{}{}
}

func (w *timerWheel[I, O]) isSleeping(c iCoroutine[I, O]) bool {
	_, ok := w.sleeping[c.id()]
	return ok
}

// drainExpired moves every entry with wakeAt <= now out of the heap and
// out of the sleeping set, returning them in wake-time order.
func (w *timerWheel[I, O]) drainExpired(now time.Time) []iCoroutine[I, O] {
	var woken []iCoroutine[I, O]
	for w.heap.Len() > 0 && !w.heap[0].wakeAt.After(now) {
		entry := heap.Pop(&w.heap).(*timerEntry[I, O])
		delete(w.sleeping, entry.coroutine.id())
		woken = append(woken, entry.coroutine)
	}
	return woken
}

// nextWake reports the earliest pending wake time, used to bound the
// Scheduler's wait on its completion facility.
func (w *timerWheel[I, O]) nextWake() (time.Time, bool) {
	if w.heap.Len() == 0 {
		return time.Time{}, false
	}
	return w.heap[0].wakeAt, true
}

func (w *timerWheel[I, O]) len() int {
	return w.heap.Len()
}
