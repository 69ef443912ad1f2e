package coro

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTimerCoroutine struct {
	uid uuid.UUID
}

func newFakeTimerCoroutine() *fakeTimerCoroutine {
	return &fakeTimerCoroutine{uid: uuid.New()}
}

func (f *fakeTimerCoroutine) resume() outcome[struct{}, struct{}] { return outcome[struct{}, struct{}]{} }
func (f *fakeTimerCoroutine) id() uuid.UUID                       { return f.uid }
func (f *fakeTimerCoroutine) getState() State                    { return StateSuspended }

func TestTimerWheelOrdersByWakeTime(t *testing.T) {
	w := newTimerWheel[struct{}, struct{}]()
	base := time.Unix(0, 0)

	late := newFakeTimerCoroutine()
	early := newFakeTimerCoroutine()
	mid := newFakeTimerCoroutine()

	w.park(base.Add(30*time.Millisecond), late)
	w.park(base.Add(10*time.Millisecond), early)
	w.park(base.Add(20*time.Millisecond), mid)

	assert.True(t, w.isSleeping(late))
	assert.Equal(t, 3, w.len())

	woken := w.drainExpired(base.Add(25 * time.Millisecond))
	require.Len(t, woken, 2)
	assert.Equal(t, early.id(), woken[0].id())
	assert.Equal(t, mid.id(), woken[1].id())
	assert.False(t, w.isSleeping(early))
	assert.Equal(t, 1, w.len())

	wake, ok := w.nextWake()
	require.True(t, ok)
	assert.Equal(t, base.Add(30*time.Millisecond), wake)
}

func TestTimerWheelTiesBrokenByInsertionOrder(t *testing.T) {
	w := newTimerWheel[struct{}, struct{}]()
	at := time.Unix(0, 0)

	first := newFakeTimerCoroutine()
	second := newFakeTimerCoroutine()

	w.park(at, first)
	w.park(at, second)

	woken := w.drainExpired(at)
	require.Len(t, woken, 2)
	assert.Equal(t, first.id(), woken[0].id())
	assert.Equal(t, second.id(), woken[1].id())
}

func TestTimerWheelNextWakeEmpty(t *testing.T) {
	w := newTimerWheel[struct{}, struct{}]()
	_, ok := w.nextWake()
	assert.False(t, ok)
}
