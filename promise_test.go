package coro

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPromiseGetPending(t *testing.T) {
	p := newPromise[int]()

	v, err := Get(p)
	assert.ErrorIs(t, err, ErrResultNotReady)
	assert.Equal(t, 0, v)
}

func TestPromiseSetValue(t *testing.T) {
	p := newPromise[string]()

	p.SetValue("ambr0se#1337")

	assert.True(t, p.IsSettled())
	assert.Equal(t, Ready, p.State())

	v, err := Get(p)
	assert.NoError(t, err)
	assert.Equal(t, "ambr0se#1337", v)
}

func TestPromiseSetFailure(t *testing.T) {
	p := newPromise[int]()
	boom := errors.New("boom")

	p.SetFailure(boom)

	assert.Equal(t, Failed, p.State())

	_, err := Get(p)
	assert.ErrorIs(t, err, boom)
}

func TestPromiseDoubleSettlePanics(t *testing.T) {
	p := newPromise[int]()
	p.SetValue(1)

	assert.Panics(t, func() { p.SetValue(2) })
	assert.Panics(t, func() { p.SetFailure(errors.New("late")) })
}

func TestPromiseAwaitBlocking(t *testing.T) {
	p := newPromise[int]()

	done := make(chan struct{})
	go func() {
		defer close(done)
		v, err := p.AwaitBlocking()
		assert.NoError(t, err)
		assert.Equal(t, 42, v)
	}()

	p.SetValue(42)
	<-done
}

func TestPromiseSetUnit(t *testing.T) {
	p := newPromise[struct{}]()
	p.SetUnit()

	assert.True(t, p.completed())
}

func TestCancelOnUnattachedPromiseIsNoop(t *testing.T) {
	p := newPromise[int]()
	assert.NotPanics(t, func() { Cancel(p) })
}
