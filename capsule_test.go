package coro

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCapsuleRethrowNilWhenClean(t *testing.T) {
	c := newCapsule()
	assert.False(t, c.hasFault())
	assert.NoError(t, c.rethrow())
}

func TestCapsuleCaptureUserFailure(t *testing.T) {
	c := newCapsule()
	c.capture(KindUser, errors.New("Test exception"))

	assert.True(t, c.hasFault())

	err := c.rethrow()
	var capsuleErr *CapsuleError
	assert.ErrorAs(t, err, &capsuleErr)
	assert.Equal(t, KindUser, capsuleErr.Kind)
	assert.Equal(t, "Test exception", capsuleErr.Error())
}

func TestCapsuleDoubleCapturePanics(t *testing.T) {
	c := newCapsule()
	c.capture(KindUser, errors.New("first"))

	assert.Panics(t, func() { c.capture(KindUser, errors.New("second")) })
}

func TestRecoverToCapsuleClassifiesUserError(t *testing.T) {
	c := newCapsule()
	recoverToCapsule(c, errors.New("Test exception"))

	assert.Equal(t, KindUser, c.kind)
}

func TestRecoverToCapsuleClassifiesRuntimeFault(t *testing.T) {
	c := newCapsule()

	func() {
		defer func() {
			recoverToCapsule(c, recover())
		}()

		var m map[string]int
		m["boom"] = 1 // nil map write: runtime.Error, not an `error` the coroutine raised
	}()

	assert.Equal(t, KindFault, c.kind)
}

func TestRecoverToCapsuleClassifiesCancellation(t *testing.T) {
	c := newCapsule()
	recoverToCapsule(c, cancelSignal{})

	assert.Equal(t, KindCancellation, c.kind)
	assert.ErrorIs(t, c.rethrow(), ErrCancelled)
}
