package dst

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVirtualClockAdvance(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewVirtualClock(start)

	assert.Equal(t, start, c.Now())

	got := c.Advance(5 * time.Second)
	want := start.Add(5 * time.Second)

	assert.Equal(t, want, got)
	assert.Equal(t, want, c.Now())
}

func TestVirtualClockNeverMovesOnItsOwn(t *testing.T) {
	c := NewVirtualClock(time.Unix(0, 0))
	first := c.Now()
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, first, c.Now())
}
