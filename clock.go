package coro

import "time"

// Clock is the Scheduler's source of "now". The default is wall-clock
// time; pkg/dst supplies a VirtualClock so timer-ordering tests can assert
// wake-time ordering without ever calling time.Sleep — deterministic
// simulation rather than wall-clock waiting.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
