package coro

import (
	"log/slog"
	"os"
)

/////////////////////////////////////////////////////////////////////
// Tracing
/////////////////////////////////////////////////////////////////////
//
// Ambient, structured tracing of loop events (spawn, sleep, finish, timer
// fire) with zero effect on scheduling semantics — enabling it never
// changes what runs or when, only what gets logged. Grounded on
// wilke-GoWe's use of log/slog for structured, leveled logging rather than
// the standard library's bare "log" package.
//
// Off by default; set CORO_TRACE=1 to see coroutine-level activity at
// Debug level on stderr.

type tracer struct {
	logger *slog.Logger
}

func newTracer() *tracer {
	level := slog.LevelInfo
	if os.Getenv("CORO_TRACE") != "" {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return &tracer{logger: slog.New(handler)}
}

func (t *tracer) log(msg string, args ...any) {
	t.logger.Debug(msg, args...)
}
