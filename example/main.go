package main

import (
	"fmt"
	"time"

	"github.com/fibercrew/coro"
	"github.com/fibercrew/coro/pkg/io"
)

func worker(n int) coro.CoroutineFunc[func() (string, error), string, string] {
	return func(c *coro.Coroutine[func() (string, error), string, string]) (string, error) {
		fmt.Println("coroutine:", n)

		if n == 0 {
			return "", nil
		}

		foo, err := coro.SuspendForIO(c, func() (string, error) {
			return fmt.Sprintf("foo.%d", n), nil
		})
		if err != nil {
			return "", err
		}

		barPromise := coro.Dispatch(c, func() (string, error) {
			return fmt.Sprintf("bar.%d", n), nil
		})

		bazPromise := coro.CreateTask[func() (string, error), string, string, string](c, worker(n-1))

		coro.AsyncSleep(c, time.Millisecond)

		bar, err := coro.Await(c, barPromise)
		if err != nil {
			return "", err
		}

		baz, err := coro.Await(c, bazPromise)
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("%s:%s:%s", foo, bar, baz), nil
	}
}

func main() {
	pool := io.NewThreadPoolIO[string](4, 100)

	scheduler := coro.New(pool, 100)

	promise := coro.Spawn[func() (string, error), string, string](scheduler, worker(3))

	scheduler.RunUntilComplete()
	scheduler.Shutdown()
	pool.Shutdown()

	if v, err := coro.Get(promise); err != nil {
		fmt.Println("error:", err)
	} else {
		fmt.Println("value:", v)
	}
}
