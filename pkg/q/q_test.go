package q

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueue(t *testing.T) {
	q := Queue[int]{}
	q.Enqueue(1)
	q.Enqueue(2)
	q.Enqueue(3)

	qe, _ := q.Dequeue()
	assert.Equal(t, qe, 1, "Value should be 1")
	expected := 2
	for qe := range q.Pop() {
		assert.Equal(t, qe, expected, "expected %d, got %d", expected, qe)
		expected++
	}
}

func TestQueueDequeueEmpty(t *testing.T) {
	q := Queue[string]{}
	_, ok := q.Dequeue()
	assert.False(t, ok, "dequeue on an empty queue should report not-ok")
}

func TestQueuePopSeesEnqueuesMadeDuringIteration(t *testing.T) {
	q := Queue[int]{}
	q.Enqueue(1)

	var seen []int
	for item := range q.Pop() {
		seen = append(seen, item)
		if item < 3 {
			q.Enqueue(item + 1)
		}
	}

	assert.Equal(t, []int{1, 2, 3}, seen, "Pop should drain items enqueued mid-iteration")
	assert.Equal(t, 0, q.Len())
}
