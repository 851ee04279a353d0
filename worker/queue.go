package worker

import (
	"container/heap"
	"time"
)

// readyQueue is a FIFO of reads that may run now.
type readyQueue struct {
	tasks []*readTask
}

func (q *readyQueue) push(t *readTask) {
	q.tasks = append(q.tasks, t)
}

func (q *readyQueue) pop() *readTask {
	if len(q.tasks) == 0 {
		return nil
	}

	t := q.tasks[0]
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	return t
}

func (q *readyQueue) len() int {
	return len(q.tasks)
}

// deadlineQueue orders backed-off reads by waitExpiration, earliest first.
// Equal expirations come out in insertion order.
type deadlineQueue struct {
	h   deadlineHeap
	seq uint64
}

func (q *deadlineQueue) push(t *readTask) {
	q.seq++
	t.seq = q.seq
	heap.Push(&q.h, t)
}

func (q *deadlineQueue) peek() (*readTask, bool) {
	if len(q.h) == 0 {
		return nil, false
	}
	return q.h[0], true
}

// popDue removes and returns the earliest read if it is due at now.
func (q *deadlineQueue) popDue(now time.Time) (*readTask, bool) {
	head, ok := q.peek()
	if !ok || head.waitExpiration.After(now) {
		return nil, false
	}

	return heap.Pop(&q.h).(*readTask), true
}

func (q *deadlineQueue) len() int {
	return len(q.h)
}

type deadlineHeap []*readTask

func (h deadlineHeap) Len() int { return len(h) }

func (h deadlineHeap) Less(i, j int) bool {
	if h[i].waitExpiration.Equal(h[j].waitExpiration) {
		return h[i].seq < h[j].seq
	}
	return h[i].waitExpiration.Before(h[j].waitExpiration)
}

func (h deadlineHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *deadlineHeap) Push(x any) {
	*h = append(*h, x.(*readTask))
}

func (h *deadlineHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}
