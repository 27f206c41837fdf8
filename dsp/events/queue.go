package events

import (
	"container/heap"
	"time"
)

// Queue orders pending spawn events by spawn time. Events come out in
// non-decreasing SpawnTime order and each event is dequeued exactly once.
type Queue struct {
	h eventHeap
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Len returns the number of pending events.
func (q *Queue) Len() int {
	return len(q.h)
}

// Push adds events to the queue.
func (q *Queue) Push(events ...SpawnEvent) {
	for _, ev := range events {
		heap.Push(&q.h, ev)
	}
}

// PopDue removes and returns all events whose spawn time has arrived,
// ordered by spawn time.
func (q *Queue) PopDue(now time.Duration) []SpawnEvent {
	var due []SpawnEvent

	for len(q.h) > 0 && q.h[0].SpawnTime <= now {
		due = append(due, heap.Pop(&q.h).(SpawnEvent))
	}

	return due
}

// Peek returns the next event without removing it.
func (q *Queue) Peek() (SpawnEvent, bool) {
	if len(q.h) == 0 {
		return SpawnEvent{}, false
	}

	return q.h[0], true
}

// Reset drops all pending events.
func (q *Queue) Reset() {
	q.h = q.h[:0]
}

type eventHeap []SpawnEvent

func (h eventHeap) Len() int           { return len(h) }
func (h eventHeap) Less(i, j int) bool { return h[i].SpawnTime < h[j].SpawnTime }
func (h eventHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x any)        { *h = append(*h, x.(SpawnEvent)) }

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	ev := old[n-1]
	*h = old[:n-1]

	return ev
}
