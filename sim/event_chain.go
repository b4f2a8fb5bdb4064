package sim

import (
	"container/heap"
	"errors"
)

// ErrEmptyEventChain is returned when removing from an empty EventChain.
var ErrEmptyEventChain = errors.New("sim: event chain is empty")

// EventChain is a priority queue of events with deterministic ordering.
// Ordering: time → kind priority → insertion sequence.
type EventChain struct {
	events  eventHeap
	nextSeq uint64
}

// eventHeap implements heap.Interface.
// See canonical Golang example here: https://pkg.go.dev/container/heap#example-package-IntHeap
type eventHeap []Event

func (h eventHeap) Len() int           { return len(h) }
func (h eventHeap) Less(i, j int) bool { return h[i].before(h[j]) }
func (h eventHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(Event))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[0 : n-1]
	return item
}

// NewEventChain creates an empty event chain.
func NewEventChain() *EventChain {
	return &EventChain{events: make(eventHeap, 0)}
}

// Len returns the number of pending events.
func (c *EventChain) Len() int {
	return c.events.Len()
}

// Insert schedules an event. O(log n).
func (c *EventChain) Insert(ev Event) {
	ev.seq = c.nextSeq
	c.nextSeq++
	heap.Push(&c.events, ev)
}

// RemoveOldest removes and returns the next event to process.
func (c *EventChain) RemoveOldest() (Event, error) {
	if c.events.Len() == 0 {
		return Event{}, ErrEmptyEventChain
	}
	return heap.Pop(&c.events).(Event), nil
}

// Peek returns the next event without removing it.
func (c *EventChain) Peek() (Event, bool) {
	if c.events.Len() == 0 {
		return Event{}, false
	}
	return c.events[0], true
}

// Clear discards all pending events and restarts the insertion sequence.
func (c *EventChain) Clear() {
	c.events = c.events[:0]
	c.nextSeq = 0
}
