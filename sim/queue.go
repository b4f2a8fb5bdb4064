// Implements the FiniteQueue, the bounded buffer in front of the server.
// Packets are enqueued on arrival when the server is busy.

package sim

import (
	"fmt"
	"strings"
)

// FiniteQueue is a FIFO buffer holding at most Capacity packets.
type FiniteQueue struct {
	capacity int
	queue    []*Packet
}

// NewFiniteQueue creates an empty buffer. A negative capacity is treated as 0.
func NewFiniteQueue(capacity int) *FiniteQueue {
	if capacity < 0 {
		capacity = 0
	}
	return &FiniteQueue{capacity: capacity, queue: make([]*Packet, 0, capacity)}
}

// Add appends p to the back of the buffer. Returns false if the buffer is full.
func (q *FiniteQueue) Add(p *Packet) bool {
	if p == nil {
		panic("FiniteQueue.Add: packet must not be nil")
	}
	if len(q.queue) >= q.capacity {
		return false
	}
	q.queue = append(q.queue, p)
	return true
}

// Remove takes the packet at the front of the buffer.
// Returns false if the buffer is empty.
func (q *FiniteQueue) Remove() (*Packet, bool) {
	if len(q.queue) == 0 {
		return nil, false
	}
	p := q.queue[0]
	q.queue[0] = nil
	q.queue = q.queue[1:]
	return p, true
}

// Len returns the number of waiting packets.
func (q *FiniteQueue) Len() int {
	return len(q.queue)
}

// Capacity returns the maximum number of waiting packets.
func (q *FiniteQueue) Capacity() int {
	return q.capacity
}

// IsEmpty reports whether no packet is waiting.
func (q *FiniteQueue) IsEmpty() bool {
	return len(q.queue) == 0
}

// Flush discards all waiting packets.
func (q *FiniteQueue) Flush() {
	q.queue = make([]*Packet, 0, q.capacity)
}

func (q *FiniteQueue) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%d/%d:", len(q.queue), q.capacity)
	for _, p := range q.queue {
		fmt.Fprintf(&sb, " %g", p.ArrivalTime)
	}
	sb.WriteString("]")
	return sb.String()
}
