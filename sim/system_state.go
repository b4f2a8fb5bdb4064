package sim

import (
	"errors"
	"fmt"
)

// ErrServerIdle is returned when completing service while no packet is served.
var ErrServerIdle = errors.New("sim: no packet in service")

// SystemState is the server plus its finite buffer.
//
// States are Idle and Busy(served) times buffer occupancy 0..capacity.
// Invariant: !busy ⇒ served == nil, and the buffer never exceeds its capacity.
type SystemState struct {
	busy   bool
	served *Packet
	buffer *FiniteQueue
}

// NewSystemState creates an idle server with an empty buffer of the given capacity.
func NewSystemState(capacity int) *SystemState {
	return &SystemState{buffer: NewFiniteQueue(capacity)}
}

// ServerBusy reports whether a packet is in service.
func (s *SystemState) ServerBusy() bool { return s.busy }

// QueueLength returns the number of waiting packets (the packet in service excluded).
func (s *SystemState) QueueLength() int { return s.buffer.Len() }

// Capacity returns the buffer capacity.
func (s *SystemState) Capacity() int { return s.buffer.Capacity() }

// BufferFull reports whether an arrival finding the server busy would be dropped.
func (s *SystemState) BufferFull() bool { return s.buffer.Len() >= s.buffer.Capacity() }

// Served returns the packet in service, nil when idle.
func (s *SystemState) Served() *Packet { return s.served }

// AddPacketToServer puts p into service if the server is idle (Idle → Busy).
// Returns false if the server is already busy.
func (s *SystemState) AddPacketToServer(p *Packet, now float64) bool {
	if s.busy {
		return false
	}
	p.ServiceStart = now
	s.busy = true
	s.served = p
	return true
}

// AddPacketToQueue buffers p. Returns false when the buffer is full (drop).
func (s *SystemState) AddPacketToQueue(p *Packet) bool {
	return s.buffer.Add(p)
}

// CompleteService ends the current service (Busy → Idle), stamps the
// completion time and hands the finished packet back for accounting.
func (s *SystemState) CompleteService(now float64) (*Packet, error) {
	if !s.busy {
		return nil, fmt.Errorf("complete service at %g: %w", now, ErrServerIdle)
	}
	p := s.served
	p.Completion = now
	s.busy = false
	s.served = nil
	return p, nil
}

// StartService moves the head of the buffer into service.
// Returns false, leaving the server untouched, if the buffer is empty or the server is busy.
func (s *SystemState) StartService(now float64) (*Packet, bool) {
	if s.busy {
		return nil, false
	}
	p, ok := s.buffer.Remove()
	if !ok {
		return nil, false
	}
	p.ServiceStart = now
	s.busy = true
	s.served = p
	return p, true
}

// Reset empties server and buffer and sets a new buffer capacity.
func (s *SystemState) Reset(capacity int) {
	s.busy = false
	s.served = nil
	s.buffer = NewFiniteQueue(capacity)
}
