package sim

import "fmt"

// EventKind is the closed set of events the engine processes. The numeric
// value is the tie-break priority for events scheduled at the same instant:
// lower values are processed first.
type EventKind int

const (
	// ServiceCompletion ends the service of the packet at the server.
	ServiceCompletion EventKind = iota
	// Arrival brings a new packet to the system.
	Arrival
	// Termination stops a time-limited run.
	Termination
)

var eventKindNames = map[EventKind]string{
	ServiceCompletion: "service-completion",
	Arrival:           "arrival",
	Termination:       "termination",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is a scheduled occurrence of an EventKind at Time (ms).
// seq is assigned by the EventChain on insertion and breaks ties between
// events of the same kind at the same time.
type Event struct {
	Time float64
	Kind EventKind
	seq  uint64
}

func (e Event) String() string {
	return fmt.Sprintf("%s@%g", e.Kind, e.Time)
}

// before reports whether e must be processed before o.
// Order by: time → kind priority → insertion sequence.
func (e Event) before(o Event) bool {
	if e.Time != o.Time {
		return e.Time < o.Time
	}
	if e.Kind != o.Kind {
		return e.Kind < o.Kind
	}
	return e.seq < o.seq
}
