// Package trace provides event and admission trace recording for queue simulations.
// This package has no dependencies on sim/; it stores pure data types.
package trace

// Admission reasons.
const (
	ReasonServer     = "server"      // idle server took the packet directly
	ReasonQueue      = "queue"       // packet waits in the buffer
	ReasonBufferFull = "buffer-full" // packet dropped
)

// EventRecord captures the system state right after an event was processed.
type EventRecord struct {
	Seq         int     `json:"seq"`
	Clock       float64 `json:"clock"`
	Kind        string  `json:"kind"`
	QueueLength int     `json:"queue_length"`
	ServerBusy  bool    `json:"server_busy"`
}

// AdmissionRecord captures the outcome of a single arrival.
type AdmissionRecord struct {
	Clock    float64 `json:"clock"`
	Admitted bool    `json:"admitted"`
	Reason   string  `json:"reason"`
}
