package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalEvents    int            `json:"total_events"`
	EventsByKind   map[string]int `json:"events_by_kind"`
	Arrivals       int            `json:"arrivals"`
	AdmittedCount  int            `json:"admitted"`
	RejectedCount  int            `json:"rejected"`
	DirectToServer int            `json:"direct_to_server"`
	BlockingRatio  float64        `json:"blocking_ratio"`
	MaxQueueLength int            `json:"max_queue_length"`
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		EventsByKind: make(map[string]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalEvents = len(st.Events)
	for _, e := range st.Events {
		summary.EventsByKind[e.Kind]++
		if e.QueueLength > summary.MaxQueueLength {
			summary.MaxQueueLength = e.QueueLength
		}
	}

	summary.Arrivals = len(st.Admissions)
	for _, a := range st.Admissions {
		if a.Admitted {
			summary.AdmittedCount++
		} else {
			summary.RejectedCount++
		}
		if a.Reason == ReasonServer {
			summary.DirectToServer++
		}
	}
	if summary.Arrivals > 0 {
		summary.BlockingRatio = float64(summary.RejectedCount) / float64(summary.Arrivals)
	}

	return summary
}
