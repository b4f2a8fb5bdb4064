package sim

import "fmt"

// SimResult is the aggregate outcome of one run (or one batch).
type SimResult struct {
	Arrivals            int64   `json:"arrivals"`
	PacketsAccepted     int64   `json:"packets_accepted"`
	PacketsDropped      int64   `json:"packets_dropped"`
	PacketsCompleted    int64   `json:"packets_completed"`
	BlockingProbability float64 `json:"blocking_probability"`
	MeanWaitingTime     float64 `json:"mean_waiting_time_ms"`
	MeanQueueLength     float64 `json:"mean_queue_length"`
	SystemUtilization   float64 `json:"system_utilization"`
	EndTime             float64 `json:"end_time_ms"`
}

func (r SimResult) String() string {
	return fmt.Sprintf("arrivals=%d accepted=%d dropped=%d completed=%d blocking=%.6f wait=%.3fms queue=%.4f util=%.4f end=%.1fms",
		r.Arrivals, r.PacketsAccepted, r.PacketsDropped, r.PacketsCompleted,
		r.BlockingProbability, r.MeanWaitingTime, r.MeanQueueLength, r.SystemUtilization, r.EndTime)
}
