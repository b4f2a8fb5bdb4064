package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/xid"

	"github.com/inference-sim/queue-sim/sim"
	"github.com/inference-sim/queue-sim/sim/analytic"
	"github.com/inference-sim/queue-sim/sim/stats"
	"github.com/inference-sim/queue-sim/sim/trace"
)

// AnalyticReference holds the M/M/1/(S+1) figures a run is compared with.
type AnalyticReference struct {
	BlockingProbability float64 `json:"blocking_probability"`
	SystemUtilization   float64 `json:"system_utilization"`
	MeanQueueLength     float64 `json:"mean_queue_length"`
	MeanWaitingTime     float64 `json:"mean_waiting_time_ms"`
}

// RunOutput is the JSON document written by `queue-sim run`.
type RunOutput struct {
	RunID          string              `json:"run_id"`
	Config         sim.Config          `json:"config"`
	Results        []sim.SimResult     `json:"results"`
	Analytic       *AnalyticReference  `json:"analytic,omitempty"`
	TraceSummary   *trace.TraceSummary `json:"trace_summary,omitempty"`
	CountersReport string              `json:"counters_report"`

	WaitingTimeHistogram *stats.Bins `json:"waiting_time_histogram,omitempty"`
	QueueLengthHistogram *stats.Bins `json:"queue_length_histogram,omitempty"`
}

// StudyOutput is the JSON document written by `queue-sim study ...`.
type StudyOutput struct {
	RunID  string     `json:"run_id"`
	Study  string     `json:"study"`
	Config sim.Config `json:"config"`
	Result any        `json:"result"`
}

// analyticReference solves M/M/1/(S+1) for cfg. It returns nil when a stream
// is not exponential and the model does not apply.
func analyticReference(cfg sim.Config) (*AnalyticReference, error) {
	for _, d := range []string{cfg.ArrivalDist, cfg.ServiceDist} {
		if d != "" && d != sim.DistExponential {
			return nil, nil
		}
	}
	model := analytic.NewMM1K(cfg.BufferSize + 1)
	if err := model.Solve(cfg.ArrivalRate(), cfg.ServiceRate()); err != nil {
		return nil, fmt.Errorf("analytic model: %w", err)
	}
	ref := &AnalyticReference{}
	ref.BlockingProbability, _ = model.BlockingProbability()
	ref.SystemUtilization, _ = model.Utilization()
	ref.MeanQueueLength, _ = model.MeanQueueLength()
	ref.MeanWaitingTime, _ = model.MeanWaitingTime()
	return ref, nil
}

// runSimulation runs independent replications of cfg. With packets > 0 each
// replication stops after that many completions instead of at the horizon.
// The counters report, histograms and trace summary describe the last replication.
func runSimulation(cfg sim.Config, packets, replications int) (*RunOutput, error) {
	if replications < 1 {
		return nil, fmt.Errorf("replications must be positive, got %d", replications)
	}
	if packets < 0 {
		return nil, fmt.Errorf("packets must be non-negative, got %d", packets)
	}
	s, err := sim.NewSimulator(cfg)
	if err != nil {
		return nil, err
	}
	out := &RunOutput{RunID: xid.New().String(), Config: cfg}
	for i := 0; i < replications; i++ {
		if i > 0 {
			s.Reset()
		}
		var r sim.SimResult
		if packets > 0 {
			r, err = s.RunPackets(packets, false)
		} else {
			r, err = s.Run()
		}
		if err != nil {
			return nil, fmt.Errorf("replication %d: %w", i, err)
		}
		out.Results = append(out.Results, r)
	}
	out.CountersReport = s.Counters().Report()
	if out.WaitingTimeHistogram, out.QueueLengthHistogram, err = s.Counters().Histograms(); err != nil {
		return nil, err
	}
	if tr := s.Trace(); tr != nil {
		out.TraceSummary = trace.Summarize(tr)
	}
	if out.Analytic, err = analyticReference(cfg); err != nil {
		return nil, err
	}
	return out, nil
}

// printRun writes a human-readable summary of out to w.
func printRun(w io.Writer, out *RunOutput) {
	_, _ = fmt.Fprintln(w, "=== Simulation Results ===")
	_, _ = fmt.Fprintf(w, "Run ID               : %s\n", out.RunID)
	for i, r := range out.Results {
		_, _ = fmt.Fprintf(w, "Replication %-8d : %s\n", i, r)
	}
	if a := out.Analytic; a != nil {
		_, _ = fmt.Fprintln(w, "=== M/M/1/K Reference ===")
		_, _ = fmt.Fprintf(w, "Blocking Probability : %.6f\n", a.BlockingProbability)
		_, _ = fmt.Fprintf(w, "Utilization          : %.4f\n", a.SystemUtilization)
		_, _ = fmt.Fprintf(w, "Mean Queue Length    : %.4f\n", a.MeanQueueLength)
		_, _ = fmt.Fprintf(w, "Mean Waiting Time    : %.3f ms\n", a.MeanWaitingTime)
	}
	if ts := out.TraceSummary; ts != nil {
		_, _ = fmt.Fprintln(w, "=== Trace Summary ===")
		_, _ = fmt.Fprintf(w, "Events               : %d\n", ts.TotalEvents)
		_, _ = fmt.Fprintf(w, "Admitted / Rejected  : %d / %d\n", ts.AdmittedCount, ts.RejectedCount)
		_, _ = fmt.Fprintf(w, "Max Queue Length     : %d\n", ts.MaxQueueLength)
	}
	_, _ = fmt.Fprintln(w, "=== Counters ===")
	_, _ = fmt.Fprint(w, out.CountersReport)
	printHistogram(w, "Waiting Time (ms)", out.WaitingTimeHistogram)
	printHistogram(w, "Queue Length", out.QueueLengthHistogram)
}

// printHistogram lists the non-empty bins of b; nil prints nothing.
func printHistogram(w io.Writer, title string, b *stats.Bins) {
	if b == nil {
		return
	}
	_, _ = fmt.Fprintf(w, "=== Histogram: %s ===\n", title)
	for i, c := range b.Counts {
		if c == 0 {
			continue
		}
		_, _ = fmt.Fprintf(w, "[%10.3f, %10.3f) : %.4f\n", b.Edges[i], b.Edges[i+1], c)
	}
}

// writeResults writes v as indented JSON to path.
func writeResults(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
