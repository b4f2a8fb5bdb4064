package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/queue-sim/sim"
	"github.com/inference-sim/queue-sim/sim/study"
)

var (
	// study flags mapped onto sim.Config
	epsilon    float64 // Target precision of sequential estimation
	maxDropped int     // Drop budget of the minimum-buffer search

	opts studyOptions
)

// studyOptions carries the study parameters that are not part of sim.Config.
type studyOptions struct {
	Sizes           []int
	SuccessQuantile float64
	Rhos            []float64
	MaxRuns         int
	BatchSize       int
	MaxBatches      int
	Bins            int
}

func defaultStudyOptions() studyOptions {
	return studyOptions{
		SuccessQuantile: 0.8,
		Rhos:            []float64{0.01, 0.5, 0.8, 0.9},
		MaxRuns:         10000,
		BatchSize:       100,
		MaxBatches:      100000,
		Bins:            20,
	}
}

// Study names accepted by executeStudy.
const (
	StudyMinBuffer  = "min-buffer"
	StudyCompare    = "compare"
	StudyRho        = "rho"
	StudyConfidence = "confidence"
	StudyBatch      = "batch"
	StudyFit        = "fit"
)

// executeStudy runs the named study on a fresh simulator for cfg.
func executeStudy(name string, cfg sim.Config, o studyOptions) (*StudyOutput, error) {
	s, err := sim.NewSimulator(cfg)
	if err != nil {
		return nil, err
	}
	out := &StudyOutput{RunID: xid.New().String(), Study: name, Config: cfg}

	switch name {
	case StudyMinBuffer:
		sizes := o.Sizes
		if len(sizes) == 0 {
			for size := 0; size <= cfg.MaxBufferSize; size++ {
				sizes = append(sizes, size)
			}
		}
		r, err := study.MinimumBufferSize(s, sizes, cfg.Runs, cfg.MaxDropped, o.SuccessQuantile)
		if errors.Is(err, study.ErrNoBufferSize) {
			logrus.Warnf("none of the buffer sizes %v meets the drop budget of %d", sizes, cfg.MaxDropped)
			err = nil
		}
		out.Result = r
		return out, err
	case StudyCompare:
		sizes := o.Sizes
		if len(sizes) == 0 {
			sizes = cfg.BufferSizes
		}
		out.Result, err = study.CompareBufferSizes(s, sizes, cfg.Runs)
	case StudyRho:
		out.Result, err = study.UtilizationByRho(s, o.Rhos, cfg.Runs)
	case StudyConfidence:
		out.Result, err = study.ReplicateUntilConfident(s, cfg.Alpha, cfg.Epsilon, o.MaxRuns)
	case StudyBatch:
		out.Result, err = study.BatchMeans(s, o.BatchSize, cfg.Alpha, cfg.Epsilon, o.MaxBatches)
	case StudyFit:
		out.Result, err = study.UtilizationFit(s, cfg.Runs, o.Bins, cfg.Alpha)
	default:
		return nil, fmt.Errorf("unknown study %q", name)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// printStudy writes a human-readable summary of out to w.
func printStudy(w io.Writer, out *StudyOutput) {
	_, _ = fmt.Fprintf(w, "=== Study %s (%s) ===\n", out.Study, out.RunID)
	switch r := out.Result.(type) {
	case study.MinimumBufferResult:
		for _, p := range r.Points {
			_, _ = fmt.Fprintf(w, "S=%-3d success %d/%d (%.2f)  blocking %s\n",
				p.BufferSize, p.SuccessfulRuns, p.Runs, p.SuccessRatio, p.BlockingProbability)
		}
		if r.BufferSize < 0 {
			_, _ = fmt.Fprintln(w, "Minimum buffer size  : none")
		} else {
			_, _ = fmt.Fprintf(w, "Minimum buffer size  : %d\n", r.BufferSize)
		}
	case []study.BufferComparison:
		for _, c := range r {
			_, _ = fmt.Fprintf(w, "S=%-3d waiting time %s ms  queue length %s\n", c.BufferSize, c.WaitingTime, c.QueueLength)
		}
	case []study.LoadPoint:
		for _, p := range r {
			_, _ = fmt.Fprintf(w, "rho=%-5g utilization %s (analytic %.4f)  blocking %s (analytic %.6f)\n",
				p.Rho, p.Utilization, p.AnalyticUtilization, p.BlockingProbability, p.AnalyticBlockingProbability)
		}
	case study.ConfidenceResult:
		_, _ = fmt.Fprintf(w, "Samples              : %d (converged: %v)\n", r.Samples, r.Converged)
		_, _ = fmt.Fprintf(w, "Blocking Probability : %s\n", r.BlockingProbability)
		_, _ = fmt.Fprintf(w, "Bootstrap Interval   : [%.6f, %.6f]\n", r.BootstrapLower, r.BootstrapUpper)
		_, _ = fmt.Fprintf(w, "Simulated Time       : %.0f ms\n", r.SimulatedTime)
	case study.FitResult:
		_, _ = fmt.Fprintf(w, "Utilization          : mean %.6f, variance %.6g over %d runs\n", r.Mean, r.Variance, r.Runs)
		_, _ = fmt.Fprintf(w, "Chi-square           : %.4f (critical %.4f)\n", r.Statistic, r.Critical)
		if r.Rejected {
			_, _ = fmt.Fprintln(w, "H0 rejected: utilizations are not Normal")
		} else {
			_, _ = fmt.Fprintln(w, "H0 not rejected")
		}
	}
}

// studyCmd groups the replication studies
var studyCmd = &cobra.Command{
	Use:   "study",
	Short: "Run a replication study",
}

func newStudyCommand(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := resolveConfig(cmd.Flags())
			if err != nil {
				logrus.Fatalf("%v", err)
			}
			logrus.Infof("Starting study %s with seed %d", name, cfg.Seed)
			out, err := executeStudy(name, cfg, opts)
			if err != nil {
				logrus.Fatalf("Study %s failed: %v", name, err)
			}
			printStudy(cmd.OutOrStdout(), out)
			if resultsPath != "" {
				if err := writeResults(resultsPath, out); err != nil {
					logrus.Fatalf("Failed to write results: %v", err)
				}
			}
		},
	}
}

func init() {
	def := sim.DefaultConfig()
	defOpts := defaultStudyOptions()
	studyCmd.PersistentFlags().Float64Var(&epsilon, "epsilon", def.Epsilon, "Target precision: stop once the CI half width is at most 2*epsilon")
	studyCmd.PersistentFlags().IntVar(&maxDropped, "max-dropped", def.MaxDropped, "Drop budget per run for the minimum-buffer search")

	minBuffer := newStudyCommand(StudyMinBuffer, "Find the smallest buffer meeting the drop budget")
	minBuffer.Flags().IntSliceVar(&opts.Sizes, "sizes", nil, "Candidate buffer sizes (default 0..max_buffer_size)")
	minBuffer.Flags().Float64Var(&opts.SuccessQuantile, "success-quantile", defOpts.SuccessQuantile, "Share of runs that must meet the drop budget")

	compare := newStudyCommand(StudyCompare, "Compare waiting time and queue length across buffer sizes")
	compare.Flags().IntSliceVar(&opts.Sizes, "sizes", nil, "Buffer sizes to compare (default buffer_sizes)")

	rhoSweep := newStudyCommand(StudyRho, "Sweep the offered load and compare utilization with M/M/1/K")
	rhoSweep.Flags().Float64SliceVar(&opts.Rhos, "rhos", defOpts.Rhos, "Offered loads to evaluate")

	confidence := newStudyCommand(StudyConfidence, "Replicate until the blocking probability CI is narrow enough")
	confidence.Flags().IntVar(&opts.MaxRuns, "max-runs", defOpts.MaxRuns, "Upper bound on replications")

	batch := newStudyCommand(StudyBatch, "Estimate the blocking probability from batches of one long run")
	batch.Flags().IntVar(&opts.BatchSize, "batch-size", defOpts.BatchSize, "Completed packets per batch")
	batch.Flags().IntVar(&opts.MaxBatches, "max-batches", defOpts.MaxBatches, "Upper bound on batches")

	fit := newStudyCommand(StudyFit, "Chi-square test of per-run utilizations against a Normal fit")
	fit.Flags().IntVar(&opts.Bins, "bins", defOpts.Bins, "Histogram bins")

	studyCmd.AddCommand(minBuffer, compare, rhoSweep, confidence, batch, fit)
	rootCmd.AddCommand(studyCmd)
}
