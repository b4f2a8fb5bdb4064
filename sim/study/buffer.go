package study

import (
	"fmt"
	"math"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/queue-sim/sim"
	"github.com/inference-sim/queue-sim/sim/stats"
)

// BufferSizePoint is the outcome of the replications at one buffer size.
type BufferSizePoint struct {
	BufferSize          int           `json:"buffer_size"`
	Runs                int           `json:"runs"`
	SuccessfulRuns      int           `json:"successful_runs"`
	SuccessRatio        float64       `json:"success_ratio"`
	BlockingProbability Estimate      `json:"blocking_probability"`
	BlockingHistogram   HistogramData `json:"blocking_histogram"`
}

// MinimumBufferResult is the outcome of MinimumBufferSize. BufferSize is -1
// when no candidate qualified.
type MinimumBufferResult struct {
	BufferSize int               `json:"buffer_size"`
	Points     []BufferSizePoint `json:"points"`
}

// MinimumBufferSize returns the smallest buffer size for which more than
// successQuantile of runs replications drop fewer than maxDropped packets.
// Candidates are tried in ascending order and the search stops at the first
// that qualifies. ErrNoBufferSize is returned alongside the evaluated points
// when none does.
func MinimumBufferSize(s *sim.Simulator, sizes []int, runs, maxDropped int, successQuantile float64) (MinimumBufferResult, error) {
	result := MinimumBufferResult{BufferSize: -1}
	if len(sizes) == 0 {
		return result, fmt.Errorf("no buffer sizes to evaluate")
	}
	if math.IsNaN(successQuantile) || successQuantile < 0 || successQuantile >= 1 {
		return result, fmt.Errorf("success quantile must be in [0, 1), got %f", successQuantile)
	}
	if maxDropped < 0 {
		return result, fmt.Errorf("max dropped must be non-negative, got %d", maxDropped)
	}
	defer restore(s, s.Config())

	candidates := slices.Clone(sizes)
	slices.Sort(candidates)
	alpha := s.Config().Alpha
	for _, size := range candidates {
		if err := withConfig(s, func(c *sim.Config) { c.BufferSize = size }); err != nil {
			return result, fmt.Errorf("buffer size %d: %w", size, err)
		}
		blocking := stats.NewTimeIndependentCounter("blocking probability")
		hist := stats.BlockingProbabilityHistogram()
		successes := 0
		err := replicate(s, runs, func(r sim.SimResult) {
			blocking.Count(r.BlockingProbability)
			hist.Count(r.BlockingProbability)
			if r.PacketsDropped < int64(maxDropped) {
				successes++
			}
		})
		if err != nil {
			return result, fmt.Errorf("buffer size %d: %w", size, err)
		}
		histogram, err := stats.Finalized(hist)
		if err != nil {
			return result, fmt.Errorf("buffer size %d: %w", size, err)
		}

		point := BufferSizePoint{
			BufferSize:          size,
			Runs:                runs,
			SuccessfulRuns:      successes,
			SuccessRatio:        float64(successes) / float64(runs),
			BlockingProbability: estimate(blocking, alpha),
			BlockingHistogram:   histogram,
		}
		result.Points = append(result.Points, point)
		logrus.Infof("S=%d: %d/%d runs dropped fewer than %d packets", size, successes, runs, maxDropped)

		if point.SuccessRatio > successQuantile {
			result.BufferSize = size
			return result, nil
		}
	}
	return result, ErrNoBufferSize
}

// BufferComparison summarizes per-replication means at one buffer size.
type BufferComparison struct {
	BufferSize           int           `json:"buffer_size"`
	WaitingTime          Estimate      `json:"mean_waiting_time_ms"`
	QueueLength          Estimate      `json:"mean_queue_length"`
	WaitingTimeHistogram HistogramData `json:"waiting_time_histogram"`
	QueueLengthHistogram HistogramData `json:"queue_length_histogram"`
}

// CompareBufferSizes runs runs replications at every buffer size and collects
// the distribution of the mean waiting time and the mean queue length.
func CompareBufferSizes(s *sim.Simulator, sizes []int, runs int) ([]BufferComparison, error) {
	if len(sizes) == 0 {
		return nil, fmt.Errorf("no buffer sizes to compare")
	}
	defer restore(s, s.Config())

	alpha := s.Config().Alpha
	maxQueue := max(s.Config().MaxBufferSize, slices.Max(sizes))
	out := make([]BufferComparison, 0, len(sizes))
	for _, size := range sizes {
		if err := withConfig(s, func(c *sim.Config) { c.BufferSize = size }); err != nil {
			return nil, fmt.Errorf("buffer size %d: %w", size, err)
		}
		waiting := stats.NewTimeIndependentCounter("mean waiting time")
		queue := stats.NewTimeIndependentCounter("mean queue length")
		waitingHist := stats.WaitingTimeHistogram()
		queueHist := stats.QueueLengthHistogram(maxQueue)
		err := replicate(s, runs, func(r sim.SimResult) {
			waiting.Count(r.MeanWaitingTime)
			queue.Count(r.MeanQueueLength)
			waitingHist.Count(r.MeanWaitingTime)
			queueHist.Count(r.MeanQueueLength)
		})
		if err != nil {
			return nil, fmt.Errorf("buffer size %d: %w", size, err)
		}

		cmp := BufferComparison{
			BufferSize:  size,
			WaitingTime: estimate(waiting, alpha),
			QueueLength: estimate(queue, alpha),
		}
		if cmp.WaitingTimeHistogram, err = stats.Finalized(waitingHist); err != nil {
			return nil, err
		}
		if cmp.QueueLengthHistogram, err = stats.Finalized(queueHist); err != nil {
			return nil, err
		}
		logrus.Infof("S=%d: waiting time %s, queue length %s", size, cmp.WaitingTime, cmp.QueueLength)
		out = append(out, cmp)
	}
	return out, nil
}
