package study

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/queue-sim/sim"
	"github.com/inference-sim/queue-sim/sim/stats"
)

// bootstrapResamples is the number of resamples behind the bootstrap interval.
const bootstrapResamples = 500

// ConfidenceResult is the outcome of a sequential estimation of the blocking
// probability. Samples counts replications or batches.
type ConfidenceResult struct {
	Samples             int      `json:"samples"`
	Converged           bool     `json:"converged"`
	BlockingProbability Estimate `json:"blocking_probability"`
	BootstrapLower      float64  `json:"bootstrap_lower"`
	BootstrapUpper      float64  `json:"bootstrap_upper"`
	SimulatedTime       float64  `json:"simulated_time_ms"`
}

// confident reports whether the counter holds at least two samples and the
// half width of its confidence interval is at most 2*epsilon.
func confident(c *stats.TimeIndependentCounter, alpha, epsilon float64) bool {
	if c.Len() < 2 {
		return false
	}
	h, err := c.ConfidenceInterval(alpha)
	if err != nil {
		logrus.Debugf("%s after %d samples: %v", c.Name(), c.Len(), err)
		return false
	}
	return h <= 2*epsilon
}

func validateSequential(alpha, epsilon float64, limit int) error {
	if math.IsNaN(alpha) || alpha <= 0 || alpha >= 1 {
		return fmt.Errorf("alpha must be in (0, 1), got %f", alpha)
	}
	if math.IsNaN(epsilon) || epsilon <= 0 {
		return fmt.Errorf("epsilon must be positive, got %f", epsilon)
	}
	if limit < 2 {
		return fmt.Errorf("sample limit must be at least 2, got %d", limit)
	}
	return nil
}

// finish fills the estimate and the bootstrap interval of the counted samples.
func finish(s *sim.Simulator, c *stats.TimeIndependentCounter, alpha float64, result *ConfidenceResult) {
	result.Samples = c.Len()
	result.BlockingProbability = estimate(c, alpha)
	rng := s.RNG().ForSubsystem(sim.SubsystemBootstrap)
	lower, upper, err := c.BootstrapConfidenceInterval(alpha, bootstrapResamples, rng)
	if err != nil {
		logrus.Debugf("bootstrap interval undefined: %v", err)
		return
	}
	result.BootstrapLower, result.BootstrapUpper = lower, upper
}

// ReplicateUntilConfident runs independent time-limited replications until the
// confidence interval of the blocking probability at level 1-alpha has a half
// width of at most 2*epsilon, or maxRuns replications ran.
func ReplicateUntilConfident(s *sim.Simulator, alpha, epsilon float64, maxRuns int) (ConfidenceResult, error) {
	if err := validateSequential(alpha, epsilon, maxRuns); err != nil {
		return ConfidenceResult{}, err
	}
	defer restore(s, s.Config())
	if err := s.SetConfig(s.Config()); err != nil {
		return ConfidenceResult{}, err
	}

	var result ConfidenceResult
	blocking := stats.NewTimeIndependentCounter("blocking probability")
	for run := 0; run < maxRuns; run++ {
		if run > 0 {
			s.Reset()
		}
		r, err := s.Run()
		if err != nil {
			return result, fmt.Errorf("replication %d: %w", run, err)
		}
		blocking.Count(r.BlockingProbability)
		result.SimulatedTime += r.EndTime
		if confident(blocking, alpha, epsilon) {
			result.Converged = true
			break
		}
	}
	finish(s, blocking, alpha, &result)
	logrus.Infof("confidence after %d runs (converged=%v): %s", result.Samples, result.Converged, result.BlockingProbability)
	return result, nil
}

// BatchMeans runs one long simulation in batches of batchSize completed
// packets. Each batch continues from the state left by the previous one and
// contributes one blocking probability; batching stops once the confidence
// criterion of ReplicateUntilConfident holds or after maxBatches batches.
func BatchMeans(s *sim.Simulator, batchSize int, alpha, epsilon float64, maxBatches int) (ConfidenceResult, error) {
	if batchSize < 1 {
		return ConfidenceResult{}, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	if err := validateSequential(alpha, epsilon, maxBatches); err != nil {
		return ConfidenceResult{}, err
	}
	defer restore(s, s.Config())
	if err := s.SetConfig(s.Config()); err != nil {
		return ConfidenceResult{}, err
	}

	var result ConfidenceResult
	blocking := stats.NewTimeIndependentCounter("blocking probability")
	for batch := 0; batch < maxBatches; batch++ {
		if batch > 0 {
			if err := s.BeginBatch(); err != nil {
				return result, fmt.Errorf("batch %d: %w", batch, err)
			}
		}
		r, err := s.RunPackets(batchSize, batch > 0)
		if err != nil {
			return result, fmt.Errorf("batch %d: %w", batch, err)
		}
		blocking.Count(r.BlockingProbability)
		if confident(blocking, alpha, epsilon) {
			result.Converged = true
			break
		}
	}
	result.SimulatedTime = s.Clock()
	finish(s, blocking, alpha, &result)
	logrus.Infof("confidence after %d batches of %d packets (converged=%v): %s", result.Samples, batchSize, result.Converged, result.BlockingProbability)
	return result, nil
}
