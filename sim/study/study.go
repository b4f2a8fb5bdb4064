// Package study drives repeated simulations over one sim.Simulator: buffer
// sizing, load sweeps, sequential confidence estimation and goodness of fit.
//
// Every study installs its parameters through Simulator.SetConfig, so each
// study point starts at replication 0 and points share common random numbers.
// The simulator's previous config is restored when a study returns.
package study

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/queue-sim/sim"
	"github.com/inference-sim/queue-sim/sim/stats"
)

// Estimate is a JSON-safe snapshot of a replication counter. Statistics that
// are undefined for the sample (variance of one value) are reported as 0.
type Estimate struct {
	Samples   int     `json:"samples"`
	Mean      float64 `json:"mean"`
	Variance  float64 `json:"variance"`
	HalfWidth float64 `json:"half_width"`
}

// Lower returns the lower bound of the confidence interval.
func (e Estimate) Lower() float64 { return e.Mean - e.HalfWidth }

// Upper returns the upper bound of the confidence interval.
func (e Estimate) Upper() float64 { return e.Mean + e.HalfWidth }

func (e Estimate) String() string {
	return fmt.Sprintf("%.6g ± %.3g (n=%d, var=%.4g)", e.Mean, e.HalfWidth, e.Samples, e.Variance)
}

func estimate(c *stats.TimeIndependentCounter, alpha float64) Estimate {
	e := Estimate{Samples: c.Len()}
	var err error
	if e.Mean, err = c.Mean(); err != nil {
		logrus.Debugf("%s: mean undefined: %v", c.Name(), err)
		return e
	}
	if e.Variance, err = c.Variance(); err != nil {
		logrus.Debugf("%s: variance undefined: %v", c.Name(), err)
		return e
	}
	if e.HalfWidth, err = c.ConfidenceInterval(alpha); err != nil {
		logrus.Debugf("%s: confidence interval undefined: %v", c.Name(), err)
		e.HalfWidth = 0
	}
	return e
}

// HistogramData holds finalized bins: Counts[i] covers [Edges[i], Edges[i+1]].
type HistogramData = stats.Bins

// withConfig applies mutate to a copy of the simulator's config and installs
// it, restarting at replication 0.
func withConfig(s *sim.Simulator, mutate func(*sim.Config)) error {
	cfg := s.Config()
	mutate(&cfg)
	return s.SetConfig(cfg)
}

// restore reinstalls cfg after a study. cfg was valid when the study started.
func restore(s *sim.Simulator, cfg sim.Config) {
	if err := s.SetConfig(cfg); err != nil {
		logrus.Warnf("restoring config after study: %v", err)
	}
}

// replicate runs independent time-limited replications 0..runs-1 of the
// installed config and hands each result to observe.
func replicate(s *sim.Simulator, runs int, observe func(sim.SimResult)) error {
	if runs < 1 {
		return fmt.Errorf("runs must be positive, got %d", runs)
	}
	for i := 0; i < runs; i++ {
		if i > 0 {
			s.Reset()
		}
		r, err := s.Run()
		if err != nil {
			return fmt.Errorf("replication %d: %w", i, err)
		}
		observe(r)
	}
	return nil
}

// ErrNoBufferSize is returned when no candidate buffer size meets the drop budget.
var ErrNoBufferSize = errors.New("study: no buffer size meets the drop budget")
