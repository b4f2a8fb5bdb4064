package study

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/inference-sim/queue-sim/sim"
	"github.com/inference-sim/queue-sim/sim/analytic"
	"github.com/inference-sim/queue-sim/sim/stats"
)

// LoadPoint compares simulated and analytic figures at one offered load.
type LoadPoint struct {
	Rho                         float64  `json:"rho"`
	Utilization                 Estimate `json:"utilization"`
	BlockingProbability         Estimate `json:"blocking_probability"`
	AnalyticUtilization         float64  `json:"analytic_utilization"`
	AnalyticBlockingProbability float64  `json:"analytic_blocking_probability"`
}

// UtilizationByRho runs runs replications at every offered load and reports
// the server utilization next to the M/M/1/(S+1) value. The analytic figures
// only apply to exponential streams.
func UtilizationByRho(s *sim.Simulator, rhos []float64, runs int) ([]LoadPoint, error) {
	if len(rhos) == 0 {
		return nil, fmt.Errorf("no loads to evaluate")
	}
	defer restore(s, s.Config())

	out := make([]LoadPoint, 0, len(rhos))
	for _, rho := range rhos {
		if err := withConfig(s, func(c *sim.Config) { c.Rho = rho }); err != nil {
			return nil, fmt.Errorf("rho %g: %w", rho, err)
		}
		cfg := s.Config()
		util := stats.NewTimeIndependentCounter("utilization")
		blocking := stats.NewTimeIndependentCounter("blocking probability")
		err := replicate(s, runs, func(r sim.SimResult) {
			util.Count(r.SystemUtilization)
			blocking.Count(r.BlockingProbability)
		})
		if err != nil {
			return nil, fmt.Errorf("rho %g: %w", rho, err)
		}

		model := analytic.NewMM1K(cfg.BufferSize + 1)
		if err := model.Solve(cfg.ArrivalRate(), cfg.ServiceRate()); err != nil {
			return nil, fmt.Errorf("rho %g: %w", rho, err)
		}
		point := LoadPoint{
			Rho:                 rho,
			Utilization:         estimate(util, cfg.Alpha),
			BlockingProbability: estimate(blocking, cfg.Alpha),
		}
		point.AnalyticUtilization, _ = model.Utilization()
		point.AnalyticBlockingProbability, _ = model.BlockingProbability()
		logrus.Infof("rho=%g: utilization %s (analytic %.4f)", rho, point.Utilization, point.AnalyticUtilization)
		out = append(out, point)
	}
	return out, nil
}

// FitResult is the outcome of a chi-square test of per-run utilizations
// against a Normal distribution with the sample mean and variance.
type FitResult struct {
	Runs        int       `json:"runs"`
	Mean        float64   `json:"mean"`
	Variance    float64   `json:"variance"`
	Edges       []float64 `json:"edges"`
	Frequencies []float64 `json:"frequencies"`
	Statistic   float64   `json:"statistic"`
	Critical    float64   `json:"critical"`
	Rejected    bool      `json:"rejected"`
}

// UtilizationFit runs runs replications, bins the per-run utilizations into
// bins equal-width bins over their observed range and tests whether they
// follow Normal(mean, variance) at significance alpha.
func UtilizationFit(s *sim.Simulator, runs, bins int, alpha float64) (FitResult, error) {
	if runs < 2 {
		return FitResult{}, fmt.Errorf("fit needs at least 2 runs, got %d", runs)
	}
	if bins < 1 {
		return FitResult{}, fmt.Errorf("bins must be positive, got %d", bins)
	}
	defer restore(s, s.Config())
	if err := s.SetConfig(s.Config()); err != nil {
		return FitResult{}, err
	}

	util := stats.NewTimeIndependentCounter("utilization")
	if err := replicate(s, runs, func(r sim.SimResult) { util.Count(r.SystemUtilization) }); err != nil {
		return FitResult{}, err
	}
	values := util.Values()
	mean, _ := util.Mean()
	variance, err := util.Variance()
	if err != nil {
		return FitResult{}, err
	}

	hist := stats.NewTimeIndependentHistogram("utilization", bins, floats.Min(values), floats.Max(values))
	for _, v := range values {
		hist.Count(v)
	}
	data, err := stats.Finalized(hist)
	if err != nil {
		return FitResult{}, err
	}
	// relative frequencies back to counts
	freqs := make([]float64, len(data.Counts))
	floats.ScaleTo(freqs, float64(runs), data.Counts)

	cs, err := stats.NewChiSquare("utilization", data.Edges, freqs)
	if err != nil {
		return FitResult{}, err
	}
	statistic, critical, err := cs.Test(alpha, mean, variance)
	if err != nil {
		return FitResult{}, fmt.Errorf("chi-square test: %w", err)
	}
	result := FitResult{
		Runs:        runs,
		Mean:        mean,
		Variance:    variance,
		Edges:       data.Edges,
		Frequencies: freqs,
		Statistic:   statistic,
		Critical:    critical,
		Rejected:    stats.Rejects(statistic, critical),
	}
	logrus.Infof("utilization fit: chi2=%.4f critical=%.4f rejected=%v", statistic, critical, result.Rejected)
	return result, nil
}
