package stats

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// TimeIndependentCounter counts values regardless of how long they were in effect.
// It also reports parametric and bootstrap confidence intervals of the mean.
type TimeIndependentCounter struct {
	name   string
	values []float64
}

// NewTimeIndependentCounter creates an empty counter.
func NewTimeIndependentCounter(name string) *TimeIndependentCounter {
	return &TimeIndependentCounter{name: name}
}

func (c *TimeIndependentCounter) Name() string { return c.name }
func (c *TimeIndependentCounter) Len() int     { return len(c.values) }

// Count appends a value.
func (c *TimeIndependentCounter) Count(value float64) {
	c.values = append(c.values, value)
}

// Reset drops all counted values.
func (c *TimeIndependentCounter) Reset() {
	c.values = nil
}

// Values returns the counted values in counting order.
// The returned slice is the counter's storage; callers MUST NOT modify it.
func (c *TimeIndependentCounter) Values() []float64 {
	return c.values
}

// Mean returns the arithmetic mean.
func (c *TimeIndependentCounter) Mean() (float64, error) {
	if len(c.values) == 0 {
		return 0, fmt.Errorf("%s: %w", c.name, ErrNoValues)
	}
	return stat.Mean(c.values, nil), nil
}

// Variance returns the unbiased (n-1) sample variance.
func (c *TimeIndependentCounter) Variance() (float64, error) {
	if len(c.values) == 0 {
		return 0, fmt.Errorf("%s: %w", c.name, ErrNoValues)
	}
	if len(c.values) < 2 {
		return 0, fmt.Errorf("%s: variance needs 2 values, got %d: %w", c.name, len(c.values), ErrInsufficientSamples)
	}
	return stat.Variance(c.values, nil), nil
}

func (c *TimeIndependentCounter) StdDev() (float64, error) {
	v, err := c.Variance()
	if err != nil {
		return 0, err
	}
	return math.Sqrt(v), nil
}

func (c *TimeIndependentCounter) Summary() Summary {
	return summarize(c)
}

// popMoments returns E[x] and E[x^2]-E[x]^2 over the counted values.
// Used by the correlation counters so that a series correlates to exactly 1 with itself.
func (c *TimeIndependentCounter) popMoments() (mean, variance float64, err error) {
	if len(c.values) == 0 {
		return 0, 0, fmt.Errorf("%s: %w", c.name, ErrNoValues)
	}
	n := float64(len(c.values))
	var sum, sumSq float64
	for _, v := range c.values {
		sum += v
		sumSq += v * v
	}
	mean = sum / n
	if isConstant(c.values) {
		return mean, 0, nil
	}
	return mean, sumSq/n - mean*mean, nil
}

// isConstant reports whether every value equals the first one.
func isConstant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

// ConfidenceInterval returns the half width h = sqrt(var/n) * t(1-alpha/2, n-1)
// of the confidence interval of the mean.
func (c *TimeIndependentCounter) ConfidenceInterval(alpha float64) (float64, error) {
	if err := validateAlpha(alpha); err != nil {
		return 0, err
	}
	variance, err := c.Variance()
	if err != nil {
		return 0, err
	}
	n := float64(len(c.values))
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: n - 1}.Quantile(1 - alpha/2)
	return math.Sqrt(variance/n) * t, nil
}

// IsInConfidenceInterval reports whether x lies in [mean-h, mean+h].
func (c *TimeIndependentCounter) IsInConfidenceInterval(x, alpha float64) (bool, error) {
	h, err := c.ConfidenceInterval(alpha)
	if err != nil {
		return false, err
	}
	mean, _ := c.Mean()
	return mean-h <= x && x <= mean+h, nil
}

// BootstrapConfidenceInterval returns the pivotal bootstrap interval of the mean.
// Each of resampleSize resamples (with replacement, same size as the sample)
// contributes delta = resampleMean - sampleMean; the bounds are
// sampleMean - q(1-alpha/2) and sampleMean - q(alpha/2) of the deltas.
func (c *TimeIndependentCounter) BootstrapConfidenceInterval(alpha float64, resampleSize int, rng *rand.Rand) (lower, upper float64, err error) {
	if err := validateAlpha(alpha); err != nil {
		return 0, 0, err
	}
	if resampleSize < 1 {
		return 0, 0, fmt.Errorf("resample size must be positive, got %d", resampleSize)
	}
	if rng == nil {
		return 0, 0, fmt.Errorf("bootstrap requires a random source")
	}
	mean, err := c.Mean()
	if err != nil {
		return 0, 0, err
	}

	n := len(c.values)
	deltas := make([]float64, resampleSize)
	for i := range deltas {
		var sum float64
		for j := 0; j < n; j++ {
			sum += c.values[rng.Intn(n)]
		}
		deltas[i] = sum/float64(n) - mean
	}
	sort.Float64s(deltas)

	upperDelta := stat.Quantile(1-alpha/2, stat.LinInterp, deltas, nil)
	lowerDelta := stat.Quantile(alpha/2, stat.LinInterp, deltas, nil)
	logrus.Debugf("%s: bootstrap deltas [%g, %g] over %d resamples", c.name, lowerDelta, upperDelta, resampleSize)
	return mean - upperDelta, mean - lowerDelta, nil
}

// IsInBootstrapConfidenceInterval reports whether x lies in the bootstrap interval.
func (c *TimeIndependentCounter) IsInBootstrapConfidenceInterval(x float64, resampleSize int, alpha float64, rng *rand.Rand) (bool, error) {
	lower, upper, err := c.BootstrapConfidenceInterval(alpha, resampleSize, rng)
	if err != nil {
		return false, err
	}
	return lower <= x && x <= upper, nil
}
