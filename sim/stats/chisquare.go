package stats

import (
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	// ErrBinMismatch is returned when edges and frequencies do not describe the same bins.
	ErrBinMismatch = errors.New("stats: edges must have exactly one more entry than frequencies")
	// ErrInsufficientBins is returned when merging low-frequency tails leaves no degrees of freedom.
	ErrInsufficientBins = errors.New("stats: not enough bins for a chi-square test")
)

// minExpectedFrequency is the smallest expected count a merged head or tail bin may hold.
const minExpectedFrequency = 5.0

// ChiSquare tests whether binned observations follow a Normal distribution.
type ChiSquare struct {
	name  string
	edges []float64
	freqs []float64
}

// NewChiSquare creates a test over k bins: edges holds the k+1 bin borders,
// freqs the k observed frequencies. Both slices are copied.
func NewChiSquare(name string, edges, freqs []float64) (*ChiSquare, error) {
	if len(edges) != len(freqs)+1 {
		return nil, fmt.Errorf("%s: %d edges, %d frequencies: %w", name, len(edges), len(freqs), ErrBinMismatch)
	}
	return &ChiSquare{
		name:  name,
		edges: append([]float64(nil), edges...),
		freqs: append([]float64(nil), freqs...),
	}, nil
}

// Name returns the test name.
func (c *ChiSquare) Name() string { return c.name }

// Test computes the chi-square statistic of the observations against
// Normal(mean, variance) and the critical value at significance alpha.
//
// Expected counts come from the Normal CDF scaled by the total number of
// observations. Leading bins are merged into one head bin until its expected
// count reaches 5, trailing bins likewise into one tail bin. Degrees of
// freedom are the surviving bins minus 3 (mean and variance are estimated).
func (c *ChiSquare) Test(alpha, mean, variance float64) (statistic, critical float64, err error) {
	if err := validateAlpha(alpha); err != nil {
		return 0, 0, err
	}
	if !(variance > 0) {
		return 0, 0, fmt.Errorf("%s: variance must be positive, got %g", c.name, variance)
	}

	k := len(c.freqs)
	n := floats.Sum(c.freqs)
	normal := distuv.Normal{Mu: mean, Sigma: math.Sqrt(variance)}
	expected := make([]float64, k)
	for j := range expected {
		expected[j] = (normal.CDF(c.edges[j+1]) - normal.CDF(c.edges[j])) * n
	}

	head, headExp, headObs := 0, 0.0, 0.0
	for headExp < minExpectedFrequency && head < k {
		headExp += expected[head]
		headObs += c.freqs[head]
		head++
	}
	tail, tailExp, tailObs := k, 0.0, 0.0
	for tailExp < minExpectedFrequency && tail > head {
		tail--
		tailExp += expected[tail]
		tailObs += c.freqs[tail]
	}
	if headExp < minExpectedFrequency || tailExp < minExpectedFrequency {
		return 0, 0, fmt.Errorf("%s: expected counts too small to merge head and tail: %w", c.name, ErrInsufficientBins)
	}

	obs := append([]float64{headObs}, c.freqs[head:tail]...)
	obs = append(obs, tailObs)
	exp := append([]float64{headExp}, expected[head:tail]...)
	exp = append(exp, tailExp)

	df := len(obs) - 2 - 1
	if df < 1 {
		return 0, 0, fmt.Errorf("%s: %d bins after merging: %w", c.name, len(obs), ErrInsufficientBins)
	}
	logrus.Debugf("%s: O_i = %v", c.name, obs)
	logrus.Debugf("%s: E_i = %v", c.name, exp)

	for i := range obs {
		d := obs[i] - exp[i]
		statistic += d * d / exp[i]
	}
	critical = distuv.ChiSquared{K: float64(df)}.Quantile(1 - alpha)
	return statistic, critical, nil
}

// Rejects reports whether H0 is rejected, i.e. the statistic exceeds the critical value.
func Rejects(statistic, critical float64) bool {
	return statistic > critical
}
