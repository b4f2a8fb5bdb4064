package stats

import (
	"fmt"
	"math"
	"strings"

	"github.com/sirupsen/logrus"
)

// CrossCorrelationCounter accumulates paired samples (x, y) and reports their
// covariance E[xy]-E[x]E[y] and correlation.
type CrossCorrelationCounter struct {
	name string
	x    *TimeIndependentCounter
	y    *TimeIndependentCounter
	xy   *TimeIndependentCounter
}

// NewCrossCorrelationCounter creates an empty counter.
func NewCrossCorrelationCounter(name string) *CrossCorrelationCounter {
	return &CrossCorrelationCounter{
		name: name,
		x:    NewTimeIndependentCounter(name + ".x"),
		y:    NewTimeIndependentCounter(name + ".y"),
		xy:   NewTimeIndependentCounter(name + ".xy"),
	}
}

func (c *CrossCorrelationCounter) Name() string { return c.name }
func (c *CrossCorrelationCounter) Len() int     { return c.x.Len() }

// Count adds one (x, y) pair.
func (c *CrossCorrelationCounter) Count(x, y float64) {
	c.x.Count(x)
	c.y.Count(y)
	c.xy.Count(x * y)
}

func (c *CrossCorrelationCounter) Reset() {
	c.x.Reset()
	c.y.Reset()
	c.xy.Reset()
}

// X returns the first series. Callers MUST NOT modify the slice.
func (c *CrossCorrelationCounter) X() []float64 { return c.x.Values() }

// Y returns the second series. Callers MUST NOT modify the slice.
func (c *CrossCorrelationCounter) Y() []float64 { return c.y.Values() }

// Mean returns the mean of the x series.
func (c *CrossCorrelationCounter) Mean() (float64, error) { return c.x.Mean() }

// Variance returns the unbiased variance of the x series.
func (c *CrossCorrelationCounter) Variance() (float64, error) { return c.x.Variance() }

func (c *CrossCorrelationCounter) StdDev() (float64, error) { return c.x.StdDev() }

func (c *CrossCorrelationCounter) Summary() Summary { return summarize(c) }

// Covariance returns E[xy] - E[x]E[y].
func (c *CrossCorrelationCounter) Covariance() (float64, error) {
	exy, err := c.xy.Mean()
	if err != nil {
		return 0, err
	}
	ex, _ := c.x.Mean()
	ey, _ := c.y.Mean()
	return exy - ex*ey, nil
}

// Correlation returns Covariance / sqrt(var(x) var(y)).
// When either variance is zero it logs a warning and returns NaN with ErrZeroVariance.
func (c *CrossCorrelationCounter) Correlation() (float64, error) {
	cov, err := c.Covariance()
	if err != nil {
		return 0, err
	}
	_, varX, _ := c.x.popMoments()
	_, varY, _ := c.y.popMoments()
	if varX == 0 || varY == 0 {
		logrus.Warnf("%s: correlation undefined, var(x)=%g var(y)=%g", c.name, varX, varY)
		return math.NaN(), fmt.Errorf("%s: %w", c.name, ErrZeroVariance)
	}
	return cov / math.Sqrt(varX*varY), nil
}

// Report renders covariance and correlation on one line.
func (c *CrossCorrelationCounter) Report() string {
	cov, _ := c.Covariance()
	cor, _ := c.Correlation()
	return fmt.Sprintf("Name: %s; covariance = %g; correlation = %g", c.name, cov, cor)
}

// AutoCorrelationCounter reports the auto covariance and auto correlation of a
// series against a cyclically shifted copy of itself.
type AutoCorrelationCounter struct {
	series *TimeIndependentCounter
	maxLag int
}

// NewAutoCorrelationCounter creates an empty counter reporting lags 0..maxLag.
func NewAutoCorrelationCounter(name string, maxLag int) *AutoCorrelationCounter {
	if maxLag < 0 {
		maxLag = 0
	}
	return &AutoCorrelationCounter{series: NewTimeIndependentCounter(name), maxLag: maxLag}
}

func (c *AutoCorrelationCounter) Name() string               { return c.series.Name() }
func (c *AutoCorrelationCounter) Len() int                   { return c.series.Len() }
func (c *AutoCorrelationCounter) Count(x float64)            { c.series.Count(x) }
func (c *AutoCorrelationCounter) Reset()                     { c.series.Reset() }
func (c *AutoCorrelationCounter) Mean() (float64, error)     { return c.series.Mean() }
func (c *AutoCorrelationCounter) Variance() (float64, error) { return c.series.Variance() }
func (c *AutoCorrelationCounter) StdDev() (float64, error)   { return c.series.StdDev() }
func (c *AutoCorrelationCounter) Summary() Summary           { return summarize(c) }

// MaxLag returns the largest lag included in reports.
func (c *AutoCorrelationCounter) MaxLag() int { return c.maxLag }

// SetMaxLag changes the reporting cycle to lags 0..maxLag.
func (c *AutoCorrelationCounter) SetMaxLag(maxLag int) error {
	if maxLag < 0 {
		return fmt.Errorf("max lag %d: %w", maxLag, ErrNegativeLag)
	}
	c.maxLag = maxLag
	return nil
}

// AutoCovariance returns E[x_i * x_{(i+lag) mod n}] - E[x]^2.
func (c *AutoCorrelationCounter) AutoCovariance(lag int) (float64, error) {
	if lag < 0 {
		return 0, fmt.Errorf("lag %d: %w", lag, ErrNegativeLag)
	}
	values := c.series.Values()
	n := len(values)
	if n == 0 {
		return 0, fmt.Errorf("%s: %w", c.Name(), ErrNoValues)
	}
	mean, _, _ := c.series.popMoments()
	var sum float64
	for i, v := range values {
		sum += v * values[(i+lag)%n]
	}
	return sum/float64(n) - mean*mean, nil
}

// AutoCorrelation returns AutoCovariance(lag) normalized by the series variance.
// A constant series has no defined correlation: NaN with ErrZeroVariance.
func (c *AutoCorrelationCounter) AutoCorrelation(lag int) (float64, error) {
	cov, err := c.AutoCovariance(lag)
	if err != nil {
		return 0, err
	}
	_, variance, _ := c.series.popMoments()
	if variance == 0 {
		logrus.Warnf("%s: auto correlation undefined for a constant series", c.Name())
		return math.NaN(), fmt.Errorf("%s: %w", c.Name(), ErrZeroVariance)
	}
	return cov / variance, nil
}

// Lag is one row of an auto-correlation report.
type Lag struct {
	Lag         int     `json:"lag"`
	Covariance  float64 `json:"covariance"`
	Correlation float64 `json:"correlation"`
}

// Lags computes lags 0..MaxLag. Undefined correlations are NaN.
func (c *AutoCorrelationCounter) Lags() ([]Lag, error) {
	if c.series.Len() == 0 {
		return nil, fmt.Errorf("%s: %w", c.Name(), ErrNoValues)
	}
	_, variance, _ := c.series.popMoments()
	if variance == 0 {
		logrus.Warnf("%s: auto correlation undefined for a constant series", c.Name())
	}
	lags := make([]Lag, 0, c.maxLag+1)
	for lag := 0; lag <= c.maxLag; lag++ {
		cov, err := c.AutoCovariance(lag)
		if err != nil {
			return nil, err
		}
		cor := math.NaN()
		if variance != 0 {
			cor = cov / variance
		}
		lags = append(lags, Lag{Lag: lag, Covariance: cov, Correlation: cor})
	}
	return lags, nil
}

// Report renders one line per lag.
func (c *AutoCorrelationCounter) Report() string {
	var sb strings.Builder
	sb.WriteString("Name: " + c.Name())
	lags, err := c.Lags()
	if err != nil {
		sb.WriteString("; " + err.Error())
		return sb.String()
	}
	for _, l := range lags {
		fmt.Fprintf(&sb, "\nLag = %d; covariance = %g; correlation = %g", l.Lag, l.Covariance, l.Correlation)
	}
	return sb.String()
}
