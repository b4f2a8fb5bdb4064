// Package stats provides the online statistics used by the queue simulator:
// counters, confidence intervals, histograms and goodness-of-fit tests.
//
// This package has no dependency on sim/. Time-dependent types take the
// current simulation clock as an explicit argument instead of holding a
// reference to the simulator.
package stats

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNoValues is returned when a statistic is requested from an empty counter.
	ErrNoValues = errors.New("stats: no values counted")
	// ErrInsufficientSamples is returned when an estimator needs more samples than counted.
	ErrInsufficientSamples = errors.New("stats: insufficient samples")
	// ErrZeroDuration is returned by time-dependent statistics over an empty time window.
	ErrZeroDuration = errors.New("stats: observation window has zero duration")
	// ErrNegativeDuration is returned when the clock passed to a time-dependent
	// counter is earlier than its last observation.
	ErrNegativeDuration = errors.New("stats: negative duration")
	// ErrInvalidAlpha is returned for significance levels outside [0, 1].
	ErrInvalidAlpha = errors.New("stats: alpha must be in [0, 1]")
	// ErrZeroVariance marks an undefined correlation. Callers may skip the lag or pair.
	ErrZeroVariance = errors.New("stats: correlation undefined for zero variance")
	// ErrNegativeLag is returned for auto-correlation lags below zero.
	ErrNegativeLag = errors.New("stats: lag must be non-negative")
)

// Counter is the read/reset surface shared by every counter kind.
// Counting itself differs per kind (one value, a timed value, a pair).
type Counter interface {
	Name() string
	Len() int
	Reset()
	Mean() (float64, error)
	Variance() (float64, error)
	StdDev() (float64, error)
	Summary() Summary
}

// Summary is a read-only snapshot of a counter for the reporting layer.
// Undefined statistics are NaN.
type Summary struct {
	Name     string  `json:"name"`
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	StdDev   float64 `json:"std_dev"`
}

func (s Summary) String() string {
	if s.Count == 0 {
		return fmt.Sprintf("Name: %s, no values", s.Name)
	}
	return fmt.Sprintf("Name: %s, Mean: %g, Variance: %g", s.Name, s.Mean, s.Variance)
}

// summarize builds a Summary, mapping statistic errors to NaN.
func summarize(c Counter) Summary {
	s := Summary{Name: c.Name(), Count: c.Len(), Mean: math.NaN(), Variance: math.NaN(), StdDev: math.NaN()}
	if m, err := c.Mean(); err == nil {
		s.Mean = m
	}
	if v, err := c.Variance(); err == nil {
		s.Variance = v
	}
	if sd, err := c.StdDev(); err == nil {
		s.StdDev = sd
	}
	return s
}

func validateAlpha(alpha float64) error {
	if math.IsNaN(alpha) || alpha < 0 || alpha > 1 {
		return fmt.Errorf("%w, got %f", ErrInvalidAlpha, alpha)
	}
	return nil
}
