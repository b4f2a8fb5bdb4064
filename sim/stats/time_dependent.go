package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// TimeDependentCounter counts values weighted by the time they were in effect.
//
// A value counted at time t stays in effect until the next Count (or Advance).
// The first value is in effect from the window start set by ResetAt, so the
// weights always sum to lastTimestamp - firstTimestamp.
type TimeDependentCounter struct {
	name           string
	values         []float64
	weights        []float64
	firstTimestamp float64
	lastTimestamp  float64
}

// NewTimeDependentCounter creates an empty counter whose window starts at 0.
func NewTimeDependentCounter(name string) *TimeDependentCounter {
	return &TimeDependentCounter{name: name}
}

func (c *TimeDependentCounter) Name() string { return c.name }
func (c *TimeDependentCounter) Len() int     { return len(c.values) }

// FirstTimestamp returns the start of the normalization window.
func (c *TimeDependentCounter) FirstTimestamp() float64 { return c.firstTimestamp }

// LastTimestamp returns the time of the last observation.
func (c *TimeDependentCounter) LastTimestamp() float64 { return c.lastTimestamp }

// Count records value as the one in effect from now on.
func (c *TimeDependentCounter) Count(value, now float64) error {
	dt, err := c.elapsed(now)
	if err != nil {
		return err
	}
	if len(c.values) == 0 {
		c.values = append(c.values, value)
		c.weights = append(c.weights, dt)
	} else {
		c.weights[len(c.weights)-1] += dt
		c.values = append(c.values, value)
		c.weights = append(c.weights, 0)
	}
	c.lastTimestamp = now
	return nil
}

// Advance extends the value currently in effect up to now without counting a new one.
func (c *TimeDependentCounter) Advance(now float64) error {
	dt, err := c.elapsed(now)
	if err != nil {
		return err
	}
	if len(c.values) == 0 {
		return nil
	}
	c.weights[len(c.weights)-1] += dt
	c.lastTimestamp = now
	return nil
}

func (c *TimeDependentCounter) elapsed(now float64) (float64, error) {
	dt := now - c.lastTimestamp
	if dt < 0 {
		return 0, fmt.Errorf("%s: clock %g is before last observation %g: %w", c.name, now, c.lastTimestamp, ErrNegativeDuration)
	}
	return dt, nil
}

// Reset clears the counter and restarts the window at 0.
func (c *TimeDependentCounter) Reset() {
	c.ResetAt(0)
}

// ResetAt clears the counter and restarts the window at now.
func (c *TimeDependentCounter) ResetAt(now float64) {
	c.values = nil
	c.weights = nil
	c.firstTimestamp = now
	c.lastTimestamp = now
}

// Values returns the counted values. Callers MUST NOT modify the slice.
func (c *TimeDependentCounter) Values() []float64 { return c.values }

// Weights returns the time each value was in effect. Callers MUST NOT modify the slice.
func (c *TimeDependentCounter) Weights() []float64 { return c.weights }

func (c *TimeDependentCounter) duration() (float64, error) {
	if len(c.values) == 0 {
		return 0, fmt.Errorf("%s: %w", c.name, ErrNoValues)
	}
	d := c.lastTimestamp - c.firstTimestamp
	if d <= 0 {
		return 0, fmt.Errorf("%s: %w", c.name, ErrZeroDuration)
	}
	return d, nil
}

// Mean returns sum(value*duration) / window length.
func (c *TimeDependentCounter) Mean() (float64, error) {
	d, err := c.duration()
	if err != nil {
		return 0, err
	}
	return floats.Dot(c.values, c.weights) / d, nil
}

// Variance returns the time-weighted second moment minus the squared mean.
func (c *TimeDependentCounter) Variance() (float64, error) {
	d, err := c.duration()
	if err != nil {
		return 0, err
	}
	mean := floats.Dot(c.values, c.weights) / d
	var m2 float64
	for i, v := range c.values {
		m2 += v * v * c.weights[i]
	}
	return m2/d - mean*mean, nil
}

func (c *TimeDependentCounter) StdDev() (float64, error) {
	v, err := c.Variance()
	if err != nil {
		return 0, err
	}
	// rounding can push a constant series slightly below zero
	return math.Sqrt(math.Max(v, 0)), nil
}

func (c *TimeDependentCounter) Summary() Summary {
	return summarize(c)
}
