package sim

import (
	"fmt"
	"math/rand"
)

// RandomVariateSource produces IID samples (ms) for inter-arrival or service times.
type RandomVariateSource interface {
	// Next returns the next non-negative sample.
	Next() float64
}

// ExponentialSource draws Exp(rate) samples.
type ExponentialSource struct {
	rate float64
	rng  *rand.Rand
}

// NewExponentialSource creates a source with mean 1/rate.
func NewExponentialSource(rate float64, rng *rand.Rand) *ExponentialSource {
	return &ExponentialSource{rate: rate, rng: rng}
}

func (s *ExponentialSource) Next() float64 {
	return s.rng.ExpFloat64() / s.rate
}

// UniformSource draws U(a, b) samples.
type UniformSource struct {
	a, b float64
	rng  *rand.Rand
}

// NewUniformSource creates a source on [a, b).
func NewUniformSource(a, b float64, rng *rand.Rand) *UniformSource {
	return &UniformSource{a: a, b: b, rng: rng}
}

func (s *UniformSource) Next() float64 {
	return s.a + (s.b-s.a)*s.rng.Float64()
}

// ConstantSource always returns the same value.
type ConstantSource struct {
	value float64
}

// NewConstantSource creates a deterministic source.
func NewConstantSource(value float64) *ConstantSource {
	return &ConstantSource{value: value}
}

func (s *ConstantSource) Next() float64 {
	return s.value
}

// NewVariateSource builds a source of the named family with the given mean.
// The uniform family spans [0, 2*mean].
func NewVariateSource(dist string, mean float64, rng *rand.Rand) (RandomVariateSource, error) {
	if !(mean > 0) {
		return nil, fmt.Errorf("variate mean must be positive, got %f", mean)
	}
	switch dist {
	case DistExponential, "":
		return NewExponentialSource(1/mean, rng), nil
	case DistUniform:
		return NewUniformSource(0, 2*mean, rng), nil
	case DistConstant:
		return NewConstantSource(mean), nil
	default:
		return nil, fmt.Errorf("unknown distribution %q; valid: exponential, uniform, constant", dist)
	}
}
