// Package analytic provides closed-form queueing models used as references
// for simulated results.
package analytic

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrNotSolved is returned when reading measures before Solve.
var ErrNotSolved = errors.New("analytic: model not solved")

// MM1K is the M/M/1/K finite storage single server queue.
// K counts every packet in the system, the one in service included, so a
// buffer of S places corresponds to K = S+1.
type MM1K struct {
	K      int
	lambda float64
	mu     float64
	rho    float64
	p      []float64
	solved bool

	meanInSystem float64
	throughput   float64
}

// NewMM1K creates an unsolved model with capacity k.
func NewMM1K(k int) *MM1K {
	return &MM1K{K: k}
}

// Solve computes the state probabilities for arrival rate lambda and service rate mu.
func (m *MM1K) Solve(lambda, mu float64) error {
	if m.K < 1 {
		return fmt.Errorf("capacity must be positive, got %d", m.K)
	}
	if !(lambda > 0) || math.IsInf(lambda, 0) {
		return fmt.Errorf("lambda must be positive, got %f", lambda)
	}
	if !(mu > 0) || math.IsInf(mu, 0) {
		return fmt.Errorf("mu must be positive, got %f", mu)
	}
	m.lambda, m.mu = lambda, mu
	m.rho = lambda / mu
	m.computeProbabilities()

	m.meanInSystem = 0
	for i, pi := range m.p {
		m.meanInSystem += float64(i) * pi
	}
	m.throughput = m.lambda * (1 - m.p[m.K])
	m.solved = true
	return nil
}

func (m *MM1K) computeProbabilities() {
	m.p = make([]float64, m.K+1)
	// p[0]
	if m.rho == 1 {
		m.p[0] = 1 / float64(m.K+1)
	} else {
		m.p[0] = (1 - m.rho) / (1 - math.Pow(m.rho, float64(m.K+1)))
	}
	// p[i], i=1,2, ..., K
	for i := 1; i <= m.K; i++ {
		m.p[i] = m.p[0] * math.Pow(m.rho, float64(i))
	}
}

// Rho returns the offered load lambda/mu.
func (m *MM1K) Rho() float64 { return m.rho }

// Probabilities returns p[0..K], the probability of i packets in the system.
func (m *MM1K) Probabilities() ([]float64, error) {
	if !m.solved {
		return nil, ErrNotSolved
	}
	return append([]float64(nil), m.p...), nil
}

// BlockingProbability returns p[K], the fraction of arrivals that find the system full.
func (m *MM1K) BlockingProbability() (float64, error) {
	if !m.solved {
		return 0, ErrNotSolved
	}
	return m.p[m.K], nil
}

// Utilization returns 1 - p[0], the fraction of time the server is busy.
func (m *MM1K) Utilization() (float64, error) {
	if !m.solved {
		return 0, ErrNotSolved
	}
	return 1 - m.p[0], nil
}

// Throughput returns the departure rate lambda * (1 - p[K]).
func (m *MM1K) Throughput() (float64, error) {
	if !m.solved {
		return 0, ErrNotSolved
	}
	return m.throughput, nil
}

// MeanNumberInSystem returns sum(i * p[i]).
func (m *MM1K) MeanNumberInSystem() (float64, error) {
	if !m.solved {
		return 0, ErrNotSolved
	}
	return m.meanInSystem, nil
}

// MeanQueueLength returns the mean number of waiting packets.
func (m *MM1K) MeanQueueLength() (float64, error) {
	if !m.solved {
		return 0, ErrNotSolved
	}
	return m.meanInSystem - (1 - m.p[0]), nil
}

// MeanWaitingTime returns the mean time in the buffer of admitted packets (Little's law).
func (m *MM1K) MeanWaitingTime() (float64, error) {
	lq, err := m.MeanQueueLength()
	if err != nil {
		return 0, err
	}
	return lq / m.throughput, nil
}

func (m *MM1K) String() string {
	if !m.solved {
		return fmt.Sprintf("MM1K: K=%d; unsolved", m.K)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "MM1K: K=%d; lambda=%g; mu=%g; rho=%g; ", m.K, m.lambda, m.mu, m.rho)
	fmt.Fprintf(&b, "blocking=%g; tput=%g; L=%g", m.p[m.K], m.throughput, m.meanInSystem)
	return b.String()
}
